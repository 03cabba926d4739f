package grpc

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/godilite/feedback-kiosk/internal/repository/models"
	"github.com/godilite/feedback-kiosk/internal/service"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// toStruct converts v through its JSON form, so field names match the REST API.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	return structpb.NewStruct(m)
}

func intField(req *structpb.Struct, name string) (int, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return 0, nil
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return 0, nil
	}
	n, isNumber := v.GetKind().(*structpb.Value_NumberValue)
	if !isNumber || n.NumberValue != math.Trunc(n.NumberValue) || math.Abs(n.NumberValue) > math.MaxInt32 {
		return 0, status.Errorf(codes.InvalidArgument, "%s must be an integer", name)
	}
	return int(n.NumberValue), nil
}

func parseViewQuery(req *structpb.Struct) (service.ViewQuery, error) {
	var (
		q   service.ViewQuery
		err error
	)
	if q.Rating, err = intField(req, "rating"); err != nil {
		return q, err
	}
	if q.Page, err = intField(req, "page"); err != nil {
		return q, err
	}
	if q.Year, err = intField(req, "year"); err != nil {
		return q, err
	}
	return q, nil
}

func parseSubmission(req *structpb.Struct) (models.Submission, error) {
	var sub models.Submission

	rating, err := intField(req, "rating")
	if err != nil {
		return sub, err
	}
	sub.Rating = rating

	if v, ok := req.GetFields()["selectedOptions"]; ok {
		list, isList := v.GetKind().(*structpb.Value_ListValue)
		if !isList {
			return sub, status.Error(codes.InvalidArgument, "selectedOptions must be a list of strings")
		}
		for _, item := range list.ListValue.GetValues() {
			str, isString := item.GetKind().(*structpb.Value_StringValue)
			if !isString {
				return sub, status.Error(codes.InvalidArgument, "selectedOptions must be a list of strings")
			}
			sub.SelectedOptions = append(sub.SelectedOptions, str.StringValue)
		}
	}

	if v, ok := req.GetFields()["comment"]; ok {
		str, isString := v.GetKind().(*structpb.Value_StringValue)
		if !isString {
			return sub, status.Error(codes.InvalidArgument, "comment must be a string")
		}
		sub.Comment = str.StringValue
	}

	return sub, nil
}
