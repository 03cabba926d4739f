package models

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	MinRating          = 1
	MaxRating          = 5
	MaxSelectedOptions = 3
	MaxCommentLength   = 1000
)

var ErrInvalidSubmission = errors.New("invalid feedback submission")

// FeedbackRecord is one customer submission as delivered by a backend.
// CreatedAt is nil until the backend has acknowledged the write.
type FeedbackRecord struct {
	ID              string     `json:"id"`
	Rating          int        `json:"rating"`
	SelectedOptions []string   `json:"selectedOptions"`
	Comment         string     `json:"comment"`
	CreatedAt       *time.Time `json:"createdAt"`
}

// HasValidRating reports whether the record's rating is inside 1..5.
func (r FeedbackRecord) HasValidRating() bool {
	return r.Rating >= MinRating && r.Rating <= MaxRating
}

// Submission is the payload a kiosk sends. ID and CreatedAt are assigned by the backend.
type Submission struct {
	Rating          int      `json:"rating" validate:"min=1,max=5"`
	SelectedOptions []string `json:"selectedOptions" validate:"max=3,unique,dive,category"`
	Comment         string   `json:"comment" validate:"max=1000"`
}

// Category is an entry of the fixed tag catalog shown on the kiosk.
type Category struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

var catalog = []Category{
	{ID: "atendimento_otimo", Label: "Ótimo Atendimento"},
	{ID: "atendimento_ruim", Label: "Péssimo Atendimento"},
	{ID: "produtos_faltando", Label: "Falta de Produtos"},
	{ID: "produtos_qualidade", Label: "Produtos de Qualidade"},
	{ID: "preco_bom", Label: "Preços Acessíveis"},
	{ID: "preco_alto", Label: "Preços Altos"},
	{ID: "ambiente_limpo", Label: "Ambiente Limpo"},
	{ID: "ambiente_sujo", Label: "Ambiente Sujo"},
}

// Categories returns a copy of the catalog in display order.
func Categories() []Category {
	out := make([]Category, len(catalog))
	copy(out, catalog)
	return out
}

// LookupCategory resolves a tag id against the catalog.
func LookupCategory(id string) (Category, bool) {
	for _, c := range catalog {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func submissionValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
			_, ok := LookupCategory(fl.Field().String())
			return ok
		})
		validate = v
	})
	return validate
}

// Normalize trims the comment and drops empty tag ids.
func (s Submission) Normalize() Submission {
	opts := make([]string, 0, len(s.SelectedOptions))
	for _, o := range s.SelectedOptions {
		if o = strings.TrimSpace(o); o != "" {
			opts = append(opts, o)
		}
	}
	s.SelectedOptions = opts
	s.Comment = strings.TrimSpace(s.Comment)
	return s
}

// Validate checks the submission against the kiosk rules.
func (s Submission) Validate() error {
	err := submissionValidator().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field, _, _ := strings.Cut(fe.StructField(), "[")
		switch field {
		case "Rating":
			return fmt.Errorf("%w: rating must be between %d and %d", ErrInvalidSubmission, MinRating, MaxRating)
		case "SelectedOptions":
			if fe.Tag() == "max" {
				return fmt.Errorf("%w: at most %d options can be selected", ErrInvalidSubmission, MaxSelectedOptions)
			}
			return fmt.Errorf("%w: selected options must be distinct catalog ids", ErrInvalidSubmission)
		case "Comment":
			return fmt.Errorf("%w: comment exceeds %d characters", ErrInvalidSubmission, MaxCommentLength)
		}
	}
	return fmt.Errorf("%w: %v", ErrInvalidSubmission, err)
}
