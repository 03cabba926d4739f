package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// The dashboard API carries its payloads as google.protobuf.Struct so that
// the JSON shape served over REST and gRPC stays identical.

const (
	ServiceName = "feedback.v1.FeedbackDashboard"

	FeedbackDashboard_GetDashboard_FullMethodName   = "/" + ServiceName + "/GetDashboard"
	FeedbackDashboard_SubmitFeedback_FullMethodName = "/" + ServiceName + "/SubmitFeedback"
	FeedbackDashboard_ListCategories_FullMethodName = "/" + ServiceName + "/ListCategories"
	FeedbackDashboard_WatchDashboard_FullMethodName = "/" + ServiceName + "/WatchDashboard"
)

type FeedbackDashboardServer interface {
	GetDashboard(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SubmitFeedback(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListCategories(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	WatchDashboard(*structpb.Struct, grpc.ServerStreamingServer[structpb.Struct]) error
}

func RegisterFeedbackDashboardServer(s grpc.ServiceRegistrar, srv FeedbackDashboardServer) {
	s.RegisterService(&FeedbackDashboard_ServiceDesc, srv)
}

func _FeedbackDashboard_GetDashboard_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FeedbackDashboardServer).GetDashboard(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: FeedbackDashboard_GetDashboard_FullMethodName,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(FeedbackDashboardServer).GetDashboard(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _FeedbackDashboard_SubmitFeedback_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FeedbackDashboardServer).SubmitFeedback(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: FeedbackDashboard_SubmitFeedback_FullMethodName,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(FeedbackDashboardServer).SubmitFeedback(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _FeedbackDashboard_ListCategories_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FeedbackDashboardServer).ListCategories(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: FeedbackDashboard_ListCategories_FullMethodName,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(FeedbackDashboardServer).ListCategories(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func _FeedbackDashboard_WatchDashboard_Handler(srv any, stream grpc.ServerStream) error {
	m := new(structpb.Struct)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(FeedbackDashboardServer).WatchDashboard(m, &grpc.GenericServerStream[structpb.Struct, structpb.Struct]{ServerStream: stream})
}

var FeedbackDashboard_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*FeedbackDashboardServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetDashboard",
			Handler:    _FeedbackDashboard_GetDashboard_Handler,
		},
		{
			MethodName: "SubmitFeedback",
			Handler:    _FeedbackDashboard_SubmitFeedback_Handler,
		},
		{
			MethodName: "ListCategories",
			Handler:    _FeedbackDashboard_ListCategories_Handler,
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchDashboard",
			Handler:       _FeedbackDashboard_WatchDashboard_Handler,
			ServerStreams: true,
		},
	},
	Metadata: "feedback/v1/dashboard.proto",
}

// FeedbackDashboardClient is the client side of the dashboard API.
type FeedbackDashboardClient struct {
	cc grpc.ClientConnInterface
}

func NewFeedbackDashboardClient(cc grpc.ClientConnInterface) *FeedbackDashboardClient {
	return &FeedbackDashboardClient{cc: cc}
}

func (c *FeedbackDashboardClient) GetDashboard(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FeedbackDashboard_GetDashboard_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *FeedbackDashboardClient) SubmitFeedback(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FeedbackDashboard_SubmitFeedback_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *FeedbackDashboardClient) ListCategories(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FeedbackDashboard_ListCategories_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *FeedbackDashboardClient) WatchDashboard(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (grpc.ServerStreamingClient[structpb.Struct], error) {
	stream, err := c.cc.NewStream(ctx, &FeedbackDashboard_ServiceDesc.Streams[0], FeedbackDashboard_WatchDashboard_FullMethodName, opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[structpb.Struct, structpb.Struct]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
