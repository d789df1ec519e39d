package deliverypb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	serviceName              = "delivery.v1.Delivery"
	methodProcessOrderStream = "ProcessOrderStream"
	methodProcessFollowUp    = "ProcessFollowUp"
)

// DeliveryServer is the server-side contract, in the shape
// protoc-gen-go-grpc would generate from a .proto file.
type DeliveryServer interface {
	ProcessOrderStream(*StreamOrderRequest, Delivery_ProcessOrderStreamServer) error
	ProcessFollowUp(context.Context, *FollowUpRequest) (*FollowUpResponse, error)
}

// UnimplementedDeliveryServer can be embedded for forward compatibility.
type UnimplementedDeliveryServer struct{}

func (UnimplementedDeliveryServer) ProcessOrderStream(*StreamOrderRequest, Delivery_ProcessOrderStreamServer) error {
	return status.Error(codes.Unimplemented, "method ProcessOrderStream not implemented")
}

func (UnimplementedDeliveryServer) ProcessFollowUp(context.Context, *FollowUpRequest) (*FollowUpResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ProcessFollowUp not implemented")
}

// Delivery_ProcessOrderStreamServer is the server-streaming send half.
type Delivery_ProcessOrderStreamServer interface {
	Send(*StreamOrderEvent) error
	grpc.ServerStream
}

type deliveryProcessOrderStreamServer struct {
	grpc.ServerStream
}

func (x *deliveryProcessOrderStreamServer) Send(m *StreamOrderEvent) error {
	return x.ServerStream.SendMsg(m)
}

func _Delivery_ProcessOrderStream_Handler(srv any, stream grpc.ServerStream) error {
	m := new(StreamOrderRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(DeliveryServer).ProcessOrderStream(m, &deliveryProcessOrderStreamServer{stream})
}

func _Delivery_ProcessFollowUp_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(FollowUpRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DeliveryServer).ProcessFollowUp(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/" + methodProcessFollowUp}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DeliveryServer).ProcessFollowUp(ctx, req.(*FollowUpRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// ServiceDesc is registered against a *grpc.Server the same way
// generated code registers it.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*DeliveryServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: methodProcessFollowUp, Handler: _Delivery_ProcessFollowUp_Handler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: methodProcessOrderStream, Handler: _Delivery_ProcessOrderStream_Handler, ServerStreams: true},
	},
	Metadata: "delivery/v1/delivery.proto",
}

// RegisterDeliveryServer wires srv into s, mirroring the generated
// RegisterXxxServer helper.
func RegisterDeliveryServer(s grpc.ServiceRegistrar, srv DeliveryServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// DeliveryClient is the client-side contract.
type DeliveryClient interface {
	ProcessOrderStream(ctx context.Context, in *StreamOrderRequest, opts ...grpc.CallOption) (Delivery_ProcessOrderStreamClient, error)
	ProcessFollowUp(ctx context.Context, in *FollowUpRequest, opts ...grpc.CallOption) (*FollowUpResponse, error)
}

type deliveryClient struct {
	cc grpc.ClientConnInterface
}

func NewDeliveryClient(cc grpc.ClientConnInterface) DeliveryClient {
	return &deliveryClient{cc: cc}
}

func (c *deliveryClient) ProcessOrderStream(ctx context.Context, in *StreamOrderRequest, opts ...grpc.CallOption) (Delivery_ProcessOrderStreamClient, error) {
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], "/"+serviceName+"/"+methodProcessOrderStream, opts...)
	if err != nil {
		return nil, err
	}
	x := &deliveryProcessOrderStreamClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

// Delivery_ProcessOrderStreamClient is the client-streaming recv half.
type Delivery_ProcessOrderStreamClient interface {
	Recv() (*StreamOrderEvent, error)
	grpc.ClientStream
}

type deliveryProcessOrderStreamClient struct {
	grpc.ClientStream
}

func (x *deliveryProcessOrderStreamClient) Recv() (*StreamOrderEvent, error) {
	m := new(StreamOrderEvent)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *deliveryClient) ProcessFollowUp(ctx context.Context, in *FollowUpRequest, opts ...grpc.CallOption) (*FollowUpResponse, error) {
	out := new(FollowUpResponse)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/"+methodProcessFollowUp, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
