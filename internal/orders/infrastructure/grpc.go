package infrastructure

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"digimarket/internal/httpapi"
	"digimarket/internal/orders/application"
	"digimarket/internal/orders/domain"
	"digimarket/pkg/errors"
	grpcpkg "digimarket/pkg/grpc"
)

// OrderServiceName is the fully qualified gRPC service name. Requests and
// responses are google.protobuf.Struct messages shaped like the HTTP bodies.
const OrderServiceName = "marketplace.orders.v1.OrderService"

// OrderServiceServer is the server API for the order service
type OrderServiceServer interface {
	GetOrder(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	CancelOrder(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	CompleteOrder(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	UpdateOrderStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

// OrderServiceDesc describes the order service for grpc.Server
var OrderServiceDesc = grpc.ServiceDesc{
	ServiceName: OrderServiceName,
	HandlerType: (*OrderServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetOrder", Handler: unaryHandler("GetOrder", func(s OrderServiceServer) unaryMethod { return s.GetOrder })},
		{MethodName: "CancelOrder", Handler: unaryHandler("CancelOrder", func(s OrderServiceServer) unaryMethod { return s.CancelOrder })},
		{MethodName: "CompleteOrder", Handler: unaryHandler("CompleteOrder", func(s OrderServiceServer) unaryMethod { return s.CompleteOrder })},
		{MethodName: "UpdateOrderStatus", Handler: unaryHandler("UpdateOrderStatus", func(s OrderServiceServer) unaryMethod { return s.UpdateOrderStatus })},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "marketplace/orders/v1/orders.proto",
}

// RegisterOrderServiceServer registers srv on s
func RegisterOrderServiceServer(s grpc.ServiceRegistrar, srv OrderServiceServer) {
	s.RegisterService(&OrderServiceDesc, srv)
}

func unaryHandler(name string, pick func(OrderServiceServer) unaryMethod) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	fullMethod := "/" + OrderServiceName + "/" + name
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		method := pick(srv.(OrderServiceServer))
		if interceptor == nil {
			return method(ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return method(ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// GRPCServer implements OrderServiceServer on top of the order use case
type GRPCServer struct {
	useCase *application.OrderUseCase
}

// NewGRPCServer creates a new gRPC server
func NewGRPCServer(useCase *application.OrderUseCase) *GRPCServer {
	return &GRPCServer{useCase: useCase}
}

// GetOrder implements OrderServiceServer.GetOrder
func (s *GRPCServer) GetOrder(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := orderID(req)
	if err != nil {
		return nil, err
	}

	output, err := s.useCase.GetOrder(ctx, application.GetOrderInput{
		Actor: grpcpkg.ActorFromContext(ctx),
		ID:    id,
	})
	if err != nil {
		return nil, err
	}

	return orderStruct(output.Order)
}

// CancelOrder implements OrderServiceServer.CancelOrder
func (s *GRPCServer) CancelOrder(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := orderID(req)
	if err != nil {
		return nil, err
	}

	output, err := s.useCase.CancelOrder(ctx, application.CancelOrderInput{
		Actor:   grpcpkg.ActorFromContext(ctx),
		OrderID: id,
	})
	if err != nil {
		return nil, err
	}

	return orderStruct(output.Order)
}

// CompleteOrder implements OrderServiceServer.CompleteOrder
func (s *GRPCServer) CompleteOrder(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := orderID(req)
	if err != nil {
		return nil, err
	}

	output, err := s.useCase.CompleteOrder(ctx, application.CompleteOrderInput{
		Actor:   grpcpkg.ActorFromContext(ctx),
		OrderID: id,
	})
	if err != nil {
		return nil, err
	}

	return orderStruct(output.Order)
}

// UpdateOrderStatus implements OrderServiceServer.UpdateOrderStatus
func (s *GRPCServer) UpdateOrderStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := orderID(req)
	if err != nil {
		return nil, err
	}

	input := application.UpdateOrderStatusInput{
		Actor:   grpcpkg.ActorFromContext(ctx),
		OrderID: id,
	}
	if v, ok := stringField(req, "status"); ok {
		st := domain.OrderStatus(v)
		input.Status = &st
	}
	if v, ok := stringField(req, "payment_status"); ok {
		st := domain.PaymentStatus(v)
		input.PaymentStatus = &st
	}
	if v, ok := stringField(req, "delivery_status"); ok {
		st := domain.DeliveryStatus(v)
		input.DeliveryStatus = &st
	}

	output, err := s.useCase.UpdateOrderStatus(ctx, input)
	if err != nil {
		return nil, err
	}

	return orderStruct(output.Order)
}

func orderID(req *structpb.Struct) (uint, error) {
	v, ok := req.GetFields()["id"]
	if !ok {
		return 0, errors.NewValidation("id is required", nil)
	}
	n := v.GetNumberValue()
	if n < 1 || n != float64(uint(n)) {
		return 0, errors.NewValidation("invalid order id", nil)
	}
	return uint(n), nil
}

func stringField(req *structpb.Struct, key string) (string, bool) {
	v, ok := req.GetFields()[key]
	if !ok {
		return "", false
	}
	if _, isString := v.GetKind().(*structpb.Value_StringValue); !isString {
		return "", false
	}
	return v.GetStringValue(), true
}

func orderStruct(o *domain.Order) (*structpb.Struct, error) {
	fields := map[string]interface{}{
		"id":              o.ID,
		"order_number":    o.OrderNumber,
		"buyer_id":        o.BuyerID,
		"seller_id":       o.SellerID,
		"listing_id":      o.ListingID,
		"total_amount":    o.TotalAmount,
		"platform_fee":    o.PlatformFee,
		"transaction_fee": o.TransactionFee,
		"payment_method":  o.PaymentMethod,
		"status":          string(o.Status),
		"payment_status":  string(o.PaymentStatus),
		"delivery_status": string(o.DeliveryStatus),
		"created_at":      o.CreatedAt.Format(httpapi.TimeFormat),
	}
	if o.CompletedAt != nil {
		fields["completed_at"] = o.CompletedAt.Format(httpapi.TimeFormat)
	}

	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, errors.NewInternal("failed to encode order", err)
	}
	return out, nil
}
