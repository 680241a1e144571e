package infrastructure

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"digimarket/pkg/config"
	grpcpkg "digimarket/pkg/grpc"
	"digimarket/pkg/tls"
)

// DialOrderService connects to the order service at addr with the client
// interceptor, using mTLS when it is enabled
func DialOrderService(cfg *config.Config, addr string) (*OrderServiceClient, *grpc.ClientConn, error) {
	var opts []grpc.DialOption

	// Add client interceptor
	opts = append(opts, grpc.WithUnaryInterceptor(grpcpkg.UnaryClientInterceptor(cfg.GRPCTimeout)))

	// Configure TLS/mTLS
	if cfg.GRPCMTLSEnabled {
		tlsConfig, err := tls.ClientConfig(
			cfg.GRPCClientCert,
			cfg.GRPCClientKey,
			cfg.TLSCAFile,
		)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, grpc.WithTransportCredentials(credentials.NewTLS(tlsConfig)))
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	conn, err := grpc.Dial(addr, opts...)
	if err != nil {
		return nil, nil, err
	}
	return NewOrderServiceClient(conn), conn, nil
}

// OrderServiceClient calls the order service
type OrderServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewOrderServiceClient creates a client on cc
func NewOrderServiceClient(cc grpc.ClientConnInterface) *OrderServiceClient {
	return &OrderServiceClient{cc: cc}
}

func (c *OrderServiceClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+OrderServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// GetOrder calls OrderService.GetOrder
func (c *OrderServiceClient) GetOrder(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetOrder", in, opts...)
}

// CancelOrder calls OrderService.CancelOrder
func (c *OrderServiceClient) CancelOrder(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "CancelOrder", in, opts...)
}

// CompleteOrder calls OrderService.CompleteOrder
func (c *OrderServiceClient) CompleteOrder(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "CompleteOrder", in, opts...)
}

// UpdateOrderStatus calls OrderService.UpdateOrderStatus
func (c *OrderServiceClient) UpdateOrderStatus(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "UpdateOrderStatus", in, opts...)
}
