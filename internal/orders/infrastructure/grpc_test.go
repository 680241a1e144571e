package infrastructure

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	catalogdomain "digimarket/internal/catalog/domain"
	"digimarket/internal/orders/application"
	"digimarket/internal/orders/domain"
	"digimarket/internal/orders/ports"
	"digimarket/internal/storage/memory"
	"digimarket/pkg/auth"
	"digimarket/pkg/config"
	"digimarket/pkg/errors"
	grpcpkg "digimarket/pkg/grpc"
	"digimarket/pkg/logger"
)

type testEnv struct {
	store   *memory.Store
	useCase *application.OrderUseCase
	seller  auth.Actor
	buyer   auth.Actor
	listing *catalogdomain.Listing
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()

	seller, err := catalogdomain.NewUser("Sally Seller", "seller@example.com", time.Now())
	require.NoError(t, err)
	require.NoError(t, store.Users().Create(ctx, seller))
	buyer, err := catalogdomain.NewUser("Bob Buyer", "buyer@example.com", time.Now())
	require.NoError(t, err)
	require.NoError(t, store.Users().Create(ctx, buyer))
	listing, err := catalogdomain.NewListing(seller.ID, "Icon pack", "SVG icons", "design", 100, time.Now())
	require.NoError(t, err)
	require.NoError(t, store.Listings().Create(ctx, listing))

	factory := ports.UnitOfWorkFactoryFunc(func() ports.UnitOfWork { return store.NewUnitOfWork() })
	return &testEnv{
		store:   store,
		useCase: application.NewOrderUseCase(factory, nil, logger.New("test", "error")),
		seller:  auth.Actor{UserID: seller.ID, Role: auth.RoleUser},
		buyer:   auth.Actor{UserID: buyer.ID, Role: auth.RoleUser},
		listing: listing,
	}
}

func (e *testEnv) placeOrder(t *testing.T) *domain.Order {
	t.Helper()
	output, err := e.useCase.CreateOrder(context.Background(), application.CreateOrderInput{
		Actor:         e.buyer,
		ListingID:     e.listing.ID,
		PaymentMethod: "card",
	})
	require.NoError(t, err)
	return output.Order
}

func dialOrderService(t *testing.T, useCase *application.OrderUseCase) *OrderServiceClient {
	t.Helper()
	log := logger.New("test", "error")
	lis := bufconn.Listen(1 << 20)

	server := grpc.NewServer(grpc.UnaryInterceptor(grpcpkg.UnaryServerInterceptor(log, 5*time.Second)))
	RegisterOrderServiceServer(server, NewGRPCServer(useCase))
	go func() { _ = server.Serve(lis) }()
	t.Cleanup(server.Stop)

	conn, err := grpc.DialContext(context.Background(), "bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(grpcpkg.UnaryClientInterceptor(5*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return NewOrderServiceClient(conn)
}

func idRequest(t *testing.T, id uint) *structpb.Struct {
	t.Helper()
	req, err := structpb.NewStruct(map[string]interface{}{"id": id})
	require.NoError(t, err)
	return req
}

func TestGRPC_GetOrder(t *testing.T) {
	env := newTestEnv(t)
	order := env.placeOrder(t)
	client := dialOrderService(t, env.useCase)

	resp, err := client.GetOrder(grpcpkg.WithActor(context.Background(), env.buyer), idRequest(t, order.ID))

	require.NoError(t, err)
	fields := resp.GetFields()
	assert.Equal(t, order.OrderNumber, fields["order_number"].GetStringValue())
	assert.Equal(t, "PENDING", fields["status"].GetStringValue())
	assert.Equal(t, 107.0, fields["total_amount"].GetNumberValue())
	assert.NotContains(t, fields, "completed_at")
}

func TestGRPC_ErrorCodes(t *testing.T) {
	env := newTestEnv(t)
	order := env.placeOrder(t)
	client := dialOrderService(t, env.useCase)
	stranger := auth.Actor{UserID: 99, Role: auth.RoleUser}

	t.Run("anonymous caller", func(t *testing.T) {
		_, err := client.GetOrder(context.Background(), idRequest(t, order.ID))
		assert.True(t, errors.Is(err, errors.CodeUnauthorized), "got %v", err)
	})

	t.Run("order hidden from strangers", func(t *testing.T) {
		_, err := client.GetOrder(grpcpkg.WithActor(context.Background(), stranger), idRequest(t, order.ID))
		assert.True(t, errors.Is(err, errors.CodeNotFound), "got %v", err)
	})

	t.Run("missing id", func(t *testing.T) {
		_, err := client.GetOrder(grpcpkg.WithActor(context.Background(), env.buyer), &structpb.Struct{})
		assert.True(t, errors.Is(err, errors.CodeValidation), "got %v", err)
	})

	t.Run("complete before processing", func(t *testing.T) {
		_, err := client.CompleteOrder(grpcpkg.WithActor(context.Background(), env.buyer), idRequest(t, order.ID))
		assert.True(t, errors.Is(err, errors.CodeInvalidState), "got %v", err)
	})
}

func TestGRPC_Lifecycle(t *testing.T) {
	env := newTestEnv(t)
	order := env.placeOrder(t)
	client := dialOrderService(t, env.useCase)
	admin := auth.Actor{UserID: 900, Role: auth.RoleAdmin}

	req, err := structpb.NewStruct(map[string]interface{}{"id": order.ID, "status": "PROCESSING"})
	require.NoError(t, err)
	resp, err := client.UpdateOrderStatus(grpcpkg.WithActor(context.Background(), admin), req)
	require.NoError(t, err)
	assert.Equal(t, "PROCESSING", resp.GetFields()["status"].GetStringValue())

	resp, err = client.CompleteOrder(grpcpkg.WithActor(context.Background(), env.buyer), idRequest(t, order.ID))
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", resp.GetFields()["status"].GetStringValue())
	assert.NotEmpty(t, resp.GetFields()["completed_at"].GetStringValue())

	_, err = client.CancelOrder(grpcpkg.WithActor(context.Background(), env.seller), idRequest(t, order.ID))
	assert.True(t, errors.Is(err, errors.CodeInvalidState), "got %v", err)

	listing, err := env.store.Listings().GetByID(context.Background(), env.listing.ID)
	require.NoError(t, err)
	assert.Equal(t, catalogdomain.ListingStatusSold, listing.Status)
}

func TestDialOrderService_OverTCP(t *testing.T) {
	env := newTestEnv(t)
	order := env.placeOrder(t)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	server := grpc.NewServer(grpc.UnaryInterceptor(grpcpkg.UnaryServerInterceptor(logger.New("test", "error"), 5*time.Second)))
	RegisterOrderServiceServer(server, NewGRPCServer(env.useCase))
	go func() { _ = server.Serve(lis) }()
	t.Cleanup(server.Stop)

	client, conn, err := DialOrderService(&config.Config{GRPCTimeout: 5 * time.Second}, lis.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	resp, err := client.CancelOrder(grpcpkg.WithActor(context.Background(), env.seller), idRequest(t, order.ID))

	require.NoError(t, err)
	assert.Equal(t, "CANCELLED", resp.GetFields()["status"].GetStringValue())
}
