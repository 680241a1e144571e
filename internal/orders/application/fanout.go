package application

import (
	"context"
	"fmt"

	catalogdomain "digimarket/internal/catalog/domain"
	notificationapp "digimarket/internal/notifications/application"
	notificationdomain "digimarket/internal/notifications/domain"
	"digimarket/internal/orders/domain"
	"digimarket/internal/orders/ports"
	outboxdomain "digimarket/internal/outbox/domain"
	"digimarket/pkg/auth"
	"digimarket/pkg/errors"
	"digimarket/pkg/events"
	"digimarket/pkg/logger"
)

func (uc *OrderUseCase) notify(ctx context.Context, uow ports.UnitOfWork, msgs ...notificationapp.Message) error {
	return notificationapp.Send(ctx, uow.NotificationRepository(), uc.now(), msgs...)
}

func (uc *OrderUseCase) recordEvent(ctx context.Context, uow ports.UnitOfWork, routingKey string, order *domain.Order, actor auth.Actor) error {
	now := uc.now()
	message := events.NewOrderEvent(routingKey, events.OrderPayload{
		ID:             order.ID,
		OrderNumber:    order.OrderNumber,
		BuyerID:        order.BuyerID,
		SellerID:       order.SellerID,
		ListingID:      order.ListingID,
		TotalAmount:    order.TotalAmount,
		Status:         string(order.Status),
		PaymentStatus:  string(order.PaymentStatus),
		DeliveryStatus: string(order.DeliveryStatus),
		ActorID:        actor.UserID,
		CompletedAt:    order.CompletedAt,
	}, logger.GetTraceID(ctx), now)

	event, err := outboxdomain.NewEvent(routingKey, message, now)
	if err != nil {
		return errors.NewInternal("failed to build order event", err)
	}
	return errors.Internalize(uow.OutboxRepository().Add(ctx, event), "failed to record order event")
}

func bothParties(order *domain.Order, title, message string) []notificationapp.Message {
	return []notificationapp.Message{
		{UserID: order.BuyerID, Type: notificationdomain.TypeOrder, Title: title, Message: message},
		{UserID: order.SellerID, Type: notificationdomain.TypeOrder, Title: title, Message: message},
	}
}

func orderCreatedMessages(order *domain.Order, listing *catalogdomain.Listing) []notificationapp.Message {
	return []notificationapp.Message{
		{
			UserID:  order.BuyerID,
			Type:    notificationdomain.TypeOrder,
			Title:   "Order Created",
			Message: fmt.Sprintf("Your order %s for %q was placed. Total: %.2f", order.OrderNumber, listing.Title, order.TotalAmount),
		},
		{
			UserID:  order.SellerID,
			Type:    notificationdomain.TypeOrder,
			Title:   "New Order Received",
			Message: fmt.Sprintf("Order %s was placed for %q.", order.OrderNumber, listing.Title),
		},
	}
}
