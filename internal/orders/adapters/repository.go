package adapters

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"digimarket/internal/orders/domain"
	"digimarket/internal/orders/ports"
	apperrors "digimarket/pkg/errors"
)

// OrderModel is the GORM model for orders (persistence layer)
type OrderModel struct {
	ID             uint                  `gorm:"primaryKey"`
	OrderNumber    string                `gorm:"size:32;uniqueIndex;not null"`
	BuyerID        uint                  `gorm:"index;not null"`
	SellerID       uint                  `gorm:"index;not null"`
	ListingID      uint                  `gorm:"index;not null"`
	TotalAmount    float64               `gorm:"not null"`
	PlatformFee    float64               `gorm:"not null"`
	TransactionFee float64               `gorm:"not null"`
	PaymentMethod  string                `gorm:"size:50;not null"`
	Status         domain.OrderStatus    `gorm:"size:20;index;not null;default:'PENDING'"`
	PaymentStatus  domain.PaymentStatus  `gorm:"size:20;not null;default:'PENDING'"`
	DeliveryStatus domain.DeliveryStatus `gorm:"size:20;not null;default:'PENDING'"`
	CreatedAt      time.Time             `gorm:"autoCreateTime"`
	UpdatedAt      time.Time             `gorm:"autoUpdateTime"`
	CompletedAt    *time.Time
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

const orderInsertSavepoint = "order_insert"

// PostgresOrderRepository implements OrderRepository using PostgreSQL
type PostgresOrderRepository struct {
	db *gorm.DB
}

// NewPostgresOrderRepository creates a new PostgreSQL order repository
func NewPostgresOrderRepository(db *gorm.DB) *PostgresOrderRepository {
	return &PostgresOrderRepository{db: db}
}

// Create inserts a new order. It must run inside a transaction: the insert
// is guarded by a savepoint so a unique violation on order_number can be
// undone without aborting the transaction.
func (r *PostgresOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	db := r.db.WithContext(ctx)
	model := toModel(order)

	if err := db.SavePoint(orderInsertSavepoint).Error; err != nil {
		return apperrors.NewInternal("failed to create savepoint", err)
	}

	if err := db.Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if rbErr := db.RollbackTo(orderInsertSavepoint).Error; rbErr != nil {
				return apperrors.NewInternal("failed to roll back to savepoint", rbErr)
			}
			return domain.ErrOrderNumberTaken
		}
		return apperrors.NewInternal("failed to create order", err)
	}

	// Update domain entity with generated ID
	order.ID = model.ID
	order.CreatedAt = model.CreatedAt
	order.UpdatedAt = model.UpdatedAt

	return nil
}

// GetByID retrieves an order by ID
func (r *PostgresOrderRepository) GetByID(ctx context.Context, id uint) (*domain.Order, error) {
	return r.get(r.db.WithContext(ctx), id)
}

// GetForUpdate retrieves an order with SELECT ... FOR UPDATE
func (r *PostgresOrderRepository) GetForUpdate(ctx context.Context, id uint) (*domain.Order, error) {
	return r.get(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *PostgresOrderRepository) get(db *gorm.DB, id uint) (*domain.Order, error) {
	var model OrderModel

	result := db.First(&model, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domain.NewOrderNotFound(id)
		}
		return nil, apperrors.NewInternal("failed to get order", result.Error)
	}

	return toDomain(&model), nil
}

// List returns orders matching the filter
func (r *PostgresOrderRepository) List(ctx context.Context, filter ports.OrderFilter) ([]*domain.Order, error) {
	query := r.db.WithContext(ctx).Model(&OrderModel{})

	if filter.BuyerID != 0 {
		query = query.Where("buyer_id = ?", filter.BuyerID)
	}
	if filter.SellerID != 0 {
		query = query.Where("seller_id = ?", filter.SellerID)
	}
	if filter.PartyID != 0 {
		query = query.Where("(buyer_id = ? OR seller_id = ?)", filter.PartyID, filter.PartyID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var models []OrderModel
	if err := query.Offset(filter.Offset).Order("created_at DESC, id DESC").Find(&models).Error; err != nil {
		return nil, apperrors.NewInternal("failed to list orders", err)
	}

	orders := make([]*domain.Order, len(models))
	for i := range models {
		orders[i] = toDomain(&models[i])
	}

	return orders, nil
}

// TransitionStatus runs UPDATE ... WHERE id = ? AND status = ? so that only
// one of two racing transitions takes effect
func (r *PostgresOrderRepository) TransitionStatus(ctx context.Context, id uint, from, to domain.OrderStatus, completedAt *time.Time) error {
	updates := map[string]interface{}{"status": to}
	if completedAt != nil {
		updates["completed_at"] = *completedAt
	}

	result := r.db.WithContext(ctx).Model(&OrderModel{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return apperrors.NewInternal("failed to update order status", result.Error)
	}
	if result.RowsAffected == 0 {
		return r.explainMiss(ctx, id, from, to)
	}
	return nil
}

// explainMiss distinguishes a missing order from a concurrent transition
func (r *PostgresOrderRepository) explainMiss(ctx context.Context, id uint, from, to domain.OrderStatus) error {
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if current.Status != from {
		return domain.NewInvalidTransition(current.Status, to)
	}
	return domain.NewInvalidTransition(from, to)
}

// UpdatePaymentStatus stores a new payment status
func (r *PostgresOrderRepository) UpdatePaymentStatus(ctx context.Context, id uint, status domain.PaymentStatus) error {
	return r.updateColumn(ctx, id, "payment_status", status)
}

// UpdateDeliveryStatus stores a new delivery status
func (r *PostgresOrderRepository) UpdateDeliveryStatus(ctx context.Context, id uint, status domain.DeliveryStatus) error {
	return r.updateColumn(ctx, id, "delivery_status", status)
}

func (r *PostgresOrderRepository) updateColumn(ctx context.Context, id uint, column string, value interface{}) error {
	result := r.db.WithContext(ctx).Model(&OrderModel{}).Where("id = ?", id).Update(column, value)
	if result.Error != nil {
		return apperrors.NewInternal("failed to update order", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewOrderNotFound(id)
	}
	return nil
}

// FindCompletedByBuyerAndListing returns the latest completed purchase
func (r *PostgresOrderRepository) FindCompletedByBuyerAndListing(ctx context.Context, buyerID, listingID uint) (*domain.Order, error) {
	var model OrderModel

	result := r.db.WithContext(ctx).
		Where("buyer_id = ? AND listing_id = ? AND status = ?", buyerID, listingID, domain.OrderStatusCompleted).
		Order("completed_at DESC, id DESC").
		First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("completed order for listing", listingID)
		}
		return nil, apperrors.NewInternal("failed to find completed order", result.Error)
	}

	return toDomain(&model), nil
}

// toModel converts a domain entity to a GORM model
func toModel(order *domain.Order) *OrderModel {
	return &OrderModel{
		ID:             order.ID,
		OrderNumber:    order.OrderNumber,
		BuyerID:        order.BuyerID,
		SellerID:       order.SellerID,
		ListingID:      order.ListingID,
		TotalAmount:    order.TotalAmount,
		PlatformFee:    order.PlatformFee,
		TransactionFee: order.TransactionFee,
		PaymentMethod:  order.PaymentMethod,
		Status:         order.Status,
		PaymentStatus:  order.PaymentStatus,
		DeliveryStatus: order.DeliveryStatus,
		CreatedAt:      order.CreatedAt,
		UpdatedAt:      order.UpdatedAt,
		CompletedAt:    order.CompletedAt,
	}
}

// toDomain converts a GORM model to a domain entity
func toDomain(model *OrderModel) *domain.Order {
	return &domain.Order{
		ID:             model.ID,
		OrderNumber:    model.OrderNumber,
		BuyerID:        model.BuyerID,
		SellerID:       model.SellerID,
		ListingID:      model.ListingID,
		TotalAmount:    model.TotalAmount,
		PlatformFee:    model.PlatformFee,
		TransactionFee: model.TransactionFee,
		PaymentMethod:  model.PaymentMethod,
		Status:         model.Status,
		PaymentStatus:  model.PaymentStatus,
		DeliveryStatus: model.DeliveryStatus,
		CreatedAt:      model.CreatedAt,
		UpdatedAt:      model.UpdatedAt,
		CompletedAt:    model.CompletedAt,
	}
}
