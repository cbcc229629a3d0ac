package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/cashflow/payment-lifecycle/internal/constant/model/db"
	"github.com/cashflow/payment-lifecycle/internal/core"
	"github.com/cashflow/payment-lifecycle/internal/port/output"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPaymentRepository is a secondary adapter that implements PaymentRepository output port
type GormPaymentRepository struct {
	gormDB *gorm.DB
}

// NewGormPaymentRepository creates a new GORM payment repository
func NewGormPaymentRepository(gormDB *gorm.DB) output.PaymentRepository {
	return &GormPaymentRepository{gormDB: gormDB}
}

// toCore converts db.Payment to core.Payment
func toCore(p *db.Payment) *core.Payment {
	return &core.Payment{
		ID:          p.ID,
		Amount:      p.Amount,
		Currency:    core.Currency(p.Currency),
		Status:      core.PaymentStatus(p.Status),
		SenderID:    p.SenderID,
		ReceiverID:  p.ReceiverID,
		Description: p.Description,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// fromCore converts core.Payment to db.Payment
func fromCore(p *core.Payment) *db.Payment {
	return &db.Payment{
		ID:          p.ID,
		Amount:      p.Amount,
		Currency:    string(p.Currency),
		Status:      db.PaymentStatus(p.Status),
		SenderID:    p.SenderID,
		ReceiverID:  p.ReceiverID,
		Description: p.Description,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toCoreList(rows []db.Payment) []*core.Payment {
	out := make([]*core.Payment, 0, len(rows))
	for i := range rows {
		out = append(out, toCore(&rows[i]))
	}
	return out
}

// Create creates a new payment
func (r *GormPaymentRepository) Create(ctx context.Context, payment *core.Payment) error {
	dbPayment := fromCore(payment)
	if err := r.gormDB.WithContext(ctx).Create(dbPayment).Error; err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	// Update core entity with values filled by GORM hooks
	payment.ID = dbPayment.ID
	payment.CreatedAt = dbPayment.CreatedAt
	payment.UpdatedAt = dbPayment.UpdatedAt
	return nil
}

// GetByID retrieves a payment by its ID
func (r *GormPaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*core.Payment, error) {
	var dbPayment db.Payment
	if err := r.gormDB.WithContext(ctx).Where("id = ?", id).First(&dbPayment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, core.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return toCore(&dbPayment), nil
}

// Update writes the full record if the stored status may move to payment.Status.
// Uses SELECT FOR UPDATE so two writers cannot both pass the check.
func (r *GormPaymentRepository) Update(ctx context.Context, payment *core.Payment) error {
	return r.gormDB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current db.Payment

		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", payment.ID).
			First(&current).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return core.ErrPaymentNotFound
			}
			return fmt.Errorf("failed to lock payment: %w", err)
		}

		if !core.PaymentStatus(current.Status).CanTransitionTo(payment.Status) {
			return fmt.Errorf("%w: %s -> %s", core.ErrInvalidTransition, current.Status, payment.Status)
		}

		if err := tx.Save(fromCore(payment)).Error; err != nil {
			return fmt.Errorf("failed to update payment: %w", err)
		}
		return nil
	})
}

// List returns every payment
func (r *GormPaymentRepository) List(ctx context.Context) ([]*core.Payment, error) {
	var rows []db.Payment
	if err := r.gormDB.WithContext(ctx).Order("created_at").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return toCoreList(rows), nil
}

// ListByStatus returns payments in the given status
func (r *GormPaymentRepository) ListByStatus(ctx context.Context, status core.PaymentStatus) ([]*core.Payment, error) {
	var rows []db.Payment
	if err := r.gormDB.WithContext(ctx).
		Where("status = ?", string(status)).
		Order("created_at").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list payments by status: %w", err)
	}
	return toCoreList(rows), nil
}

// ListByParty returns payments sent or received by userID. A single OR
// predicate yields each row once, even when sender and receiver match.
func (r *GormPaymentRepository) ListByParty(ctx context.Context, userID string) ([]*core.Payment, error) {
	var rows []db.Payment
	if err := r.gormDB.WithContext(ctx).
		Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Order("created_at").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list payments for user: %w", err)
	}
	return toCoreList(rows), nil
}
