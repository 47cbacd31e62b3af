package booking

import (
	"context"
	"time"

	"gorm.io/gorm"

	"racklab/internal/domain"
)

// BookingRepository covers the booking reads and field updates the
// lifecycle needs. Interval insertion and status transitions go through
// the scheduler, which owns the per-rack interval set.
type BookingRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	GetForUpdateTx(tx *gorm.DB, id int64) (*domain.Booking, error)
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Booking, error)
	ListExpiredConfirmed(ctx context.Context, now time.Time) ([]domain.Booking, error)
	UpdateTx(tx *gorm.DB, b *domain.Booking) error
}

type RackRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Rack, error)
}

// SessionStopper tears down a booking's live access session, if any.
// Implemented by the access module; must be idempotent.
type SessionStopper interface {
	StopAccess(ctx context.Context, bookingID int64) error
}
