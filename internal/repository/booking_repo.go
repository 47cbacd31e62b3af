package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"racklab/internal/domain"
)

type BookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	var b domain.Booking
	if err := r.db.WithContext(ctx).First(&b, id).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

// GetForUpdateTx loads a booking inside tx holding a row lock so that
// concurrent cancels and admin edits of the same booking serialize.
func (r *BookingRepository) GetForUpdateTx(tx *gorm.DB, id int64) (*domain.Booking, error) {
	var b domain.Booking
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&b, id).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BookingRepository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Booking, error) {
	var out []domain.Booking
	q := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("start_time desc")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListExpiredConfirmed returns confirmed bookings whose window has fully
// elapsed at now. Used by the sweeper.
func (r *BookingRepository) ListExpiredConfirmed(ctx context.Context, now time.Time) ([]domain.Booking, error) {
	var out []domain.Booking
	err := r.db.WithContext(ctx).
		Where("status = ? AND end_time <= ?", domain.BookingConfirmed, now).
		Order("end_time").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *BookingRepository) UpdateTx(tx *gorm.DB, b *domain.Booking) error {
	return tx.Save(b).Error
}
