package repository

import (
	"context"

	"gorm.io/gorm"

	"racklab/internal/domain"
)

type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) GetByBookingID(ctx context.Context, bookingID int64) (*domain.AccessSession, error) {
	var s domain.AccessSession
	if err := r.db.WithContext(ctx).Where("booking_id = ?", bookingID).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SessionRepository) Create(ctx context.Context, s *domain.AccessSession) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *SessionRepository) Save(ctx context.Context, s *domain.AccessSession) error {
	return r.db.WithContext(ctx).Save(s).Error
}
