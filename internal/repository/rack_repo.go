package repository

import (
	"context"

	"gorm.io/gorm"

	"racklab/internal/domain"
)

type RackRepository struct {
	db *gorm.DB
}

func NewRackRepository(db *gorm.DB) *RackRepository {
	return &RackRepository{db: db}
}

func (r *RackRepository) Create(ctx context.Context, rack *domain.Rack) error {
	return r.db.WithContext(ctx).Create(rack).Error
}

func (r *RackRepository) GetByID(ctx context.Context, id int64) (*domain.Rack, error) {
	var rack domain.Rack
	if err := r.db.WithContext(ctx).First(&rack, id).Error; err != nil {
		return nil, err
	}
	return &rack, nil
}

func (r *RackRepository) List(ctx context.Context) ([]domain.Rack, error) {
	var racks []domain.Rack
	if err := r.db.WithContext(ctx).Order("id").Find(&racks).Error; err != nil {
		return nil, err
	}
	return racks, nil
}

func (r *RackRepository) UpdateStatus(ctx context.Context, id int64, status domain.RackStatus) error {
	res := r.db.WithContext(ctx).Model(&domain.Rack{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
