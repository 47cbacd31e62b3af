package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AccessSession is the live remote-desktop endpoint for a booking. It
// holds no truth about whether access should be allowed, only whether it
// currently is; every read re-validates against the booking's window.
type AccessSession struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	BookingID   int64      `json:"booking_id" gorm:"not null;uniqueIndex"`
	IsActive    bool       `json:"is_active" gorm:"not null;default:false"`
	EndpointURL string     `json:"endpoint_url,omitempty"`
	ActivatedAt *time.Time `json:"activated_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (AccessSession) TableName() string {
	return "access_sessions"
}

func (s *AccessSession) BeforeCreate(_ *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
