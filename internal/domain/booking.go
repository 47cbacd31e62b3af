package domain

import "time"

type BookingStatus string

const (
	BookingProvisioning BookingStatus = "provisioning"
	BookingConfirmed    BookingStatus = "confirmed"
	BookingCompleted    BookingStatus = "completed"
	BookingCancelled    BookingStatus = "cancelled"
)

// ActiveStatuses are the statuses that hold a rack interval and a token
// reservation. Terminal bookings block nothing.
var ActiveStatuses = []BookingStatus{BookingProvisioning, BookingConfirmed}

func (s BookingStatus) IsTerminal() bool {
	return s == BookingCompleted || s == BookingCancelled
}

// Booking reserves the half-open interval [StartTime, EndTime) on a rack.
type Booking struct {
	ID                 int64         `json:"id" gorm:"primaryKey"`
	RackID             int64         `json:"rack_id" gorm:"not null;index"`
	UserID             int64         `json:"user_id" gorm:"not null;index"`
	StartTime          time.Time     `json:"start_time" gorm:"not null;index"`
	EndTime            time.Time     `json:"end_time" gorm:"not null"`
	TokenCost          int64         `json:"token_cost" gorm:"not null"`
	Status             BookingStatus `json:"status" gorm:"type:varchar(16);not null;index"`
	SelectedACIVersion string        `json:"selected_aci_version,omitempty"`
	PreConfigs         []string      `json:"pre_configs,omitempty" gorm:"serializer:json"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
	CancelledAt        *time.Time    `json:"cancelled_at,omitempty"`

	User *User `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Rack *Rack `json:"rack,omitempty" gorm:"foreignKey:RackID"`
}

// InWindow reports whether now falls inside [StartTime, EndTime).
func (b *Booking) InWindow(now time.Time) bool {
	return !now.Before(b.StartTime) && now.Before(b.EndTime)
}
