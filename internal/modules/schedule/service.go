package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"racklab/internal/domain"
)

type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Service owns the per-rack interval set: the non-terminal bookings of a
// rack. It is pure interval algebra and holds no opinion about token
// costs or who may book.
type Service struct {
	db    *gorm.DB
	locks *lockRegistry
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db, locks: newLockRegistry()}
}

// ValidateInterval rejects zero-duration and inverted intervals.
func ValidateInterval(start, end time.Time) error {
	if !end.After(start) {
		return ErrInvalidInterval
	}
	return nil
}

// CheckConflict reports whether [start, end) intersects any non-terminal
// booking on the rack. Half-open semantics: back-to-back bookings where
// one ends exactly when the next starts do not conflict.
func (s *Service) CheckConflict(ctx context.Context, rackID int64, start, end time.Time) (bool, error) {
	if err := ValidateInterval(start, end); err != nil {
		return false, err
	}
	return s.hasOverlap(s.db.WithContext(ctx), rackID, start, end, 0)
}

// CheckConflictTx is CheckConflict inside a caller-owned transaction,
// optionally ignoring one booking's own prior reservation (admin edits
// re-validate the new interval against everything but themselves).
func (s *Service) CheckConflictTx(tx *gorm.DB, rackID int64, start, end time.Time, excludeBookingID int64) (bool, error) {
	if err := ValidateInterval(start, end); err != nil {
		return false, err
	}
	return s.hasOverlap(tx, rackID, start, end, excludeBookingID)
}

// Reserve inserts the booking's interval after re-running the conflict
// check inside tx. Callers must hold the rack's mutex (LockRack) across
// their own CheckConflict and Reserve.
func (s *Service) Reserve(tx *gorm.DB, b *domain.Booking) error {
	if err := ValidateInterval(b.StartTime, b.EndTime); err != nil {
		return err
	}

	conflict, err := s.hasOverlap(tx, b.RackID, b.StartTime, b.EndTime, b.ID)
	if err != nil {
		return err
	}
	if conflict {
		return ErrSlotConflict
	}

	if err := tx.Create(b).Error; err != nil {
		return MapConstraintError(err)
	}
	return nil
}

// Release frees the booking's interval by moving it to a terminal status.
// Idempotent: releasing an already-terminal or unknown booking is a
// no-op. Returns whether this call performed the transition.
func (s *Service) Release(tx *gorm.DB, bookingID int64, to domain.BookingStatus, at time.Time) (bool, error) {
	updates := map[string]any{"status": to, "updated_at": at}
	if to == domain.BookingCancelled {
		updates["cancelled_at"] = at
	}

	res := tx.Model(&domain.Booking{}).
		Where("id = ? AND status IN ?", bookingID, domain.ActiveStatuses).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ListUpcoming returns the booked intervals of non-terminal bookings that
// intersect [from, to), ordered by start time.
func (s *Service) ListUpcoming(ctx context.Context, rackID int64, from, to time.Time) ([]Slot, error) {
	if err := ValidateInterval(from, to); err != nil {
		return nil, err
	}

	var bookings []domain.Booking
	err := s.db.WithContext(ctx).
		Where("rack_id = ? AND status IN ? AND start_time < ? AND ? < end_time",
			rackID, domain.ActiveStatuses, to, from).
		Order("start_time").
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}

	slots := make([]Slot, 0, len(bookings))
	for _, b := range bookings {
		slots = append(slots, Slot{Start: b.StartTime, End: b.EndTime})
	}
	return slots, nil
}

func (s *Service) hasOverlap(q *gorm.DB, rackID int64, start, end time.Time, excludeID int64) (bool, error) {
	var cnt int64
	query := q.Model(&domain.Booking{}).
		Where("rack_id = ? AND status IN ? AND start_time < ? AND ? < end_time",
			rackID, domain.ActiveStatuses, end, start)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}

// MapConstraintError converts the postgres backstop, the rack-interval
// exclusion constraint rejecting a racing write, into ErrSlotConflict.
// Any caller writing booking intervals must route its error through
// here; other errors pass unchanged.
func MapConstraintError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	if pgErr.Code == "23505" || pgErr.Code == "23P01" {
		return ErrSlotConflict
	}
	return err
}
