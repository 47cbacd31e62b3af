package booking

import (
	"context"
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"racklab/internal/domain"
	"racklab/internal/modules/ledger"
	"racklab/internal/modules/schedule"
	"racklab/internal/pkg/clock"
)

// Service orchestrates the scheduler and the token ledger behind the
// booking state machine. Every operation commits all of its sub-effects
// or none of them.
type Service struct {
	db            *gorm.DB
	bookings      BookingRepository
	racks         RackRepository
	ledger        *ledger.Service
	schedule      *schedule.Service
	sessions      SessionStopper
	clock         clock.Clock
	forfeitWindow time.Duration
}

func NewService(
	db *gorm.DB,
	bookings BookingRepository,
	racks RackRepository,
	ledgerSvc *ledger.Service,
	scheduleSvc *schedule.Service,
	sessions SessionStopper,
	clk clock.Clock,
	forfeitWindow time.Duration,
) *Service {
	return &Service{
		db:            db,
		bookings:      bookings,
		racks:         racks,
		ledger:        ledgerSvc,
		schedule:      scheduleSvc,
		sessions:      sessions,
		clock:         clk,
		forfeitWindow: forfeitWindow,
	}
}

// TokenCost prices an interval on a rack: any started hour bills as a
// full hour.
func TokenCost(hourlyRate int64, start, end time.Time) int64 {
	d := end.Sub(start)
	hours := int64(d / time.Hour)
	if d%time.Hour != 0 {
		hours++
	}
	return hours * hourlyRate
}

// CreateBooking validates the slot, debits the user and reserves the
// interval in a single transaction under the rack's mutex, so no two
// concurrent requests can both pass the conflict check.
func (s *Service) CreateBooking(ctx context.Context, userID int64, req CreateBookingRequest) (*domain.Booking, error) {
	if err := schedule.ValidateInterval(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}
	if !req.StartTime.After(s.clock.Now()) {
		return nil, schedule.ErrInvalidInterval
	}

	rack, err := s.racks.GetByID(ctx, req.RackID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !rack.IsAvailable() {
		return nil, ErrRackUnavailable
	}

	cost := TokenCost(rack.HourlyRate, req.StartTime, req.EndTime)

	unlock := s.schedule.LockRack(req.RackID)
	defer unlock()

	conflict, err := s.schedule.CheckConflict(ctx, req.RackID, req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}
	if conflict {
		return nil, schedule.ErrSlotConflict
	}

	b := &domain.Booking{
		RackID:             req.RackID,
		UserID:             userID,
		StartTime:          req.StartTime,
		EndTime:            req.EndTime,
		TokenCost:          cost,
		Status:             domain.BookingConfirmed,
		SelectedACIVersion: req.SelectedACIVersion,
		PreConfigs:         req.PreConfigs,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.schedule.Reserve(tx, b); err != nil {
			return err
		}
		if cost > 0 {
			if _, err := s.ledger.DebitTx(tx, userID, cost, &b.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// CancelBooking releases the interval and refunds the token cost. Only
// the owner or an admin may cancel; terminal bookings report
// ErrAlreadyTerminal so a refund can never happen twice.
func (s *Service) CancelBooking(ctx context.Context, bookingID, actingUserID int64, actingRole domain.UserRole) (*domain.Booking, error) {
	var out *domain.Booking

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		b, err := s.bookings.GetForUpdateTx(tx, bookingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if b.UserID != actingUserID && actingRole != domain.RoleAdmin {
			return ErrForbidden
		}
		if b.Status.IsTerminal() {
			return ErrAlreadyTerminal
		}

		now := s.clock.Now()
		changed, err := s.schedule.Release(tx, bookingID, domain.BookingCancelled, now)
		if err != nil {
			return err
		}
		if !changed {
			return ErrAlreadyTerminal
		}

		refund := b.TokenCost
		if s.forfeitWindow > 0 && b.StartTime.Sub(now) < s.forfeitWindow {
			refund = 0
		}
		if refund > 0 {
			if _, err := s.ledger.CreditTx(tx, b.UserID, refund, domain.EntryRefund, &b.ID); err != nil {
				return err
			}
		}

		b.Status = domain.BookingCancelled
		b.CancelledAt = &now
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.sessions.StopAccess(ctx, bookingID); err != nil {
		log.Printf("cancel_booking booking_id=%d stop_access_failed error=%q", bookingID, err)
	}
	return out, nil
}

// errRackMoved signals that the booking changed racks between the lock
// snapshot and the row lock, so the edit must re-acquire against the
// fresh rack.
var errRackMoved = errors.New("booking changed racks during edit")

// AdminEditBooking applies an admin's changes in one transaction. Moving
// the booking to another user refunds the original owner and debits the
// new one; if the debit fails the refund rolls back with it and the
// booking is untouched.
func (s *Service) AdminEditBooking(ctx context.Context, bookingID int64, req AdminEditBookingRequest) (*domain.Booking, error) {
	for {
		out, err := s.adminEdit(ctx, bookingID, req)
		if errors.Is(err, errRackMoved) {
			continue
		}
		return out, err
	}
}

func (s *Service) adminEdit(ctx context.Context, bookingID int64, req AdminEditBookingRequest) (*domain.Booking, error) {
	current, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	targetRackID := current.RackID
	if req.NewRackID != nil {
		targetRackID = *req.NewRackID
	}

	// Both the booking's current rack and the move target are touched,
	// so hold both mutexes across the conflict check.
	unlock := s.schedule.LockRacks(current.RackID, targetRackID)
	defer unlock()

	var out *domain.Booking
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		b, err := s.bookings.GetForUpdateTx(tx, bookingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if b.RackID != current.RackID {
			// A concurrent edit moved the booking; our mutexes guard the
			// wrong racks.
			return errRackMoved
		}
		if b.Status.IsTerminal() {
			return ErrAlreadyTerminal
		}

		newRackID := b.RackID
		if req.NewRackID != nil {
			newRackID = *req.NewRackID
		}
		newStart := b.StartTime
		if req.NewStart != nil {
			newStart = *req.NewStart
		}
		newEnd := b.EndTime
		if req.NewEnd != nil {
			newEnd = *req.NewEnd
		}

		intervalChanged := newRackID != b.RackID || !newStart.Equal(b.StartTime) || !newEnd.Equal(b.EndTime)
		if intervalChanged {
			conflict, err := s.schedule.CheckConflictTx(tx, newRackID, newStart, newEnd, b.ID)
			if err != nil {
				return err
			}
			if conflict {
				return schedule.ErrSlotConflict
			}
		}

		newCost := b.TokenCost
		switch {
		case req.NewCost != nil:
			if *req.NewCost < 0 {
				return ledger.ErrInvalidAmount
			}
			newCost = *req.NewCost
		case intervalChanged:
			rack, err := s.racks.GetByID(ctx, newRackID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrNotFound
				}
				return err
			}
			if err := schedule.ValidateInterval(newStart, newEnd); err != nil {
				return err
			}
			newCost = TokenCost(rack.HourlyRate, newStart, newEnd)
		}

		newUserID := b.UserID
		if req.NewUserID != nil {
			newUserID = *req.NewUserID
		}

		switch {
		case newUserID != b.UserID:
			// Reassignment: refund the old owner in full, debit the new
			// owner the new cost. Amounts may differ, so this is two
			// ledger operations, locked in ascending user-id order.
			if err := s.ledger.LockUsersTx(tx, b.UserID, newUserID); err != nil {
				return err
			}
			if b.TokenCost > 0 {
				if _, err := s.ledger.CreditTx(tx, b.UserID, b.TokenCost, domain.EntryRefund, &b.ID); err != nil {
					return err
				}
			}
			if newCost > 0 {
				if _, err := s.ledger.DebitTx(tx, newUserID, newCost, &b.ID); err != nil {
					return err
				}
			}
		case newCost != b.TokenCost:
			delta := newCost - b.TokenCost
			if delta > 0 {
				if _, err := s.ledger.DebitTx(tx, b.UserID, delta, &b.ID); err != nil {
					return err
				}
			} else {
				if _, err := s.ledger.CreditTx(tx, b.UserID, -delta, domain.EntryRefund, &b.ID); err != nil {
					return err
				}
			}
		}

		b.UserID = newUserID
		b.RackID = newRackID
		b.StartTime = newStart
		b.EndTime = newEnd
		b.TokenCost = newCost
		if err := s.bookings.UpdateTx(tx, b); err != nil {
			return schedule.MapConstraintError(err)
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SweepExpired completes every confirmed booking whose end time has
// passed and tears down its access session. Failures are isolated per
// booking; safe to run concurrently with itself because the status
// transition is guarded.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	now := s.clock.Now()

	expired, err := s.bookings.ListExpiredConfirmed(ctx, now)
	if err != nil {
		return 0, err
	}

	completed := 0
	for _, b := range expired {
		var changed bool
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			changed, err = s.schedule.Release(tx, b.ID, domain.BookingCompleted, now)
			return err
		})
		if err != nil {
			log.Printf("sweep_expired booking_id=%d complete_failed error=%q", b.ID, err)
			continue
		}
		if !changed {
			continue
		}
		completed++

		if err := s.sessions.StopAccess(ctx, b.ID); err != nil {
			log.Printf("sweep_expired booking_id=%d stop_access_failed error=%q", b.ID, err)
		}
	}
	return completed, nil
}

// GetBooking returns the booking if the acting user owns it or is admin.
func (s *Service) GetBooking(ctx context.Context, bookingID, actingUserID int64, actingRole domain.UserRole) (*domain.Booking, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if b.UserID != actingUserID && actingRole != domain.RoleAdmin {
		return nil, ErrForbidden
	}
	return b, nil
}

func (s *Service) ListMyBookings(ctx context.Context, userID int64, limit, offset int) ([]domain.Booking, error) {
	return s.bookings.ListByUser(ctx, userID, limit, offset)
}
