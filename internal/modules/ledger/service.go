package ledger

import (
	"context"
	"errors"
	"sort"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"racklab/internal/domain"
)

// Service is the sole authority over user token balances. Every balance
// mutation appends a ledger entry in the same transaction, so the running
// sum of a user's entries always equals the stored balance.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func (s *Service) Balance(ctx context.Context, userID int64) (int64, error) {
	var u domain.User
	if err := s.db.WithContext(ctx).First(&u, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, err
	}
	return u.TokenBalance, nil
}

// Debit removes amount tokens from the user. Fails with
// ErrInsufficientTokens before any mutation if the balance is too low.
func (s *Service) Debit(ctx context.Context, userID, amount int64, relatedBookingID *int64) (*domain.LedgerEntry, error) {
	var entry *domain.LedgerEntry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		entry, err = s.DebitTx(tx, userID, amount, relatedBookingID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// DebitTx is Debit running inside a caller-owned transaction, so booking
// operations can commit the balance change together with their own state.
func (s *Service) DebitTx(tx *gorm.DB, userID, amount int64, relatedBookingID *int64) (*domain.LedgerEntry, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	return s.applyTx(tx, userID, -amount, domain.EntryDebit, relatedBookingID)
}

// Credit adds amount tokens to the user. Kind must be purchase or refund.
func (s *Service) Credit(ctx context.Context, userID, amount int64, kind domain.EntryKind, relatedBookingID *int64) (*domain.LedgerEntry, error) {
	var entry *domain.LedgerEntry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		entry, err = s.CreditTx(tx, userID, amount, kind, relatedBookingID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *Service) CreditTx(tx *gorm.DB, userID, amount int64, kind domain.EntryKind, relatedBookingID *int64) (*domain.LedgerEntry, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if kind != domain.EntryPurchase && kind != domain.EntryRefund {
		return nil, ErrInvalidKind
	}
	return s.applyTx(tx, userID, amount, kind, relatedBookingID)
}

// Transfer atomically moves amount tokens between two users. If the debit
// side would fail, neither balance changes.
func (s *Service) Transfer(ctx context.Context, fromUserID, toUserID, amount int64, relatedBookingID *int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.LockUsersTx(tx, fromUserID, toUserID); err != nil {
			return err
		}
		if _, err := s.applyTx(tx, fromUserID, -amount, domain.EntryTransferOut, relatedBookingID); err != nil {
			return err
		}
		_, err := s.applyTx(tx, toUserID, amount, domain.EntryTransferIn, relatedBookingID)
		return err
	})
}

// BalanceSheet returns the user's ledger entries, newest first.
func (s *Service) BalanceSheet(ctx context.Context, userID int64) ([]domain.LedgerEntry, error) {
	var entries []domain.LedgerEntry
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc, id desc").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// LockUsersTx takes row locks on the given users in ascending id order,
// the global lock order that keeps concurrent cross-user operations from
// deadlocking.
func (s *Service) LockUsersTx(tx *gorm.DB, userIDs ...int64) error {
	ids := append([]int64(nil), userIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		var u domain.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&u, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
	}
	return nil
}

func (s *Service) applyTx(tx *gorm.DB, userID, delta int64, kind domain.EntryKind, relatedBookingID *int64) (*domain.LedgerEntry, error) {
	var u domain.User
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&u, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	next := u.TokenBalance + delta
	if next < 0 {
		return nil, ErrInsufficientTokens
	}

	if err := tx.Model(&domain.User{}).Where("id = ?", userID).Update("token_balance", next).Error; err != nil {
		return nil, err
	}

	entry := &domain.LedgerEntry{
		UserID:           userID,
		Delta:            delta,
		Kind:             kind,
		RelatedBookingID: relatedBookingID,
		ResultingBalance: next,
	}
	if err := tx.Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}
