// Package claim orchestrates code verification and the staff claim decision.
// Verification is a read-only preview (plus its audit event); the claim
// itself commits the ledger transition, the code deactivation and the claim
// audit event as one transaction.
package claim

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/shubhayu-dev/Sanrakshan/internal/apperr"
	"github.com/shubhayu-dev/Sanrakshan/internal/codes"
	"github.com/shubhayu-dev/Sanrakshan/internal/ledger"
	"github.com/shubhayu-dev/Sanrakshan/internal/model"
)

// Notifier delivers best-effort notifications after a successful claim.
// Delivery failures never affect the claim.
type Notifier interface {
	NotifyClaimed(entryRef int64)
}

// Source describes where a verification request came from, for the audit
// trail.
type Source struct {
	IPAddress string
	UserAgent string
}

// Outcome is the user-facing result of a verification.
type Outcome string

const (
	// OutcomeVerified means the code is active and the entry can be claimed.
	OutcomeVerified Outcome = "verified"
	// OutcomeDeactivated means the code exists but was deactivated, i.e. the
	// items were already claimed. Distinct from an unknown code.
	OutcomeDeactivated Outcome = "deactivated"
)

// VerifyResult is the preview returned to staff before a claim decision.
type VerifyResult struct {
	Outcome  Outcome
	Entry    *model.StorageEntry
	Code     *model.UniqueCode
	CanClaim bool
}

// Workflow wires the code registry and the storage ledger together.
type Workflow struct {
	db       *gorm.DB
	ledger   *ledger.Ledger
	registry *codes.Registry
	notifier Notifier
	logger   *zap.Logger
}

// New creates a Workflow. notifier may be nil when notifications are
// disabled.
func New(db *gorm.DB, l *ledger.Ledger, r *codes.Registry, notifier Notifier, logger *zap.Logger) *Workflow {
	return &Workflow{db: db, ledger: l, registry: r, notifier: notifier, logger: logger}
}

// Verify looks up a code for a staff preview. It never mutates entry state.
// An unknown code fails with ErrCodeNotFound; a deactivated code is a
// non-error outcome so the preview path can message it. Finding a valid,
// active code always records a verify event, even when the caller will not
// claim.
func (w *Workflow) Verify(ctx context.Context, codeString, staffPrincipal string, src Source) (*VerifyResult, error) {
	code, err := w.registry.Lookup(ctx, codeString)
	if errors.Is(err, apperr.ErrCodeInactive) {
		return &VerifyResult{Outcome: OutcomeDeactivated, Entry: &code.Entry, Code: code}, nil
	}
	if err != nil {
		return nil, err
	}

	scan := model.CodeScan{
		ScannedBy: staffPrincipal,
		IPAddress: src.IPAddress,
		UserAgent: src.UserAgent,
		Valid:     true,
		Action:    model.ActionVerify,
	}
	if err := w.registry.RecordScan(ctx, code, &scan); err != nil {
		return nil, err
	}

	entry := &code.Entry
	if entry.Status != model.StatusActive {
		return nil, &apperr.InvalidStateError{Status: string(entry.Status)}
	}

	return &VerifyResult{Outcome: OutcomeVerified, Entry: entry, Code: code, CanClaim: true}, nil
}

// ClaimResult reports a committed claim.
type ClaimResult struct {
	Entry     *model.StorageEntry
	ClaimedAt time.Time
}

// Claim confirms the release of items against a code. The status write, the
// code deactivation and the claim audit event commit together or not at all.
// After commit the student is notified best-effort.
func (w *Workflow) Claim(ctx context.Context, codeString, staffPrincipal, notes string, src Source) (*ClaimResult, error) {
	var claimed *model.StorageEntry

	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		code, err := w.registry.WithTx(tx).Lookup(ctx, codeString)
		if err != nil {
			return err
		}

		entry := &code.Entry
		if err := w.ledger.WithTx(tx).ClaimEntry(ctx, entry, staffPrincipal); err != nil {
			return err
		}

		scan := model.CodeScan{
			ScannedBy: staffPrincipal,
			IPAddress: src.IPAddress,
			UserAgent: src.UserAgent,
			Valid:     true,
			Action:    model.ActionClaim,
			Notes:     notes,
		}
		if err := w.registry.WithTx(tx).RecordScan(ctx, code, &scan); err != nil {
			return err
		}

		claimed = entry
		return nil
	})
	if err != nil {
		return nil, err
	}

	if w.notifier != nil {
		w.notifier.NotifyClaimed(claimed.ID)
	}

	w.logger.Info("items claimed",
		zap.String("entry_id", claimed.EntryID),
		zap.String("claimed_by", staffPrincipal))
	return &ClaimResult{Entry: claimed, ClaimedAt: *claimed.ClaimedAt}, nil
}
