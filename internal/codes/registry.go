// Package codes issues and tracks the unique verification codes that
// authorise release of stored items, and owns their append-only scan audit.
package codes

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/shubhayu-dev/Sanrakshan/internal/apperr"
	"github.com/shubhayu-dev/Sanrakshan/internal/model"
)

// Charset excludes 0 and O, which are too easy to confuse when staff type a
// code by hand.
const charset = "ABCDEFGHIJKLMNPQRSTUVWXYZ123456789"

const codeLength = 8 // formatted as XXXX-XXXX

// Registry manages unique codes and their verification events.
type Registry struct {
	db         *gorm.DB
	logger     *zap.Logger
	maxRetries int
	now        func() time.Time
}

// New creates a Registry. maxRetries bounds how often code generation may
// collide before the attempt is treated as an integrity failure.
func New(db *gorm.DB, logger *zap.Logger, maxRetries int) *Registry {
	if maxRetries <= 0 {
		maxRetries = 5
	}
	return &Registry{db: db, logger: logger, maxRetries: maxRetries, now: time.Now}
}

// WithTx returns a copy of the registry bound to an open transaction.
func (r *Registry) WithTx(tx *gorm.DB) *Registry {
	cp := *r
	cp.db = tx
	return &cp
}

// WithClock replaces the time source. Intended for tests.
func (r *Registry) WithClock(now func() time.Time) *Registry {
	r.now = now
	return r
}

// Issue mints the code for an entry. Calling it again for the same entry is
// a no-op that returns the existing code. Uniqueness is checked against
// existing codes before acceptance and enforced by the unique index; on a
// concurrent collision generation is retried.
func (r *Registry) Issue(ctx context.Context, entry *model.StorageEntry) (*model.UniqueCode, error) {
	var existing model.UniqueCode
	err := r.db.WithContext(ctx).Where("entry_ref = ?", entry.ID).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	snapshot, err := r.snapshot(entry)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < r.maxRetries; attempt++ {
		candidate, err := generateCode()
		if err != nil {
			return nil, err
		}

		var count int64
		if err := r.db.WithContext(ctx).Model(&model.UniqueCode{}).
			Where("code = ?", candidate).Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			continue
		}

		code := model.UniqueCode{
			EntryRef:    entry.ID,
			Code:        candidate,
			Active:      true,
			GeneratedAt: r.now(),
			Snapshot:    snapshot,
			CreatedAt:   r.now(),
			UpdatedAt:   r.now(),
		}
		if err := r.db.WithContext(ctx).Create(&code).Error; err != nil {
			if isDuplicate(err) {
				// Lost a race with a concurrent issuance. Generate again.
				continue
			}
			return nil, err
		}
		return &code, nil
	}

	return nil, apperr.Constraint("code generation exhausted %d retries", r.maxRetries)
}

// Regenerate replaces the code value in place. The old value stops resolving
// immediately; scan events keep referencing the same code row. Fails with
// ErrCodeNotFound when the entry never had a code.
func (r *Registry) Regenerate(ctx context.Context, entry *model.StorageEntry) (*model.UniqueCode, error) {
	var code model.UniqueCode
	err := r.db.WithContext(ctx).Where("entry_ref = ?", entry.ID).First(&code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrCodeNotFound
	}
	if err != nil {
		return nil, err
	}

	snapshot, err := r.snapshot(entry)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < r.maxRetries; attempt++ {
		candidate, err := generateCode()
		if err != nil {
			return nil, err
		}

		var count int64
		if err := r.db.WithContext(ctx).Model(&model.UniqueCode{}).
			Where("code = ?", candidate).Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			continue
		}

		now := r.now()
		res := r.db.WithContext(ctx).Model(&code).Updates(map[string]any{
			"code":         candidate,
			"generated_at": now,
			"snapshot":     snapshot,
			"updated_at":   now,
		})
		if res.Error != nil {
			if isDuplicate(res.Error) {
				continue
			}
			return nil, res.Error
		}

		code.Code = candidate
		code.GeneratedAt = now
		code.Snapshot = snapshot
		code.UpdatedAt = now
		r.logger.Info("code regenerated", zap.Int64("entry_ref", entry.ID))
		return &code, nil
	}

	return nil, apperr.Constraint("code generation exhausted %d retries", r.maxRetries)
}

// Deactivate marks the entry's code inactive. Idempotent; a missing code is
// tolerated because claims must not fail on it.
func (r *Registry) Deactivate(ctx context.Context, entryRef int64) error {
	return r.db.WithContext(ctx).Model(&model.UniqueCode{}).
		Where("entry_ref = ?", entryRef).
		Updates(map[string]any{"active": false, "updated_at": r.now()}).Error
}

// Lookup resolves a code string. Absent codes yield ErrCodeNotFound and
// deactivated ones ErrCodeInactive, so callers can message the two cases
// differently.
func (r *Registry) Lookup(ctx context.Context, codeString string) (*model.UniqueCode, error) {
	var code model.UniqueCode
	err := r.db.WithContext(ctx).
		Preload("Entry").
		Preload("Entry.Student").
		Preload("Entry.Items").
		Where("code = ?", strings.ToUpper(strings.TrimSpace(codeString))).
		First(&code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrCodeNotFound
	}
	if err != nil {
		return nil, err
	}
	if !code.Active {
		return &code, apperr.ErrCodeInactive
	}
	return &code, nil
}

// RecordScan appends a verification event for a code. Events are never
// updated or deleted afterwards.
func (r *Registry) RecordScan(ctx context.Context, code *model.UniqueCode, scan *model.CodeScan) error {
	scan.CodeRef = &code.ID
	scan.CodeValue = code.Code
	if scan.ScannedAt.IsZero() {
		scan.ScannedAt = r.now()
	}
	return r.db.WithContext(ctx).Create(scan).Error
}

// RecentScans returns the latest verification events for the staff audit
// view, newest first.
func (r *Registry) RecentScans(ctx context.Context, limit int) ([]model.CodeScan, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var scans []model.CodeScan
	err := r.db.WithContext(ctx).
		Preload("Code").
		Preload("Code.Entry").
		Preload("Code.Entry.Student").
		Order("scanned_at DESC").
		Limit(limit).
		Find(&scans).Error
	return scans, err
}

// snapshot captures entry metadata on the code row so staff tooling can show
// it without joins even after the student record changes.
func (r *Registry) snapshot(entry *model.StorageEntry) ([]byte, error) {
	data := map[string]any{
		"entry_id":    entry.EntryID,
		"total_items": entry.TotalItems(),
		"status":      entry.Status,
		"stored_at":   entry.CreatedAt.Format(time.RFC3339),
	}
	if entry.Student.ID != 0 {
		data["roll_number"] = entry.Student.RollNumber
		data["student_name"] = entry.Student.FullName
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal code snapshot: %w", err)
	}
	return raw, nil
}

func generateCode() (string, error) {
	chars := make([]byte, codeLength)
	for i := range chars {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}
		chars[i] = charset[n.Int64()]
	}
	return string(chars[:4]) + "-" + string(chars[4:]), nil
}

// isDuplicate matches unique-index violations across the postgres and
// sqlite drivers.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint")
}
