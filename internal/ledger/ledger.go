// Package ledger owns storage entries and their items: creation, the
// lifecycle state machine and reporting. Code issuance is an explicit,
// synchronous side effect of entry creation, performed inside the same
// transaction as the entry write.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/shubhayu-dev/Sanrakshan/internal/apperr"
	"github.com/shubhayu-dev/Sanrakshan/internal/codes"
	"github.com/shubhayu-dev/Sanrakshan/internal/model"
)

// Estimated values above this are rejected as implausible.
const maxEstimatedValue = 10_000_000

// Ledger provides the storage-entry operations.
type Ledger struct {
	db       *gorm.DB
	registry *codes.Registry
	logger   *zap.Logger
	now      func() time.Time
}

// New creates a Ledger. The registry is invoked for code issuance and
// deactivation within the ledger's transactions.
func New(db *gorm.DB, registry *codes.Registry, logger *zap.Logger) *Ledger {
	return &Ledger{db: db, registry: registry, logger: logger, now: time.Now}
}

// WithTx returns a copy of the ledger bound to an open transaction.
func (l *Ledger) WithTx(tx *gorm.DB) *Ledger {
	cp := *l
	cp.db = tx
	return &cp
}

// WithClock replaces the time source. Intended for tests.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// ItemSpec describes one item to store.
type ItemSpec struct {
	Name           string
	Category       model.ItemCategory
	Quantity       int
	Description    string
	EstimatedValue *float64
}

// CreateEntry opens a storage session for a student. The entry, its items
// and its unique code are written in one transaction; a validation failure
// leaves nothing persisted.
func (l *Ledger) CreateEntry(ctx context.Context, student *model.StudentProfile, description, location string, items []ItemSpec) (*model.StorageEntry, *model.UniqueCode, error) {
	if err := validateItems(items); err != nil {
		return nil, nil, err
	}

	now := l.now()
	entry := model.StorageEntry{
		EntryID:         uuid.New().String(),
		StudentID:       student.ID,
		Status:          model.StatusActive,
		Description:     description,
		StorageLocation: location,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for _, spec := range items {
		category := spec.Category
		if category == "" {
			category = model.CategoryMisc
		}
		entry.Items = append(entry.Items, model.StoredItem{
			Name:           spec.Name,
			Category:       category,
			Quantity:       spec.Quantity,
			Description:    spec.Description,
			EstimatedValue: spec.EstimatedValue,
			CreatedAt:      now,
		})
	}

	var code *model.UniqueCode
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("create storage entry: %w", err)
		}
		entry.Student = *student

		minted, err := l.registry.WithTx(tx).Issue(ctx, &entry)
		if err != nil {
			return err
		}
		code = minted
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	l.logger.Info("storage entry created",
		zap.String("entry_id", entry.EntryID),
		zap.String("roll_number", student.RollNumber),
		zap.Int("total_items", entry.TotalItems()))
	return &entry, code, nil
}

// ByEntryID resolves an entry by its opaque identifier, with student and
// items loaded.
func (l *Ledger) ByEntryID(ctx context.Context, entryID string) (*model.StorageEntry, error) {
	var entry model.StorageEntry
	err := l.db.WithContext(ctx).
		Preload("Student").
		Preload("Items").
		Where("entry_id = ?", entryID).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrEntryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// ForStudent lists a student's entries, newest first, with items loaded.
func (l *Ledger) ForStudent(ctx context.Context, studentID int64) ([]model.StorageEntry, error) {
	var entries []model.StorageEntry
	err := l.db.WithContext(ctx).
		Preload("Items").
		Where("student_id = ?", studentID).
		Order("created_at DESC").
		Find(&entries).Error
	return entries, err
}

// CancelEntry transitions an active entry to cancelled. Cancelled is
// terminal; claimed entries can never be cancelled.
func (l *Ledger) CancelEntry(ctx context.Context, entry *model.StorageEntry, reason string) error {
	if entry.Status != model.StatusActive {
		return &apperr.InvalidTransitionError{Op: "cancel", From: string(entry.Status)}
	}

	now := l.now()
	notes := entry.StaffNotes
	if reason != "" {
		notes = appendNote(notes, fmt.Sprintf("Cancelled: %s", reason))
	}

	err := l.db.WithContext(ctx).Model(entry).Updates(map[string]any{
		"status":      model.StatusCancelled,
		"staff_notes": notes,
		"updated_at":  now,
	}).Error
	if err != nil {
		return err
	}

	entry.Status = model.StatusCancelled
	entry.StaffNotes = notes
	entry.UpdatedAt = now
	return nil
}

// ClaimEntry transitions an active entry to claimed, stamps ClaimedAt and
// appends an audit note. The entry's code is deactivated as part of the same
// call; a missing code is tolerated. Run inside a transaction via WithTx
// when the caller needs the claim atomic with other writes.
func (l *Ledger) ClaimEntry(ctx context.Context, entry *model.StorageEntry, claimedBy string) error {
	if entry.Status != model.StatusActive {
		return &apperr.InvalidTransitionError{Op: "claim", From: string(entry.Status)}
	}

	now := l.now()
	notes := appendNote(entry.StaffNotes,
		fmt.Sprintf("Claimed by %s at %s", claimedBy, now.Format(time.RFC3339)))

	err := l.db.WithContext(ctx).Model(entry).Updates(map[string]any{
		"status":      model.StatusClaimed,
		"claimed_at":  now,
		"staff_notes": notes,
		"updated_at":  now,
	}).Error
	if err != nil {
		return err
	}

	if err := l.registry.WithTx(l.db).Deactivate(ctx, entry.ID); err != nil {
		return err
	}

	entry.Status = model.StatusClaimed
	entry.ClaimedAt = &now
	entry.StaffNotes = notes
	entry.UpdatedAt = now
	return nil
}

// ExpireEntry transitions an active entry to expired. Expiry is triggered
// externally (staff action); there is no background sweeper.
func (l *Ledger) ExpireEntry(ctx context.Context, entry *model.StorageEntry) error {
	if entry.Status != model.StatusActive {
		return &apperr.InvalidTransitionError{Op: "expire", From: string(entry.Status)}
	}

	now := l.now()
	err := l.db.WithContext(ctx).Model(entry).Updates(map[string]any{
		"status":     model.StatusExpired,
		"updated_at": now,
	}).Error
	if err != nil {
		return err
	}

	entry.Status = model.StatusExpired
	entry.UpdatedAt = now
	return nil
}

// DeleteEntry removes an entry and its items. Active entries may not be
// deleted; that is an integrity violation, not a user error.
func (l *Ledger) DeleteEntry(ctx context.Context, entry *model.StorageEntry) error {
	if entry.Status == model.StatusActive {
		return apperr.Constraint("refusing to delete active entry %s", entry.EntryID)
	}

	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("entry_ref = ?", entry.ID).Delete(&model.StoredItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("entry_ref = ?", entry.ID).Delete(&model.UniqueCode{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.StorageEntry{}, entry.ID).Error
	})
}

// TotalItems reports the summed quantity for an entry. Used for reporting;
// it returns zero instead of failing.
func (l *Ledger) TotalItems(ctx context.Context, entryRef int64) int {
	var total int64
	err := l.db.WithContext(ctx).Model(&model.StoredItem{}).
		Where("entry_ref = ?", entryRef).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&total).Error
	if err != nil {
		l.logger.Warn("total items query failed", zap.Int64("entry_ref", entryRef), zap.Error(err))
		return 0
	}
	return int(total)
}

// Stats summarises a student's storage history for the dashboard.
type Stats struct {
	TotalSessions     int64 `json:"total_sessions"`
	ActiveSessions    int64 `json:"active_sessions"`
	ClaimedSessions   int64 `json:"claimed_sessions"`
	CancelledSessions int64 `json:"cancelled_sessions"`
	ExpiredSessions   int64 `json:"expired_sessions"`
	TotalItems        int64 `json:"total_items"`
	ActiveItems       int64 `json:"active_items"`
}

// StatsForStudent aggregates session and item counts. Reads are
// unsynchronised; brief staleness under concurrent writes is acceptable.
func (l *Ledger) StatsForStudent(ctx context.Context, studentID int64) (*Stats, error) {
	type statusRow struct {
		Status model.EntryStatus
		Count  int64
	}
	var rows []statusRow
	if err := l.db.WithContext(ctx).Model(&model.StorageEntry{}).
		Select("status, COUNT(*) as count").
		Where("student_id = ?", studentID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	stats := Stats{}
	for _, row := range rows {
		stats.TotalSessions += row.Count
		switch row.Status {
		case model.StatusActive:
			stats.ActiveSessions = row.Count
		case model.StatusClaimed:
			stats.ClaimedSessions = row.Count
		case model.StatusCancelled:
			stats.CancelledSessions = row.Count
		case model.StatusExpired:
			stats.ExpiredSessions = row.Count
		}
	}

	type itemRow struct {
		Status model.EntryStatus
		Total  int64
	}
	var itemRows []itemRow
	if err := l.db.WithContext(ctx).Model(&model.StoredItem{}).
		Select("storage_entries.status as status, COALESCE(SUM(stored_items.quantity), 0) as total").
		Joins("JOIN storage_entries ON storage_entries.id = stored_items.entry_ref").
		Where("storage_entries.student_id = ?", studentID).
		Group("storage_entries.status").
		Scan(&itemRows).Error; err != nil {
		return nil, err
	}
	for _, row := range itemRows {
		stats.TotalItems += row.Total
		if row.Status == model.StatusActive {
			stats.ActiveItems = row.Total
		}
	}

	return &stats, nil
}

func validateItems(items []ItemSpec) error {
	if len(items) == 0 {
		return apperr.Validation("items", "at least one item is required")
	}
	for i, spec := range items {
		if spec.Name == "" {
			return apperr.Validation(fmt.Sprintf("items[%d].name", i), "item name is required")
		}
		if spec.Quantity <= 0 {
			return apperr.Validation(fmt.Sprintf("items[%d].quantity", i), "quantity must be greater than 0")
		}
		if spec.Category != "" && !model.ValidCategory(spec.Category) {
			return apperr.Validation(fmt.Sprintf("items[%d].category", i), "unknown category %q", spec.Category)
		}
		if spec.EstimatedValue != nil {
			if *spec.EstimatedValue < 0 {
				return apperr.Validation(fmt.Sprintf("items[%d].estimated_value", i), "estimated value cannot be negative")
			}
			if *spec.EstimatedValue > maxEstimatedValue {
				return apperr.Validation(fmt.Sprintf("items[%d].estimated_value", i), "estimated value exceeds the allowed maximum")
			}
		}
	}
	return nil
}

func appendNote(existing, note string) string {
	if existing == "" {
		return note
	}
	return existing + "\n" + note
}
