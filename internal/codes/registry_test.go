package codes

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/shubhayu-dev/Sanrakshan/internal/apperr"
	"github.com/shubhayu-dev/Sanrakshan/internal/db"
	"github.com/shubhayu-dev/Sanrakshan/internal/model"
)

var codePattern = regexp.MustCompile(`^[A-Z1-9]{4}-[A-Z1-9]{4}$`)

// newTestDB creates an isolated in-memory SQLite database with migrations
// applied.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gormDB, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gormDB))
	return gormDB
}

func seedEntry(t *testing.T, gormDB *gorm.DB) *model.StorageEntry {
	t.Helper()
	now := time.Now()
	student := model.StudentProfile{
		PrincipalID: uuid.NewString(),
		RollNumber:  "2024BCS" + uuid.NewString()[:4],
		FullName:    "Test Student",
		Department:  model.DeptComputerScience,
		Year:        2,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, gormDB.Create(&student).Error)

	entry := model.StorageEntry{
		EntryID:   uuid.NewString(),
		StudentID: student.ID,
		Status:    model.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, gormDB.Create(&entry).Error)
	entry.Student = student
	return &entry
}

func TestIssue_FormatAndIdempotency(t *testing.T) {
	gormDB := newTestDB(t)
	registry := New(gormDB, zap.NewNop(), 5)
	entry := seedEntry(t, gormDB)

	code, err := registry.Issue(context.Background(), entry)
	require.NoError(t, err)
	assert.Regexp(t, codePattern, code.Code)
	assert.True(t, code.Active)
	assert.False(t, code.GeneratedAt.IsZero())
	assert.NotEmpty(t, code.Snapshot)

	// Issuing again without regenerate is a no-op.
	again, err := registry.Issue(context.Background(), entry)
	require.NoError(t, err)
	assert.Equal(t, code.ID, again.ID)
	assert.Equal(t, code.Code, again.Code)

	var count int64
	gormDB.Model(&model.UniqueCode{}).Where("entry_ref = ?", entry.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestIssue_CodesAreUnique(t *testing.T) {
	gormDB := newTestDB(t)
	registry := New(gormDB, zap.NewNop(), 5)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		entry := seedEntry(t, gormDB)
		code, err := registry.Issue(context.Background(), entry)
		require.NoError(t, err)
		assert.False(t, seen[code.Code], "code %s issued twice", code.Code)
		seen[code.Code] = true
	}
}

func TestRegenerate_OldCodeStopsResolving(t *testing.T) {
	gormDB := newTestDB(t)
	registry := New(gormDB, zap.NewNop(), 5)
	entry := seedEntry(t, gormDB)

	original, err := registry.Issue(context.Background(), entry)
	require.NoError(t, err)

	// A scan against the original code must survive regeneration.
	scan := model.CodeScan{ScannedBy: "staff-1", Valid: true, Action: model.ActionVerify}
	require.NoError(t, registry.RecordScan(context.Background(), original, &scan))

	regenerated, err := registry.Regenerate(context.Background(), entry)
	require.NoError(t, err)
	assert.NotEqual(t, original.Code, regenerated.Code)
	assert.Equal(t, original.ID, regenerated.ID, "regeneration overwrites the same row")
	assert.Regexp(t, codePattern, regenerated.Code)

	_, err = registry.Lookup(context.Background(), original.Code)
	assert.ErrorIs(t, err, apperr.ErrCodeNotFound)

	looked, err := registry.Lookup(context.Background(), regenerated.Code)
	require.NoError(t, err)
	assert.Equal(t, entry.ID, looked.EntryRef)

	// The audit event still exists and kept the old code string.
	var kept model.CodeScan
	require.NoError(t, gormDB.First(&kept, scan.ID).Error)
	assert.Equal(t, original.Code, kept.CodeValue)
}

func TestRegenerate_NoCode(t *testing.T) {
	gormDB := newTestDB(t)
	registry := New(gormDB, zap.NewNop(), 5)
	entry := seedEntry(t, gormDB)

	_, err := registry.Regenerate(context.Background(), entry)
	assert.ErrorIs(t, err, apperr.ErrCodeNotFound)
}

func TestDeactivate_Idempotent(t *testing.T) {
	gormDB := newTestDB(t)
	registry := New(gormDB, zap.NewNop(), 5)
	entry := seedEntry(t, gormDB)

	code, err := registry.Issue(context.Background(), entry)
	require.NoError(t, err)

	require.NoError(t, registry.Deactivate(context.Background(), entry.ID))
	require.NoError(t, registry.Deactivate(context.Background(), entry.ID))

	_, err = registry.Lookup(context.Background(), code.Code)
	assert.ErrorIs(t, err, apperr.ErrCodeInactive)

	// Deactivating an entry that never had a code is tolerated.
	other := seedEntry(t, gormDB)
	assert.NoError(t, registry.Deactivate(context.Background(), other.ID))
}

func TestLookup_Outcomes(t *testing.T) {
	gormDB := newTestDB(t)
	registry := New(gormDB, zap.NewNop(), 5)
	entry := seedEntry(t, gormDB)

	code, err := registry.Issue(context.Background(), entry)
	require.NoError(t, err)

	t.Run("unknown code", func(t *testing.T) {
		_, err := registry.Lookup(context.Background(), "ZZZZ-ZZZZ")
		assert.ErrorIs(t, err, apperr.ErrCodeNotFound)
	})

	t.Run("active code resolves with associations", func(t *testing.T) {
		looked, err := registry.Lookup(context.Background(), code.Code)
		require.NoError(t, err)
		assert.Equal(t, entry.EntryID, looked.Entry.EntryID)
		assert.Equal(t, entry.Student.RollNumber, looked.Entry.Student.RollNumber)
	})

	t.Run("lookup normalises whitespace and case", func(t *testing.T) {
		looked, err := registry.Lookup(context.Background(), "  "+code.Code+" ")
		require.NoError(t, err)
		assert.Equal(t, code.ID, looked.ID)
	})

	t.Run("inactive code is a distinct outcome", func(t *testing.T) {
		require.NoError(t, registry.Deactivate(context.Background(), entry.ID))
		looked, err := registry.Lookup(context.Background(), code.Code)
		assert.ErrorIs(t, err, apperr.ErrCodeInactive)
		assert.NotErrorIs(t, err, apperr.ErrCodeNotFound)
		require.NotNil(t, looked)
		assert.False(t, looked.Active)
	})
}

func TestGenerateCode_Charset(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := generateCode()
		require.NoError(t, err)
		assert.Regexp(t, codePattern, code)
		assert.NotContains(t, code, "0")
		assert.NotContains(t, code, "O")
	}
}

func TestRecentScans_NewestFirst(t *testing.T) {
	gormDB := newTestDB(t)
	registry := New(gormDB, zap.NewNop(), 5)
	entry := seedEntry(t, gormDB)

	code, err := registry.Issue(context.Background(), entry)
	require.NoError(t, err)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		scan := model.CodeScan{
			ScannedBy: "staff-1",
			ScannedAt: base.Add(time.Duration(i) * time.Minute),
			Valid:     true,
			Action:    model.ActionVerify,
		}
		require.NoError(t, registry.RecordScan(context.Background(), code, &scan))
	}

	scans, err := registry.RecentScans(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, scans, 2)
	assert.True(t, scans[0].ScannedAt.After(scans[1].ScannedAt))
	assert.Equal(t, code.Code, scans[0].CodeValue)
	assert.Equal(t, entry.EntryID, scans[0].Code.Entry.EntryID)
}
