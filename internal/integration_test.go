package internal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/shubhayu-dev/Sanrakshan/internal/apperr"
	"github.com/shubhayu-dev/Sanrakshan/internal/claim"
	"github.com/shubhayu-dev/Sanrakshan/internal/codes"
	"github.com/shubhayu-dev/Sanrakshan/internal/db"
	"github.com/shubhayu-dev/Sanrakshan/internal/directory"
	"github.com/shubhayu-dev/Sanrakshan/internal/ledger"
	"github.com/shubhayu-dev/Sanrakshan/internal/model"
)

// TestStorageLifecycle walks one storage session end to end: a student
// registers, stores items and receives a code; staff verify the code, claim
// the items, and the trail survives in the audit history. Database state is
// checked at each step.
func TestStorageLifecycle(t *testing.T) {
	testDB, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to the in-memory database: %v", err)
	}
	sqlDB, _ := testDB.DB()
	defer sqlDB.Close()

	require.NoError(t, db.Migrate(testDB))

	logger := zap.NewNop()
	registry := codes.New(testDB, logger, 5)
	dir := directory.New(testDB, logger)
	led := ledger.New(testDB, registry, logger)
	workflow := claim.New(testDB, led, registry, nil, logger)

	ctx := context.Background()

	// --- Registration ---

	student, err := dir.Register(ctx, "principal-asha", directory.RegisterInput{
		RollNumber:  "2024BCS0042",
		FullName:    "Asha Nair",
		Department:  model.DeptComputerScience,
		Year:        2,
		PhoneNumber: "+91-9876543210",
	})
	require.NoError(t, err)

	// --- Storage ---

	entry, code, err := led.CreateEntry(ctx, student, "semester break", "Hostel store room B", []ledger.ItemSpec{
		{Name: "Laptop", Category: model.CategoryElectronics, Quantity: 1},
		{Name: "Books", Category: model.CategoryBooks, Quantity: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, entry.Status)
	assert.Equal(t, 4, entry.TotalItems())
	assert.Regexp(t, `^[A-Z1-9]{4}-[A-Z1-9]{4}$`, code.Code)
	assert.True(t, code.Active)

	// --- Staff verification ---

	verify, err := workflow.Verify(ctx, code.Code, "staff-counter", claim.Source{IPAddress: "10.0.0.5"})
	require.NoError(t, err)
	assert.Equal(t, claim.OutcomeVerified, verify.Outcome)
	assert.True(t, verify.CanClaim)
	assert.Equal(t, "2024BCS0042", verify.Entry.Student.RollNumber)

	// Verification changed nothing about the entry.
	fresh, err := led.ByEntryID(ctx, entry.EntryID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, fresh.Status)

	// --- Claim ---

	claimed, err := workflow.Claim(ctx, code.Code, "staff-counter", "ID card checked", claim.Source{IPAddress: "10.0.0.5"})
	require.NoError(t, err)
	assert.Equal(t, model.StatusClaimed, claimed.Entry.Status)

	fresh, err = led.ByEntryID(ctx, entry.EntryID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusClaimed, fresh.Status)
	require.NotNil(t, fresh.ClaimedAt)

	var storedCode model.UniqueCode
	require.NoError(t, testDB.Where("entry_ref = ?", entry.ID).First(&storedCode).Error)
	assert.False(t, storedCode.Active)

	// The spent code no longer claims, and verifies as deactivated.
	_, err = workflow.Claim(ctx, code.Code, "staff-counter", "", claim.Source{})
	assert.ErrorIs(t, err, apperr.ErrCodeInactive)

	verify, err = workflow.Verify(ctx, code.Code, "staff-counter", claim.Source{})
	require.NoError(t, err)
	assert.Equal(t, claim.OutcomeDeactivated, verify.Outcome)
	assert.False(t, verify.CanClaim)

	// --- Audit trail ---

	scans, err := registry.RecentScans(ctx, 10)
	require.NoError(t, err)
	require.Len(t, scans, 2)
	assert.Equal(t, model.ActionClaim, scans[0].Action)
	assert.Equal(t, "ID card checked", scans[0].Notes)
	assert.Equal(t, model.ActionVerify, scans[1].Action)
	assert.Equal(t, code.Code, scans[0].CodeValue)

	// --- Dashboard ---

	stats, err := led.StatsForStudent(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalSessions)
	assert.Equal(t, int64(1), stats.ClaimedSessions)
	assert.Equal(t, int64(0), stats.ActiveSessions)
	assert.Equal(t, int64(4), stats.TotalItems)
}
