package directory

import (
	"context"
	"testing"

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

func newTestDirectory(t *testing.T) *Directory {
	t.Helper()
	gormDB, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gormDB))
	return New(gormDB, zap.NewNop())
}

func validInput() RegisterInput {
	return RegisterInput{
		RollNumber:  "2024BCS0042",
		FullName:    "Asha Nair",
		Department:  model.DeptComputerScience,
		Year:        2,
		PhoneNumber: "+91-9876543210",
	}
}

func TestRegister(t *testing.T) {
	dir := newTestDirectory(t)

	profile, err := dir.Register(context.Background(), "principal-1", validInput())
	require.NoError(t, err)
	assert.NotZero(t, profile.ID)
	assert.Equal(t, "2024BCS0042", profile.RollNumber)
	assert.Equal(t, "Asha Nair", profile.FullName)

	found, err := dir.ByPrincipal(context.Background(), "principal-1")
	require.NoError(t, err)
	assert.Equal(t, profile.ID, found.ID)
}

func TestRegister_Validation(t *testing.T) {
	dir := newTestDirectory(t)

	cases := []struct {
		name   string
		mutate func(*RegisterInput)
		field  string
	}{
		{"bad roll year", func(in *RegisterInput) { in.RollNumber = "2023BCS0001" }, "roll_number"},
		{"bad roll branch", func(in *RegisterInput) { in.RollNumber = "2024BXX0001" }, "roll_number"},
		{"lowercase roll", func(in *RegisterInput) { in.RollNumber = "2024bcs0001" }, "roll_number"},
		{"short serial", func(in *RegisterInput) { in.RollNumber = "2024BCS001" }, "roll_number"},
		{"unknown department", func(in *RegisterInput) { in.Department = "LAW" }, "department"},
		{"year too low", func(in *RegisterInput) { in.Year = 0 }, "year"},
		{"year too high", func(in *RegisterInput) { in.Year = 6 }, "year"},
		{"missing name", func(in *RegisterInput) { in.FullName = "" }, "full_name"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)
			_, err := dir.Register(context.Background(), uuid.NewString(), in)
			var verr *apperr.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestRegister_AcceptsAllBranches(t *testing.T) {
	dir := newTestDirectory(t)
	for i, roll := range []string{"2024BCS0001", "2025BCY0001", "2026BCD0001", "2027BEC0001"} {
		in := validInput()
		in.RollNumber = roll
		_, err := dir.Register(context.Background(), uuid.NewString(), in)
		require.NoError(t, err, "roll %d: %s", i, roll)
	}
}

func TestRegister_DuplicatePrincipal(t *testing.T) {
	dir := newTestDirectory(t)

	_, err := dir.Register(context.Background(), "principal-1", validInput())
	require.NoError(t, err)

	in := validInput()
	in.RollNumber = "2024BCS0043"
	_, err = dir.Register(context.Background(), "principal-1", in)
	var verr *apperr.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "principal_id", verr.Field)
}

func TestRegister_DuplicateRollNumber(t *testing.T) {
	dir := newTestDirectory(t)

	_, err := dir.Register(context.Background(), "principal-1", validInput())
	require.NoError(t, err)

	_, err = dir.Register(context.Background(), "principal-2", validInput())
	var verr *apperr.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "roll_number", verr.Field)
}

func TestByPrincipal_NotFound(t *testing.T) {
	dir := newTestDirectory(t)
	_, err := dir.ByPrincipal(context.Background(), "nobody")
	assert.ErrorIs(t, err, apperr.ErrProfileNotFound)
}

func TestUpdateContact(t *testing.T) {
	dir := newTestDirectory(t)

	created, err := dir.Register(context.Background(), "principal-1", validInput())
	require.NoError(t, err)

	updated, err := dir.UpdateContact(context.Background(), "principal-1", "Asha K Nair", "+91-9000000000")
	require.NoError(t, err)
	assert.Equal(t, "Asha K Nair", updated.FullName)
	assert.Equal(t, "+91-9000000000", updated.PhoneNumber)
	assert.Equal(t, created.RollNumber, updated.RollNumber)

	// Empty fields leave the stored values untouched.
	kept, err := dir.UpdateContact(context.Background(), "principal-1", "", "")
	require.NoError(t, err)
	assert.Equal(t, "Asha K Nair", kept.FullName)
	assert.Equal(t, "+91-9000000000", kept.PhoneNumber)

	_, err = dir.UpdateContact(context.Background(), "nobody", "X", "")
	assert.ErrorIs(t, err, apperr.ErrProfileNotFound)
}
