// Package directory maps authenticated principals to student records.
package directory

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/shubhayu-dev/Sanrakshan/internal/apperr"
	"github.com/shubhayu-dev/Sanrakshan/internal/model"
)

// Roll number format: 2024BCS0001, 2025BCY0123, ...
var rollNumberPattern = regexp.MustCompile(`^(20(?:2[4-9]|[3-9][0-9]))B(CS|CY|CD|EC)([0-9]{4})$`)

// Directory provides registration and lookup of student profiles.
// A principal maps to at most one profile; the roll number is immutable
// once registered.
type Directory struct {
	db     *gorm.DB
	logger *zap.Logger
	now    func() time.Time
}

// New creates a Directory backed by the given database.
func New(db *gorm.DB, logger *zap.Logger) *Directory {
	return &Directory{db: db, logger: logger, now: time.Now}
}

// WithClock replaces the time source. Intended for tests.
func (d *Directory) WithClock(now func() time.Time) *Directory {
	d.now = now
	return d
}

// RegisterInput carries the fields needed to create a student profile.
type RegisterInput struct {
	RollNumber  string
	FullName    string
	Department  string
	Year        int
	PhoneNumber string
}

// Register creates the profile for a principal. Fails with a ValidationError
// when the roll number is malformed or already taken, or when the principal
// already has a profile.
func (d *Directory) Register(ctx context.Context, principalID string, in RegisterInput) (*model.StudentProfile, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	var count int64
	if err := d.db.WithContext(ctx).Model(&model.StudentProfile{}).
		Where("principal_id = ?", principalID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, apperr.Validation("principal_id", "a profile is already registered for this account")
	}

	if err := d.db.WithContext(ctx).Model(&model.StudentProfile{}).
		Where("roll_number = ?", in.RollNumber).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, apperr.Validation("roll_number", "roll number %s is already registered", in.RollNumber)
	}

	now := d.now()
	profile := model.StudentProfile{
		PrincipalID: principalID,
		RollNumber:  in.RollNumber,
		FullName:    in.FullName,
		Department:  in.Department,
		Year:        in.Year,
		PhoneNumber: in.PhoneNumber,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := d.db.WithContext(ctx).Create(&profile).Error; err != nil {
		// The unique indexes are the authority under concurrent registration.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Validation("roll_number", "roll number %s is already registered", in.RollNumber)
		}
		return nil, err
	}

	d.logger.Info("student registered",
		zap.String("roll_number", profile.RollNumber),
		zap.String("department", profile.Department))
	return &profile, nil
}

// ByPrincipal returns the profile registered for a principal.
func (d *Directory) ByPrincipal(ctx context.Context, principalID string) (*model.StudentProfile, error) {
	var profile model.StudentProfile
	err := d.db.WithContext(ctx).Where("principal_id = ?", principalID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpdateContact changes the mutable contact fields. The roll number is not
// among them.
func (d *Directory) UpdateContact(ctx context.Context, principalID, fullName, phone string) (*model.StudentProfile, error) {
	profile, err := d.ByPrincipal(ctx, principalID)
	if err != nil {
		return nil, err
	}

	if fullName != "" {
		profile.FullName = fullName
	}
	if phone != "" {
		profile.PhoneNumber = phone
	}
	profile.UpdatedAt = d.now()

	if err := d.db.WithContext(ctx).Model(profile).
		Select("full_name", "phone_number", "updated_at").
		Updates(profile).Error; err != nil {
		return nil, err
	}
	return profile, nil
}

func validateInput(in RegisterInput) error {
	if !rollNumberPattern.MatchString(in.RollNumber) {
		return apperr.Validation("roll_number", "format must match e.g. 2024BCS0001")
	}
	switch in.Department {
	case model.DeptComputerScience, model.DeptElectronics, model.DeptCyberSecurity,
		model.DeptComputerDesign, model.DeptOther:
	default:
		return apperr.Validation("department", "unknown department %q", in.Department)
	}
	if in.Year < 1 || in.Year > 5 {
		return apperr.Validation("year", "year must be between 1 and 5")
	}
	if in.FullName == "" {
		return apperr.Validation("full_name", "full name is required")
	}
	return nil
}
