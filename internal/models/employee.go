package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidInput marks client-caused validation failures. Handlers map it
// to a 400-class response.
var ErrInvalidInput = errors.New("invalid input")

// MaxAge is the upper bound accepted for the age field.
const MaxAge = 130

// Employee is a persisted employee record. PhotoReference and
// ResolvedIdentifier are set at creation time and never mutated; there is
// no update surface.
type Employee struct {
	ID                 uint      `gorm:"primaryKey"                               json:"id"`
	FirstName          string    `gorm:"column:first_name;size:128;index"         json:"first_name"`
	LastName           string    `gorm:"column:last_name;size:128;index"          json:"last_name"`
	Age                int       `gorm:"column:age"                               json:"age"`
	Position           string    `gorm:"column:position;size:128;index"           json:"position"`
	Remote             bool      `gorm:"column:remote"                            json:"remote"`
	PhotoReference     string    `gorm:"column:photo_reference;size:128"          json:"photo_reference,omitempty"`
	PhotoFilename      string    `gorm:"column:photo_filename;size:255"           json:"photo_filename,omitempty"`
	ResolvedIdentifier string    `gorm:"column:resolved_identifier;size:64;index" json:"resolved_identifier"`
	CreatedAt          time.Time `gorm:"column:created_at"                        json:"created_at"`
}

// TableName overrides the default table name.
func (Employee) TableName() string {
	return "employees"
}

// OnboardingForm carries the typed form fields of an onboarding request.
type OnboardingForm struct {
	FirstName string
	LastName  string
	Age       int
	Position  string
	Remote    bool
}

// Validate checks the form fields before any side effect takes place.
func (f *OnboardingForm) Validate() error {
	if strings.TrimSpace(f.FirstName) == "" {
		return fmt.Errorf("%w: first_name is required", ErrInvalidInput)
	}
	if strings.TrimSpace(f.LastName) == "" {
		return fmt.Errorf("%w: last_name is required", ErrInvalidInput)
	}
	if f.Age < 0 || f.Age > MaxAge {
		return fmt.Errorf("%w: age must be between 0 and %d", ErrInvalidInput, MaxAge)
	}
	if strings.TrimSpace(f.Position) == "" {
		return fmt.Errorf("%w: position is required", ErrInvalidInput)
	}
	return nil
}

// ParseOnboardingForm builds a validated OnboardingForm from raw form values.
func ParseOnboardingForm(firstName, lastName, age, position, remote string) (*OnboardingForm, error) {
	if strings.TrimSpace(age) == "" {
		return nil, fmt.Errorf("%w: age is required", ErrInvalidInput)
	}
	parsedAge, err := strconv.Atoi(strings.TrimSpace(age))
	if err != nil {
		return nil, fmt.Errorf("%w: age must be an integer", ErrInvalidInput)
	}

	if strings.TrimSpace(remote) == "" {
		return nil, fmt.Errorf("%w: remote is required", ErrInvalidInput)
	}
	parsedRemote, err := strconv.ParseBool(strings.TrimSpace(remote))
	if err != nil {
		return nil, fmt.Errorf("%w: remote must be a boolean", ErrInvalidInput)
	}

	form := &OnboardingForm{
		FirstName: strings.TrimSpace(firstName),
		LastName:  strings.TrimSpace(lastName),
		Age:       parsedAge,
		Position:  strings.TrimSpace(position),
		Remote:    parsedRemote,
	}
	if err := form.Validate(); err != nil {
		return nil, err
	}
	return form, nil
}

// EmployeeFilter narrows a listing. Nil/empty fields impose no constraint.
type EmployeeFilter struct {
	Name     string
	Position string
	Remote   *bool
}
