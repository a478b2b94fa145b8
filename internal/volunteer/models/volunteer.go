package models

import (
	"regexp"
	"time"

	"github.com/google/uuid"

	dErrors "kehila/pkg/domain-errors"
)

// Gender is stored in its short form, matching the registration payloads.
type Gender string

const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
)

// ParseGender accepts both the short stored form and the long form the
// registration form submits.
func ParseGender(s string) (Gender, error) {
	switch s {
	case "M", "male", "Male":
		return GenderMale, nil
	case "F", "female", "Female":
		return GenderFemale, nil
	}
	return "", dErrors.New(dErrors.CodeBadRequest, "invalid gender")
}

// Status is the applicant lifecycle state. Rejection is a hard delete, not a
// status, so only two states exist.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
)

// ParseStatus validates a status string from a query parameter.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusConfirmed:
		return Status(s), nil
	}
	return "", dErrors.New(dErrors.CodeBadRequest, "invalid status")
}

// VolunteerRecord is the persisted entity representing one registration.
//
// Invariants:
//   - Status transitions pending → confirmed at most once, never back
//   - InsuranceFormURL is set if and only if Status is confirmed
//   - NationalID is unique among stored records
//   - CreatedAt is immutable after construction
//
// Only the registration flow mutates contact fields and areas; only the
// approval pipeline writes Status and InsuranceFormURL.
type VolunteerRecord struct {
	RecordID         uuid.UUID `json:"recordId"`
	NationalID       string    `json:"nationalId"`
	FirstName        string    `json:"firstName"`
	LastName         string    `json:"lastName"`
	Phone            string    `json:"phone"`
	Email            string    `json:"email"`
	Gender           Gender    `json:"gender"`
	VolunteerAreas   []string  `json:"volunteerArea"`
	Status           Status    `json:"status"`
	PoliceFormURL    *string   `json:"policeForm,omitempty"`
	InsuranceFormURL *string   `json:"insuranceForm,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

var (
	nameRe       = regexp.MustCompile(`^[a-zA-Z\x{0590}-\x{05FF}\s]+$`)
	nationalIDRe = regexp.MustCompile(`^[0-9]{9}$`)
	phoneRe      = regexp.MustCompile(`^05[0-9]{8}$`)
	emailRe      = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// NewVolunteerRecord constructs a pending record, validating every field the
// registration form requires.
func NewVolunteerRecord(nationalID, firstName, lastName, phone, email string, gender Gender, areas []string, now time.Time) (*VolunteerRecord, error) {
	rec := &VolunteerRecord{
		RecordID:       uuid.New(),
		NationalID:     nationalID,
		FirstName:      firstName,
		LastName:       lastName,
		Phone:          phone,
		Email:          email,
		Gender:         gender,
		VolunteerAreas: areas,
		Status:         StatusPending,
		CreatedAt:      now,
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return rec, nil
}

// Validate applies the registration field rules.
func (r *VolunteerRecord) Validate() error {
	switch {
	case !nameRe.MatchString(r.FirstName):
		return dErrors.New(dErrors.CodeBadRequest, "invalid first name")
	case !nameRe.MatchString(r.LastName):
		return dErrors.New(dErrors.CodeBadRequest, "invalid last name")
	case !nationalIDRe.MatchString(r.NationalID):
		return dErrors.New(dErrors.CodeBadRequest, "national id must be 9 digits")
	case !phoneRe.MatchString(r.Phone):
		return dErrors.New(dErrors.CodeBadRequest, "invalid phone number")
	case !emailRe.MatchString(r.Email):
		return dErrors.New(dErrors.CodeBadRequest, "invalid email address")
	case r.Gender != GenderMale && r.Gender != GenderFemale:
		return dErrors.New(dErrors.CodeBadRequest, "invalid gender")
	case len(r.VolunteerAreas) == 0:
		return dErrors.New(dErrors.CodeBadRequest, "volunteer area is required")
	}
	return nil
}

// IsConfirmed reports whether the approval pipeline has committed this record.
func (r *VolunteerRecord) IsConfirmed() bool {
	return r.Status == StatusConfirmed
}

// MergeAreas unions additional areas into the record, preserving existing
// order and dropping duplicates. A re-submitted registration adds areas
// instead of replacing them.
func (r *VolunteerRecord) MergeAreas(areas []string) {
	seen := make(map[string]struct{}, len(r.VolunteerAreas))
	for _, a := range r.VolunteerAreas {
		seen[a] = struct{}{}
	}
	for _, a := range areas {
		if _, ok := seen[a]; !ok {
			r.VolunteerAreas = append(r.VolunteerAreas, a)
			seen[a] = struct{}{}
		}
	}
}
