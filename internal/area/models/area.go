package models

import (
	"strings"

	volmodels "kehila/internal/volunteer/models"
	dErrors "kehila/pkg/domain-errors"
)

// Area is one entry of the volunteer-area taxonomy. The ID doubles as the
// display name, mirroring how admins manage the list.
type Area struct {
	ID           string `json:"id"`
	WithKids     bool   `json:"withKids"`
	WhatsAppLink string `json:"whatsAppLink"`
}

// NewArea validates and constructs a taxonomy entry.
func NewArea(id string, withKids bool, whatsAppLink string) (*Area, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "area id is required")
	}
	if strings.TrimSpace(whatsAppLink) == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "whatsapp link is required")
	}
	return &Area{ID: id, WithKids: withKids, WhatsAppLink: whatsAppLink}, nil
}

// RequiresPoliceForm reports whether an applicant in this area must present a
// police background-check confirmation before approval. The requirement
// applies to male applicants in areas involving work with children.
func (a *Area) RequiresPoliceForm(gender volmodels.Gender) bool {
	return a.WithKids && gender == volmodels.GenderMale
}
