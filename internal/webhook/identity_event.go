package webhook

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nadhifgr/learnsphere/internal/errs"
	"github.com/nadhifgr/learnsphere/internal/models"
)

type IdentityEventKind string

const (
	IdentityUserCreated IdentityEventKind = "user.created"
	IdentityUserUpdated IdentityEventKind = "user.updated"
	IdentityUserDeleted IdentityEventKind = "user.deleted"
)

type IdentityEvent struct {
	Type IdentityEventKind `json:"type"`
	Data IdentityUserData  `json:"data"`
}

type IdentityUserData struct {
	ID             string `json:"id"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	ImageURL       string `json:"image_url"`
	EmailAddresses []struct {
		EmailAddress string `json:"email_address"`
	} `json:"email_addresses"`
	PublicMetadata struct {
		Role string `json:"role"`
	} `json:"public_metadata"`
}

func ParseIdentityEvent(payload []byte) (*IdentityEvent, error) {
	var event IdentityEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("%w: malformed event body", errs.ErrAuthentication)
	}
	return &event, nil
}

// User maps the provider payload onto the local user record. The role claim
// is optional; an empty Role means "leave the stored role alone".
func (d *IdentityUserData) User() *models.User {
	user := &models.User{
		ID:       d.ID,
		Name:     strings.TrimSpace(d.FirstName + " " + d.LastName),
		ImageURL: d.ImageURL,
		Role:     models.Role(d.PublicMetadata.Role),
	}
	if len(d.EmailAddresses) > 0 {
		user.Email = d.EmailAddresses[0].EmailAddress
	}
	return user
}
