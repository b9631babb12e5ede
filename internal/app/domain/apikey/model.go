package apikey

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// DefaultScopes are granted to keys created without an explicit scope set.
var DefaultScopes = []string{"tryon:read", "tryon:write"}

// ApiKey is an organization-scoped bearer secret for server-to-server
// integrations. Revocation flips Active; the record is kept as an audit
// trail and never deleted.
type ApiKey struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Label          string    `json:"label"`
	Key            string    `json:"key"`
	Scopes         []string  `json:"scopes"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewSecret generates an opaque bearer secret for a new key.
func NewSecret() string {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		panic(err) // crypto/rand failure is unrecoverable
	}
	return "vf_" + hex.EncodeToString(buf)
}
