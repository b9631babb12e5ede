package storage

import (
	"context"
	"errors"

	"github.com/visionfit/backend/internal/app/domain/apikey"
	"github.com/visionfit/backend/internal/app/domain/organization"
	"github.com/visionfit/backend/internal/app/domain/product"
	"github.com/visionfit/backend/internal/app/domain/tryon"
	"github.com/visionfit/backend/internal/app/domain/user"
)

// ErrNotFound is returned by stores when the requested record is absent.
var ErrNotFound = errors.New("record not found")

// OrganizationStore persists organization records.
type OrganizationStore interface {
	CreateOrganization(ctx context.Context, org organization.Organization) (organization.Organization, error)
	GetOrganization(ctx context.Context, id string) (organization.Organization, error)
	GetOrganizationBySlug(ctx context.Context, slug string) (organization.Organization, error)
}

// UserStore persists user records.
type UserStore interface {
	CreateUser(ctx context.Context, usr user.User) (user.User, error)
	GetUser(ctx context.Context, id string) (user.User, error)
	GetUserByEmail(ctx context.Context, email string) (user.User, error)
}

// ApiKeyStore persists API key records. Keys are never deleted; revocation
// is an update that clears the Active flag.
type ApiKeyStore interface {
	CreateApiKey(ctx context.Context, key apikey.ApiKey) (apikey.ApiKey, error)
	UpdateApiKey(ctx context.Context, key apikey.ApiKey) (apikey.ApiKey, error)
	GetApiKey(ctx context.Context, id string) (apikey.ApiKey, error)
	GetApiKeyByKey(ctx context.Context, rawKey string) (apikey.ApiKey, error)
	ListApiKeys(ctx context.Context, organizationID string) ([]apikey.ApiKey, error)
}

// ProductStore persists catalog entries.
type ProductStore interface {
	CreateProduct(ctx context.Context, prod product.Product) (product.Product, error)
	GetProduct(ctx context.Context, id string) (product.Product, error)
	ListProducts(ctx context.Context) ([]product.Product, error)
}

// SessionStore persists try-on sessions. UpdateSession performs the single
// terminal write keyed by session id.
type SessionStore interface {
	CreateSession(ctx context.Context, sess tryon.Session) (tryon.Session, error)
	UpdateSession(ctx context.Context, sess tryon.Session) (tryon.Session, error)
	GetSession(ctx context.Context, id string) (tryon.Session, error)
	ListSessions(ctx context.Context) ([]tryon.Session, error)
}
