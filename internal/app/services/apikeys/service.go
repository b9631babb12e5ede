// Package apikeys manages organization-scoped API keys and the key-based
// identity resolution path.
package apikeys

import (
	"context"
	"errors"
	"fmt"
	"strings"

	apperrors "github.com/visionfit/backend/internal/errors"

	"github.com/visionfit/backend/internal/app/domain/apikey"
	"github.com/visionfit/backend/internal/app/storage"
	"github.com/visionfit/backend/pkg/logger"
)

// Service manages API keys.
type Service struct {
	store storage.ApiKeyStore
	log   *logger.Logger
}

// New constructs an API key service.
func New(store storage.ApiKeyStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("apikeys")
	}
	return &Service{store: store, log: log}
}

// List returns the keys belonging to an organization, revoked ones included.
func (s *Service) List(ctx context.Context, organizationID string) ([]apikey.ApiKey, error) {
	return s.store.ListApiKeys(ctx, organizationID)
}

// Create mints a new active key for the organization.
func (s *Service) Create(ctx context.Context, organizationID, label string, scopes []string) (apikey.ApiKey, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return apikey.ApiKey{}, apperrors.Validation("label is required")
	}
	if len(scopes) == 0 {
		scopes = apikey.DefaultScopes
	}

	key, err := s.store.CreateApiKey(ctx, apikey.ApiKey{
		OrganizationID: organizationID,
		Label:          label,
		Key:            apikey.NewSecret(),
		Scopes:         scopes,
		Active:         true,
	})
	if err != nil {
		return apikey.ApiKey{}, fmt.Errorf("create api key: %w", err)
	}
	s.log.WithField("organization_id", organizationID).Infof("api key %s created", key.ID)
	return key, nil
}

// Revoke deactivates a key. The record is kept as an audit trail. A key that
// does not exist or belongs to another organization reports NotFound either
// way.
func (s *Service) Revoke(ctx context.Context, organizationID, keyID string) (apikey.ApiKey, error) {
	key, err := s.store.GetApiKey(ctx, keyID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apikey.ApiKey{}, apperrors.NotFound("api key not found")
		}
		return apikey.ApiKey{}, err
	}
	if key.OrganizationID != organizationID {
		return apikey.ApiKey{}, apperrors.NotFound("api key not found")
	}

	key.Active = false
	updated, err := s.store.UpdateApiKey(ctx, key)
	if err != nil {
		return apikey.ApiKey{}, fmt.Errorf("revoke api key: %w", err)
	}
	s.log.WithField("organization_id", organizationID).Infof("api key %s revoked", keyID)
	return updated, nil
}

// Resolve matches a raw key against an active record. An unknown or revoked
// key fails with Unauthorized. Callers decide whether an absent key is
// acceptable; Resolve is only invoked when one was supplied.
func (s *Service) Resolve(ctx context.Context, rawKey string) (apikey.ApiKey, error) {
	key, err := s.store.GetApiKeyByKey(ctx, rawKey)
	if err != nil || !key.Active {
		return apikey.ApiKey{}, apperrors.Unauthorized("invalid api key")
	}
	return key, nil
}
