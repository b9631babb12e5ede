package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/visionfit/backend/internal/app/domain/apikey"
	"github.com/visionfit/backend/internal/app/domain/organization"
	"github.com/visionfit/backend/internal/app/domain/product"
	"github.com/visionfit/backend/internal/app/domain/tryon"
	"github.com/visionfit/backend/internal/app/domain/user"
	"github.com/visionfit/backend/internal/app/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and local
// development.
type Store struct {
	mu            sync.RWMutex
	organizations map[string]organization.Organization
	orgsBySlug    map[string]string
	users         map[string]user.User
	usersByEmail  map[string]string
	apiKeys       map[string]apikey.ApiKey
	apiKeysByKey  map[string]string
	products      map[string]product.Product
	sessions      map[string]tryon.Session
}

var _ storage.OrganizationStore = (*Store)(nil)
var _ storage.UserStore = (*Store)(nil)
var _ storage.ApiKeyStore = (*Store)(nil)
var _ storage.ProductStore = (*Store)(nil)
var _ storage.SessionStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		organizations: make(map[string]organization.Organization),
		orgsBySlug:    make(map[string]string),
		users:         make(map[string]user.User),
		usersByEmail:  make(map[string]string),
		apiKeys:       make(map[string]apikey.ApiKey),
		apiKeysByKey:  make(map[string]string),
		products:      make(map[string]product.Product),
		sessions:      make(map[string]tryon.Session),
	}
}

// OrganizationStore implementation ---------------------------------------------

func (s *Store) CreateOrganization(_ context.Context, org organization.Organization) (organization.Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if org.ID == "" {
		org.ID = uuid.NewString()
	} else if _, exists := s.organizations[org.ID]; exists {
		return organization.Organization{}, fmt.Errorf("organization %s already exists", org.ID)
	}
	if _, taken := s.orgsBySlug[org.Slug]; taken {
		return organization.Organization{}, fmt.Errorf("organization slug %q already exists", org.Slug)
	}

	now := time.Now().UTC()
	org.CreatedAt = now
	org.UpdatedAt = now

	s.organizations[org.ID] = org
	s.orgsBySlug[org.Slug] = org.ID
	return org, nil
}

func (s *Store) GetOrganization(_ context.Context, id string) (organization.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	org, ok := s.organizations[id]
	if !ok {
		return organization.Organization{}, storage.ErrNotFound
	}
	return org, nil
}

func (s *Store) GetOrganizationBySlug(_ context.Context, slug string) (organization.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.orgsBySlug[slug]
	if !ok {
		return organization.Organization{}, storage.ErrNotFound
	}
	return s.organizations[id], nil
}

// UserStore implementation -----------------------------------------------------

func (s *Store) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(usr.Email)
	if _, taken := s.usersByEmail[email]; taken {
		return user.User{}, fmt.Errorf("user email %q already exists", usr.Email)
	}
	if usr.ID == "" {
		usr.ID = uuid.NewString()
	} else if _, exists := s.users[usr.ID]; exists {
		return user.User{}, fmt.Errorf("user %s already exists", usr.ID)
	}

	now := time.Now().UTC()
	usr.CreatedAt = now
	usr.UpdatedAt = now

	s.users[usr.ID] = usr
	s.usersByEmail[email] = usr.ID
	return usr, nil
}

func (s *Store) GetUser(_ context.Context, id string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	usr, ok := s.users[id]
	if !ok {
		return user.User{}, storage.ErrNotFound
	}
	return usr, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usersByEmail[strings.ToLower(email)]
	if !ok {
		return user.User{}, storage.ErrNotFound
	}
	return s.users[id], nil
}

// ApiKeyStore implementation ---------------------------------------------------

func (s *Store) CreateApiKey(_ context.Context, key apikey.ApiKey) (apikey.ApiKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if key.ID == "" {
		key.ID = uuid.NewString()
	} else if _, exists := s.apiKeys[key.ID]; exists {
		return apikey.ApiKey{}, fmt.Errorf("api key %s already exists", key.ID)
	}
	if _, taken := s.apiKeysByKey[key.Key]; taken {
		return apikey.ApiKey{}, fmt.Errorf("api key secret already exists")
	}

	now := time.Now().UTC()
	key.CreatedAt = now
	key.UpdatedAt = now

	s.apiKeys[key.ID] = key
	s.apiKeysByKey[key.Key] = key.ID
	return key, nil
}

func (s *Store) UpdateApiKey(_ context.Context, key apikey.ApiKey) (apikey.ApiKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.apiKeys[key.ID]
	if !ok {
		return apikey.ApiKey{}, storage.ErrNotFound
	}

	key.CreatedAt = existing.CreatedAt
	key.UpdatedAt = time.Now().UTC()
	if key.Key != existing.Key {
		delete(s.apiKeysByKey, existing.Key)
		s.apiKeysByKey[key.Key] = key.ID
	}
	s.apiKeys[key.ID] = key
	return key, nil
}

func (s *Store) GetApiKey(_ context.Context, id string) (apikey.ApiKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, ok := s.apiKeys[id]
	if !ok {
		return apikey.ApiKey{}, storage.ErrNotFound
	}
	return key, nil
}

func (s *Store) GetApiKeyByKey(_ context.Context, rawKey string) (apikey.ApiKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.apiKeysByKey[rawKey]
	if !ok {
		return apikey.ApiKey{}, storage.ErrNotFound
	}
	return s.apiKeys[id], nil
}

func (s *Store) ListApiKeys(_ context.Context, organizationID string) ([]apikey.ApiKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]apikey.ApiKey, 0)
	for _, key := range s.apiKeys {
		if key.OrganizationID == organizationID {
			out = append(out, key)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ProductStore implementation --------------------------------------------------

func (s *Store) CreateProduct(_ context.Context, prod product.Product) (product.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prod.ID == "" {
		prod.ID = uuid.NewString()
	} else if _, exists := s.products[prod.ID]; exists {
		return product.Product{}, fmt.Errorf("product %s already exists", prod.ID)
	}

	now := time.Now().UTC()
	prod.CreatedAt = now
	prod.UpdatedAt = now

	s.products[prod.ID] = prod
	return prod, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (product.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prod, ok := s.products[id]
	if !ok {
		return product.Product{}, storage.ErrNotFound
	}
	return prod, nil
}

func (s *Store) ListProducts(_ context.Context) ([]product.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]product.Product, 0, len(s.products))
	for _, prod := range s.products {
		out = append(out, prod)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// SessionStore implementation --------------------------------------------------

func (s *Store) CreateSession(_ context.Context, sess tryon.Session) (tryon.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess.ID == "" {
		sess.ID = uuid.NewString()
	} else if _, exists := s.sessions[sess.ID]; exists {
		return tryon.Session{}, fmt.Errorf("session %s already exists", sess.ID)
	}

	now := time.Now().UTC()
	sess.CreatedAt = now
	sess.UpdatedAt = now

	s.sessions[sess.ID] = sess
	return sess, nil
}

func (s *Store) UpdateSession(_ context.Context, sess tryon.Session) (tryon.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.sessions[sess.ID]
	if !ok {
		return tryon.Session{}, storage.ErrNotFound
	}

	sess.CreatedAt = existing.CreatedAt
	sess.UpdatedAt = time.Now().UTC()
	s.sessions[sess.ID] = sess
	return sess, nil
}

func (s *Store) GetSession(_ context.Context, id string) (tryon.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return tryon.Session{}, storage.ErrNotFound
	}
	return sess, nil
}

func (s *Store) ListSessions(_ context.Context) ([]tryon.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]tryon.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
