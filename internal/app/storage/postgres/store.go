package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	apperrors "github.com/visionfit/backend/internal/errors"

	"github.com/visionfit/backend/internal/app/domain/apikey"
	"github.com/visionfit/backend/internal/app/domain/organization"
	"github.com/visionfit/backend/internal/app/domain/product"
	"github.com/visionfit/backend/internal/app/domain/tryon"
	"github.com/visionfit/backend/internal/app/domain/user"
	"github.com/visionfit/backend/internal/app/storage"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ storage.OrganizationStore = (*Store)(nil)
var _ storage.UserStore = (*Store)(nil)
var _ storage.ApiKeyStore = (*Store)(nil)
var _ storage.ProductStore = (*Store)(nil)
var _ storage.SessionStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the tables the store depends on if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS organizations (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			slug TEXT NOT NULL UNIQUE,
			plan TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			organization_id UUID NOT NULL REFERENCES organizations(id),
			role TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS api_keys (
			id UUID PRIMARY KEY,
			organization_id UUID NOT NULL REFERENCES organizations(id),
			label TEXT NOT NULL,
			key TEXT NOT NULL UNIQUE,
			scopes JSONB NOT NULL DEFAULT '[]',
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			id UUID PRIMARY KEY,
			title TEXT NOT NULL,
			sku TEXT,
			type TEXT NOT NULL,
			model_url TEXT,
			thumbnail_url TEXT,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS tryon_sessions (
			id UUID PRIMARY KEY,
			product_id UUID NOT NULL REFERENCES products(id),
			mode TEXT NOT NULL,
			source_image_url TEXT,
			status TEXT NOT NULL,
			result_url TEXT,
			message TEXT,
			api_key_id TEXT,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// --- OrganizationStore --------------------------------------------------------

func (s *Store) CreateOrganization(ctx context.Context, org organization.Organization) (organization.Organization, error) {
	if org.ID == "" {
		org.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	org.CreatedAt = now
	org.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO organizations (id, name, slug, plan, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, org.ID, org.Name, org.Slug, org.Plan, org.CreatedAt, org.UpdatedAt)
	if err != nil {
		return organization.Organization{}, mapError(err)
	}
	return org, nil
}

func (s *Store) GetOrganization(ctx context.Context, id string) (organization.Organization, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, slug, plan, created_at, updated_at
		FROM organizations
		WHERE id = $1
	`, id)

	var org organization.Organization
	if err := row.Scan(&org.ID, &org.Name, &org.Slug, &org.Plan, &org.CreatedAt, &org.UpdatedAt); err != nil {
		return organization.Organization{}, mapError(err)
	}
	return org, nil
}

func (s *Store) GetOrganizationBySlug(ctx context.Context, slug string) (organization.Organization, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, slug, plan, created_at, updated_at
		FROM organizations
		WHERE slug = $1
	`, slug)

	var org organization.Organization
	if err := row.Scan(&org.ID, &org.Name, &org.Slug, &org.Plan, &org.CreatedAt, &org.UpdatedAt); err != nil {
		return organization.Organization{}, mapError(err)
	}
	return org, nil
}

// --- UserStore ----------------------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if usr.ID == "" {
		usr.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	usr.CreatedAt = now
	usr.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, password_hash, organization_id, role, created_at, updated_at)
		VALUES ($1, $2, lower($3), $4, $5, $6, $7, $8)
	`, usr.ID, usr.Name, usr.Email, usr.PasswordHash, usr.OrganizationID, usr.Role, usr.CreatedAt, usr.UpdatedAt)
	if err != nil {
		return user.User{}, mapError(err)
	}
	return usr, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (user.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, name, email, password_hash, organization_id, role, created_at, updated_at
		FROM users
		WHERE id = $1
	`, id))
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, name, email, password_hash, organization_id, role, created_at, updated_at
		FROM users
		WHERE email = lower($1)
	`, email))
}

func (s *Store) scanUser(row *sql.Row) (user.User, error) {
	var usr user.User
	if err := row.Scan(&usr.ID, &usr.Name, &usr.Email, &usr.PasswordHash, &usr.OrganizationID, &usr.Role, &usr.CreatedAt, &usr.UpdatedAt); err != nil {
		return user.User{}, mapError(err)
	}
	return usr, nil
}

// --- ApiKeyStore --------------------------------------------------------------

func (s *Store) CreateApiKey(ctx context.Context, key apikey.ApiKey) (apikey.ApiKey, error) {
	if key.ID == "" {
		key.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	key.CreatedAt = now
	key.UpdatedAt = now

	scopesJSON, err := json.Marshal(key.Scopes)
	if err != nil {
		return apikey.ApiKey{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO api_keys (id, organization_id, label, key, scopes, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, key.ID, key.OrganizationID, key.Label, key.Key, scopesJSON, key.Active, key.CreatedAt, key.UpdatedAt)
	if err != nil {
		return apikey.ApiKey{}, mapError(err)
	}
	return key, nil
}

func (s *Store) UpdateApiKey(ctx context.Context, key apikey.ApiKey) (apikey.ApiKey, error) {
	existing, err := s.GetApiKey(ctx, key.ID)
	if err != nil {
		return apikey.ApiKey{}, err
	}

	key.CreatedAt = existing.CreatedAt
	key.UpdatedAt = time.Now().UTC()

	scopesJSON, err := json.Marshal(key.Scopes)
	if err != nil {
		return apikey.ApiKey{}, err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE api_keys
		SET label = $2, key = $3, scopes = $4, active = $5, updated_at = $6
		WHERE id = $1
	`, key.ID, key.Label, key.Key, scopesJSON, key.Active, key.UpdatedAt)
	if err != nil {
		return apikey.ApiKey{}, mapError(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return apikey.ApiKey{}, storage.ErrNotFound
	}
	return key, nil
}

func (s *Store) GetApiKey(ctx context.Context, id string) (apikey.ApiKey, error) {
	return s.scanApiKey(s.db.QueryRowContext(ctx, `
		SELECT id, organization_id, label, key, scopes, active, created_at, updated_at
		FROM api_keys
		WHERE id = $1
	`, id))
}

func (s *Store) GetApiKeyByKey(ctx context.Context, rawKey string) (apikey.ApiKey, error) {
	return s.scanApiKey(s.db.QueryRowContext(ctx, `
		SELECT id, organization_id, label, key, scopes, active, created_at, updated_at
		FROM api_keys
		WHERE key = $1
	`, rawKey))
}

func (s *Store) ListApiKeys(ctx context.Context, organizationID string) ([]apikey.ApiKey, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, organization_id, label, key, scopes, active, created_at, updated_at
		FROM api_keys
		WHERE organization_id = $1
		ORDER BY created_at
	`, organizationID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []apikey.ApiKey
	for rows.Next() {
		var (
			key       apikey.ApiKey
			scopesRaw []byte
		)
		if err := rows.Scan(&key.ID, &key.OrganizationID, &key.Label, &key.Key, &scopesRaw, &key.Active, &key.CreatedAt, &key.UpdatedAt); err != nil {
			return nil, err
		}
		if len(scopesRaw) > 0 {
			_ = json.Unmarshal(scopesRaw, &key.Scopes)
		}
		out = append(out, key)
	}
	return out, rows.Err()
}

func (s *Store) scanApiKey(row *sql.Row) (apikey.ApiKey, error) {
	var (
		key       apikey.ApiKey
		scopesRaw []byte
	)
	if err := row.Scan(&key.ID, &key.OrganizationID, &key.Label, &key.Key, &scopesRaw, &key.Active, &key.CreatedAt, &key.UpdatedAt); err != nil {
		return apikey.ApiKey{}, mapError(err)
	}
	if len(scopesRaw) > 0 {
		_ = json.Unmarshal(scopesRaw, &key.Scopes)
	}
	return key, nil
}

// --- ProductStore -------------------------------------------------------------

func (s *Store) CreateProduct(ctx context.Context, prod product.Product) (product.Product, error) {
	if prod.ID == "" {
		prod.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	prod.CreatedAt = now
	prod.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, title, sku, type, model_url, thumbnail_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, prod.ID, prod.Title, nullable(prod.SKU), prod.Type, nullable(prod.ModelURL), nullable(prod.ThumbnailURL), prod.CreatedAt, prod.UpdatedAt)
	if err != nil {
		return product.Product{}, mapError(err)
	}
	return prod, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (product.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, sku, type, model_url, thumbnail_url, created_at, updated_at
		FROM products
		WHERE id = $1
	`, id)

	var (
		prod             product.Product
		sku, model, thmb sql.NullString
	)
	if err := row.Scan(&prod.ID, &prod.Title, &sku, &prod.Type, &model, &thmb, &prod.CreatedAt, &prod.UpdatedAt); err != nil {
		return product.Product{}, mapError(err)
	}
	prod.SKU = sku.String
	prod.ModelURL = model.String
	prod.ThumbnailURL = thmb.String
	return prod, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]product.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, sku, type, model_url, thumbnail_url, created_at, updated_at
		FROM products
		ORDER BY created_at
	`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []product.Product
	for rows.Next() {
		var (
			prod             product.Product
			sku, model, thmb sql.NullString
		)
		if err := rows.Scan(&prod.ID, &prod.Title, &sku, &prod.Type, &model, &thmb, &prod.CreatedAt, &prod.UpdatedAt); err != nil {
			return nil, err
		}
		prod.SKU = sku.String
		prod.ModelURL = model.String
		prod.ThumbnailURL = thmb.String
		out = append(out, prod)
	}
	return out, rows.Err()
}

// --- SessionStore -------------------------------------------------------------

func (s *Store) CreateSession(ctx context.Context, sess tryon.Session) (tryon.Session, error) {
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	sess.CreatedAt = now
	sess.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tryon_sessions (id, product_id, mode, source_image_url, status, result_url, message, api_key_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, sess.ID, sess.ProductID, sess.Mode, nullable(sess.SourceImageURL), sess.Status, nullable(sess.ResultURL), nullable(sess.Message), nullable(sess.ApiKeyID), sess.CreatedAt, sess.UpdatedAt)
	if err != nil {
		return tryon.Session{}, mapError(err)
	}
	return sess, nil
}

func (s *Store) UpdateSession(ctx context.Context, sess tryon.Session) (tryon.Session, error) {
	sess.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE tryon_sessions
		SET status = $2, result_url = $3, message = $4, updated_at = $5
		WHERE id = $1
	`, sess.ID, sess.Status, nullable(sess.ResultURL), nullable(sess.Message), sess.UpdatedAt)
	if err != nil {
		return tryon.Session{}, mapError(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return tryon.Session{}, storage.ErrNotFound
	}
	return sess, nil
}

func (s *Store) GetSession(ctx context.Context, id string) (tryon.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, product_id, mode, source_image_url, status, result_url, message, api_key_id, created_at, updated_at
		FROM tryon_sessions
		WHERE id = $1
	`, id)
	return scanSession(row.Scan)
}

func (s *Store) ListSessions(ctx context.Context) ([]tryon.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, mode, source_image_url, status, result_url, message, api_key_id, created_at, updated_at
		FROM tryon_sessions
		ORDER BY created_at
	`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []tryon.Session
	for rows.Next() {
		sess, err := scanSession(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func scanSession(scan func(dest ...any) error) (tryon.Session, error) {
	var (
		sess                     tryon.Session
		source, result, msg, kid sql.NullString
	)
	if err := scan(&sess.ID, &sess.ProductID, &sess.Mode, &source, &sess.Status, &result, &msg, &kid, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
		return tryon.Session{}, mapError(err)
	}
	sess.SourceImageURL = source.String
	sess.ResultURL = result.String
	sess.Message = msg.String
	sess.ApiKeyID = kid.String
	return sess, nil
}

// --- helpers ------------------------------------------------------------------

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		// Concurrent writers can slip past service-level uniqueness
		// checks; the constraint violation still surfaces as a conflict.
		return apperrors.Conflict("duplicate record").WithCause(err)
	}
	return err
}
