// Package auth implements credential handling, token issuance and the
// bearer-token identity resolution path.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/visionfit/backend/internal/errors"

	"github.com/visionfit/backend/internal/app/domain/apikey"
	"github.com/visionfit/backend/internal/app/domain/organization"
	"github.com/visionfit/backend/internal/app/domain/user"
	"github.com/visionfit/backend/internal/app/storage"
	"github.com/visionfit/backend/pkg/logger"
)

const (
	defaultTokenTTL = 1440 * time.Minute
	tokenIssuer     = "visionfit"
)

// Config carries the signing secret and token lifetime. The secret is
// injected at construction; the service performs no ambient environment
// lookups.
type Config struct {
	JWTSecret  []byte
	TokenTTL   time.Duration
	BcryptCost int
}

// Claims embeds the organization and role of the token subject.
type Claims struct {
	OrganizationID string `json:"org_id"`
	Role           string `json:"role"`
	jwt.RegisteredClaims
}

// Service issues and verifies credentials and resolves bearer tokens to
// acting users.
type Service struct {
	orgs  storage.OrganizationStore
	users storage.UserStore
	keys  storage.ApiKeyStore
	cfg   Config
	log   *logger.Logger
}

// New constructs an auth service.
func New(orgs storage.OrganizationStore, users storage.UserStore, keys storage.ApiKeyStore, cfg Config, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("auth")
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = defaultTokenTTL
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{orgs: orgs, users: users, keys: keys, cfg: cfg, log: log}
}

// HashPassword produces a salted one-way hash of the plaintext.
func (s *Service) HashPassword(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), s.cfg.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether the plaintext matches the stored hash.
func (s *Service) CheckPassword(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// IssueToken signs a token for the user with an absolute expiry.
func (s *Service) IssueToken(usr user.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		OrganizationID: usr.OrganizationID,
		Role:           string(usr.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   usr.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.cfg.JWTSecret)
}

// VerifyToken validates signature, shape and expiry. Every failure maps to
// the same Unauthorized error.
func (s *Service) VerifyToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.cfg.JWTSecret, nil
	})
	if err != nil {
		return nil, apperrors.Unauthorized("invalid credentials").WithCause(err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, apperrors.Unauthorized("invalid credentials")
	}
	return claims, nil
}

// SignupInput is the payload for creating a new organization with its first
// admin user.
type SignupInput struct {
	Name             string
	Email            string
	Password         string
	OrganizationName string
}

// SignupResult carries the created records and the issued access token.
type SignupResult struct {
	Organization organization.Organization
	User         user.User
	ApiKey       apikey.ApiKey
	AccessToken  string
}

// Signup creates an organization, its admin user and a default active API
// key, then issues an access token. The email uniqueness check runs before
// any record is written, so a Conflict leaves no partial state behind.
func (s *Service) Signup(ctx context.Context, in SignupInput) (SignupResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.OrganizationName = strings.TrimSpace(in.OrganizationName)

	if in.Name == "" || in.Email == "" || in.Password == "" {
		return SignupResult{}, apperrors.Validation("name, email and password are required")
	}
	if !strings.Contains(in.Email, "@") {
		return SignupResult{}, apperrors.Validation("email is not valid")
	}
	if in.OrganizationName == "" {
		in.OrganizationName = in.Name
	}

	if _, err := s.users.GetUserByEmail(ctx, in.Email); err == nil {
		return SignupResult{}, apperrors.Conflict("email already registered")
	} else if !errors.Is(err, storage.ErrNotFound) {
		return SignupResult{}, err
	}

	slug, err := s.availableSlug(ctx, in.OrganizationName)
	if err != nil {
		return SignupResult{}, err
	}

	org, err := s.orgs.CreateOrganization(ctx, organization.Organization{
		Name: in.OrganizationName,
		Slug: slug,
		Plan: organization.PlanFree,
	})
	if err != nil {
		return SignupResult{}, fmt.Errorf("create organization: %w", err)
	}

	hash, err := s.HashPassword(in.Password)
	if err != nil {
		return SignupResult{}, err
	}

	usr, err := s.users.CreateUser(ctx, user.User{
		Name:           in.Name,
		Email:          in.Email,
		PasswordHash:   hash,
		OrganizationID: org.ID,
		Role:           user.RoleAdmin,
	})
	if err != nil {
		return SignupResult{}, fmt.Errorf("create user: %w", err)
	}

	key, err := s.keys.CreateApiKey(ctx, apikey.ApiKey{
		OrganizationID: org.ID,
		Label:          "default",
		Key:            apikey.NewSecret(),
		Scopes:         apikey.DefaultScopes,
		Active:         true,
	})
	if err != nil {
		return SignupResult{}, fmt.Errorf("create default api key: %w", err)
	}

	token, err := s.IssueToken(usr)
	if err != nil {
		return SignupResult{}, fmt.Errorf("issue token: %w", err)
	}

	s.log.WithField("organization_id", org.ID).Infof("organization %s signed up", org.Slug)
	return SignupResult{Organization: org, User: usr, ApiKey: key, AccessToken: token}, nil
}

// Login authenticates an email/password pair. Unknown email and wrong
// password fail identically.
func (s *Service) Login(ctx context.Context, email, password string) (user.User, string, error) {
	usr, err := s.users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return user.User{}, "", apperrors.Unauthorized("invalid credentials")
	}
	if !s.CheckPassword(password, usr.PasswordHash) {
		return user.User{}, "", apperrors.Unauthorized("invalid credentials")
	}
	token, err := s.IssueToken(usr)
	if err != nil {
		return user.User{}, "", fmt.Errorf("issue token: %w", err)
	}
	return usr, token, nil
}

// ResolveUser resolves an Authorization header of the form "Bearer <token>"
// to the acting user. A missing header, a malformed header, an invalid or
// expired token, and a token whose subject no longer exists all fail with
// the same Unauthorized error.
func (s *Service) ResolveUser(ctx context.Context, authorizationHeader string) (user.User, error) {
	parts := strings.SplitN(authorizationHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
		return user.User{}, apperrors.Unauthorized("invalid credentials")
	}
	claims, err := s.VerifyToken(parts[1])
	if err != nil {
		return user.User{}, err
	}
	usr, err := s.users.GetUser(ctx, claims.Subject)
	if err != nil {
		return user.User{}, apperrors.Unauthorized("invalid credentials")
	}
	return usr, nil
}

// Organization fetches the organization owning the given id.
func (s *Service) Organization(ctx context.Context, id string) (organization.Organization, error) {
	org, err := s.orgs.GetOrganization(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return organization.Organization{}, apperrors.NotFound("organization not found")
		}
		return organization.Organization{}, err
	}
	return org, nil
}

func (s *Service) availableSlug(ctx context.Context, name string) (string, error) {
	slug := organization.Slugify(name)
	if slug == "" {
		slug = "org"
	}
	if _, err := s.orgs.GetOrganizationBySlug(ctx, slug); errors.Is(err, storage.ErrNotFound) {
		return slug, nil
	} else if err != nil {
		return "", err
	}
	// Taken; disambiguate with a short random suffix.
	return slug + "-" + uuid.NewString()[:8], nil
}
