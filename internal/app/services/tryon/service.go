// Package tryon implements the session lifecycle engine: it creates
// sessions, drives the upstream provider or the sandbox fallback, and
// persists exactly one terminal update per session.
package tryon

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	apperrors "github.com/visionfit/backend/internal/errors"

	"github.com/visionfit/backend/internal/app/domain/product"
	domain "github.com/visionfit/backend/internal/app/domain/tryon"
	"github.com/visionfit/backend/internal/app/metrics"
	"github.com/visionfit/backend/internal/app/storage"
	"github.com/visionfit/backend/pkg/logger"
)

const (
	sandboxResultURL = "https://images.unsplash.com/photo-1518544801976-3e188ae8e8d1?w=1600&auto=format&fit=crop&q=80"
	sandboxMessage   = "sandbox demo (no credits used)"
	liveMessage      = "processed via FAL"

	// Message truncation bounds: what is persisted on the session record
	// and what is surfaced to the caller.
	persistedMessageLimit = 200
	responseMessageLimit  = 160
)

// Provider is the upstream try-on adapter. Implementations perform a single
// attempt with a bounded timeout.
type Provider interface {
	Invoke(ctx context.Context, req InvokeRequest) (InvokeResult, error)
}

// InvokeRequest is the payload sent to the upstream provider.
type InvokeRequest struct {
	ImageURL    string          `json:"image_url"`
	Mode        domain.Mode     `json:"mode"`
	Product     ProductSnapshot `json:"product"`
	CallerKeyID string          `json:"caller_key_id,omitempty"`
}

// ProductSnapshot is the slice of the product the provider needs.
type ProductSnapshot struct {
	Title    string       `json:"title"`
	ModelURL string       `json:"model_url,omitempty"`
	Type     product.Type `json:"type"`
}

// InvokeResult is the typed provider response. ResultURL may legitimately
// be empty when the provider omits it.
type InvokeResult struct {
	ResultURL string `json:"result_url"`
}

// Config carries the process-wide toggles the engine needs, injected at
// construction so tests never mutate the environment.
type Config struct {
	Live bool
}

// Service is the session lifecycle engine. Only the engine mutates a
// session's status, result and message after creation.
type Service struct {
	products storage.ProductStore
	sessions storage.SessionStore
	provider Provider
	cfg      Config
	log      *logger.Logger
}

// New constructs the lifecycle engine.
func New(products storage.ProductStore, sessions storage.SessionStore, provider Provider, cfg Config, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("tryon")
	}
	return &Service{products: products, sessions: sessions, provider: provider, cfg: cfg, log: log}
}

// CreateSessionInput is the payload for starting a session.
type CreateSessionInput struct {
	ProductID      string
	Mode           domain.Mode
	SourceImageURL string
	ApiKeyID       string
}

// CreateSession validates the referenced product, persists a processing
// session, runs the provider (or sandbox fallback) and finalizes the record
// before returning. An upstream failure is recorded on the session before
// the error is surfaced, so the two never diverge.
func (s *Service) CreateSession(ctx context.Context, in CreateSessionInput) (domain.Session, error) {
	if in.Mode == "" {
		in.Mode = domain.ModeFace
	}
	if !in.Mode.Valid() {
		return domain.Session{}, apperrors.Validation("mode must be face or head")
	}

	// Validation precedes any write: no product, no session.
	prod, err := s.products.GetProduct(ctx, in.ProductID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.Session{}, apperrors.NotFound("product not found")
		}
		return domain.Session{}, err
	}

	start := time.Now()

	// Commit point: once this write succeeds a session id exists even if
	// downstream work fails.
	sess, err := s.sessions.CreateSession(ctx, domain.Session{
		ProductID:      prod.ID,
		Mode:           in.Mode,
		SourceImageURL: in.SourceImageURL,
		Status:         domain.StatusProcessing,
		ApiKeyID:       in.ApiKeyID,
	})
	if err != nil {
		return domain.Session{}, err
	}

	// The caller may disconnect while the provider runs. The terminal
	// update must still land, so it never inherits the request's
	// cancellation.
	writeCtx := context.WithoutCancel(ctx)

	var resultURL, message string
	if s.cfg.Live {
		result, invokeErr := s.provider.Invoke(ctx, InvokeRequest{
			ImageURL: in.SourceImageURL,
			Mode:     in.Mode,
			Product: ProductSnapshot{
				Title:    prod.Title,
				ModelURL: prod.ModelURL,
				Type:     prod.Type,
			},
			CallerKeyID: in.ApiKeyID,
		})
		if invokeErr != nil {
			metrics.RecordSession(string(domain.StatusFailed), true, time.Since(start))
			return domain.Session{}, s.failSession(writeCtx, sess, invokeErr)
		}
		resultURL = result.ResultURL
		message = liveMessage
	} else {
		resultURL = sandboxResultURL
		message = sandboxMessage
	}

	sess.Status = domain.StatusCompleted
	sess.ResultURL = resultURL
	sess.Message = message
	finalized, err := s.sessions.UpdateSession(writeCtx, sess)
	if err != nil {
		return domain.Session{}, err
	}
	metrics.RecordSession(string(finalized.Status), s.cfg.Live, time.Since(start))
	s.log.WithField("product_id", prod.ID).Infof("session %s completed", finalized.ID)
	return finalized, nil
}

// failSession marks the session failed with a truncated message, then
// returns the upstream error for the caller. The terminal write happens
// before the error is reported.
func (s *Service) failSession(ctx context.Context, sess domain.Session, cause error) error {
	sess.Status = domain.StatusFailed
	sess.Message = truncate(cause.Error(), persistedMessageLimit)
	if _, err := s.sessions.UpdateSession(ctx, sess); err != nil {
		s.log.WithError(err).Errorf("failed to record session %s failure", sess.ID)
	}
	s.log.WithError(cause).Warnf("session %s failed upstream", sess.ID)
	return apperrors.Upstream("Upstream error: " + truncate(cause.Error(), responseMessageLimit))
}

// Get retrieves a session by identifier.
func (s *Service) Get(ctx context.Context, id string) (domain.Session, error) {
	sess, err := s.sessions.GetSession(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.Session{}, apperrors.NotFound("session not found")
		}
		return domain.Session{}, err
	}
	return sess, nil
}

// List returns all sessions.
func (s *Service) List(ctx context.Context) ([]domain.Session, error) {
	return s.sessions.ListSessions(ctx)
}

// truncate caps s at limit bytes without splitting a trailing rune.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
