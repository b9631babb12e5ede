package tryon

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	apperrors "github.com/visionfit/backend/internal/errors"

	"github.com/visionfit/backend/internal/app/domain/product"
	domain "github.com/visionfit/backend/internal/app/domain/tryon"
	"github.com/visionfit/backend/internal/app/storage/memory"
)

type providerFunc func(ctx context.Context, req InvokeRequest) (InvokeResult, error)

func (f providerFunc) Invoke(ctx context.Context, req InvokeRequest) (InvokeResult, error) {
	return f(ctx, req)
}

func seedProduct(t *testing.T, store *memory.Store) product.Product {
	t.Helper()
	prod, err := store.CreateProduct(context.Background(), product.Product{
		Title: "Aviator Classic",
		Type:  product.TypeEyewear,
	})
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return prod
}

func TestCreateSessionSandbox(t *testing.T) {
	store := memory.New()
	prod := seedProduct(t, store)
	svc := New(store, store, nil, Config{Live: false}, nil)

	sess, err := svc.CreateSession(context.Background(), CreateSessionInput{
		ProductID:      prod.ID,
		SourceImageURL: "https://example.com/me.jpg",
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	if sess.Status != domain.StatusCompleted {
		t.Fatalf("expected completed, got %q", sess.Status)
	}
	if sess.ResultURL != sandboxResultURL {
		t.Fatalf("unexpected result url %q", sess.ResultURL)
	}
	if sess.Message != sandboxMessage {
		t.Fatalf("unexpected message %q", sess.Message)
	}
	if sess.Mode != domain.ModeFace {
		t.Fatalf("expected default face mode, got %q", sess.Mode)
	}

	// The persisted record matches what was returned.
	stored, err := svc.Get(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != domain.StatusCompleted || stored.ResultURL != sandboxResultURL {
		t.Fatalf("stored session diverged: %+v", stored)
	}
}

func TestCreateSessionInvalidMode(t *testing.T) {
	store := memory.New()
	prod := seedProduct(t, store)
	svc := New(store, store, nil, Config{}, nil)

	_, err := svc.CreateSession(context.Background(), CreateSessionInput{
		ProductID: prod.ID,
		Mode:      "torso",
	})
	svcErr := apperrors.GetServiceError(err)
	if svcErr == nil || svcErr.Code != apperrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateSessionUnknownProductWritesNothing(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil, Config{}, nil)

	_, err := svc.CreateSession(context.Background(), CreateSessionInput{ProductID: "missing"})
	svcErr := apperrors.GetServiceError(err)
	if svcErr == nil || svcErr.Code != apperrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}

	sessions, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 0 {
		t.Fatalf("no session may be created for an unknown product, got %d", len(sessions))
	}
}

func TestCreateSessionLive(t *testing.T) {
	store := memory.New()
	prod := seedProduct(t, store)

	var captured InvokeRequest
	provider := providerFunc(func(_ context.Context, req InvokeRequest) (InvokeResult, error) {
		captured = req
		return InvokeResult{ResultURL: "https://cdn.example.com/out.png"}, nil
	})
	svc := New(store, store, provider, Config{Live: true}, nil)

	sess, err := svc.CreateSession(context.Background(), CreateSessionInput{
		ProductID:      prod.ID,
		Mode:           domain.ModeHead,
		SourceImageURL: "https://example.com/me.jpg",
		ApiKeyID:       "key-1",
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	if sess.Status != domain.StatusCompleted {
		t.Fatalf("expected completed, got %q", sess.Status)
	}
	if sess.ResultURL != "https://cdn.example.com/out.png" {
		t.Fatalf("unexpected result url %q", sess.ResultURL)
	}
	if sess.Message != liveMessage {
		t.Fatalf("unexpected message %q", sess.Message)
	}

	if captured.ImageURL != "https://example.com/me.jpg" || captured.Mode != domain.ModeHead {
		t.Fatalf("provider payload wrong: %+v", captured)
	}
	if captured.Product.Title != prod.Title || captured.Product.Type != prod.Type {
		t.Fatalf("product snapshot wrong: %+v", captured.Product)
	}
}

func TestCreateSessionUpstreamFailure(t *testing.T) {
	store := memory.New()
	prod := seedProduct(t, store)

	provider := providerFunc(func(context.Context, InvokeRequest) (InvokeResult, error) {
		return InvokeResult{}, fmt.Errorf("FAL error 500: boom")
	})
	svc := New(store, store, provider, Config{Live: true}, nil)

	_, err := svc.CreateSession(context.Background(), CreateSessionInput{ProductID: prod.ID})
	svcErr := apperrors.GetServiceError(err)
	if svcErr == nil || svcErr.Code != apperrors.CodeUpstream {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if svcErr.Message != "Upstream error: FAL error 500: boom" {
		t.Fatalf("unexpected message %q", svcErr.Message)
	}

	// The failure is recorded on the session before the error surfaces.
	sessions, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected one failed session, got %d", len(sessions))
	}
	sess := sessions[0]
	if sess.Status != domain.StatusFailed {
		t.Fatalf("expected failed, got %q", sess.Status)
	}
	if sess.Message != "FAL error 500: boom" {
		t.Fatalf("unexpected persisted message %q", sess.Message)
	}
	if sess.ResultURL != "" {
		t.Fatalf("failed session must not carry a result url")
	}
}

func TestCreateSessionFailureMessagesAreTruncated(t *testing.T) {
	store := memory.New()
	prod := seedProduct(t, store)

	long := strings.Repeat("x", 500)
	provider := providerFunc(func(context.Context, InvokeRequest) (InvokeResult, error) {
		return InvokeResult{}, fmt.Errorf("%s", long)
	})
	svc := New(store, store, provider, Config{Live: true}, nil)

	_, err := svc.CreateSession(context.Background(), CreateSessionInput{ProductID: prod.ID})
	svcErr := apperrors.GetServiceError(err)
	if svcErr == nil {
		t.Fatalf("expected service error, got %v", err)
	}
	if want := "Upstream error: " + long[:responseMessageLimit]; svcErr.Message != want {
		t.Fatalf("response message not truncated to %d chars", responseMessageLimit)
	}

	sessions, _ := svc.List(context.Background())
	if len(sessions) != 1 || len(sessions[0].Message) != persistedMessageLimit {
		t.Fatalf("persisted message not truncated to %d chars", persistedMessageLimit)
	}
}

// ctxSessionStore refuses writes once the request context is done, the way
// a database-backed store does.
type ctxSessionStore struct {
	*memory.Store
}

func (s ctxSessionStore) UpdateSession(ctx context.Context, sess domain.Session) (domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return domain.Session{}, err
	}
	return s.Store.UpdateSession(ctx, sess)
}

func TestCreateSessionSurvivesCallerDisconnectOnFailure(t *testing.T) {
	store := memory.New()
	prod := seedProduct(t, store)

	ctx, cancel := context.WithCancel(context.Background())
	provider := providerFunc(func(context.Context, InvokeRequest) (InvokeResult, error) {
		cancel()
		return InvokeResult{}, fmt.Errorf("FAL error 500: boom")
	})
	svc := New(store, ctxSessionStore{store}, provider, Config{Live: true}, nil)

	_, err := svc.CreateSession(ctx, CreateSessionInput{ProductID: prod.ID})
	svcErr := apperrors.GetServiceError(err)
	if svcErr == nil || svcErr.Code != apperrors.CodeUpstream {
		t.Fatalf("expected upstream error, got %v", err)
	}

	sessions, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 1 || sessions[0].Status != domain.StatusFailed {
		t.Fatalf("session must reach a terminal state after the caller goes away, got %+v", sessions)
	}
	if sessions[0].Message != "FAL error 500: boom" {
		t.Fatalf("unexpected persisted message %q", sessions[0].Message)
	}
}

func TestCreateSessionSurvivesCallerDisconnectOnSuccess(t *testing.T) {
	store := memory.New()
	prod := seedProduct(t, store)

	ctx, cancel := context.WithCancel(context.Background())
	provider := providerFunc(func(context.Context, InvokeRequest) (InvokeResult, error) {
		cancel()
		return InvokeResult{ResultURL: "https://cdn.example.com/out.png"}, nil
	})
	svc := New(store, ctxSessionStore{store}, provider, Config{Live: true}, nil)

	sess, err := svc.CreateSession(ctx, CreateSessionInput{ProductID: prod.ID})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if sess.Status != domain.StatusCompleted || sess.ResultURL != "https://cdn.example.com/out.png" {
		t.Fatalf("expected finalized session, got %+v", sess)
	}
}

func TestTruncateKeepsRuneBoundaries(t *testing.T) {
	long := strings.Repeat("€", 100)
	for _, limit := range []int{persistedMessageLimit, responseMessageLimit} {
		got := truncate(long, limit)
		if len(got) > limit {
			t.Fatalf("truncate exceeded %d bytes: %d", limit, len(got))
		}
		if !utf8.ValidString(got) {
			t.Fatalf("truncate split a rune at limit %d", limit)
		}
	}
	if got := truncate("short", 200); got != "short" {
		t.Fatalf("short strings must pass through, got %q", got)
	}
}

func TestGetUnknownSession(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil, Config{}, nil)

	_, err := svc.Get(context.Background(), "missing")
	svcErr := apperrors.GetServiceError(err)
	if svcErr == nil || svcErr.Code != apperrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
