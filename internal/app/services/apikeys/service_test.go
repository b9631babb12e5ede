package apikeys

import (
	"context"
	"strings"
	"testing"

	apperrors "github.com/visionfit/backend/internal/errors"

	"github.com/visionfit/backend/internal/app/storage/memory"
)

func TestCreateAndList(t *testing.T) {
	svc := New(memory.New(), nil)

	key, err := svc.Create(context.Background(), "org-1", "ci pipeline", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.HasPrefix(key.Key, "vf_") {
		t.Fatalf("expected vf_ prefix, got %q", key.Key)
	}
	if !key.Active {
		t.Fatalf("new key must be active")
	}
	if len(key.Scopes) == 0 {
		t.Fatalf("expected default scopes")
	}

	other, err := svc.Create(context.Background(), "org-2", "other", nil)
	if err != nil {
		t.Fatalf("create other: %v", err)
	}

	keys, err := svc.List(context.Background(), "org-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(keys) != 1 || keys[0].ID != key.ID {
		t.Fatalf("expected only org-1 key, got %+v", keys)
	}
	if keys[0].ID == other.ID {
		t.Fatalf("list leaked foreign key")
	}
}

func TestCreateRequiresLabel(t *testing.T) {
	svc := New(memory.New(), nil)
	_, err := svc.Create(context.Background(), "org-1", "  ", nil)
	svcErr := apperrors.GetServiceError(err)
	if svcErr == nil || svcErr.Code != apperrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRevoke(t *testing.T) {
	svc := New(memory.New(), nil)
	key, err := svc.Create(context.Background(), "org-1", "default", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	revoked, err := svc.Revoke(context.Background(), "org-1", key.ID)
	if err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if revoked.Active {
		t.Fatalf("revoked key still active")
	}

	// Record survives as an audit trail.
	keys, err := svc.List(context.Background(), "org-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(keys) != 1 {
		t.Fatalf("expected revoked key to remain listed, got %d", len(keys))
	}

	// Revoking again is a no-op that still succeeds.
	if _, err := svc.Revoke(context.Background(), "org-1", key.ID); err != nil {
		t.Fatalf("second revoke: %v", err)
	}
}

func TestRevokeForeignKeyReportsNotFound(t *testing.T) {
	svc := New(memory.New(), nil)
	key, err := svc.Create(context.Background(), "org-1", "default", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	for _, id := range []string{key.ID, "missing-id"} {
		_, err := svc.Revoke(context.Background(), "org-2", id)
		svcErr := apperrors.GetServiceError(err)
		if svcErr == nil || svcErr.Code != apperrors.CodeNotFound {
			t.Fatalf("id %q: expected not found, got %v", id, err)
		}
	}
}

func TestResolve(t *testing.T) {
	svc := New(memory.New(), nil)
	key, err := svc.Create(context.Background(), "org-1", "default", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	resolved, err := svc.Resolve(context.Background(), key.Key)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.ID != key.ID {
		t.Fatalf("resolved %q, want %q", resolved.ID, key.ID)
	}

	if _, err := svc.Resolve(context.Background(), "vf_unknown"); err == nil {
		t.Fatalf("expected failure for unknown key")
	}

	if _, err := svc.Revoke(context.Background(), "org-1", key.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	_, err = svc.Resolve(context.Background(), key.Key)
	svcErr := apperrors.GetServiceError(err)
	if svcErr == nil || svcErr.Code != apperrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized for revoked key, got %v", err)
	}
}
