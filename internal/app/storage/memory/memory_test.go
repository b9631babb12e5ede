package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/visionfit/backend/internal/app/domain/apikey"
	"github.com/visionfit/backend/internal/app/domain/organization"
	"github.com/visionfit/backend/internal/app/domain/tryon"
	"github.com/visionfit/backend/internal/app/domain/user"
	"github.com/visionfit/backend/internal/app/storage"
)

func TestOrganizationRoundtrip(t *testing.T) {
	store := New()
	ctx := context.Background()

	org, err := store.CreateOrganization(ctx, organization.Organization{Name: "Acme", Slug: "acme", Plan: organization.PlanFree})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if org.ID == "" || org.CreatedAt.IsZero() {
		t.Fatalf("id and timestamps must be set: %+v", org)
	}

	got, err := store.GetOrganization(ctx, org.ID)
	if err != nil || got.Slug != "acme" {
		t.Fatalf("get: %v %+v", err, got)
	}
	bySlug, err := store.GetOrganizationBySlug(ctx, "acme")
	if err != nil || bySlug.ID != org.ID {
		t.Fatalf("get by slug: %v %+v", err, bySlug)
	}

	if _, err := store.CreateOrganization(ctx, organization.Organization{Name: "Other", Slug: "acme"}); err == nil {
		t.Fatalf("duplicate slug must fail")
	}
	if _, err := store.GetOrganization(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserEmailLookupIsCaseInsensitive(t *testing.T) {
	store := New()
	ctx := context.Background()

	usr, err := store.CreateUser(ctx, user.User{Name: "Ada", Email: "Ada@Example.com", OrganizationID: "org-1", Role: user.RoleAdmin})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := store.GetUserByEmail(ctx, "ada@EXAMPLE.com")
	if err != nil || got.ID != usr.ID {
		t.Fatalf("lookup: %v %+v", err, got)
	}

	if _, err := store.CreateUser(ctx, user.User{Name: "Dup", Email: "ADA@example.com"}); err == nil {
		t.Fatalf("duplicate email must fail")
	}
}

func TestApiKeyUpdatePreservesCreatedAt(t *testing.T) {
	store := New()
	ctx := context.Background()

	key, err := store.CreateApiKey(ctx, apikey.ApiKey{OrganizationID: "org-1", Label: "default", Key: "vf_abc", Active: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	key.Active = false
	updated, err := store.UpdateApiKey(ctx, key)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Active {
		t.Fatalf("update did not apply")
	}
	if !updated.CreatedAt.Equal(key.CreatedAt) {
		t.Fatalf("CreatedAt changed on update")
	}

	byKey, err := store.GetApiKeyByKey(ctx, "vf_abc")
	if err != nil || byKey.ID != key.ID {
		t.Fatalf("lookup by raw key: %v", err)
	}
	if byKey.Active {
		t.Fatalf("lookup returned stale record")
	}
}

func TestSessionUpdate(t *testing.T) {
	store := New()
	ctx := context.Background()

	sess, err := store.CreateSession(ctx, tryon.Session{ProductID: "p-1", Mode: tryon.ModeFace, Status: tryon.StatusProcessing})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	sess.Status = tryon.StatusCompleted
	sess.ResultURL = "https://cdn.example.com/out.png"
	updated, err := store.UpdateSession(ctx, sess)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != tryon.StatusCompleted || !updated.CreatedAt.Equal(sess.CreatedAt) {
		t.Fatalf("unexpected update result %+v", updated)
	}

	if _, err := store.UpdateSession(ctx, tryon.Session{ID: "missing"}); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
