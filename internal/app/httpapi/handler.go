// Package httpapi exposes the REST surface over the application services.
package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	app "github.com/visionfit/backend/internal/app"
	"github.com/visionfit/backend/internal/app/domain/product"
	"github.com/visionfit/backend/internal/app/domain/tryon"
	"github.com/visionfit/backend/internal/app/domain/user"
	"github.com/visionfit/backend/internal/app/metrics"
	"github.com/visionfit/backend/internal/app/services/auth"
	tryonsvc "github.com/visionfit/backend/internal/app/services/tryon"
	apperrors "github.com/visionfit/backend/internal/errors"
)

const serviceName = "VisionFit API"

// Options carries the request-handling toggles the router needs.
type Options struct {
	// RequireAPIKey gates try-on session creation behind an X-API-Key header.
	RequireAPIKey bool
	// Live reports whether the upstream provider is enabled, surfaced on the
	// diagnostics endpoint.
	Live bool
	// DatabaseDriver names the active persistence backend for diagnostics.
	DatabaseDriver string
}

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app  *app.Application
	opts Options
}

// NewHandler returns a router exposing the REST API.
func NewHandler(application *app.Application, opts Options) http.Handler {
	if opts.DatabaseDriver == "" {
		opts.DatabaseDriver = "memory"
	}
	h := &handler{app: application, opts: opts}

	r := mux.NewRouter()
	r.HandleFunc("/", h.root).Methods(http.MethodGet)
	r.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)
	r.HandleFunc("/test", h.diagnostics).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/auth/signup", h.signup).Methods(http.MethodPost)
	v1.HandleFunc("/auth/login", h.login).Methods(http.MethodPost)
	v1.HandleFunc("/me", h.me).Methods(http.MethodGet)
	v1.HandleFunc("/org", h.organization).Methods(http.MethodGet)
	v1.HandleFunc("/org/apikeys", h.listApiKeys).Methods(http.MethodGet)
	v1.HandleFunc("/org/apikeys", h.createApiKey).Methods(http.MethodPost)
	v1.HandleFunc("/org/apikeys/{id}/revoke", h.revokeApiKey).Methods(http.MethodPost)
	v1.HandleFunc("/products", h.createProduct).Methods(http.MethodPost)
	v1.HandleFunc("/products", h.listProducts).Methods(http.MethodGet)
	v1.HandleFunc("/products/{id}", h.getProduct).Methods(http.MethodGet)
	v1.HandleFunc("/tryon/sessions", h.createSession).Methods(http.MethodPost)
	v1.HandleFunc("/tryon/sessions", h.listSessions).Methods(http.MethodGet)
	v1.HandleFunc("/tryon/sessions/{id}", h.getSession).Methods(http.MethodGet)

	return r
}

func (h *handler) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"name": serviceName, "status": "ok"})
}

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) diagnostics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"backend":  "ok",
		"database": h.opts.DatabaseDriver,
		"fal_live": h.opts.Live,
	})
}

func (h *handler) signup(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name             string `json:"name"`
		Email            string `json:"email"`
		Password         string `json:"password"`
		OrganizationName string `json:"organization_name"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, apperrors.Validation("invalid request body"))
		return
	}

	result, err := h.app.Auth.Signup(r.Context(), auth.SignupInput{
		Name:             payload.Name,
		Email:            payload.Email,
		Password:         payload.Password,
		OrganizationName: payload.OrganizationName,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"organization": result.Organization,
		"user":         result.User,
		"api_key":      result.ApiKey,
		"access_token": result.AccessToken,
		"token_type":   "bearer",
	})
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, apperrors.Validation("invalid request body"))
		return
	}

	usr, token, err := h.app.Auth.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":         usr,
		"access_token": token,
		"token_type":   "bearer",
	})
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	usr, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, usr)
}

func (h *handler) organization(w http.ResponseWriter, r *http.Request) {
	usr, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	org, err := h.app.Auth.Organization(r.Context(), usr.OrganizationID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, org)
}

func (h *handler) listApiKeys(w http.ResponseWriter, r *http.Request) {
	usr, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	keys, err := h.app.ApiKeys.List(r.Context(), usr.OrganizationID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeItems(w, keys)
}

func (h *handler) createApiKey(w http.ResponseWriter, r *http.Request) {
	usr, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	var payload struct {
		Label  string   `json:"label"`
		Scopes []string `json:"scopes"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, apperrors.Validation("invalid request body"))
		return
	}
	key, err := h.app.ApiKeys.Create(r.Context(), usr.OrganizationID, payload.Label, payload.Scopes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, key)
}

func (h *handler) revokeApiKey(w http.ResponseWriter, r *http.Request) {
	usr, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	key, err := h.app.ApiKeys.Revoke(r.Context(), usr.OrganizationID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": key.ID, "status": "revoked"})
}

func (h *handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Title        string `json:"title"`
		SKU          string `json:"sku"`
		Type         string `json:"type"`
		ModelURL     string `json:"model_url"`
		ThumbnailURL string `json:"thumbnail_url"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, apperrors.Validation("invalid request body"))
		return
	}
	created, err := h.app.Products.Create(r.Context(), product.Product{
		Title:        payload.Title,
		SKU:          payload.SKU,
		Type:         product.Type(payload.Type),
		ModelURL:     payload.ModelURL,
		ThumbnailURL: payload.ThumbnailURL,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, created)
}

func (h *handler) listProducts(w http.ResponseWriter, r *http.Request) {
	items, err := h.app.Products.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeItems(w, items)
}

func (h *handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	prod, err := h.app.Products.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prod)
}

func (h *handler) createSession(w http.ResponseWriter, r *http.Request) {
	keyID, ok := h.resolveApiKey(w, r)
	if !ok {
		return
	}

	var payload struct {
		ProductID      string `json:"product_id"`
		Mode           string `json:"mode"`
		SourceImageURL string `json:"source_image_url"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, apperrors.Validation("invalid request body"))
		return
	}
	if _, err := uuid.Parse(payload.ProductID); err != nil {
		writeError(w, apperrors.Validation("Invalid id"))
		return
	}

	sess, err := h.app.TryOn.CreateSession(r.Context(), tryonsvc.CreateSessionInput{
		ProductID:      payload.ProductID,
		Mode:           tryon.Mode(payload.Mode),
		SourceImageURL: payload.SourceImageURL,
		ApiKeyID:       keyID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *handler) listSessions(w http.ResponseWriter, r *http.Request) {
	items, err := h.app.TryOn.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeItems(w, items)
}

func (h *handler) getSession(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	sess, err := h.app.TryOn.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// requireUser resolves the bearer token to the acting user, writing the
// error response itself on failure.
func (h *handler) requireUser(w http.ResponseWriter, r *http.Request) (user.User, bool) {
	usr, err := h.app.Auth.ResolveUser(r.Context(), r.Header.Get("Authorization"))
	if err != nil {
		writeError(w, err)
		return user.User{}, false
	}
	return usr, true
}

// resolveApiKey enforces the X-API-Key policy for session creation. A
// supplied key is always validated, even when keys are optional.
func (h *handler) resolveApiKey(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := strings.TrimSpace(r.Header.Get("X-API-Key"))
	if raw == "" {
		if h.opts.RequireAPIKey {
			writeError(w, apperrors.Unauthorized("api key required"))
			return "", false
		}
		return "", true
	}
	key, err := h.app.ApiKeys.Resolve(r.Context(), raw)
	if err != nil {
		writeError(w, err)
		return "", false
	}
	return key.ID, true
}

// pathID extracts and validates the {id} route variable, writing a 400
// response for malformed identifiers.
func pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := mux.Vars(r)["id"]
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, apperrors.Validation("Invalid id"))
		return "", false
	}
	return id, true
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeItems wraps list payloads in an items envelope.
func writeItems(w http.ResponseWriter, items interface{}) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

// writeError maps a service error to its HTTP status; anything unclassified
// reports 500 without leaking internals.
func writeError(w http.ResponseWriter, err error) {
	if svcErr := apperrors.GetServiceError(err); svcErr != nil {
		writeJSON(w, svcErr.HTTPStatus, map[string]string{"detail": svcErr.Message})
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "internal server error"})
}
