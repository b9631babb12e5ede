// Package app wires the storage layer into the domain services and manages
// their shared configuration.
package app

import (
	"net/http"
	"time"

	apikeysvc "github.com/visionfit/backend/internal/app/services/apikeys"
	"github.com/visionfit/backend/internal/app/services/auth"
	productsvc "github.com/visionfit/backend/internal/app/services/products"
	tryonsvc "github.com/visionfit/backend/internal/app/services/tryon"
	"github.com/visionfit/backend/internal/app/storage"
	"github.com/visionfit/backend/internal/app/storage/memory"
	"github.com/visionfit/backend/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Organizations storage.OrganizationStore
	Users         storage.UserStore
	ApiKeys       storage.ApiKeyStore
	Products      storage.ProductStore
	Sessions      storage.SessionStore
}

// Config carries the settings the services need. The provider fields are
// only consulted when Live is set.
type Config struct {
	Auth auth.Config

	Live             bool
	ProviderEndpoint string
	ProviderKey      string

	// Provider overrides the HTTP provider, used by tests.
	Provider tryonsvc.Provider
}

// Application ties the domain services together.
type Application struct {
	log *logger.Logger

	Auth     *auth.Service
	ApiKeys  *apikeysvc.Service
	Products *productsvc.Service
	TryOn    *tryonsvc.Service
}

// New builds a fully initialised application with the provided stores.
func New(cfg Config, stores Stores, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}

	mem := memory.New()
	if stores.Organizations == nil {
		stores.Organizations = mem
	}
	if stores.Users == nil {
		stores.Users = mem
	}
	if stores.ApiKeys == nil {
		stores.ApiKeys = mem
	}
	if stores.Products == nil {
		stores.Products = mem
	}
	if stores.Sessions == nil {
		stores.Sessions = mem
	}

	authService := auth.New(stores.Organizations, stores.Users, stores.ApiKeys, cfg.Auth, log)
	keyService := apikeysvc.New(stores.ApiKeys, log)
	productService := productsvc.New(stores.Products, log)

	provider := cfg.Provider
	if provider == nil && cfg.Live {
		httpProvider, err := tryonsvc.NewHTTPProvider(&http.Client{Timeout: 30 * time.Second}, cfg.ProviderEndpoint, cfg.ProviderKey, log)
		if err != nil {
			return nil, err
		}
		provider = httpProvider
	}

	tryonService := tryonsvc.New(stores.Products, stores.Sessions, provider, tryonsvc.Config{Live: cfg.Live}, log)

	return &Application{
		log:      log,
		Auth:     authService,
		ApiKeys:  keyService,
		Products: productService,
		TryOn:    tryonService,
	}, nil
}

// Logger exposes the application logger for composition layers.
func (a *Application) Logger() *logger.Logger {
	return a.log
}
