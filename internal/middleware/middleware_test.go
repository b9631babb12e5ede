package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestCORSAllowAll(t *testing.T) {
	handler := NewCORSMiddleware([]string{"*"}).Handler(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/v1/products", nil)
	req.Header.Set("Origin", "https://shop.example.com")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Header().Get("Access-Control-Allow-Origin") != "https://shop.example.com" {
		t.Fatalf("expected origin echoed, got %q", resp.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestCORSPreflight(t *testing.T) {
	handler := NewCORSMiddleware([]string{"https://shop.example.com"}).Handler(okHandler())

	req := httptest.NewRequest(http.MethodOptions, "/v1/products", nil)
	req.Header.Set("Origin", "https://shop.example.com")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204 preflight, got %d", resp.Code)
	}
	if resp.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Fatalf("expected allowed methods header")
	}
}

func TestCORSSubdomainSuffix(t *testing.T) {
	handler := NewCORSMiddleware([]string{".example.com"}).Handler(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/v1/products", nil)
	req.Header.Set("Origin", "https://shop.example.com")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Header().Get("Access-Control-Allow-Origin") != "https://shop.example.com" {
		t.Fatalf("expected subdomain origin allowed, got %q", resp.Header().Get("Access-Control-Allow-Origin"))
	}
	if resp.Header().Get("Vary") != "Origin" {
		t.Fatalf("expected Vary: Origin on allowed responses")
	}
}

func TestCORSDisallowedOrigin(t *testing.T) {
	handler := NewCORSMiddleware([]string{"https://shop.example.com"}).Handler(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/v1/products", nil)
	req.Header.Set("Origin", "https://evil.example.net")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("disallowed origin must not receive CORS headers")
	}
}

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(1, 2, nil)
	handler := limiter.Handler(okHandler())

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/v1/products", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		statuses = append(statuses, resp.Code)
	}

	if statuses[0] != http.StatusOK || statuses[1] != http.StatusOK {
		t.Fatalf("burst requests should pass, got %v", statuses)
	}
	if statuses[2] != http.StatusTooManyRequests {
		t.Fatalf("expected 429 once burst is spent, got %v", statuses)
	}

	// A different client has its own bucket.
	req := httptest.NewRequest(http.MethodGet, "/v1/products", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("independent client should pass, got %d", resp.Code)
	}
}
