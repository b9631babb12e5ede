package metrics

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"/":                           "/",
		"/healthz":                    "/healthz",
		"/v1/products":                "/v1/products",
		"/v1/products/1234":           "/v1/products/:id",
		"/v1/tryon/sessions":          "/v1/tryon/sessions",
		"/v1/tryon/sessions/1234":     "/v1/tryon/sessions/:id",
		"/v1/org/apikeys":             "/v1/org/apikeys",
		"/v1/org/apikeys/1234/revoke": "/v1/org/apikeys/:id",
		"/v1/auth/signup":             "/v1/auth/signup",
		"/v1/me":                      "/v1/me",
		"/v1/org":                     "/v1/org",
	}
	for raw, want := range cases {
		if got := canonicalPath(raw); got != want {
			t.Fatalf("canonicalPath(%q) = %q, want %q", raw, got, want)
		}
	}
}
