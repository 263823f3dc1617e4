package middleware

import (
	"net/http"
	"strings"

	"carbon-filing/internal/config"
)

// CORSMiddleware applies the configured CORS policy. Header values are
// joined once at construction; the per-request work is an origin check.
type CORSMiddleware struct {
	origins     []string
	credentials bool
	methods     string
	headers     string
	exposed     string
}

// NewCORSMiddleware creates a new CORS middleware
func NewCORSMiddleware(cfg *config.CORSConfig) *CORSMiddleware {
	return &CORSMiddleware{
		origins:     cfg.AllowedOrigins,
		credentials: cfg.AllowCredentials,
		methods:     strings.Join(cfg.AllowedMethods, ", "),
		headers:     strings.Join(cfg.AllowedHeaders, ", "),
		exposed:     strings.Join(cfg.ExposedHeaders, ", "),
	}
}

func (m *CORSMiddleware) allowOrigin(origin string) (string, bool) {
	for _, allowed := range m.origins {
		if allowed == "*" || allowed == origin {
			return allowed, true
		}
	}
	return "", false
}

// Handler sets the CORS headers for allowed origins and answers preflight
// requests. Requests from origins outside the policy pass through without
// CORS headers; the browser enforces the rest.
func (m *CORSMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Origin")

		if origin, ok := m.allowOrigin(r.Header.Get("Origin")); ok {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", m.methods)
			w.Header().Set("Access-Control-Allow-Headers", m.headers)
			if m.credentials {
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}
			if m.exposed != "" {
				w.Header().Set("Access-Control-Expose-Headers", m.exposed)
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}
