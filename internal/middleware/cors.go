package middleware

import (
	"net/http"
	"strings"
)

const (
	allowedHeaders = "Content-Type, Authorization, X-API-Key, Address, Chain"
	allowedMethods = "GET, POST, OPTIONS"
)

// CORS adds Access-Control headers for allowed origins and answers preflight
// requests itself. Credentials are only allowed for explicitly listed origins.
func CORS(allowedOrigins []string, next http.Handler) http.Handler {
	allowAll := false
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
			continue
		}
		allowed[strings.ToLower(strings.TrimRight(origin, "/"))] = struct{}{}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" {
			h := w.Header()
			h.Add("Vary", "Origin")
			_, listed := allowed[strings.ToLower(origin)]
			switch {
			case listed:
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
			case allowAll:
				h.Set("Access-Control-Allow-Origin", "*")
			}
			if listed || allowAll {
				h.Set("Access-Control-Allow-Headers", allowedHeaders)
				h.Set("Access-Control-Allow-Methods", allowedMethods)
			}
		}

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
