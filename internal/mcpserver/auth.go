// ABOUTME: Static bearer token check for MCP over HTTP
// ABOUTME: Accepts the token from the Authorization header or a /mcp/<token> path suffix

package mcpserver

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// RequireBearer rejects requests that do not present token.
func RequireBearer(token string, next http.Handler) http.Handler {
	want := []byte(token)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := extractToken(r)
		if got == "" || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
			w.Header().Set("WWW-Authenticate", `Bearer realm="mcp"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func extractToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	// Token in path: /mcp/<token>
	if rest, ok := strings.CutPrefix(r.URL.Path, "/mcp/"); ok {
		rest = strings.TrimRight(rest, "/")
		if rest != "" && !strings.Contains(rest, "/") {
			return rest
		}
	}
	return ""
}
