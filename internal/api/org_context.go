package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/ignite/outreach-timeline/internal/pkg/httputil"
)

// OrgHeader carries the caller's organization.
const OrgHeader = "X-Organization-ID"

type orgContextKey struct{}

// OrgID returns the organization resolved by RequireOrg.
func OrgID(ctx context.Context) string {
	id, _ := ctx.Value(orgContextKey{}).(string)
	return id
}

// RequireOrg resolves the organization from the X-Organization-ID header,
// falling back to defaultOrgID. Requests with neither get a 400.
func RequireOrg(defaultOrgID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			orgID := strings.TrimSpace(r.Header.Get(OrgHeader))
			if orgID == "" {
				orgID = defaultOrgID
			}
			if orgID == "" {
				httputil.BadRequest(w, "missing_organization", OrgHeader+" header is required")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), orgContextKey{}, orgID)))
		})
	}
}
