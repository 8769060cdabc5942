package testutil

import (
	"net/http"

	"eventdesk/pkg/requestcontext"
)

// WithOwner scopes the request to an owner, simulating what the auth
// middleware does for authenticated requests.
func WithOwner(req *http.Request, ownerID string) *http.Request {
	return req.WithContext(requestcontext.WithOwnerID(req.Context(), ownerID))
}
