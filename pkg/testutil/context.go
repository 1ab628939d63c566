package testutil

import (
	"context"
	"net/http"

	id "faceguard/pkg/domain"
	"faceguard/pkg/requestcontext"
)

// WithUserID adds a user ID to the request context.
// This simulates what the auth middleware would do for authenticated requests.
// If the userID is not a valid UUID, it will not be added to the context.
func WithUserID(req *http.Request, userID string) *http.Request {
	if parsedUserID, err := id.ParseUserID(userID); err == nil {
		return req.WithContext(requestcontext.WithUserID(req.Context(), parsedUserID))
	}
	return req
}

// WithAdmin authenticates the request as an admin principal.
func WithAdmin(req *http.Request, adminID string) *http.Request {
	req = WithUserID(req, adminID)
	return req.WithContext(requestcontext.WithRole(req.Context(), requestcontext.RoleAdmin))
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	ctx := context.WithValue(req.Context(), key, value)
	return req.WithContext(ctx)
}
