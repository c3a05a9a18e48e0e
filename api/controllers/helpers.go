package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/shopeazy-backend/api/middleware"
	"github.com/angelmondragon/shopeazy-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopeazy-backend/pkg/errors"
)

// requestActor returns the caller seeded by the auth middleware.
func requestActor(r *http.Request) (uuid.UUID, enums.UserRole, error) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		return uuid.Nil, "", pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	return actor.UserID, actor.Role, nil
}

// hasBody treats a missing or zero-length body as absent so optional payloads can be skipped.
func hasBody(r *http.Request) bool {
	return r.Body != nil && r.Body != http.NoBody && r.ContentLength != 0
}
