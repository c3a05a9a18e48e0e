package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/shopeazy-backend/pkg/enums"
)

// Actor is the authenticated caller resolved from the access token.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

type actorKey struct{}

// WithActor stores the caller on ctx.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the caller, or false on unauthenticated routes.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok && actor.UserID != uuid.Nil
}
