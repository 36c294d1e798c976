package middleware

import (
	"context"

	"github.com/google/uuid"
)

type actorKey int

const (
	actorUserID actorKey = iota
	actorRole
)

func stringValue(ctx context.Context, key actorKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}

func UserIDFromContext(ctx context.Context) string { return stringValue(ctx, actorUserID) }

func RoleFromContext(ctx context.Context) string { return stringValue(ctx, actorRole) }

func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorUserID, userID)
}

func WithRole(ctx context.Context, role string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorRole, role)
}

// ActorUserID is the operator recorded as createdBy/approvedBy; nil for
// unauthenticated calls.
func ActorUserID(ctx context.Context) *uuid.UUID {
	id, err := uuid.Parse(UserIDFromContext(ctx))
	if err != nil {
		return nil
	}
	return &id
}
