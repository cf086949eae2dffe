// Package actorctx carries the acting user's id on a context.Context so the
// data layer can scope row level security to the caller.
package actorctx

import "context"

type ctxKey string

const keyUserID ctxKey = "actor.user_id"

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, keyUserID, userID)
}

func UserIDFrom(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyUserID).(string)

	return v, ok && v != ""
}
