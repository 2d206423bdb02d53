package actorctx

import "context"

type ctxKey struct{}

// WithUserID stamps the authenticated caller onto a plain context so layers
// below the HTTP surface can attribute their work without a gin dependency.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

func UserIDFrom(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxKey{}).(string)

	return v, ok && v != ""
}
