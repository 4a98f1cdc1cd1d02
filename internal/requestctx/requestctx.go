package requestctx

import "context"

type ctxKey int

const (
	requestIDKey ctxKey = iota
	actorKey
	clientIPKey
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func GetRequestID(ctx context.Context) string {
	if value, ok := ctx.Value(requestIDKey).(string); ok {
		return value
	}
	return ""
}

// WithActor stores the id of the user on whose behalf the request runs.
func WithActor(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, actorKey, userID)
}

func Actor(ctx context.Context) string {
	if value, ok := ctx.Value(actorKey).(string); ok {
		return value
	}
	return ""
}

func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

func ClientIP(ctx context.Context) string {
	if value, ok := ctx.Value(clientIPKey).(string); ok {
		return value
	}
	return ""
}
