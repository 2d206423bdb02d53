package middlewares

type ctxKey string

const CtxUserID ctxKey = "userID"

// gin context keys (gin requires plain strings)
const (
	CtxRequestID = "request_id"
	CtxIdentity  = "auth.identity"
	CtxRawToken  = "auth.rawToken"
)
