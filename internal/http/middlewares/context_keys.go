package middlewares

const (
	CtxRequestID = "request_id"
	// CtxSessionUser holds the *auth.User resolved by the session refresher, if any.
	CtxSessionUser = "session.user"
)
