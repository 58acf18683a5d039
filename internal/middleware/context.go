package middleware

// Context keys used to pass request metadata between middleware and handlers.
const (
	ContextKeyBearerToken = "bearer_token"
	ContextKeyRequestID   = "request_id"
)
