package response

import "github.com/gin-gonic/gin"

// Stable error kind tokens surfaced to callers. Each internal failure maps
// to exactly one of these; none collapses into a generic bucket.
const (
	KindUnreadableDocument        = "unreadable_document"
	KindUnknownProvider           = "unknown_provider"
	KindProviderUnavailable       = "provider_unavailable"
	KindProviderAuthError         = "provider_auth_error"
	KindProviderRateLimited       = "provider_rate_limited"
	KindMalformedProviderResponse = "malformed_provider_response"
	KindPersistenceError          = "persistence_error"
	KindNotFound                  = "not_found"
	KindInvalidRequest            = "invalid_request"
	KindInternalError             = "internal_error"
)

// ErrorBody is the structured error payload. Message is human readable and
// never carries stack traces or provider internals.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func Error(c *gin.Context, status int, kind, message string) {
	c.JSON(status, ErrorBody{Error: kind, Message: message})
}
