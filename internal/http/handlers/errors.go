// HTTP-layer error codes used across all API endpoints.
//
// These symbolic constants are mapped to HTTP responses via the fail()
// helper in this package and give clients a stable, machine-readable error
// taxonomy alongside the human-readable messages. Generic codes mirror the
// usual HTTP status semantics; domain-specific codes cover failures that a
// status alone cannot convey (a closed poll, an expired confirmation link,
// a mail outage).
package handlers

const (
	ErrCodeBadRequest  = "bad_request"
	ErrCodeNotFound    = "not_found"
	ErrCodeConflict    = "conflict"
	ErrCodeRateLimited = "too_many_requests"
	ErrCodeInternal    = "internal_error"

	// Domain-specific:
	ErrCodePollClosed       = "poll_closed"
	ErrCodeTokenExpired     = "token_expired"
	ErrCodeTokenInvalid     = "token_invalid"
	ErrCodeMailFailed       = "mail_failed"
	ErrCodeCreateFailed     = "create_failed"
	ErrCodeListFailed       = "list_failed"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)
