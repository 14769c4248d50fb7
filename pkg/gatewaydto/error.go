package gatewaydto

// Error codes returned by the gateway API.
const (
	CodeInvalidRequest  = "invalid_request"
	CodeInvalidFEN      = "invalid_fen"
	CodeIllegalMove     = "illegal_move"
	CodeEmptyHistory    = "empty_history"
	CodeThinkInProgress = "think_in_progress"
	CodeNotInitialized  = "not_initialized"
	CodeSessionReleased = "session_released"
	CodeSessionNotFound = "session_not_found"
	CodeUnknownOption   = "unknown_option"
	CodeInternal        = "internal_error"
)

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
