package httputil

// Machine-readable error codes returned alongside error messages so that
// clients can branch without parsing human-readable text.
const (
	CodeInvalidRequestBody = "invalid_request_body"
	CodeInternalError      = "internal_error"
	CodeTooManyRequests    = "too_many_requests"
	CodeCooldownActive     = "cooldown_active"

	CodeInvalidAuthHeader = "invalid_auth_header"
	CodeMissingAuth       = "missing_auth"
	CodeInvalidToken      = "invalid_token"
	CodeTokenExpired      = "token_expired"

	CodeDuplicateUsername  = "duplicate_username"
	CodeDuplicateEmail     = "duplicate_email"
	CodeInvalidEmailFormat = "invalid_email_format"
	CodeUsernameRequired   = "username_required"
	CodeEmailRequired      = "email_required"
	CodePasswordRequired   = "password_required"
	CodePasswordTooShort   = "password_too_short"

	CodeInvalidCredentials        = "invalid_credentials"
	CodeEmailNotVerified          = "email_not_verified"
	CodeAccountInactive           = "account_inactive"
	CodeAlreadyVerified           = "already_verified"
	CodeVerificationFailed        = "verification_failed"
	CodeVerificationTokenRequired = "verification_token_required"
	CodeRefreshTokenRequired      = "refresh_token_required"
	CodeInvalidRefreshToken       = "invalid_refresh_token"
	CodeInvalidResetToken         = "invalid_reset_token"

	CodeInvalidOperation = "invalid_operation"
	CodeDivisionByZero   = "division_by_zero"
	CodeNotFound         = "not_found"
)
