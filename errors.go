package reeutil

import (
	"errors"
	"net/http"
	"time"
)

var (
	// ErrValidation reports missing or malformed input. Nothing is mutated.
	ErrValidation = errors.New("missing or invalid input")
	// ErrCaptchaInvalid reports a wrong, expired, or already used CAPTCHA.
	ErrCaptchaInvalid = errors.New("captcha invalid or expired")
	// ErrInvalidCredentials is the generic credential failure. It never
	// reveals whether the email or the password was wrong.
	ErrInvalidCredentials = errors.New("email or password incorrect")
	// ErrAccountBlocked reports a locked principal.
	ErrAccountBlocked = errors.New("account blocked")
	// ErrPasswordExpired reports a correct but stale password.
	ErrPasswordExpired = errors.New("password expired, change it before logging in")
	// ErrSessionNotFound reports an absent or expired pending login.
	ErrSessionNotFound = errors.New("login session not found, log in again")
	// ErrCodeExpired reports an absent or expired standalone verification code.
	ErrCodeExpired = errors.New("verification code expired or not requested")
	// ErrCodeMismatch reports a wrong one-time code.
	ErrCodeMismatch = errors.New("incorrect code")
	// ErrPrincipalNotFound is returned by stores for unknown principals.
	ErrPrincipalNotFound = errors.New("principal not found")
	// ErrDuplicateIdentifier is returned by stores on unique-key conflicts.
	ErrDuplicateIdentifier = errors.New("identifier already in use")
	// ErrDeliveryFailed reports that a code could not be handed to the mailer.
	ErrDeliveryFailed = errors.New("could not deliver code")
	// ErrRateLimited reports too many failed logins from one client.
	ErrRateLimited = errors.New("too many login attempts")
	// ErrUnauthorized reports a missing, invalid, or orphaned session token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden reports an authenticated principal outside the allowed roles.
	ErrForbidden = errors.New("forbidden")
	// ErrStoreUnavailable wraps backend failures.
	ErrStoreUnavailable = errors.New("backing store unavailable")
	// ErrEngineNotReady is returned by a nil or partially built Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// Machine-readable failure codes.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeCaptchaInvalid     = "CAPTCHA_INVALID"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeAccountBlocked     = "ACCOUNT_BLOCKED"
	CodePasswordExpired    = "PASSWORD_EXPIRED"
	CodeSessionNotFound    = "SESSION_NOT_FOUND"
	CodeCodeExpired        = "CODE_EXPIRED"
	CodeInvalidCode        = "INVALID_CODE"
	CodeNotFound           = "NOT_FOUND"
	CodeDuplicate          = "USERID_DUPLICATE"
	CodeDeliveryFailed     = "DELIVERY_FAILED"
	CodeRateLimited        = "RATE_LIMITED"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeInternal           = "INTERNAL"
)

// DetailError decorates a sentinel with lockout details.
type DetailError struct {
	Err               error
	AttemptsRemaining *int
	BlockedAt         *time.Time
}

func (e *DetailError) Error() string { return e.Err.Error() }

func (e *DetailError) Unwrap() error { return e.Err }

func blockedError(at *time.Time) error {
	zero := 0
	return &DetailError{Err: ErrAccountBlocked, AttemptsRemaining: &zero, BlockedAt: at}
}

func attemptsError(remaining int) error {
	return &DetailError{Err: ErrInvalidCredentials, AttemptsRemaining: &remaining}
}

// Failure is the client-facing description of an error.
type Failure struct {
	Status            int        `json:"-"`
	Code              string     `json:"code"`
	Message           string     `json:"message"`
	AttemptsRemaining *int       `json:"attemptsRemaining,omitempty"`
	BlockedAt         *time.Time `json:"blockedAt,omitempty"`
}

type failureClass struct {
	err    error
	status int
	code   string
}

// Order matters: the first matching sentinel wins.
var failureClasses = []failureClass{
	{ErrValidation, http.StatusBadRequest, CodeValidation},
	{ErrCaptchaInvalid, http.StatusUnauthorized, CodeCaptchaInvalid},
	{ErrInvalidCredentials, http.StatusUnauthorized, CodeInvalidCredentials},
	{ErrAccountBlocked, http.StatusForbidden, CodeAccountBlocked},
	{ErrPasswordExpired, http.StatusForbidden, CodePasswordExpired},
	{ErrSessionNotFound, http.StatusNotFound, CodeSessionNotFound},
	{ErrCodeExpired, http.StatusNotFound, CodeCodeExpired},
	{ErrCodeMismatch, http.StatusBadRequest, CodeInvalidCode},
	{ErrPrincipalNotFound, http.StatusNotFound, CodeNotFound},
	{ErrDuplicateIdentifier, http.StatusConflict, CodeDuplicate},
	{ErrDeliveryFailed, http.StatusBadGateway, CodeDeliveryFailed},
	{ErrRateLimited, http.StatusTooManyRequests, CodeRateLimited},
	{ErrUnauthorized, http.StatusUnauthorized, CodeUnauthorized},
	{ErrForbidden, http.StatusForbidden, CodeForbidden},
}

// Describe maps err to a status, code, and safe message. Unknown errors
// become a 500 with a generic message so backend details never leak.
func Describe(err error) Failure {
	if err == nil {
		return Failure{}
	}

	f := Failure{
		Status:  http.StatusInternalServerError,
		Code:    CodeInternal,
		Message: "internal error",
	}
	for _, c := range failureClasses {
		if errors.Is(err, c.err) {
			f.Status = c.status
			f.Code = c.code
			f.Message = c.err.Error()
			break
		}
	}

	var detail *DetailError
	if errors.As(err, &detail) {
		f.AttemptsRemaining = detail.AttemptsRemaining
		f.BlockedAt = detail.BlockedAt
	}
	return f
}

// Classify is the short form of Describe.
func Classify(err error) (status int, code string) {
	f := Describe(err)
	return f.Status, f.Code
}
