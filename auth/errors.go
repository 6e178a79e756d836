package auth

import "errors"

// Identity conflicts (role-aware so the HTTP layer can name the holder)
var (
	ErrEmailTakenByStudent      = errors.New("student with this email already exists")
	ErrEmailTakenByTeacher      = errors.New("teacher with this email already exists")
	ErrExternalIDTakenByStudent = errors.New("student with this id already exists")
	ErrExternalIDTakenByTeacher = errors.New("teacher with this id already exists")
)

// Login errors (field-specific by product decision, not merged into a
// generic invalid-credentials error)
var (
	ErrEmailNotFound    = errors.New("email is not registered")
	ErrPasswordMismatch = errors.New("password is incorrect")
)

// OTP step-up errors
var (
	ErrInvalidOTP    = errors.New("invalid or expired otp")
	ErrOTPStillValid = errors.New("current otp has not expired yet")
)

// Password reset errors
var (
	ErrResetTokenInvalid = errors.New("invalid or expired reset token")
)

// Roster errors
var (
	ErrNotEnrolled = errors.New("enrollment record does not match roster")
)

// Authorization header errors
var (
	ErrMissingAuthHeader   = errors.New("authorization header is missing")
	ErrMalformedAuthHeader = errors.New("authorization header is malformed")
)

// Storage contract sentinels. Store implementations translate their
// driver-level failures into these before returning.
var (
	ErrNotFound            = errors.New("principal not found")
	ErrDuplicateEmail      = errors.New("duplicate email")
	ErrDuplicateExternalID = errors.New("duplicate external id")
)
