package auth

import (
	"time"

	"github.com/google/uuid"

	"github.com/patshala/backend/pkg/jwt"
)

// Role discriminates the two principal populations. Each role has its own
// store, router family and roster, but shares the same state machine.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleTeacher
}

// Title returns the capitalized display form used in client-facing messages.
func (r Role) Title() string {
	switch r {
	case RoleStudent:
		return "Student"
	case RoleTeacher:
		return "Teacher"
	default:
		return string(r)
	}
}

// Principal is the full credential record for a student or teacher.
// OTP and reset fields travel in pairs: a code without its expiry (or the
// reverse) is never persisted.
type Principal struct {
	ID               uuid.UUID
	Role             Role
	Name             string
	Email            string
	PasswordHash     []byte
	ExternalID       string
	Subjects         []string
	RegistrationDate time.Time
	IsActive         bool

	OTP          *string
	OTPExpiresAt *time.Time
	StepUpToken  *string

	ResetTokenDigest *string
	ResetExpiresAt   *time.Time
}

// SessionClaims is the long-lived session token payload issued after a
// completed login.
type SessionClaims struct {
	SubjectID string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      Role   `json:"role"`
	jwt.RegisteredClaims
}

// StepUpClaims is the short-lived artifact handed out when a login lands in
// the OTP step. It carries only the email key; the record itself holds the
// pending code.
type StepUpClaims struct {
	Email string `json:"email"`
	Role  Role   `json:"role"`
	jwt.RegisteredClaims
}

// RegistrationClaims is returned from a successful registration so the
// client can immediately continue into the verification flow.
type RegistrationClaims struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// RegisterInput carries the raw registration form. Subjects is only
// meaningful for teachers.
type RegisterInput struct {
	Name       string
	Email      string
	Password   string
	ExternalID string
	Subjects   []string
}

// RegisterResult pairs the persisted principal with its registration token.
type RegisterResult struct {
	Principal *Principal
	Token     string
}

// LoginResult describes where a login landed. Exactly one of SessionToken
// and StepUpToken is set: active principals get a session, inactive ones get
// the OTP step-up artifact plus the server-side code expiry.
type LoginResult struct {
	Principal    *Principal
	RequiresOTP  bool
	SessionToken string
	StepUpToken  string
	OTPExpiresAt time.Time
}

// SessionResult is the outcome of a successful OTP verification.
type SessionResult struct {
	Principal    *Principal
	SessionToken string
}

// ResendResult reports the expiry of the freshly issued code.
type ResendResult struct {
	OTPExpiresAt time.Time
}
