package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/patshala/backend/pkg/jwt"
	"github.com/patshala/backend/pkg/logger"
	"github.com/patshala/backend/pkg/otp"
	"github.com/patshala/backend/pkg/password"
	"github.com/patshala/backend/pkg/resettoken"
	"github.com/patshala/backend/pkg/sanitizer"
	"github.com/patshala/backend/pkg/validator"
)

const (
	defaultSessionTTL      = 30 * 24 * time.Hour
	defaultStepUpTTL       = time.Hour
	defaultRegistrationTTL = time.Hour
	defaultResetTTL        = time.Hour

	minPasswordLen = 6
)

// Service runs the credential state machine for a single role. Two
// instances are constructed at startup, one over each store, sharing the
// registry for cross-role uniqueness.
type Service struct {
	role     Role
	store    PrincipalStore
	registry *Registry
	tokens   *jwt.Service
	notifier Notifier

	hasher password.Hasher
	codes  *otp.Generator
	log    *slog.Logger
	now    func() time.Time

	sessionTTL      time.Duration
	stepUpTTL       time.Duration
	registrationTTL time.Duration
	resetTTL        time.Duration
	resetURL        string
}

type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		s.log = log
	}
}

// WithHasher overrides the password hasher.
func WithHasher(h password.Hasher) Option {
	return func(s *Service) {
		s.hasher = h
	}
}

// WithOTPGenerator overrides the OTP generator.
func WithOTPGenerator(g *otp.Generator) Option {
	return func(s *Service) {
		s.codes = g
	}
}

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithSessionTTL sets the session token lifetime.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.sessionTTL = ttl
	}
}

// WithStepUpTTL sets the step-up token lifetime.
func WithStepUpTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.stepUpTTL = ttl
	}
}

// WithRegistrationTTL sets the registration token lifetime.
func WithRegistrationTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.registrationTTL = ttl
	}
}

// WithResetTTL sets the password reset token lifetime.
func WithResetTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.resetTTL = ttl
	}
}

// WithResetURL sets the base URL the reset token is appended to in the
// password reset email.
func WithResetURL(base string) Option {
	return func(s *Service) {
		s.resetURL = strings.TrimRight(base, "/")
	}
}

// NewService creates the credential service for one role.
func NewService(role Role, store PrincipalStore, registry *Registry, tokens *jwt.Service, notifier Notifier, opts ...Option) *Service {
	s := &Service{
		role:            role,
		store:           store,
		registry:        registry,
		tokens:          tokens,
		notifier:        notifier,
		hasher:          password.New(password.MinCost),
		codes:           otp.New(),
		log:             slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:             time.Now,
		sessionTTL:      defaultSessionTTL,
		stepUpTTL:       defaultStepUpTTL,
		registrationTTL: defaultRegistrationTTL,
		resetTTL:        defaultResetTTL,
		resetURL:        "/reset-password",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// externalIDField names the role-scoped identifier in validation errors.
func (s *Service) externalIDField() string {
	if s.role == RoleTeacher {
		return "teacherId"
	}
	return "studentId"
}

// Register validates the input, enforces cross-role uniqueness and persists
// an inactive principal. The returned token is a short-lived registration
// credential; no OTP is issued at this stage.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*RegisterResult, error) {
	input.Name = sanitizer.CollapseWhitespace(input.Name)
	input.Email = sanitizer.NormalizeEmail(input.Email)
	input.ExternalID = strings.TrimSpace(input.ExternalID)

	rules := []validator.Rule{
		validator.RequiredString("name", input.Name),
		validator.ValidEmail("email", input.Email),
		validator.MinLenString("password", input.Password, minPasswordLen),
		validator.RequiredString(s.externalIDField(), input.ExternalID),
	}
	if s.role == RoleTeacher {
		rules = append(rules, validator.RequiredSlice("subjects", input.Subjects))
	}
	if err := validator.Apply(rules...); err != nil {
		return nil, err
	}

	if !s.registry.EnrollmentMatches(s.role, input.ExternalID, input.Name) {
		return nil, ErrNotEnrolled
	}

	if lookup, err := s.registry.EmailExists(ctx, input.Email); err != nil {
		return nil, err
	} else if lookup.Exists {
		return nil, emailTakenBy(lookup.Role)
	}

	if lookup, err := s.registry.ExternalIDExists(ctx, input.ExternalID); err != nil {
		return nil, err
	} else if lookup.Exists {
		return nil, externalIDTakenBy(lookup.Role)
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	p := &Principal{
		ID:               uuid.New(),
		Role:             s.role,
		Name:             input.Name,
		Email:            input.Email,
		PasswordHash:     hash,
		ExternalID:       input.ExternalID,
		Subjects:         input.Subjects,
		RegistrationDate: s.now(),
		IsActive:         false,
	}

	if err := s.store.Create(ctx, p); err != nil {
		// The unique indexes are authoritative; a race past the registry
		// checks still surfaces as a conflict.
		switch {
		case errors.Is(err, ErrDuplicateEmail):
			return nil, emailTakenBy(s.role)
		case errors.Is(err, ErrDuplicateExternalID):
			return nil, externalIDTakenBy(s.role)
		}
		return nil, fmt.Errorf("failed to create principal: %w", err)
	}

	claims := RegistrationClaims{
		ID:               p.ID.String(),
		Email:            p.Email,
		RegisteredClaims: jwt.NewRegisteredClaims(s.registrationTTL),
	}
	tok, err := s.tokens.Generate(claims)
	if err != nil {
		return nil, fmt.Errorf("failed to generate registration token: %w", err)
	}

	s.log.Info("principal registered",
		logger.Component("auth"),
		logger.Role(s.role),
		logger.PrincipalID(p.ID),
	)

	return &RegisterResult{Principal: p, Token: tok}, nil
}

// Login verifies the credentials and routes the principal by activation
// state. Errors are field-specific on purpose: the product reports whether
// the email or the password was wrong.
func (s *Service) Login(ctx context.Context, email, pass string) (*LoginResult, error) {
	email = sanitizer.NormalizeEmail(email)
	if err := validator.Apply(
		validator.ValidEmail("email", email),
		validator.RequiredString("password", pass),
	); err != nil {
		return nil, err
	}

	p, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrEmailNotFound
		}
		return nil, fmt.Errorf("failed to load principal: %w", err)
	}

	if err := s.hasher.Verify(pass, p.PasswordHash); err != nil {
		if errors.Is(err, password.ErrMismatch) {
			return nil, ErrPasswordMismatch
		}
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}

	if p.IsActive {
		tok, err := s.issueSession(p)
		if err != nil {
			return nil, err
		}
		return &LoginResult{Principal: p, SessionToken: tok}, nil
	}

	return s.beginStepUp(ctx, p)
}

// beginStepUp issues a fresh OTP pair and step-up token for an inactive
// principal. The notification is dispatched only after the record change
// committed.
func (s *Service) beginStepUp(ctx context.Context, p *Principal) (*LoginResult, error) {
	code, err := s.codes.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate otp: %w", err)
	}

	claims := StepUpClaims{
		Email:            p.Email,
		Role:             p.Role,
		RegisteredClaims: jwt.NewRegisteredClaims(s.stepUpTTL),
	}
	tok, err := s.tokens.Generate(claims)
	if err != nil {
		return nil, fmt.Errorf("failed to generate step-up token: %w", err)
	}

	p.OTP = &code.Value
	p.OTPExpiresAt = &code.ExpiresAt
	p.StepUpToken = &tok
	if err := s.store.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to persist otp: %w", err)
	}

	if err := s.sendOTP(ctx, p, code); err != nil {
		return nil, err
	}

	return &LoginResult{
		Principal:    p,
		RequiresOTP:  true,
		StepUpToken:  tok,
		OTPExpiresAt: code.ExpiresAt,
	}, nil
}

func (s *Service) sendOTP(ctx context.Context, p *Principal, code otp.Code) error {
	err := s.notifier.Notify(ctx, Notification{
		Recipient: p.Email,
		Kind:      NotificationOTP,
		Data: map[string]string{
			DataName:       p.Name,
			DataCode:       code.Value,
			DataTTLSeconds: strconv.Itoa(int(s.codes.TTL() / time.Second)),
		},
	})
	if err != nil {
		s.log.Error("failed to enqueue otp notification",
			logger.Component("auth"),
			logger.Role(p.Role),
			logger.PrincipalID(p.ID),
			logger.Error(err),
		)
		return fmt.Errorf("failed to send otp: %w", err)
	}
	return nil
}

// VerifyOTP redeems a step-up token plus code for a full session. Success
// clears the pending pair and activates the principal; activation is never
// reversed.
func (s *Service) VerifyOTP(ctx context.Context, stepUpToken, code string) (*SessionResult, error) {
	var claims StepUpClaims
	if err := s.tokens.Parse(stepUpToken, &claims); err != nil {
		return nil, err
	}

	p, err := s.store.GetByEmail(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load principal: %w", err)
	}

	code = strings.TrimSpace(code)
	if p.OTP == nil || p.OTPExpiresAt == nil || *p.OTP != code || s.now().After(*p.OTPExpiresAt) {
		return nil, ErrInvalidOTP
	}

	p.OTP = nil
	p.OTPExpiresAt = nil
	p.StepUpToken = nil
	p.IsActive = true
	if err := s.store.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to activate principal: %w", err)
	}

	tok, err := s.issueSession(p)
	if err != nil {
		return nil, err
	}

	s.log.Info("otp verified",
		logger.Component("auth"),
		logger.Role(p.Role),
		logger.PrincipalID(p.ID),
	)

	return &SessionResult{Principal: p, SessionToken: tok}, nil
}

// ResendOTP replaces the pending code once the previous one expired. The
// freshest record decides whether the window is still open.
func (s *Service) ResendOTP(ctx context.Context, stepUpToken string) (*ResendResult, error) {
	var claims StepUpClaims
	if err := s.tokens.Parse(stepUpToken, &claims); err != nil {
		return nil, err
	}

	p, err := s.store.GetByEmail(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load principal: %w", err)
	}

	if p.OTPExpiresAt != nil && s.now().Before(*p.OTPExpiresAt) {
		return nil, ErrOTPStillValid
	}

	code, err := s.codes.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate otp: %w", err)
	}

	p.OTP = &code.Value
	p.OTPExpiresAt = &code.ExpiresAt
	if err := s.store.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to persist otp: %w", err)
	}

	if err := s.sendOTP(ctx, p, code); err != nil {
		return nil, err
	}

	return &ResendResult{OTPExpiresAt: code.ExpiresAt}, nil
}

// ForgotPassword issues a single-use reset token and emails the reset link.
// Reissuing invalidates any previously issued token.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	email = sanitizer.NormalizeEmail(email)
	if err := validator.Apply(validator.ValidEmail("email", email)); err != nil {
		return err
	}

	p, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to load principal: %w", err)
	}

	tok, err := resettoken.Generate()
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}

	expiresAt := s.now().Add(s.resetTTL)
	p.ResetTokenDigest = &tok.Digest
	p.ResetExpiresAt = &expiresAt
	if err := s.store.Update(ctx, p); err != nil {
		return fmt.Errorf("failed to persist reset token: %w", err)
	}

	err = s.notifier.Notify(ctx, Notification{
		Recipient: p.Email,
		Kind:      NotificationPasswordReset,
		Data: map[string]string{
			DataName:       p.Name,
			DataResetURL:   s.resetURL + "/" + tok.Plaintext,
			DataTTLMinutes: strconv.Itoa(int(s.resetTTL / time.Minute)),
		},
	})
	if err != nil {
		s.log.Error("failed to enqueue reset notification",
			logger.Component("auth"),
			logger.Role(p.Role),
			logger.PrincipalID(p.ID),
			logger.Error(err),
		)
		return fmt.Errorf("failed to send reset email: %w", err)
	}

	return nil
}

// CheckResetToken validates a reset token without consuming it.
func (s *Service) CheckResetToken(ctx context.Context, plaintext string) error {
	_, err := s.lookupByResetToken(ctx, plaintext)
	return err
}

// ResetPassword consumes the reset token and replaces the password. The
// token pair is cleared so a second redemption fails.
func (s *Service) ResetPassword(ctx context.Context, plaintext, newPassword string) error {
	if err := validator.Apply(
		validator.MinLenString("password", newPassword, minPasswordLen),
	); err != nil {
		return err
	}

	p, err := s.lookupByResetToken(ctx, plaintext)
	if err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	p.PasswordHash = hash
	p.ResetTokenDigest = nil
	p.ResetExpiresAt = nil
	if err := s.store.Update(ctx, p); err != nil {
		return fmt.Errorf("failed to persist new password: %w", err)
	}

	s.log.Info("password reset",
		logger.Component("auth"),
		logger.Role(p.Role),
		logger.PrincipalID(p.ID),
	)

	return nil
}

func (s *Service) lookupByResetToken(ctx context.Context, plaintext string) (*Principal, error) {
	plaintext = strings.TrimSpace(plaintext)
	if plaintext == "" {
		return nil, ErrResetTokenInvalid
	}

	p, err := s.store.GetByResetDigest(ctx, resettoken.Digest(plaintext))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrResetTokenInvalid
		}
		return nil, fmt.Errorf("failed to load principal: %w", err)
	}

	if p.ResetExpiresAt == nil || s.now().After(*p.ResetExpiresAt) {
		return nil, ErrResetTokenInvalid
	}

	return p, nil
}

func (s *Service) issueSession(p *Principal) (string, error) {
	claims := SessionClaims{
		SubjectID:        p.ID.String(),
		Email:            p.Email,
		Name:             p.Name,
		Role:             p.Role,
		RegisteredClaims: jwt.NewRegisteredClaims(s.sessionTTL),
	}
	tok, err := s.tokens.Generate(claims)
	if err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return tok, nil
}

func emailTakenBy(r Role) error {
	if r == RoleTeacher {
		return ErrEmailTakenByTeacher
	}
	return ErrEmailTakenByStudent
}

func externalIDTakenBy(r Role) error {
	if r == RoleTeacher {
		return ErrExternalIDTakenByTeacher
	}
	return ErrExternalIDTakenByStudent
}
