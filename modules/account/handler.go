package account

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/patshala/backend/auth"
	"github.com/patshala/backend/pkg/cookie"
	"github.com/patshala/backend/pkg/jwt"
	"github.com/patshala/backend/pkg/ratelimiter"
)

// Cookie names are part of the frontend contract.
const (
	SessionCookie       = "token"
	studentVerifyCookie = "studentVerifyToken"
	teacherVerifyCookie = "teacherVerifyToken"

	sessionCookieMaxAge = 30 * 24 * 60 * 60
	stepUpCookieMaxAge  = 60 * 60
)

// Handler serves one role's route family.
type Handler struct {
	role     auth.Role
	svc      *auth.Service
	registry *auth.Registry
	cookies  *cookie.Manager
	tokens   *jwt.Service
	limiter  ratelimiter.RateLimiter
	log      *slog.Logger
}

type HandlerOption func(*Handler)

// WithLimiter rate-limits login and forgot-password per client IP and path.
func WithLimiter(limiter ratelimiter.RateLimiter) HandlerOption {
	return func(h *Handler) {
		h.limiter = limiter
	}
}

// WithLogger sets a custom logger for the handler.
func WithLogger(log *slog.Logger) HandlerOption {
	return func(h *Handler) {
		h.log = log
	}
}

// NewHandler builds the route family for one role.
func NewHandler(role auth.Role, svc *auth.Service, registry *auth.Registry, cookies *cookie.Manager, tokens *jwt.Service, opts ...HandlerOption) *Handler {
	h := &Handler{
		role:     role,
		svc:      svc,
		registry: registry,
		cookies:  cookies,
		tokens:   tokens,
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle returns the chi router for this role.
func (h *Handler) Handle() http.Handler {
	r := chi.NewRouter()

	throttled := func(next http.HandlerFunc) http.Handler {
		if h.limiter == nil {
			return next
		}
		key := ratelimiter.Composite(ratelimiter.KeyByIP, ratelimiter.KeyByPath)
		return ratelimiter.Middleware(h.limiter, key)(next)
	}

	r.Post("/register", h.register)
	r.Method(http.MethodPost, "/login", throttled(h.login))
	r.Get("/check-email/{email}", h.checkEmail)
	r.Get("/check-"+h.idParam()+"/{id}", h.checkExternalID)
	r.Method(http.MethodPost, "/forgot-password", throttled(h.forgotPassword))
	r.Post("/reset-password/{token}", h.resetPassword)
	r.Get("/check-reset-token/{token}", h.checkResetToken)
	r.Post("/verify-otp", h.verifyOTP)
	r.Post("/resend-otp", h.resendOTP)
	r.Get("/protected", h.protected)

	return r
}

func (h *Handler) idParam() string {
	if h.role == auth.RoleTeacher {
		return "teacherId"
	}
	return "studentId"
}

func (h *Handler) verifyCookie() string {
	if h.role == auth.RoleTeacher {
		return teacherVerifyCookie
	}
	return studentVerifyCookie
}

type registerRequest struct {
	Name      string   `json:"name"`
	Email     string   `json:"email"`
	Password  string   `json:"password"`
	StudentID string   `json:"studentId"`
	TeacherID string   `json:"teacherId"`
	Subjects  []string `json:"subjects"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}

	externalID := req.StudentID
	if h.role == auth.RoleTeacher {
		externalID = req.TeacherID
	}

	res, err := h.svc.Register(r.Context(), auth.RegisterInput{
		Name:       req.Name,
		Email:      req.Email,
		Password:   req.Password,
		ExternalID: externalID,
		Subjects:   req.Subjects,
	})
	if err != nil {
		writeError(w, h.log, err, http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"msg":   msgRegistered,
		"token": res.Token,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.log, err, http.StatusBadRequest)
		return
	}

	if res.RequiresOTP {
		h.cookies.Set(w, h.verifyCookie(), res.StepUpToken,
			cookie.WithMaxAge(stepUpCookieMaxAge))
		writeJSON(w, http.StatusOK, map[string]any{
			"msg":       msgOTPSent,
			"token":     res.StepUpToken,
			"expiresAt": res.OTPExpiresAt.UTC().Format(time.RFC3339),
		})
		return
	}

	h.cookies.Set(w, SessionCookie, res.SessionToken,
		cookie.WithMaxAge(sessionCookieMaxAge))
	writeJSON(w, http.StatusOK, map[string]string{
		"msg":   msgLoginSuccess,
		"token": res.SessionToken,
	})
}

func (h *Handler) checkEmail(w http.ResponseWriter, r *http.Request) {
	lookup, err := h.registry.EmailExists(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		writeError(w, h.log, err, http.StatusNotFound)
		return
	}
	if !lookup.Exists {
		writeMsg(w, http.StatusNotFound, msgNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"exists": true,
		"role":   lookup.Role,
	})
}

func (h *Handler) checkExternalID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	lookup, err := h.registry.ExternalIDExists(r.Context(), id)
	if err != nil {
		writeError(w, h.log, err, http.StatusNotFound)
		return
	}
	if lookup.Exists {
		writeJSON(w, http.StatusOK, map[string]any{
			"exists": true,
			"role":   lookup.Role,
		})
		return
	}

	// A name query additionally asks whether the claimed identity would
	// clear the enrollment roster at registration.
	if name := r.URL.Query().Get("name"); name != "" {
		h.checkEnrollment(w, id, name)
		return
	}

	writeMsg(w, http.StatusNotFound, msgNotFound)
}

func (h *Handler) checkEnrollment(w http.ResponseWriter, id, name string) {
	switch h.registry.CheckEnrollment(h.role, id, name) {
	case auth.EnrollmentUnchecked, auth.EnrollmentMatch:
		writeJSON(w, http.StatusOK, map[string]any{
			"msg":     msgEnrollmentMatch,
			"exists":  false,
			"proceed": true,
		})
	case auth.EnrollmentNameMismatch:
		writeJSON(w, http.StatusConflict, map[string]any{
			"msg":     msgEnrollmentMismatch,
			"exists":  false,
			"proceed": false,
		})
	default:
		writeJSON(w, http.StatusNotFound, map[string]any{
			"msg":     msgEnrollmentUnknown,
			"exists":  false,
			"proceed": false,
		})
	}
}

type emailRequest struct {
	Email string `json:"email"`
}

func (h *Handler) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.svc.ForgotPassword(r.Context(), req.Email); err != nil {
		writeError(w, h.log, err, http.StatusBadRequest)
		return
	}
	writeMsg(w, http.StatusOK, msgEmailSent)
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.svc.ResetPassword(r.Context(), chi.URLParam(r, "token"), req.Password); err != nil {
		writeError(w, h.log, err, http.StatusBadRequest)
		return
	}
	writeMsg(w, http.StatusOK, msgPasswordReset)
}

func (h *Handler) checkResetToken(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.CheckResetToken(r.Context(), chi.URLParam(r, "token")); err != nil {
		writeError(w, h.log, err, http.StatusBadRequest)
		return
	}
	writeMsg(w, http.StatusOK, msgValidToken)
}

type verifyOTPRequest struct {
	OTP string `json:"otp"`
}

func (h *Handler) verifyOTP(w http.ResponseWriter, r *http.Request) {
	stepUp, err := bearerToken(r)
	if err != nil {
		writeError(w, h.log, err, http.StatusBadRequest)
		return
	}

	var req verifyOTPRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.svc.VerifyOTP(r.Context(), stepUp, req.OTP)
	if err != nil {
		writeError(w, h.log, err, http.StatusBadRequest)
		return
	}

	h.cookies.Set(w, SessionCookie, res.SessionToken,
		cookie.WithMaxAge(sessionCookieMaxAge))
	h.cookies.Delete(w, h.verifyCookie())
	writeJSON(w, http.StatusOK, map[string]string{
		"msg":   msgOTPVerified,
		"token": res.SessionToken,
	})
}

func (h *Handler) resendOTP(w http.ResponseWriter, r *http.Request) {
	stepUp, err := bearerToken(r)
	if err != nil {
		writeError(w, h.log, err, http.StatusBadRequest)
		return
	}

	res, err := h.svc.ResendOTP(r.Context(), stepUp)
	if err != nil {
		writeError(w, h.log, err, http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"msg":       msgOTPSent,
		"expiresAt": res.OTPExpiresAt.UTC().Format(time.RFC3339),
	})
}

// protected echoes the decoded session claims back, confirming the session
// cookie still holds.
func (h *Handler) protected(w http.ResponseWriter, r *http.Request) {
	raw, err := h.cookies.Get(r, SessionCookie)
	if err != nil {
		writeMsg(w, http.StatusUnauthorized, msgUnauthorized)
		return
	}

	var claims auth.SessionClaims
	if err := h.tokens.Parse(raw, &claims); err != nil {
		writeMsg(w, http.StatusUnauthorized, msgUnauthorized)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":    claims.SubjectID,
		"email": claims.Email,
		"name":  claims.Name,
		"role":  claims.Role,
	})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeMsg(w, http.StatusBadRequest, msgInvalidBody)
		return false
	}
	return true
}

// bearerToken reads the step-up token from the Authorization header. The
// frontend sends the same value it received in the verify cookie.
func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", auth.ErrMissingAuthHeader
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", auth.ErrMalformedAuthHeader
	}
	return parts[1], nil
}
