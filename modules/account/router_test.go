package account_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patshala/backend/auth"
	"github.com/patshala/backend/modules/account"
	"github.com/patshala/backend/pkg/cookie"
	"github.com/patshala/backend/pkg/jwt"
	"github.com/patshala/backend/pkg/ratelimiter"
	"github.com/patshala/backend/roster"
)

const signingKey = "0123456789abcdef0123456789abcdef"

// fakeStore is an in-memory auth.PrincipalStore for end-to-end route tests.
type fakeStore struct {
	mu      sync.Mutex
	records map[string]*auth.Principal
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]*auth.Principal)}
}

func (s *fakeStore) Create(_ context.Context, p *auth.Principal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[p.Email]; ok {
		return auth.ErrDuplicateEmail
	}
	for _, existing := range s.records {
		if existing.ExternalID == p.ExternalID {
			return auth.ErrDuplicateExternalID
		}
	}
	cp := *p
	s.records[p.Email] = &cp
	return nil
}

func (s *fakeStore) GetByEmail(_ context.Context, email string) (*auth.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.records[email]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *fakeStore) GetByExternalID(_ context.Context, externalID string) (*auth.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.records {
		if p.ExternalID == externalID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (s *fakeStore) GetByResetDigest(_ context.Context, digest string) (*auth.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.records {
		if p.ResetTokenDigest != nil && *p.ResetTokenDigest == digest {
			cp := *p
			return &cp, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (s *fakeStore) Update(_ context.Context, p *auth.Principal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[p.Email]; !ok {
		return auth.ErrNotFound
	}
	cp := *p
	s.records[p.Email] = &cp
	return nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []auth.Notification
}

func (n *recordingNotifier) Notify(_ context.Context, notification auth.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification)
	return nil
}

func (n *recordingNotifier) last(t *testing.T) auth.Notification {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.sent)
	return n.sent[len(n.sent)-1]
}

type env struct {
	router   http.Handler
	notifier *recordingNotifier
}

func newEnv(t *testing.T, opts ...account.HandlerOption) *env {
	return newEnvWithRoster(t, nil, opts...)
}

func newEnvWithRoster(t *testing.T, dir *roster.Directory, opts ...account.HandlerOption) *env {
	t.Helper()

	tokens, err := jwt.New(signingKey)
	require.NoError(t, err)

	students := newFakeStore()
	teachers := newFakeStore()
	var registryOpts []auth.RegistryOption
	if dir != nil {
		registryOpts = append(registryOpts, auth.WithRoster(auth.RoleStudent, dir))
	}
	registry := auth.NewRegistry(students, teachers, registryOpts...)
	notifier := &recordingNotifier{}
	cookies := cookie.New()

	studentSvc := auth.NewService(auth.RoleStudent, students, registry, tokens, notifier)
	teacherSvc := auth.NewService(auth.RoleTeacher, teachers, registry, tokens, notifier)

	return &env{
		router: account.Router(account.RouterOptions{
			Students: account.NewHandler(auth.RoleStudent, studentSvc, registry, cookies, tokens, opts...),
			Teachers: account.NewHandler(auth.RoleTeacher, teacherSvc, registry, cookies, tokens, opts...),
		}),
		notifier: notifier,
	}
}

func (e *env) do(t *testing.T, method, path string, body any, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, m := range mutate {
		m(req)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func cookieValue(rec *httptest.ResponseRecorder, name string) string {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func registerBody() map[string]any {
	return map[string]any{
		"name":      "Ravi Kumar",
		"email":     "ravi@example.com",
		"password":  "secret123",
		"studentId": "EN001",
	}
}

func TestAccountFlow(t *testing.T) {
	t.Parallel()

	e := newEnv(t)

	// Register.
	rec := e.do(t, http.MethodPost, "/students/register", registerBody())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotEmpty(t, decodeBody(t, rec)["token"])

	// Duplicate registration conflicts, naming the holder's role.
	rec = e.do(t, http.MethodPost, "/students/register", registerBody())
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Student with this email already exists", decodeBody(t, rec)["msg"])

	// A teacher cannot claim the same email.
	rec = e.do(t, http.MethodPost, "/teachers/register", map[string]any{
		"name":      "Anita Sharma",
		"email":     "ravi@example.com",
		"password":  "secret123",
		"teacherId": "T001",
		"subjects":  []string{"Mathematics"},
	})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Student with this email already exists", decodeBody(t, rec)["msg"])

	// First login lands in the OTP step.
	rec = e.do(t, http.MethodPost, "/students/login", map[string]any{
		"email":    "ravi@example.com",
		"password": "secret123",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, "OTP sent to your email", body["msg"])
	stepUp := body["token"].(string)
	require.NotEmpty(t, stepUp)
	assert.Equal(t, stepUp, cookieValue(rec, "studentVerifyToken"))

	code := e.notifier.last(t).Data[auth.DataCode]
	require.Len(t, code, 6)

	// Verify needs the bearer header.
	rec = e.do(t, http.MethodPost, "/students/verify-otp", map[string]any{"otp": code})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodPost, "/students/verify-otp", map[string]any{"otp": code},
		func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+stepUp) })
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body = decodeBody(t, rec)
	assert.Equal(t, "OTP verified successfully", body["msg"])
	session := body["token"].(string)
	require.NotEmpty(t, session)
	assert.Equal(t, session, cookieValue(rec, "token"))

	// Second login goes straight to a session.
	rec = e.do(t, http.MethodPost, "/students/login", map[string]any{
		"email":    "ravi@example.com",
		"password": "secret123",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Login successful", decodeBody(t, rec)["msg"])

	// Protected echoes the session claims.
	rec = e.do(t, http.MethodGet, "/students/protected", nil,
		func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "token", Value: session}) })
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	assert.Equal(t, "ravi@example.com", body["email"])
	assert.Equal(t, "student", body["role"])

	rec = e.do(t, http.MethodGet, "/students/protected", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAccountLoginErrors(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	rec := e.do(t, http.MethodPost, "/students/register", registerBody())
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = e.do(t, http.MethodPost, "/students/login", map[string]any{
		"email":    "missing@example.com",
		"password": "secret123",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid Credentials! Email is incorrect.", decodeBody(t, rec)["email"])

	rec = e.do(t, http.MethodPost, "/students/login", map[string]any{
		"email":    "ravi@example.com",
		"password": "wrongpass",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid Credentials! Password is incorrect.", decodeBody(t, rec)["password"])
}

func TestAccountChecks(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	rec := e.do(t, http.MethodPost, "/students/register", registerBody())
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = e.do(t, http.MethodGet, "/students/check-email/ravi@example.com", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["exists"])
	assert.Equal(t, "student", body["role"])

	rec = e.do(t, http.MethodGet, "/students/check-email/nobody@example.com", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(t, http.MethodGet, "/students/check-studentId/EN001", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodGet, "/students/check-studentId/EN999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAccountCheckEnrollment(t *testing.T) {
	t.Parallel()

	dir := roster.New([]roster.Entry{
		{Enrollment: "EN001", Name: "Ravi Kumar"},
		{Enrollment: "EN002", Name: "Priya Mohan Nair"},
	})
	e := newEnvWithRoster(t, dir)

	// Matching name, partial form allowed.
	rec := e.do(t, http.MethodGet, "/students/check-studentId/EN002?name=Priya+Nair", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["exists"])
	assert.Equal(t, true, body["proceed"])

	// Right ID, wrong name.
	rec = e.do(t, http.MethodGet, "/students/check-studentId/EN002?name=Someone+Else", nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	body = decodeBody(t, rec)
	assert.Equal(t, false, body["proceed"])

	// ID not on the roster at all.
	rec = e.do(t, http.MethodGet, "/students/check-studentId/EN404?name=Priya+Nair", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, false, decodeBody(t, rec)["proceed"])

	// A registered ID still reports the holder, name query or not.
	rec = e.do(t, http.MethodPost, "/students/register", registerBody())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = e.do(t, http.MethodGet, "/students/check-studentId/EN001?name=Ravi+Kumar", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["exists"])
}

func TestAccountPasswordReset(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	rec := e.do(t, http.MethodPost, "/students/register", registerBody())
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = e.do(t, http.MethodPost, "/students/forgot-password", map[string]any{
		"email": "ravi@example.com",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Email sent", decodeBody(t, rec)["msg"])

	resetURL := e.notifier.last(t).Data[auth.DataResetURL]
	token := resetURL[strings.LastIndex(resetURL, "/")+1:]
	require.NotEmpty(t, token)

	rec = e.do(t, http.MethodGet, "/students/check-reset-token/"+token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Valid token", decodeBody(t, rec)["msg"])

	rec = e.do(t, http.MethodPost, "/students/reset-password/"+token, map[string]any{
		"password": "newsecret456",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Password reset successful", decodeBody(t, rec)["msg"])

	// Token is spent.
	rec = e.do(t, http.MethodGet, "/students/check-reset-token/"+token, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// Unknown email on the check read is a 400 in the flow.
	rec = e.do(t, http.MethodPost, "/students/forgot-password", map[string]any{
		"email": "missing@example.com",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAccountRateLimit(t *testing.T) {
	t.Parallel()

	bucket, err := ratelimiter.NewBucket(ratelimiter.NewMemoryStore(), ratelimiter.Config{
		Capacity:       2,
		RefillRate:     1,
		RefillInterval: time.Minute,
	})
	require.NoError(t, err)

	e := newEnv(t, account.WithLimiter(bucket))
	rec := e.do(t, http.MethodPost, "/students/register", registerBody())
	require.Equal(t, http.StatusCreated, rec.Code)

	login := map[string]any{"email": "ravi@example.com", "password": "wrongpass"}
	for i := 0; i < 2; i++ {
		rec = e.do(t, http.MethodPost, "/students/login", login)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	}

	rec = e.do(t, http.MethodPost, "/students/login", login)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
