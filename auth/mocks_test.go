package auth

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockPrincipalStore is a mock implementation of PrincipalStore.
type MockPrincipalStore struct {
	mock.Mock
}

func (m *MockPrincipalStore) Create(ctx context.Context, p *Principal) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockPrincipalStore) GetByEmail(ctx context.Context, email string) (*Principal, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Principal), args.Error(1)
}

func (m *MockPrincipalStore) GetByExternalID(ctx context.Context, externalID string) (*Principal, error) {
	args := m.Called(ctx, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Principal), args.Error(1)
}

func (m *MockPrincipalStore) GetByResetDigest(ctx context.Context, digest string) (*Principal, error) {
	args := m.Called(ctx, digest)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Principal), args.Error(1)
}

func (m *MockPrincipalStore) Update(ctx context.Context, p *Principal) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

// MockNotifier is a mock implementation of Notifier.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, n Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

// memStore is an in-memory PrincipalStore with the same uniqueness and
// copy-on-read semantics as the mongo store, used for flow tests that walk
// through several operations.
type memStore struct {
	mu      sync.Mutex
	records map[string]*Principal // keyed by lowercase email
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]*Principal)}
}

func (s *memStore) Create(_ context.Context, p *Principal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[p.Email]; ok {
		return ErrDuplicateEmail
	}
	for _, existing := range s.records {
		if existing.ExternalID == p.ExternalID {
			return ErrDuplicateExternalID
		}
	}
	s.records[p.Email] = clonePrincipal(p)
	return nil
}

func (s *memStore) GetByEmail(_ context.Context, email string) (*Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.records[email]
	if !ok {
		return nil, ErrNotFound
	}
	return clonePrincipal(p), nil
}

func (s *memStore) GetByExternalID(_ context.Context, externalID string) (*Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.records {
		if p.ExternalID == externalID {
			return clonePrincipal(p), nil
		}
	}
	return nil, ErrNotFound
}

func (s *memStore) GetByResetDigest(_ context.Context, digest string) (*Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.records {
		if p.ResetTokenDigest != nil && *p.ResetTokenDigest == digest {
			return clonePrincipal(p), nil
		}
	}
	return nil, ErrNotFound
}

func (s *memStore) Update(_ context.Context, p *Principal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[p.Email]; !ok {
		return ErrNotFound
	}
	s.records[p.Email] = clonePrincipal(p)
	return nil
}

func clonePrincipal(p *Principal) *Principal {
	cp := *p
	cp.PasswordHash = append([]byte(nil), p.PasswordHash...)
	cp.Subjects = append([]string(nil), p.Subjects...)
	cp.OTP = cloneStr(p.OTP)
	cp.OTPExpiresAt = cloneTime(p.OTPExpiresAt)
	cp.StepUpToken = cloneStr(p.StepUpToken)
	cp.ResetTokenDigest = cloneStr(p.ResetTokenDigest)
	cp.ResetExpiresAt = cloneTime(p.ResetExpiresAt)
	return &cp
}

func cloneStr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// captureNotifier records notifications in order. FailWith makes every
// subsequent Notify return that error.
type captureNotifier struct {
	mu   sync.Mutex
	sent []Notification
	err  error
}

func (n *captureNotifier) Notify(_ context.Context, notification Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, notification)
	return nil
}

func (n *captureNotifier) FailWith(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.err = err
}

func (n *captureNotifier) Sent() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notification(nil), n.sent...)
}

func (n *captureNotifier) Last() (Notification, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		return Notification{}, false
	}
	return n.sent[len(n.sent)-1], true
}

// fakeClock is a manual time source shared between the service and the OTP
// generator in tests.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Now()}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}
