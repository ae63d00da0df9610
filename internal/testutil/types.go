package testutil

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Common test errors
var (
	ErrTest            = errors.New("test error")
	ErrConstructor     = errors.New("constructor error")
	ErrDisposal        = errors.New("disposal error")
	ErrAlreadyDisposed = errors.New("already disposed")
)

// Counter counts provider invocations. It is safe for concurrent use.
type Counter struct {
	n atomic.Int64
}

// Inc increments the counter and returns the new value.
func (c *Counter) Inc() int {
	return int(c.n.Add(1))
}

// Value returns the current count.
func (c *Counter) Value() int {
	return int(c.n.Load())
}

// TestService is a basic test service with a unique ID.
type TestService struct {
	ID   string
	Data string
}

// NewTestService creates a new test service
func NewTestService() *TestService {
	return &TestService{
		ID:   uuid.NewString(),
		Data: "test",
	}
}

// TestLogger is a test logger interface
type TestLogger interface {
	Log(msg string)
	GetLogs() []string
}

// TestLoggerImpl implements TestLogger
type TestLoggerImpl struct {
	logs []string
	mu   sync.Mutex
}

func NewTestLogger() TestLogger {
	return &TestLoggerImpl{}
}

func (l *TestLoggerImpl) Log(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logs = append(l.logs, msg)
}

func (l *TestLoggerImpl) GetLogs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.logs))
	copy(out, l.logs)
	return out
}

// DisposalRecorder records the order in which TestDisposables are closed.
type DisposalRecorder struct {
	mu    sync.Mutex
	order []string
}

// Record appends name to the disposal order.
func (r *DisposalRecorder) Record(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = append(r.order, name)
}

// Order returns the names in the order they were closed.
func (r *DisposalRecorder) Order() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// TestDisposable is a test type that implements Close() error
type TestDisposable struct {
	Name         string
	recorder     *DisposalRecorder
	disposed     bool
	disposeError error
	mu           sync.Mutex
}

// NewTestDisposable creates a disposable that reports to recorder (may be nil).
func NewTestDisposable(name string, recorder *DisposalRecorder) *TestDisposable {
	return &TestDisposable{
		Name:     name,
		recorder: recorder,
	}
}

// NewTestDisposableWithError creates a disposable whose Close fails with err.
func NewTestDisposableWithError(name string, recorder *DisposalRecorder, err error) *TestDisposable {
	return &TestDisposable{
		Name:         name,
		recorder:     recorder,
		disposeError: err,
	}
}

func (s *TestDisposable) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return ErrAlreadyDisposed
	}

	s.disposed = true
	if s.recorder != nil {
		s.recorder.Record(s.Name)
	}
	return s.disposeError
}

func (s *TestDisposable) IsDisposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}
