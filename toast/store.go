// Package toast keeps the list of transient notifications a UI renders.
//
// [Store] implements goDesk.Notifier, so it can be handed straight to
// goDesk.Builder.WithNotifier. Toasts with a positive duration remove themselves when it
// elapses; a zero duration keeps the toast until Remove or ClearAll.
package toast

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	goDesk "github.com/MrEthical07/goDesk"
)

// Toast is one visible notification.
type Toast struct {
	ID        string        `json:"id"`
	Level     goDesk.Level  `json:"type"`
	Message   string        `json:"message"`
	Duration  time.Duration `json:"duration,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// Store is a concurrency-safe, ordered toast list.
type Store struct {
	mu       sync.Mutex
	toasts   []Toast
	timers   map[string]*time.Timer
	onChange func([]Toast)
	now      func() time.Time
}

var _ goDesk.Notifier = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithOnChange registers fn to receive a copy of the list after every change. fn runs
// without the store lock held and may be called from timer goroutines.
func WithOnChange(fn func([]Toast)) Option {
	return func(s *Store) { s.onChange = fn }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore returns an empty Store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		timers: make(map[string]*time.Timer),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add appends a toast and returns its ID. A positive duration schedules its removal.
func (s *Store) Add(level goDesk.Level, message string, duration time.Duration) string {
	return s.add(uuid.NewString(), level, message, duration)
}

func (s *Store) add(id string, level goDesk.Level, message string, duration time.Duration) string {
	t := Toast{
		ID:        id,
		Level:     level,
		Message:   message,
		Duration:  duration,
		Timestamp: s.now(),
	}

	s.mu.Lock()
	s.toasts = append(s.toasts, t)
	if duration > 0 {
		s.timers[id] = time.AfterFunc(duration, func() { s.Remove(id) })
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.changed(snapshot)
	return id
}

// Remove deletes the toast with id. Unknown IDs are ignored.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	idx := -1
	for i, t := range s.toasts {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	s.toasts = append(s.toasts[:idx], s.toasts[idx+1:]...)
	if timer, ok := s.timers[id]; ok {
		timer.Stop()
		delete(s.timers, id)
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.changed(snapshot)
}

// ClearAll removes every toast and cancels pending removals.
func (s *Store) ClearAll() {
	s.mu.Lock()
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
	s.toasts = nil
	s.mu.Unlock()

	s.changed(nil)
}

// Success adds a success toast with the level's default duration.
func (s *Store) Success(message string) string {
	return s.Add(goDesk.LevelSuccess, message, goDesk.LevelSuccess.Duration())
}

// Error adds an error toast with the level's default duration.
func (s *Store) Error(message string) string {
	return s.Add(goDesk.LevelError, message, goDesk.LevelError.Duration())
}

// Warning adds a warning toast with the level's default duration.
func (s *Store) Warning(message string) string {
	return s.Add(goDesk.LevelWarning, message, goDesk.LevelWarning.Duration())
}

// Info adds an info toast with the level's default duration.
func (s *Store) Info(message string) string {
	return s.Add(goDesk.LevelInfo, message, goDesk.LevelInfo.Duration())
}

// Toasts returns a copy of the current list, oldest first.
func (s *Store) Toasts() []Toast {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Notify implements goDesk.Notifier. The notification ID is kept so client logs and the
// visible toast correlate.
func (s *Store) Notify(_ context.Context, n goDesk.Notification) {
	id := n.ID
	if id == "" {
		id = uuid.NewString()
	}
	s.add(id, n.Level, n.Message, n.Duration)
}

func (s *Store) snapshotLocked() []Toast {
	if len(s.toasts) == 0 {
		return nil
	}
	return append([]Toast(nil), s.toasts...)
}

func (s *Store) changed(snapshot []Toast) {
	if s.onChange != nil {
		s.onChange(snapshot)
	}
}
