package goDesk

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// Level is the severity of a user notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
)

// Duration returns how long a notification of this level stays visible.
func (l Level) Duration() time.Duration {
	switch l {
	case LevelSuccess, LevelWarning:
		return 5 * time.Second
	case LevelError:
		return 7 * time.Second
	default:
		return 3 * time.Second
	}
}

// Notification is a transient, user-visible message (a toast).
type Notification struct {
	ID        string        `json:"id"`
	Level     Level         `json:"level"`
	Message   string        `json:"message"`
	Duration  time.Duration `json:"duration"`
	Timestamp time.Time     `json:"timestamp"`
	// Status is the HTTP status that produced the notification, 0 for network errors.
	Status int    `json:"status,omitempty"`
	Path   string `json:"path,omitempty"`
}

// Notifier receives user notifications produced by the Client.
//
// Notify is called from request goroutines, or from a single dispatcher goroutine when
// NotifyConfig.Async is set. Implementations must be safe for concurrent use.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// NotifierFunc adapts a function to [Notifier].
type NotifierFunc func(ctx context.Context, n Notification)

func (f NotifierFunc) Notify(ctx context.Context, n Notification) { f(ctx, n) }

// NoOpNotifier drops notifications.
type NoOpNotifier struct{}

func (NoOpNotifier) Notify(context.Context, Notification) {}

// ChannelNotifier writes notifications into a buffered channel. When the buffer is full
// the notification is dropped and counted; Notify never blocks.
type ChannelNotifier struct {
	notifications chan Notification
	dropped       atomic.Uint64
}

func NewChannelNotifier(buffer int) *ChannelNotifier {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelNotifier{
		notifications: make(chan Notification, buffer),
	}
}

func (s *ChannelNotifier) Notify(_ context.Context, n Notification) {
	select {
	case s.notifications <- n:
	default:
		s.dropped.Add(1)
	}
}

// Dropped returns how many notifications found the buffer full.
func (s *ChannelNotifier) Dropped() uint64 {
	return s.dropped.Load()
}

func (s *ChannelNotifier) Notifications() <-chan Notification {
	return s.notifications
}

// JSONWriterNotifier writes one JSON object per line.
type JSONWriterNotifier struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterNotifier(w io.Writer) *JSONWriterNotifier {
	return &JSONWriterNotifier{
		writer: w,
	}
}

func (s *JSONWriterNotifier) Notify(_ context.Context, n Notification) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(n)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}
