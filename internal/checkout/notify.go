package checkout

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelError   Level = "error"
)

type Notification struct {
	Level   Level     `json:"level"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

type Notifier interface {
	Notify(Notification)
}

// Feed buffers notifications until the UI drains them. Oldest entries are
// dropped once max is reached.
type Feed struct {
	mu  sync.Mutex
	buf []Notification
	max int
	log *zap.Logger
}

func NewFeed(max int, log *zap.Logger) *Feed {
	if max <= 0 {
		max = 50
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Feed{max: max, log: log}
}

func (f *Feed) Notify(n Notification) {
	if n.At.IsZero() {
		n.At = time.Now().UTC()
	}
	f.log.Debug("notification", zap.String("level", string(n.Level)), zap.String("title", n.Title), zap.String("message", n.Message))
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buf = append(f.buf, n)
	if over := len(f.buf) - f.max; over > 0 {
		f.buf = append([]Notification(nil), f.buf[over:]...)
	}
}

func (f *Feed) Drain() []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.buf
	f.buf = nil
	return out
}

func (f *Feed) Peek() []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Notification(nil), f.buf...)
}
