package output

import (
	"sync"
)

// Notifier shows transient feedback after a mutation settles
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// Toast prints notifications to the current writer
type Toast struct{}

// Success prints a green confirmation
func (Toast) Success(msg string) {
	Success.Fprintf(Writer(), "✓ %s\n", msg)
}

// Error prints a red failure
func (Toast) Error(msg string) {
	Failure.Fprintf(Writer(), "✗ %s\n", msg)
}

// Notification is one message captured by a Recorder
type Notification struct {
	Level   string
	Message string
}

// Recorder keeps notifications in memory
type Recorder struct {
	mu   sync.Mutex
	list []Notification
}

// Success records a success message
func (r *Recorder) Success(msg string) {
	r.add("success", msg)
}

// Error records an error message
func (r *Recorder) Error(msg string) {
	r.add("error", msg)
}

func (r *Recorder) add(level, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.list = append(r.list, Notification{Level: level, Message: msg})
}

// All returns a copy of the recorded notifications
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.list...)
}

// Last returns the most recent notification
func (r *Recorder) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.list) == 0 {
		return Notification{}, false
	}
	return r.list[len(r.list)-1], true
}
