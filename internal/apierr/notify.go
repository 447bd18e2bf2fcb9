package apierr

import (
	"fmt"
	"io"
	"sync"
)

// Notifier shows a transient message to the user.
type Notifier interface {
	Notify(msg string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(msg string)

// Notify implements Notifier.
func (f NotifierFunc) Notify(msg string) { f(msg) }

// Discard drops every message.
var Discard Notifier = NotifierFunc(func(string) {})

// WriterNotifier prints each message as one line to W.
type WriterNotifier struct {
	W      io.Writer
	Format func(msg string) string
}

// Notify implements Notifier.
func (n WriterNotifier) Notify(msg string) {
	if n.Format != nil {
		msg = n.Format(msg)
	}
	_, _ = fmt.Fprintln(n.W, msg)
}

// Recorder collects messages; safe for concurrent use.
type Recorder struct {
	mu   sync.Mutex
	msgs []string
}

// Notify implements Notifier.
func (r *Recorder) Notify(msg string) {
	r.mu.Lock()
	r.msgs = append(r.msgs, msg)
	r.mu.Unlock()
}

// Messages returns a copy of the recorded messages.
func (r *Recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.msgs))
	copy(out, r.msgs)
	return out
}
