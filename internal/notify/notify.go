package notify

import (
	"github.com/sirupsen/logrus"
)

// Notifier surfaces transient per-attempt feedback to the user: a loading
// line when an action starts and exactly one terminal line when it ends.
type Notifier interface {
	Begin(message string) Handle
}

// Handle finishes one notification. Calling Success or Error more than once
// is a no-op: an attempt surfaces a single terminal notification. Dismiss
// closes a superseded attempt without a terminal line, so its loading
// message is never left dangling.
type Handle interface {
	Success(message string)
	Error(message string)
	Dismiss()
}

type logNotifier struct{}

// NewLogNotifier reports through logrus, the CLI's stand-in for toasts.
func NewLogNotifier() Notifier {
	return &logNotifier{}
}

func (n *logNotifier) Begin(message string) Handle {
	logrus.Info(message)
	return &logHandle{}
}

type logHandle struct {
	done bool
}

func (h *logHandle) Success(message string) {
	if h.done {
		return
	}
	h.done = true
	logrus.Info(message)
}

func (h *logHandle) Error(message string) {
	if h.done {
		return
	}
	h.done = true
	logrus.Error(message)
}

func (h *logHandle) Dismiss() {
	if h.done {
		return
	}
	h.done = true
	logrus.Debug("superseded by a newer request")
}
