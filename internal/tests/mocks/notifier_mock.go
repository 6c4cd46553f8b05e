package mocks

import (
	"sync"

	"ragdesk/internal/notify"
)

// NotifierMock records every notification so tests can assert that an
// action surfaced exactly one loading and one terminal message.
type NotifierMock struct {
	mu        sync.Mutex
	Begun     []string
	Successes []string
	Errors    []string
	Dismissed int
}

func (m *NotifierMock) Begin(message string) notify.Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Begun = append(m.Begun, message)
	return &notifierMockHandle{parent: m}
}

type notifierMockHandle struct {
	parent *NotifierMock
	done   bool
}

func (h *notifierMockHandle) Success(message string) {
	h.parent.mu.Lock()
	defer h.parent.mu.Unlock()
	if h.done {
		return
	}
	h.done = true
	h.parent.Successes = append(h.parent.Successes, message)
}

func (h *notifierMockHandle) Error(message string) {
	h.parent.mu.Lock()
	defer h.parent.mu.Unlock()
	if h.done {
		return
	}
	h.done = true
	h.parent.Errors = append(h.parent.Errors, message)
}

func (h *notifierMockHandle) Dismiss() {
	h.parent.mu.Lock()
	defer h.parent.mu.Unlock()
	if h.done {
		return
	}
	h.done = true
	h.parent.Dismissed++
}
