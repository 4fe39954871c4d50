package pipeline

import (
	"fmt"
	"sync"
)

// ErrorDomain groups element errors by the subsystem that failed.
type ErrorDomain int

// Error domains.
const (
	DomainCore ErrorDomain = iota + 1
	DomainLibrary
	DomainResource
	DomainStream
)

func (d ErrorDomain) String() string {
	switch d {
	case DomainCore:
		return "core"
	case DomainLibrary:
		return "library"
	case DomainResource:
		return "resource"
	case DomainStream:
		return "stream"
	}
	return "unknown"
}

// ErrorCode is a domain specific error code.
type ErrorCode int

// Error codes, meaningful together with their domain.
const (
	CodeFailed ErrorCode = iota + 1
	CodeRead
	CodeWrite
	CodeNotFound
	CodeDecode
	CodeFormat
	CodeNegotiation
)

func (c ErrorCode) String() string {
	switch c {
	case CodeFailed:
		return "failed"
	case CodeRead:
		return "read"
	case CodeWrite:
		return "write"
	case CodeNotFound:
		return "not-found"
	case CodeDecode:
		return "decode"
	case CodeFormat:
		return "format"
	case CodeNegotiation:
		return "negotiation"
	}
	return "unknown"
}

// ElementError is a fatal condition reported by an element. It stops the
// data flow of the pipeline that owns the bus.
type ElementError struct {
	Source  string
	Domain  ErrorDomain
	Code    ErrorCode
	Message string
	Debug   string
}

func (e *ElementError) Error() string {
	msg := fmt.Sprintf("%s: %s/%s: %s", e.Source, e.Domain, e.Code, e.Message)
	if e.Debug != "" {
		msg += " (" + e.Debug + ")"
	}
	return msg
}

// Bus collects element errors for the application.
type Bus struct {
	mu     sync.Mutex
	errs   []*ElementError
	notify chan struct{}
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{notify: make(chan struct{}, 1)}
}

// Post queues err and wakes a waiter.
func (b *Bus) Post(err *ElementError) {
	b.mu.Lock()
	b.errs = append(b.errs, err)
	b.mu.Unlock()

	select {
	case b.notify <- struct{}{}:
	default:
	}
}

// Pop removes the oldest queued error.
func (b *Bus) Pop() (*ElementError, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.errs) == 0 {
		return nil, false
	}
	err := b.errs[0]
	b.errs = b.errs[1:]
	return err, true
}

// Errors returns the queued errors without removing them.
func (b *Bus) Errors() []*ElementError {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*ElementError(nil), b.errs...)
}

// Notify is signaled after each Post.
func (b *Bus) Notify() <-chan struct{} {
	return b.notify
}
