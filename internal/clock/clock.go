// Package clock abstracts time so the rate limiter, key rotator, and retry
// pipeline can be tested without real sleeps. It re-exports
// github.com/benbjohnson/clock rather than hand-rolling a mock timer.
package clock

import "github.com/benbjohnson/clock"

// Clock is the time source used by the rate limiter, key rotator, and retry
// pipeline. Run/Job *_at fields are stamped from the same injected Clock
// (Now().UTC()), which is the wall clock in production.
type Clock = clock.Clock

// Mock is a manually-advanced Clock for deterministic tests.
type Mock = clock.Mock

// New returns the production Clock backed by the standard library.
func New() Clock { return clock.New() }

// NewMock returns a Clock whose Now() is fixed until advanced by the test.
func NewMock() *Mock { return clock.NewMock() }
