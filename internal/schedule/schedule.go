// Package schedule produces the triangular backoff sequence used between
// outer-loop retries (spec.md §4.D):
//
//	min, min+inc, …, max, max-inc, …, min, …
//
// repeating for as long as the caller asks for another value. The sequence
// must reset at the start of every top-level acquire — spec.md calls this
// out explicitly as a regression to guard against, so Scheduler is a small
// stateful type rather than a free function, and Reset is its own method
// with its own test.
//
// Grounded on the shape of the teacher's backoffInterval in
// internal/lock/acquire.go (a small pure function parameterized by attempt
// count), generalized from "exponential with jitter, capped" to the
// triangular walk the spec requires and given explicit, testable state
// instead of an implicit attempt counter threaded in from outside.
package schedule

import "time"

// Scheduler produces the triangular sleep sequence for one acquire's
// backoff phase.
type Scheduler struct {
	min, max, inc time.Duration
	current       time.Duration
	rising        bool
	started       bool
}

// New builds a Scheduler. min must be <= max and inc must be > 0; neither
// Scheduler nor its caller (acquire, which passes LockConfig's values
// through as they are) checks that, keeping this a pure sequence
// generator.
func New(min, max, inc time.Duration) *Scheduler {
	return &Scheduler{min: min, max: max, inc: inc}
}

// Reset returns the scheduler to its pre-first-call state, so the next
// Next() call yields min again. Call this at the start of every top-level
// acquire attempt.
func (s *Scheduler) Reset() {
	s.started = false
	s.current = 0
	s.rising = false
}

// Next returns the next sleep duration in the triangular sequence.
func (s *Scheduler) Next() time.Duration {
	if !s.started {
		s.started = true
		s.current = s.min
		s.rising = true
		return s.current
	}

	if s.rising {
		next := s.current + s.inc
		if next >= s.max {
			s.current = s.max
			s.rising = false
		} else {
			s.current = next
		}
		return s.current
	}

	next := s.current - s.inc
	if next <= s.min {
		s.current = s.min
		s.rising = true
	} else {
		s.current = next
	}
	return s.current
}
