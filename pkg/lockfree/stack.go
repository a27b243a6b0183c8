// Package lockfree provides lock-free data structures used by the object pool
package lockfree

import (
	"sync/atomic"
)

// Stack is a lock-free LIFO multiset (Treiber stack).
//
// Every Push allocates a fresh node, so a node is never reused while another
// goroutine may still hold a pointer to it. The garbage collector keeps
// popped nodes alive for as long as they are referenced, which rules out the
// ABA problem that plagues manual-memory Treiber stacks.
//
// The zero value is an empty stack ready for use.
type Stack[T any] struct {
	head atomic.Pointer[node[T]]
	size atomic.Int64
}

type node[T any] struct {
	value T
	next  *node[T]
}

// NewStack creates an empty stack.
func NewStack[T any]() *Stack[T] {
	return &Stack[T]{}
}

// Push adds v to the top of the stack. Safe for concurrent producers.
func (s *Stack[T]) Push(v T) {
	n := &node[T]{value: v}
	for {
		old := s.head.Load()
		n.next = old
		if s.head.CompareAndSwap(old, n) {
			s.size.Add(1)
			return
		}
	}
}

// Pop removes and returns the top element.
// Returns the zero value and false if the stack is empty.
func (s *Stack[T]) Pop() (T, bool) {
	for {
		old := s.head.Load()
		if old == nil {
			var zero T
			return zero, false
		}
		if s.head.CompareAndSwap(old, old.next) {
			s.size.Add(-1)
			return old.value, true
		}
	}
}

// Drain atomically detaches every element and returns them, top first.
// Elements pushed concurrently with Drain either land in the result or stay
// on the stack; none are lost.
func (s *Stack[T]) Drain() []T {
	old := s.head.Swap(nil)
	var out []T
	for n := old; n != nil; n = n.next {
		out = append(out, n.value)
	}
	s.size.Add(-int64(len(out)))
	return out
}

// Len returns the number of elements on the stack.
// This is an approximation in concurrent scenarios.
func (s *Stack[T]) Len() int {
	n := s.size.Load()
	if n < 0 {
		return 0
	}
	return int(n)
}

// IsEmpty returns true if the stack is empty.
// This check is atomic but may be stale in concurrent scenarios.
func (s *Stack[T]) IsEmpty() bool {
	return s.head.Load() == nil
}

// Counter counts events that only ever increase, such as objects built or
// checkouts refused. The zero value is ready for use.
type Counter struct {
	n atomic.Int64
}

// Inc records one event.
func (c *Counter) Inc() {
	c.n.Add(1)
}

// Load returns the number of events recorded so far.
func (c *Counter) Load() int64 {
	return c.n.Load()
}
