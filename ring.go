package main

import (
	"github.com/DeterminateSystems/vecrotate/vecrotate"
)

// Ring is a fixed-size FIFO queue with overwrite-on-full semantics.
type Ring[T any] struct {
	seq      *vecrotate.VecRotate[T]
	capacity int
}

func (r *Ring[T]) MarshalJSON() ([]byte, error) {
	return r.seq.MarshalJSON()
}

// NewRing creates a ring with the given capacity.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		panic("capacity must be > 0")
	}
	return &Ring[T]{
		seq:      vecrotate.New(make([]T, 0, capacity)),
		capacity: capacity,
	}
}

func (r *Ring[T]) Cap() int {
	return r.capacity
}

func (r *Ring[T]) Len() int {
	return r.seq.Len()
}

// Push appends x; if full, it overwrites (and evicts) the oldest element.
func (r *Ring[T]) Push(x T) {
	if r.seq.Len() < r.capacity {
		r.seq.Push(x)
		return
	}

	// The oldest slot becomes the newest once the view moves past it.
	r.seq.Set(0, x)
	r.seq.ShiftBackward(1)
}

// At returns the i-th element in logical order [0..Len()-1],
// where 0 is the oldest and Len()-1 is the newest.
func (r *Ring[T]) At(i int) T {
	if i < 0 || i >= r.Len() {
		panic("index out of range")
	}
	return r.seq.Get(i)
}

// Slices returns a view of the data in logical order as two slices.
// Join them if you really need one contiguous slice.
func (r *Ring[T]) Slices() (a, b []T) {
	if r.Len() == 0 {
		return nil, nil
	}
	return r.seq.Slices()
}

// Slice returns a copy of the data in logical order.
func (r *Ring[T]) Slice() []T {
	return r.seq.Slice()
}
