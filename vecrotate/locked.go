package vecrotate

import "sync"

// Locked guards a VecRotate with a single mutex. Every index stays valid
// only while the rotation offset and length are consistent with the backing
// slice, so there is no finer-grained locking.
type Locked[T any] struct {
	mu  sync.Mutex
	seq *VecRotate[T]
}

// NewLocked returns a Locked that takes ownership of items.
func NewLocked[T any](items []T) *Locked[T] {
	return &Locked[T]{seq: New(items)}
}

// Do runs f with the lock held. f must not retain v or slices aliasing it.
func (l *Locked[T]) Do(f func(v *VecRotate[T])) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.seq == nil {
		l.seq = &VecRotate[T]{}
	}
	f(l.seq)
}

func (l *Locked[T]) IsEmpty() (empty bool) {
	l.Do(func(v *VecRotate[T]) { empty = v.IsEmpty() })
	return
}

func (l *Locked[T]) Len() (n int) {
	l.Do(func(v *VecRotate[T]) { n = v.Len() })
	return
}

func (l *Locked[T]) ShiftForward(steps uint) {
	l.Do(func(v *VecRotate[T]) { v.ShiftForward(steps) })
}

func (l *Locked[T]) ShiftBackward(steps uint) {
	l.Do(func(v *VecRotate[T]) { v.ShiftBackward(steps) })
}

func (l *Locked[T]) Get(i int) (x T) {
	l.Do(func(v *VecRotate[T]) { x = v.Get(i) })
	return
}

func (l *Locked[T]) Set(i int, x T) {
	l.Do(func(v *VecRotate[T]) { v.Set(i, x) })
}

func (l *Locked[T]) IndexViaArray(indices []int) (out []T) {
	l.Do(func(v *VecRotate[T]) { out = v.IndexViaArray(indices) })
	return
}

func (l *Locked[T]) UpdateViaArray(indices []int, values []T) {
	l.Do(func(v *VecRotate[T]) { v.UpdateViaArray(indices, values) })
}

func (l *Locked[T]) Push(x T) {
	l.Do(func(v *VecRotate[T]) { v.Push(x) })
}

func (l *Locked[T]) Extend(xs ...T) {
	l.Do(func(v *VecRotate[T]) { v.Extend(xs...) })
}

// Slice returns a copy of the sequence in logical order.
func (l *Locked[T]) Slice() (out []T) {
	l.Do(func(v *VecRotate[T]) { out = v.Slice() })
	return
}

func (l *Locked[T]) String() (s string) {
	l.Do(func(v *VecRotate[T]) { s = v.String() })
	return
}

func (l *Locked[T]) MarshalJSON() (data []byte, err error) {
	l.Do(func(v *VecRotate[T]) { data, err = v.MarshalJSON() })
	return
}
