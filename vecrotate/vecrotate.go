// Package vecrotate provides a sequence that rotates in O(1) time.
//
// A VecRotate never moves its elements to rotate. It keeps a logical start
// offset into its backing slice instead, and translates every logical index
// to a physical one on access.
package vecrotate

import (
	"encoding/json"
	"fmt"
	"iter"
	"slices"
	"strings"
)

// VecRotate is a vector that can be rotated without changing place in
// memory. The zero value is an empty sequence ready to use.
//
// A VecRotate is not safe for concurrent use; see Locked.
type VecRotate[T any] struct {
	items  []T
	start  int
	length int
}

// New returns a VecRotate that takes ownership of items. The caller must not
// use items afterwards.
func New[T any](items []T) *VecRotate[T] {
	return &VecRotate[T]{items: items, length: len(items)}
}

// From returns a VecRotate holding a copy of items.
func From[T any](items []T) *VecRotate[T] {
	return New(slices.Clone(items))
}

func (v *VecRotate[T]) IsEmpty() bool {
	return v.length == 0
}

func (v *VecRotate[T]) Len() int {
	return v.length
}

// ShiftForward rotates the view forward by steps places: the last steps
// elements move to the front. [1 2 3 4 5] shifted forward by 2 is
// [4 5 1 2 3]. Empty sequences are left alone.
func (v *VecRotate[T]) ShiftForward(steps uint) {
	if v.IsEmpty() {
		return
	}
	shift := int(steps % uint(v.length))
	if shift > v.start {
		v.start = v.length - (shift - v.start)
	} else {
		v.start -= shift
	}
}

// ShiftBackward is the inverse of ShiftForward: the first steps elements
// move to the back. [1 2 3 4 5] shifted backward by 2 is [3 4 5 1 2].
func (v *VecRotate[T]) ShiftBackward(steps uint) {
	if v.IsEmpty() {
		return
	}
	idx := v.start + int(steps%uint(v.length))
	if idx < v.length {
		v.start = idx
	} else {
		v.start = idx - v.length
	}
}

// physical maps logical index i onto the backing slice.
func (v *VecRotate[T]) physical(i int) int {
	if i < 0 || i >= v.length {
		panic(fmt.Sprintf("vecrotate: index %d out of range [0:%d]", i, v.length))
	}
	tail := v.length - v.start
	if i < tail {
		return v.start + i
	}
	return i - tail
}

// Get returns the element at logical index i. It panics if i is out of
// range.
func (v *VecRotate[T]) Get(i int) T {
	return v.items[v.physical(i)]
}

// Set replaces the element at logical index i. It panics if i is out of
// range.
func (v *VecRotate[T]) Set(i int, x T) {
	v.items[v.physical(i)] = x
}

// IndexViaArray returns the elements at each of the given logical indices,
// in the order given. Indices may repeat.
func (v *VecRotate[T]) IndexViaArray(indices []int) []T {
	out := make([]T, len(indices))
	for n, i := range indices {
		out[n] = v.Get(i)
	}
	return out
}

// UpdateViaArray sets indices[n] to values[n] for every n present in both
// slices. Extra entries in either slice are ignored.
func (v *VecRotate[T]) UpdateViaArray(indices []int, values []T) {
	for n := range min(len(indices), len(values)) {
		v.Set(indices[n], values[n])
	}
}

// Push appends x as the new logical last element.
func (v *VecRotate[T]) Push(x T) {
	v.Extend(x)
}

// Extend appends xs after the logical last element, keeping their order.
//
// The new elements are inserted physically just before the start offset and
// the offset is moved past them. With an unrotated view that is a plain
// append.
func (v *VecRotate[T]) Extend(xs ...T) {
	if len(xs) == 0 {
		return
	}
	if v.start == 0 {
		v.items = append(v.items, xs...)
	} else {
		v.items = slices.Insert(v.items, v.start, xs...)
		v.start += len(xs)
	}
	v.length += len(xs)
}

// Slices returns the sequence in logical order as two views of the backing
// slice. They alias the sequence and are invalidated by Push and Extend.
func (v *VecRotate[T]) Slices() (a, b []T) {
	return v.items[v.start:v.length], v.items[:v.start]
}

// Slice returns a fresh copy of the sequence in logical order.
func (v *VecRotate[T]) Slice() []T {
	a, b := v.Slices()

	out := make([]T, 0, v.length)
	out = append(out, a...)
	out = append(out, b...)

	return out
}

// All yields logical index/element pairs in logical order.
func (v *VecRotate[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i := range v.length {
			if !yield(i, v.Get(i)) {
				return
			}
		}
	}
}

// Values yields the elements in logical order.
func (v *VecRotate[T]) Values() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, x := range v.All() {
			if !yield(x) {
				return
			}
		}
	}
}

// Clone returns a copy of v with its own backing slice and the same
// rotation.
func (v *VecRotate[T]) Clone() *VecRotate[T] {
	return &VecRotate[T]{
		items:  slices.Clone(v.items),
		start:  v.start,
		length: v.length,
	}
}

func (v *VecRotate[T]) String() string {
	return fmt.Sprint(v.Slice())
}

func (v *VecRotate[T]) GoString() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%T{", v)
	for i, x := range v.All() {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%#v", x)
	}
	sb.WriteString("}")
	return sb.String()
}

func (v *VecRotate[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Slice())
}

// UnmarshalJSON replaces the contents with a JSON array. The decoded
// elements are stored unrotated.
func (v *VecRotate[T]) UnmarshalJSON(data []byte) error {
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	*v = VecRotate[T]{items: items, length: len(items)}
	return nil
}
