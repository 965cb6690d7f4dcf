package vecrotate

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockedMirrorsVecRotate(t *testing.T) {
	t.Parallel()

	l := NewLocked([]int{1, 2, 3, 4, 5})
	require.False(t, l.IsEmpty())

	l.ShiftForward(2)
	assert.Equal(t, []int{4, 5, 1, 2, 3}, l.Slice())
	l.ShiftBackward(2)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, l.Slice())

	l.Push(6)
	l.Extend(7, 8)
	assert.Equal(t, 8, l.Len())
	assert.Equal(t, 8, l.Get(7))

	l.Set(0, 10)
	l.UpdateViaArray([]int{1, 2}, []int{20, 30})
	assert.Equal(t, []int{10, 20, 30}, l.IndexViaArray([]int{0, 1, 2}))
	assert.Equal(t, "[10 20 30 4 5 6 7 8]", l.String())

	data, err := json.Marshal(l)
	require.NoError(t, err)
	assert.Equal(t, "[10,20,30,4,5,6,7,8]", string(data))
}

func TestLockedZeroValue(t *testing.T) {
	t.Parallel()

	var l Locked[string]
	assert.True(t, l.IsEmpty())
	l.ShiftForward(4)
	l.Push("a")
	assert.Equal(t, []string{"a"}, l.Slice())
}

func TestLockedDoIsAtomic(t *testing.T) {
	t.Parallel()

	const workers = 8
	const rounds = 500

	l := NewLocked([]int{0, 1, 2, 3, 4, 5, 6})
	firsts := make([][]int, workers)

	wg := &sync.WaitGroup{}
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range rounds {
				l.Do(func(v *VecRotate[int]) {
					firsts[w] = append(firsts[w], v.Get(0))
					v.ShiftBackward(1)
				})
			}
		}()
	}
	wg.Wait()

	counts := map[int]int{}
	for _, fs := range firsts {
		for _, f := range fs {
			counts[f]++
		}
	}

	// 4000 rotations over 7 elements: every element leads 571 or 572 times.
	total := 0
	for x := range 7 {
		assert.InDelta(t, workers*rounds/7, counts[x], 1, "element %d", x)
		total += counts[x]
	}
	assert.Equal(t, workers*rounds, total)
	assert.Equal(t, []int{3, 4, 5, 6, 0, 1, 2}, l.Slice())
}
