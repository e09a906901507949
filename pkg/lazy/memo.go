package lazy

import (
	"fmt"
	"runtime"
	"slices"
	"sync"

	"golang.org/x/sync/singleflight"

	"spectralcube/pkg/grid"
)

// DefaultMemoBlocks is the smallest default bound on the blocks a Memo
// holds at once.
const DefaultMemoBlocks = 16

// Memo wraps an array whose reads are computed, such as a Deferred. A block
// computed for a view is kept until that view is read once more, so the data
// read of a FilledView and the evaluation of a predicate mask bound to the
// same array compute the block once. Concurrent reads of one view share a
// single computation. Every caller gets its own copy.
type Memo struct {
	arr   grid.Array
	limit int

	group singleflight.Group

	mu     sync.Mutex
	blocks map[grid.View]*grid.Dense
	order  []grid.View // oldest first
}

// NewMemo returns a memo over arr holding at most limit blocks. Non-positive
// limit means two blocks per CPU, and at least DefaultMemoBlocks.
func NewMemo(arr grid.Array, limit int) *Memo {
	if limit <= 0 {
		limit = max(DefaultMemoBlocks, 2*runtime.NumCPU())
	}
	return &Memo{arr: arr, limit: limit, blocks: make(map[grid.View]*grid.Dense)}
}

func (m *Memo) Shape() grid.Shape { return m.arr.Shape() }

// Len returns the number of blocks held.
func (m *Memo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.blocks)
}

func (m *Memo) Read(view grid.View) (*grid.Dense, error) {
	v, err := view.Normalize(m.arr.Shape())
	if err != nil {
		return nil, err
	}
	if d, ok := m.take(v); ok {
		return d, nil
	}
	res, err, shared := m.group.Do(fmt.Sprint(v), func() (any, error) {
		return m.arr.Read(v)
	})
	if err != nil {
		return nil, err
	}
	d := res.(*grid.Dense)
	if shared {
		return d.Clone(), nil
	}
	m.put(v, d.Clone())
	return d, nil
}

func (m *Memo) take(v grid.View) (*grid.Dense, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.blocks[v]
	if !ok {
		return nil, false
	}
	delete(m.blocks, v)
	if i := slices.Index(m.order, v); i >= 0 {
		m.order = slices.Delete(m.order, i, i+1)
	}
	return d, true
}

func (m *Memo) put(v grid.View, d *grid.Dense) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blocks[v]; ok {
		return
	}
	for len(m.order) >= m.limit {
		delete(m.blocks, m.order[0])
		m.order = m.order[1:]
	}
	m.blocks[v] = d
	m.order = append(m.order, v)
}
