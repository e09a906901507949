package lazy

import (
	"bytes"
	"errors"
	"math"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spectralcube/internal/observability"
	"spectralcube/pkg/grid"
	"spectralcube/pkg/mask"
)

// createTestCube returns a 4x3x5 ramp with one NaN voxel at (1, 1, 1).
func createTestCube() *grid.Dense {
	d := grid.FromFunc(grid.Shape{4, 3, 5}, func(z, y, x int) float64 {
		return float64(z*100 + y*10 + x)
	})
	d.Set(1, 1, 1, math.NaN())
	return d
}

type failingArray struct {
	grid.Array
}

var errRead = errors.New("read failed")

func (failingArray) Read(grid.View) (*grid.Dense, error) { return nil, errRead }

func TestFilledViewSubstitutesFill(t *testing.T) {
	d := createTestCube()
	keep := grid.TrueBool(grid.Shape{4, 1, 1})
	keep.Data()[3] = false
	f := &FilledView{Data: d, Mask: mask.FromBool(keep), Fill: -1}

	got, err := f.Read(grid.FullView())
	require.NoError(t, err)
	valid, err := f.Valid(grid.FullView())
	require.NoError(t, err)
	for z := 0; z < 4; z++ {
		for y := 0; y < 3; y++ {
			for x := 0; x < 5; x++ {
				raw := d.At(z, y, x)
				if z == 3 || (z == 1 && y == 1 && x == 1) {
					assert.Equal(t, -1.0, got.At(z, y, x))
					assert.False(t, valid.At(z, y, x))
					continue
				}
				assert.Equal(t, raw, got.At(z, y, x))
				assert.True(t, valid.At(z, y, x))
			}
		}
	}

	flat, err := f.Flattened(grid.Ray(grid.Spectral, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, []float64{11, 211}, flat)

	// The mask alone keeps the NaN voxel.
	inc, err := f.Include(grid.Ray(grid.Spectral, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, 3, inc.Count())
}

func TestFilledViewWithoutMask(t *testing.T) {
	f := &FilledView{Data: createTestCube(), Fill: 0}
	n, err := f.Valid(grid.FullView())
	require.NoError(t, err)
	assert.Equal(t, 4*3*5-1, n.Count())
	assert.Equal(t, 7.0, f.WithFill(7).Fill)
	assert.Equal(t, 0.0, f.Fill)
}

func TestReduceAlongMatchesDirectSum(t *testing.T) {
	d := createTestCube()
	src := &FilledView{Data: d, Fill: 0}
	e := &Executor{Workers: 3, TileSize: 2}
	sum := func(ray []float64, _ []bool, _, _ int) float64 {
		s := 0.0
		for _, v := range ray {
			s += v
		}
		return s
	}

	for _, axis := range []grid.Axis{grid.Spectral, grid.Lat, grid.Lon} {
		got, err := e.ReduceAlong("test", src, axis, sum)
		require.NoError(t, err)
		want := d.Shape()
		want[axis] = 1
		require.Equal(t, want, got.Shape())

		o1, o2 := axis.Others()
		for p := 0; p < d.Shape()[o1]; p++ {
			for q := 0; q < d.Shape()[o2]; q++ {
				exp := 0.0
				for i := 0; i < d.Shape()[axis]; i++ {
					if v := d.At(axis.Place(i, p, q)); !math.IsNaN(v) {
						exp += v
					}
				}
				assert.Equal(t, exp, got.At(axis.Place(0, p, q)), "axis %v at (%d, %d)", axis, p, q)
			}
		}
	}
}

func TestReduceAlongPropagatesErrors(t *testing.T) {
	src := Dense{Array: failingArray{Array: createTestCube()}}
	_, err := NewExecutor(2).ReduceAlong("test", src, grid.Spectral, func([]float64, []bool, int, int) float64 { return 0 })
	require.ErrorIs(t, err, errRead)
}

func TestAccumulate(t *testing.T) {
	for _, workers := range []int{1, 3, 8, 20} {
		e := &Executor{Workers: workers}
		got, err := Accumulate(e, "test", 10, func(i int) (int, error) { return i, nil },
			func(a, b int) int { return a + b })
		require.NoError(t, err)
		assert.Equal(t, 45, got)
	}

	boom := errors.New("boom")
	_, err := Accumulate(NewExecutor(4), "test", 10, func(i int) (int, error) {
		if i == 7 {
			return 0, boom
		}
		return i, nil
	}, func(a, b int) int { return a + b })
	require.ErrorIs(t, err, boom)
}

func TestMapBlocksWholeAxis(t *testing.T) {
	d := grid.FromFunc(grid.Shape{6, 5, 7}, func(z, y, x int) float64 { return float64(z + y*10 + x*100) })
	e := &Executor{Workers: 2, TileSize: 2}
	var calls atomic.Int32
	m := e.MapBlocks("test", d, []grid.Axis{grid.Spectral}, func(b *grid.Dense, v grid.View) (*grid.Dense, error) {
		calls.Add(1)
		if b.Shape()[0] != 6 {
			return nil, errors.New("spectral axis split")
		}
		out := b.Clone()
		for i, x := range out.Data() {
			out.Data()[i] = 2 * x
		}
		return out, nil
	})
	assert.Equal(t, d.Shape(), m.Shape())

	v := grid.View{grid.Span(1, 4), grid.Index(3), grid.Strided(1, 6, 2)}
	got, err := m.Read(v)
	require.NoError(t, err)
	want, err := d.Read(v)
	require.NoError(t, err)
	for i := range want.Data() {
		assert.Equal(t, 2*want.Data()[i], got.Data()[i])
	}
	// y=3 lies in one tile, x in {1, 3, 5} spans three.
	assert.Equal(t, int32(3), calls.Load())
}

func TestMaterializeWarnsWhenLarge(t *testing.T) {
	prev := *observability.Logger()
	defer observability.SetLogger(prev)
	var buf bytes.Buffer
	observability.SetLogger(zerolog.New(&buf))

	d := createTestCube()
	e := &Executor{WarnThreshold: 10}
	got, err := e.Materialize("test", d)
	require.NoError(t, err)
	assert.Equal(t, d.Shape(), got.Shape())
	assert.Contains(t, buf.String(), observability.WarnLargeMaterialize)

	got.Set(0, 0, 0, 42)
	assert.Equal(t, 0.0, d.At(0, 0, 0))

	buf.Reset()
	_, err = (&Executor{}).Materialize("test", d)
	require.NoError(t, err)
	assert.Empty(t, buf.String())
}

func TestMemoComputesOnceForDataAndMask(t *testing.T) {
	d := createTestCube()
	var calls atomic.Int32
	computed := NewDeferred(d.Shape(), func(v grid.View) (*grid.Dense, error) {
		calls.Add(1)
		return d.Read(v)
	})
	memo := NewMemo(computed, 0)
	finite := mask.FromPredicate(func(v float64) bool { return !math.IsNaN(v) })
	f := &FilledView{Data: memo, Mask: finite.Bind(memo), Fill: -1}

	v := grid.View{grid.All(), grid.Span(1, 3), grid.All()}
	got, valid, err := f.ReadValid(v)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 0, memo.Len())
	assert.False(t, valid.At(1, 0, 1))
	assert.Equal(t, -1.0, got.At(1, 0, 1))
	assert.Equal(t, d.At(2, 1, 3), got.At(2, 0, 3))

	// Callers own their blocks.
	a, err := memo.Read(v)
	require.NoError(t, err)
	a.Set(0, 0, 0, 1e9)
	b, err := memo.Read(v)
	require.NoError(t, err)
	assert.Equal(t, d.At(0, 1, 0), b.At(0, 0, 0))
	assert.Equal(t, int32(2), calls.Load())
}

func TestMemoIsBounded(t *testing.T) {
	d := createTestCube()
	memo := NewMemo(d, 2)
	for z := 0; z < 4; z++ {
		_, err := memo.Read(grid.Plane(grid.Spectral, z))
		require.NoError(t, err)
	}
	assert.Equal(t, 2, memo.Len())

	_, err := NewMemo(failingArray{d}, 0).Read(grid.FullView())
	require.ErrorIs(t, err, errRead)
}
