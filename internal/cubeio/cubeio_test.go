package cubeio

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spectralcube/internal/models"
	"spectralcube/pkg/cube"
	"spectralcube/pkg/grid"
	"spectralcube/pkg/mask"
	"spectralcube/pkg/moments"
)

// createTestFiles writes a 4x3x2 cube with v[z,y,x] = 100z + 10y + x and
// returns the header path.
func createTestFiles(t *testing.T, chunk []int) string {
	t.Helper()
	dir := t.TempDir()
	shape := grid.Shape{4, 3, 2}
	values := make([]float64, 0, shape.Size())
	for z := 0; z < 4; z++ {
		for y := 0; y < 3; y++ {
			for x := 0; x < 2; x++ {
				values = append(values, float64(100*z+10*y+x))
			}
		}
	}
	require.NoError(t, writeValues(filepath.Join(dir, "cube.bin"), values))
	h := &models.Header{
		Shape: []int{4, 3, 2},
		Axes: []models.Axis{
			{CType: "X", CRPix: 1, CDelt: 1},
			{CType: "Y", CRPix: 1, CDelt: 1},
			{CType: "VELO", CUnit: "km/s", CRPix: 1, CDelt: 2, CRVal: 10},
		},
		BUnit: "K",
		Chunk: chunk,
		Data:  "cube.bin",
		Beam:  &models.Beam{Major: 0.1, Minor: 0.05, PA: 30},
		Meta:  map[string]any{"object": "test"},
	}
	path := filepath.Join(dir, "cube.yaml")
	require.NoError(t, WriteHeader(path, h))
	return path
}

func TestHeaderRoundTrip(t *testing.T) {
	path := createTestFiles(t, nil)
	h, err := ReadHeader(path)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 3, 2}, h.Shape)
	assert.Equal(t, "VELO", h.Axes[2].CType)
	assert.Equal(t, 24, h.Size())
	assert.Equal(t, "test", h.Meta["object"])

	w, err := HeaderWCS(h)
	require.NoError(t, err)
	assert.Equal(t, 10.0, w.CRVal[2])
	assert.Nil(t, w.PC)
}

func TestHeaderWCSRejectsMismatch(t *testing.T) {
	h := &models.Header{Shape: []int{2, 2}, Axes: []models.Axis{{CType: "X", CRPix: 1, CDelt: 1}}}
	_, err := HeaderWCS(h)
	require.ErrorIs(t, err, ErrHeader)

	h = &models.Header{
		Shape: []int{2, 2},
		Axes:  []models.Axis{{CType: "X", CRPix: 1, CDelt: 1}, {CType: "Y", CRPix: 1, CDelt: 1}},
		PC:    [][]float64{{1, 0}},
	}
	_, err = HeaderWCS(h)
	require.ErrorIs(t, err, ErrHeader)
}

func TestReadAllAndOpenAgree(t *testing.T) {
	for _, chunk := range [][]int{nil, {3, 2, 1}, {4, 3, 2}} {
		path := createTestFiles(t, chunk)

		all, err := ReadAll(path, "")
		require.NoError(t, err)
		opened, err := Open(path, "")
		require.NoError(t, err)
		t.Cleanup(func() { opened.Close() })

		a, err := all.Data.Read(grid.FullView())
		require.NoError(t, err)
		b, err := opened.Data.Read(grid.FullView())
		require.NoError(t, err)
		assert.Equal(t, a.Data(), b.Data())
		assert.Equal(t, 321.0, b.At(3, 2, 1))

		part, err := opened.Data.Read(grid.View{grid.Span(1, 3), grid.Index(2), grid.All()})
		require.NoError(t, err)
		assert.Equal(t, []float64{120, 121, 220, 221}, part.Data())
	}
}

func TestIngestBuildsCube(t *testing.T) {
	in, err := Open(createTestFiles(t, []int{2, 2, 2}), "")
	require.NoError(t, err)
	defer in.Close()
	c, err := in.Cube()
	require.NoError(t, err)
	assert.Equal(t, "K", c.Unit())
	b, ok := c.Beam()
	require.True(t, ok)
	assert.Equal(t, 30.0, b.PA)
	assert.Equal(t, "test", c.Meta()["object"])

	p, err := c.Moment0(grid.Spectral, moments.Plane)
	require.NoError(t, err)
	// (0 + 100 + 200 + 300 + 4*10y + 4x) * 2 km/s
	assert.InDelta(t, (600.0+40+4)*2, p.At(1, 1), 1e-9)
	assert.Equal(t, "K km / s", p.Unit)
}

func TestOpenRejectsTruncatedData(t *testing.T) {
	path := createTestFiles(t, nil)
	data := filepath.Join(filepath.Dir(path), "cube.bin")
	require.NoError(t, os.Truncate(data, 8*10))

	_, err := Open(path, "")
	require.ErrorIs(t, err, grid.ErrShape)
	_, err = ReadAll(path, "")
	require.ErrorIs(t, err, grid.ErrShape)

	_, err = Open(filepath.Join(filepath.Dir(path), "missing.yaml"), "")
	require.Error(t, err)
}

func TestWriteCubeRoundTrip(t *testing.T) {
	in, err := ReadAll(createTestFiles(t, nil), "")
	require.NoError(t, err)
	c, err := in.Cube()
	require.NoError(t, err)
	masked, err := c.WithMask(mask.GreaterThan(150), true)
	require.NoError(t, err)
	masked = masked.WithFillValue(-1)

	dir := t.TempDir()
	hp, dp := filepath.Join(dir, "out.yaml"), filepath.Join(dir, "data", "out.bin")
	require.NoError(t, WriteCube(masked, hp, dp))

	h, err := ReadHeader(hp)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("data", "out.bin"), h.Data)

	back, err := ReadAll(hp, "")
	require.NoError(t, err)
	d, err := back.Data.Read(grid.FullView())
	require.NoError(t, err)
	assert.Equal(t, -1.0, d.At(1, 0, 0))
	assert.Equal(t, 200.0, d.At(2, 0, 0))
	assert.Equal(t, "K", back.Unit)
	require.NotNil(t, back.Beam)
	assert.Equal(t, 0.1, back.Beam.Major)
}

func TestWriteCubeBeamTable(t *testing.T) {
	in, err := ReadAll(createTestFiles(t, nil), "")
	require.NoError(t, err)
	beams := []cube.Beam{{Major: 1, Minor: 1}, {Major: 2, Minor: 1}, {Major: 3, Minor: 1}, {Major: 4, Minor: 1}}
	c, err := in.Cube(cube.WithBeams(beams))
	require.NoError(t, err)

	dir := t.TempDir()
	hp := filepath.Join(dir, "vr.yaml")
	require.NoError(t, WriteCube(c, hp, filepath.Join(dir, "vr.bin")))
	back, err := ReadAll(hp, "")
	require.NoError(t, err)
	assert.Nil(t, back.Beam)
	assert.Equal(t, beams, back.Beams)

	rc, err := back.Cube()
	require.NoError(t, err)
	assert.True(t, rc.VaryingResolution())
}

func TestWriteProjectionRoundTrip(t *testing.T) {
	in, err := ReadAll(createTestFiles(t, nil), "")
	require.NoError(t, err)
	c, err := in.Cube()
	require.NoError(t, err)
	p, err := c.Max(grid.Spectral)
	require.NoError(t, err)

	dir := t.TempDir()
	hp, dp := filepath.Join(dir, "max.yaml"), filepath.Join(dir, "max.bin")
	require.NoError(t, WriteProjection(p, hp, dp))
	back, err := ReadProjection(hp, "")
	require.NoError(t, err)
	assert.Equal(t, []int{3, 2}, back.Shape)
	assert.Equal(t, p.Data, back.Data)
	require.NotNil(t, back.WCS)
	assert.Equal(t, []string{"X", "Y"}, back.WCS.CType)

	total, err := c.Sum()
	require.NoError(t, err)
	require.NoError(t, WriteProjection(total, hp, dp))
	back, err = ReadProjection(hp, "")
	require.NoError(t, err)
	assert.Equal(t, []int{1}, back.Shape)
	assert.False(t, math.IsNaN(back.Value()))
}
