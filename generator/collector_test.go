package generator

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorFlattensFaces(t *testing.T) {
	c := NewResultCollector(1)
	c.AddGeometry(0,
		[]float64{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0},
		[][]uint32{{0, 1, 2}, {0, 2, 3}})

	models := c.Models(false)
	require.Len(t, models, 1)
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3}, models[0].Indices())
	assert.Equal(t, []uint32{3, 3}, models[0].FaceCounts())
}

func TestCollectorGeometryOverwrite(t *testing.T) {
	c := NewResultCollector(1)
	c.AddGeometry(0, []float64{0, 0, 0}, [][]uint32{{0}})
	c.AddGeometry(0, []float64{1, 1, 1, 2, 2, 2}, [][]uint32{{0, 1}})

	models := c.Models(false)
	require.Len(t, models, 1)
	assert.Equal(t, []float64{1, 1, 1, 2, 2, 2}, models[0].Vertices())
	assert.Equal(t, []uint32{2}, models[0].FaceCounts())
}

func TestCollectorReportMerge(t *testing.T) {
	c := NewResultCollector(1)
	c.AddReports(0,
		map[string]float64{"height": 12.5, "area": 100},
		map[string]string{"style": "brick"},
		nil)
	c.AddReports(0,
		map[string]float64{"height": 15.0},
		nil,
		map[string]bool{"landmark": true})

	models := c.Models(false)
	require.Len(t, models, 1)
	rep := models[0].Report()

	// Later value wins for the overlapping key.
	h, ok := rep["height"].AsFloat()
	require.True(t, ok)
	assert.Equal(t, 15.0, h)

	// Earlier keys not present in the later call are retained.
	a, ok := rep["area"].AsFloat()
	require.True(t, ok)
	assert.Equal(t, 100.0, a)
	s, ok := rep["style"].AsText()
	require.True(t, ok)
	assert.Equal(t, "brick", s)
	b, ok := rep["landmark"].AsFlag()
	require.True(t, ok)
	assert.True(t, b)
}

func TestCollectorCallbackOrderIrrelevant(t *testing.T) {
	// Reports before geometry, interleaved across indices.
	c := NewResultCollector(2)
	c.AddReports(1, map[string]float64{"n": 1}, nil, nil)
	c.AddIndex(0)
	c.AddGeometry(1, []float64{0, 0, 0}, [][]uint32{{0}})

	models := c.Models(false)
	require.Len(t, models, 2)
	assert.Equal(t, 0, models[0].InitialShapeIndex())
	assert.Empty(t, models[0].Vertices())
	assert.Equal(t, 1, models[1].InitialShapeIndex())
	assert.NotEmpty(t, models[1].Vertices())
	assert.NotNil(t, models[1].Report())
}

func TestCollectorIndexOnly(t *testing.T) {
	c := NewResultCollector(3)
	c.AddIndex(1)

	models := c.Models(false)
	require.Len(t, models, 1)
	assert.Equal(t, 1, models[0].InitialShapeIndex())
	assert.Empty(t, models[0].Vertices())
	assert.Empty(t, models[0].Report())
}

func TestCollectorKeepUntouched(t *testing.T) {
	c := NewResultCollector(3)
	c.AddIndex(1)

	models := c.Models(true)
	require.Len(t, models, 3)
	for i, m := range models {
		assert.Equal(t, i, m.InitialShapeIndex())
	}
}

func TestCollectorOutOfRangeDropped(t *testing.T) {
	c := NewResultCollector(1)
	c.AddGeometry(5, []float64{0, 0, 0}, nil)
	c.AddReports(-1, map[string]float64{"n": 1}, nil, nil)
	c.AddIndex(99)

	assert.Empty(t, c.Models(false))
}

func TestCollectorConcurrentCallbacks(t *testing.T) {
	// The engine may fire callbacks from worker goroutines.
	const shapes = 8
	c := NewResultCollector(shapes)

	var wg sync.WaitGroup
	for i := 0; i < shapes; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			c.AddIndex(idx)
			c.AddGeometry(idx, []float64{float64(idx), 0, 0}, [][]uint32{{0}})
			c.AddReports(idx, map[string]float64{"idx": float64(idx)}, nil, nil)
		}(i)
	}
	wg.Wait()

	models := c.Models(false)
	require.Len(t, models, shapes)
	for i, m := range models {
		assert.Equal(t, i, m.InitialShapeIndex())
		v, _ := m.Report()["idx"].AsFloat()
		assert.Equal(t, float64(i), v)
	}
}
