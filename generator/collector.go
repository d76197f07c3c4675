package generator

import (
	"sync"

	"github.com/forma3d/forma/attrmap"
)

// partial accumulates callback data for one shape index.
type partial struct {
	seen       bool
	vertices   []float64
	indices    []uint32
	faceCounts []uint32
	report     Report
}

// ResultCollector is the callback sink for one in-memory generation run.
// It is an arena of per-index partial results addressed by shape index, so
// draining order is deterministic (ascending index) regardless of callback
// arrival order. The engine may fire callbacks from its worker goroutines;
// a mutex serializes them. Out-of-range indices are dropped.
type ResultCollector struct {
	mu     sync.Mutex
	states []partial
}

// NewResultCollector returns a collector sized to the number of initial
// shapes in the generation request.
func NewResultCollector(shapeCount int) *ResultCollector {
	return &ResultCollector{states: make([]partial, shapeCount)}
}

// AddGeometry stores or overwrites the geometry for a shape index. The
// per-face index groups are flattened into a combined index sequence plus
// a per-face count sequence, preserving face order and winding.
func (c *ResultCollector) AddGeometry(shapeIndex int, vertices []float64, faces [][]uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if shapeIndex < 0 || shapeIndex >= len(c.states) {
		return
	}
	st := &c.states[shapeIndex]
	st.seen = true

	st.vertices = append([]float64(nil), vertices...)
	st.indices = st.indices[:0]
	st.faceCounts = st.faceCounts[:0]
	for _, face := range faces {
		st.indices = append(st.indices, face...)
		st.faceCounts = append(st.faceCounts, uint32(len(face)))
	}
}

// AddReports merges the three typed report maps into the accumulated
// report for a shape index. Later values overwrite earlier ones per key.
func (c *ResultCollector) AddReports(shapeIndex int, floats map[string]float64, texts map[string]string, flags map[string]bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if shapeIndex < 0 || shapeIndex >= len(c.states) {
		return
	}
	st := &c.states[shapeIndex]
	st.seen = true

	if st.report == nil {
		st.report = make(Report)
	}
	for k, v := range floats {
		st.report[k] = attrmap.Float(v)
	}
	for k, v := range texts {
		st.report[k] = attrmap.Text(v)
	}
	for k, v := range flags {
		st.report[k] = attrmap.Flag(v)
	}
}

// AddIndex marks a shape index as part of the result set even when the
// engine produced no geometry or report for it.
func (c *ResultCollector) AddIndex(shapeIndex int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if shapeIndex < 0 || shapeIndex >= len(c.states) {
		return
	}
	c.states[shapeIndex].seen = true
}

// Models drains the collector into one GeneratedModel per shape index in
// ascending order. Indices the engine never touched are omitted unless
// keepUntouched is set, in which case they yield geometry-less models.
func (c *ResultCollector) Models(keepUntouched bool) []GeneratedModel {
	c.mu.Lock()
	defer c.mu.Unlock()

	models := make([]GeneratedModel, 0, len(c.states))
	for idx := range c.states {
		st := &c.states[idx]
		if !st.seen && !keepUntouched {
			continue
		}
		models = append(models, GeneratedModel{
			index:      idx,
			vertices:   st.vertices,
			indices:    st.indices,
			faceCounts: st.faceCounts,
			report:     st.report,
		})
	}
	return models
}
