package wasm

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forma3d/forma/attrmap"
	"github.com/forma3d/forma/engine"
)

func TestWireMapRoundTrip(t *testing.T) {
	m := attrmap.Map{
		"ruleFile": attrmap.Text("bin/extrusion.cgb"),
		"height":   attrmap.Float(12.5),
		"seed":     attrmap.Int(666),
		"landmark": attrmap.Flag(true),
	}

	wire := toWireMap(m)
	back := fromWireMap(wire)

	assert.Equal(t, m, back)
}

func TestWireMapSurvivesJSON(t *testing.T) {
	m := attrmap.Map{"seed": attrmap.Int(7), "name": attrmap.Text("Lot")}

	data, err := json.Marshal(toWireMap(m))
	require.NoError(t, err)

	var decoded map[string]wireValue
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, m, fromWireMap(decoded))
}

func TestEnvelopeStatusErr(t *testing.T) {
	assert.NoError(t, envelope{Status: 0}.statusErr())

	err := envelope{Status: int(engine.StatusRuleError), Message: "rule exploded"}.statusErr()
	require.Error(t, err)

	var statusErr *engine.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, engine.StatusRuleError, statusErr.Code)
	assert.Equal(t, "rule exploded", statusErr.Description)
}

func TestUnpackPtrLen(t *testing.T) {
	ptr, length := unpackPtrLen(uint64(0x12345678)<<32 | 0x9ABC)
	assert.Equal(t, uint32(0x12345678), ptr)
	assert.Equal(t, uint32(0x9ABC), length)

	ptr, length = unpackPtrLen(0)
	assert.Zero(t, ptr)
	assert.Zero(t, length)
}

func TestFileEventBase64(t *testing.T) {
	// []byte fields travel base64-encoded through encoding/json.
	ev := fileEvent{Name: "model_0.obj", Data: []byte("v 0 0 0\n")}
	data, err := json.Marshal(ev)
	require.NoError(t, err)

	var back fileEvent
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, ev, back)
}

func TestFileSinkWritesInsideDirectory(t *testing.T) {
	dir := t.TempDir()
	sink := &FileSink{dir: dir}

	require.NoError(t, sink.writeFile("../escape.obj", []byte("v 0 0 0\n")))

	// Path components are stripped, the file lands inside the sink dir.
	_, err := os.Stat(filepath.Join(dir, "escape.obj"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(filepath.Dir(dir), "escape.obj"))
	assert.True(t, os.IsNotExist(err))
}

func TestShapeBuilderRejectsMalformedGeometry(t *testing.T) {
	b := (&Runtime{}).NewShapeBuilder()

	err := b.SetGeometry([]float64{0, 0}, nil, nil)
	require.Error(t, err)

	err = b.SetGeometry([]float64{0, 0, 0, 1, 0, 0, 1, 1, 0}, []uint32{0, 1, 2}, []uint32{4})
	require.Error(t, err)

	err = b.SetGeometry([]float64{0, 0, 0, 1, 0, 0, 1, 1, 0}, []uint32{0, 1, 5}, []uint32{3})
	require.Error(t, err)

	var statusErr *engine.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, engine.StatusInvalidGeometry, statusErr.Code)

	require.NoError(t, b.SetGeometry([]float64{0, 0, 0, 1, 0, 0, 1, 1, 0}, []uint32{0, 1, 2}, []uint32{3}))
}
