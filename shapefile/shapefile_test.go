package shapefile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `
rulePackage: rules/extrusion.rpk
encoder: com.forma3d.codecs.CallbackEncoder
shapes:
  - vertices: [0, 0, 0, 0, 0, 100, 100, 0, 100, 100, 0, 0]
  - vertices: [0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0]
    indices: [0, 1, 2, 0, 2, 3]
    faceCounts: [3, 3]
  - file: footprints/candler.obj
attributes:
  - ruleFile: bin/extrusion.cgb
    startRule: Default$Generate
    seed: 1234
    minHeight: 10.5
`

func TestParseSample(t *testing.T) {
	doc, err := Parse([]byte(sampleDoc))
	require.NoError(t, err)

	assert.Equal(t, "rules/extrusion.rpk", doc.RulePackage)
	assert.Equal(t, "com.forma3d.codecs.CallbackEncoder", doc.Encoder)

	shapes := doc.InitialShapes()
	require.Len(t, shapes, 3)
	assert.Equal(t, []uint32{0, 1, 2, 3}, shapes[0].Indices())
	assert.Equal(t, []uint32{3, 3}, shapes[1].FaceCounts())
	assert.True(t, shapes[2].FromFile())
	assert.Equal(t, "footprints/candler.obj", shapes[2].Path())

	attrs := doc.AttributeSets()
	require.Len(t, attrs, 1)
	assert.Equal(t, 1234, attrs[0]["seed"])
	assert.Equal(t, 10.5, attrs[0]["minHeight"])
}

func TestParseNoShapes(t *testing.T) {
	_, err := Parse([]byte("attributes: []"))
	require.Error(t, err)
}

func TestParseShapeWithBothGeometryAndFile(t *testing.T) {
	doc := `
shapes:
  - vertices: [0, 0, 0]
    file: a.obj
`
	_, err := Parse([]byte(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one")
}

func TestParseShapeWithNeither(t *testing.T) {
	_, err := Parse([]byte("shapes:\n  - {}\n"))
	require.Error(t, err)
}

func TestParseIndicesWithoutFaceCounts(t *testing.T) {
	doc := `
shapes:
  - vertices: [0, 0, 0, 1, 0, 0, 1, 1, 0]
    indices: [0, 1, 2]
`
	_, err := Parse([]byte(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "faceCounts")
}

func TestParseFileShapeWithTopology(t *testing.T) {
	doc := `
shapes:
  - file: a.obj
    indices: [0, 1, 2]
    faceCounts: [3]
`
	_, err := Parse([]byte(doc))
	require.Error(t, err)
}

func TestAttributeSetsDefault(t *testing.T) {
	doc, err := Parse([]byte("shapes:\n  - file: a.obj\n"))
	require.NoError(t, err)

	attrs := doc.AttributeSets()
	require.Len(t, attrs, 1)
	assert.Empty(t, attrs[0])
}
