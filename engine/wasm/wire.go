package wasm

import (
	"github.com/forma3d/forma/attrmap"
	"github.com/forma3d/forma/engine"
)

// wireValue is the JSON form of an attrmap.Value.
type wireValue struct {
	Kind  string  `json:"kind"`
	Text  string  `json:"text,omitempty"`
	Float float64 `json:"float,omitempty"`
	Int   int64   `json:"int,omitempty"`
	Flag  bool    `json:"flag,omitempty"`
}

func toWireMap(m attrmap.Map) map[string]wireValue {
	out := make(map[string]wireValue, len(m))
	for k, v := range m {
		switch v.Kind() {
		case attrmap.KindFloat:
			f, _ := v.AsFloat()
			out[k] = wireValue{Kind: "float", Float: f}
		case attrmap.KindInt:
			i, _ := v.AsInt()
			out[k] = wireValue{Kind: "int", Int: i}
		case attrmap.KindFlag:
			b, _ := v.AsFlag()
			out[k] = wireValue{Kind: "flag", Flag: b}
		default:
			s, _ := v.AsText()
			out[k] = wireValue{Kind: "text", Text: s}
		}
	}
	return out
}

func fromWireMap(m map[string]wireValue) attrmap.Map {
	out := make(attrmap.Map, len(m))
	for k, v := range m {
		switch v.Kind {
		case "float":
			out[k] = attrmap.Float(v.Float)
		case "int":
			out[k] = attrmap.Int(v.Int)
		case "flag":
			out[k] = attrmap.Flag(v.Flag)
		default:
			out[k] = attrmap.Text(v.Text)
		}
	}
	return out
}

// envelope is the common response header every engine call returns.
type envelope struct {
	Status  int    `json:"status"`
	Message string `json:"message,omitempty"`
}

// statusErr converts a non-OK envelope into a *engine.StatusError.
func (e envelope) statusErr() error {
	if e.Status == int(engine.StatusOK) {
		return nil
	}
	return engine.NewStatusError(engine.StatusCode(e.Status), e.Message)
}

type resolveMapRequest struct {
	URI string `json:"uri"`
}

type resolveMapResponse struct {
	envelope
	Assets map[string]string `json:"assets"`
}

type resolveGeometryRequest struct {
	URI    string            `json:"uri"`
	Assets map[string]string `json:"assets,omitempty"`
}

type resolveGeometryResponse struct {
	envelope
	Vertices   []float64 `json:"vertices"`
	Indices    []uint32  `json:"indices"`
	FaceCounts []uint32  `json:"faceCounts"`
}

type validateOptionsRequest struct {
	Encoder string               `json:"encoder"`
	Options map[string]wireValue `json:"options"`
}

type validateOptionsResponse struct {
	envelope
	Options map[string]wireValue `json:"options"`
}

type wireShape struct {
	Vertices   []float64            `json:"vertices"`
	Indices    []uint32             `json:"indices"`
	FaceCounts []uint32             `json:"faceCounts"`
	RuleFile   string               `json:"ruleFile"`
	StartRule  string               `json:"startRule"`
	Seed       int64                `json:"seed"`
	ShapeName  string               `json:"shapeName"`
	Attrs      map[string]wireValue `json:"attrs"`
	Assets     map[string]string    `json:"assets,omitempty"`
}

type wireEncoder struct {
	ID      string               `json:"id"`
	Options map[string]wireValue `json:"options"`
}

type generateRequest struct {
	Shapes   []wireShape   `json:"shapes"`
	Encoders []wireEncoder `json:"encoders"`
	CacheID  uint64        `json:"cacheId,omitempty"`
}

type generateResponse struct {
	envelope
}

// Host-function payloads streamed during forma_generate.

type geometryEvent struct {
	ShapeIndex int        `json:"shapeIndex"`
	Vertices   []float64  `json:"vertices"`
	Faces      [][]uint32 `json:"faces"`
}

type reportsEvent struct {
	ShapeIndex int                `json:"shapeIndex"`
	Floats     map[string]float64 `json:"floats,omitempty"`
	Strings    map[string]string  `json:"strings,omitempty"`
	Bools      map[string]bool    `json:"bools,omitempty"`
}

type fileEvent struct {
	Name string `json:"name"`
	Data []byte `json:"data"` // encoding/json base64-encodes []byte
}
