package attrmap

// Builder accumulates attribute values and emits immutable-by-convention
// Maps. It mirrors the engine's native attribute map builder: one builder
// can be reused to produce several maps via CreateAndReset.
type Builder struct {
	m Map
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{m: make(Map)}
}

// SetText stores a string attribute.
func (b *Builder) SetText(key, val string) *Builder {
	b.m[key] = Text(val)
	return b
}

// SetFloat stores a float attribute.
func (b *Builder) SetFloat(key string, val float64) *Builder {
	b.m[key] = Float(val)
	return b
}

// SetInt stores an integer attribute.
func (b *Builder) SetInt(key string, val int64) *Builder {
	b.m[key] = Int(val)
	return b
}

// SetFlag stores a boolean attribute.
func (b *Builder) SetFlag(key string, val bool) *Builder {
	b.m[key] = Flag(val)
	return b
}

// Create returns a copy of the accumulated map; the builder keeps its state.
func (b *Builder) Create() Map {
	return b.m.Clone()
}

// CreateAndReset returns the accumulated map and resets the builder to
// empty, ready for the next map.
func (b *Builder) CreateAndReset() Map {
	m := b.m
	b.m = make(Map)
	return m
}
