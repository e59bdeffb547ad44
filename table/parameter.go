package table

import "slices"

// Parameter holds named float64 vectors in insertion order.
type Parameter struct {
	names  []string
	values map[string][]float64
}

// NewParameter creates an empty parameter table.
func NewParameter() *Parameter {
	return &Parameter{values: make(map[string][]float64)}
}

// Set stores a copy of v under name, keeping the original position when
// name already exists.
func (p *Parameter) Set(name string, v []float64) {
	if _, ok := p.values[name]; !ok {
		p.names = append(p.names, name)
	}
	p.values[name] = slices.Clone(v)
}

// Get returns the vector stored under name.
func (p *Parameter) Get(name string) ([]float64, bool) {
	v, ok := p.values[name]
	return v, ok
}

// Names returns the vector names in insertion order.
func (p *Parameter) Names() []string {
	return slices.Clone(p.names)
}

func (p *Parameter) Kind() Kind   { return KindParameter }
func (p *Parameter) NumRows() int { return len(p.names) }

// NumCols returns the length of the longest vector.
func (p *Parameter) NumCols() int {
	n := 0
	for _, v := range p.values {
		n = max(n, len(v))
	}
	return n
}

func (p *Parameter) CloneData() Table {
	out := NewParameter()
	for _, name := range p.names {
		out.Set(name, p.values[name])
	}
	return out
}

func (p *Parameter) SizeBytes() int64 {
	var n int64
	for name, v := range p.values {
		n += int64(len(name)) + int64(len(v))*8
	}
	return n
}
