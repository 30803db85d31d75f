package param

import "fmt"

// Set is an ordered collection of parameters keyed by unqualified name.
type Set struct {
	names  []string
	byName map[string]*Param
}

// NewSet creates an empty parameter set.
func NewSet() *Set {
	return &Set{byName: make(map[string]*Param)}
}

// Add appends a parameter. Adding a second parameter with the same name is
// an error; sharing across stages is handled by the caller before Add.
func (s *Set) Add(p *Param) error {
	if _, ok := s.byName[p.Name]; ok {
		return fmt.Errorf("param %q already in set", p.Name)
	}
	s.names = append(s.names, p.Name)
	s.byName[p.Name] = p
	return nil
}

// Get returns the parameter with the given name.
func (s *Set) Get(name string) (*Param, bool) {
	p, ok := s.byName[name]
	return p, ok
}

// Names returns the parameter names in insertion order.
func (s *Set) Names() []string {
	return s.names
}

// Len returns the number of parameters in the set.
func (s *Set) Len() int {
	return len(s.names)
}
