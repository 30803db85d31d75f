package cfg

import "strings"

// Entry is a single `key = value` assignment. Key may be dotted
// (`theta13_nh.range`); Raw is the unparsed value text with continuation
// lines joined.
type Entry struct {
	Key string
	Raw string
	Pos Pos
}

// Section is an ordered, named collection of entries. The unnamed root
// section holds assignments appearing before any `[section]` header.
type Section struct {
	Name    string
	Pos     Pos
	Entries []*Entry
	index   map[string]*Entry
}

func newSection(name string, pos Pos) *Section {
	return &Section{Name: name, Pos: pos, index: make(map[string]*Entry)}
}

// Get returns the entry for an exact key.
func (s *Section) Get(key string) (*Entry, bool) {
	e, ok := s.index[key]
	return e, ok
}

// Has reports whether an exact key is assigned in the section.
func (s *Section) Has(key string) bool {
	_, ok := s.index[key]
	return ok
}

func (s *Section) add(e *Entry) error {
	if prev, ok := s.index[e.Key]; ok {
		return &DuplicateKeyError{Pos: e.Pos, Namespace: s.Name, Key: e.Key, Prev: prev.Pos}
	}
	s.Entries = append(s.Entries, e)
	s.index[e.Key] = e
	return nil
}

// Include is a `#include <path> as <alias>` directive. Doc is populated by
// include resolution.
type Include struct {
	Path  string
	Alias string
	Pos   Pos
	Doc   *Document
}

// Document is one parsed configuration file: its root entries, its named
// sections in declaration order, and the documents it includes.
type Document struct {
	Path     string
	Root     *Section
	Sections []*Section
	Includes []*Include

	sectionIndex map[string]*Section
}

func newDocument(path string) *Document {
	return &Document{
		Path:         path,
		Root:         newSection("", Pos{File: path, Line: 0}),
		sectionIndex: make(map[string]*Section),
	}
}

func (d *Document) addSection(s *Section) error {
	if _, ok := d.sectionIndex[s.Name]; ok {
		return &DuplicateKeyError{Pos: s.Pos, Namespace: s.Name, Key: "[" + s.Name + "]",
			Prev: d.sectionIndex[s.Name].Pos}
	}
	d.Sections = append(d.Sections, s)
	d.sectionIndex[s.Name] = s
	return nil
}

// Section resolves a namespace to a section. The namespace is either the
// empty string (root), a local section name, an include alias (the included
// document's root), or an alias-prefixed path into an included document.
func (d *Document) Section(ns string) (*Section, bool) {
	if ns == "" {
		return d.Root, true
	}
	if sec, ok := d.sectionIndex[ns]; ok {
		return sec, true
	}
	for _, inc := range d.Includes {
		if inc.Doc == nil {
			continue
		}
		if ns == inc.Alias {
			return inc.Doc.Section("")
		}
		if rest, ok := strings.CutPrefix(ns, inc.Alias+"."); ok {
			if sec, found := inc.Doc.Section(rest); found {
				return sec, true
			}
		}
	}
	return nil, false
}

// Lookup finds an entry by namespace and exact key.
func (d *Document) Lookup(ns, key string) (*Entry, bool) {
	sec, ok := d.Section(ns)
	if !ok {
		return nil, false
	}
	return sec.Get(key)
}

// Namespaces enumerates every addressable namespace in deterministic order:
// included documents first (prefixed by their alias, in directive order),
// then the root namespace if it has entries, then local sections in
// declaration order.
func (d *Document) Namespaces() []string {
	var out []string
	for _, inc := range d.Includes {
		if inc.Doc == nil {
			continue
		}
		for _, sub := range inc.Doc.Namespaces() {
			if sub == "" {
				out = append(out, inc.Alias)
			} else {
				out = append(out, inc.Alias+"."+sub)
			}
		}
	}
	if len(d.Root.Entries) > 0 {
		out = append(out, "")
	}
	for _, sec := range d.Sections {
		out = append(out, sec.Name)
	}
	return out
}
