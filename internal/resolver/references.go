package resolver

import (
	"context"
	"errors"
	"regexp"

	"github.com/atrettin/pisa/internal/cfg"
	"github.com/atrettin/pisa/internal/ctxlog"
	"github.com/atrettin/pisa/internal/refgraph"
)

// refRe matches `${namespace:key}` reference tokens, where both parts may be
// dotted.
var refRe = regexp.MustCompile(`\$\{([A-Za-z0-9_][A-Za-z0-9_.-]*):([A-Za-z0-9_][A-Za-z0-9_.-]*)\}`)

// flatEntry is one assignment of the fully mounted document graph, addressed
// by its namespace as seen from the root document.
type flatEntry struct {
	id     string // "namespace:key"
	ns     string
	prefix string // mount prefix of the document the entry lives in
	entry  *cfg.Entry
}

// collectEntries flattens the mounted document graph into one ordered list,
// included documents first, mirroring Document.Namespaces.
func collectEntries(doc *cfg.Document, prefix string, out []*flatEntry) []*flatEntry {
	for _, inc := range doc.Includes {
		if inc.Doc != nil {
			out = collectEntries(inc.Doc, joinNS(prefix, inc.Alias), out)
		}
	}
	appendSection := func(sec *cfg.Section, ns string) {
		for _, e := range sec.Entries {
			out = append(out, &flatEntry{
				id:     ns + ":" + e.Key,
				ns:     ns,
				prefix: prefix,
				entry:  e,
			})
		}
	}
	appendSection(doc.Root, prefix)
	for _, sec := range doc.Sections {
		appendSection(sec, joinNS(prefix, sec.Name))
	}
	return out
}

func joinNS(prefix, ns string) string {
	switch {
	case prefix == "":
		return ns
	case ns == "":
		return prefix
	default:
		return prefix + "." + ns
	}
}

// substitution is the result of dependency-ordered reference resolution:
// the final value text per entry-id.
type substitution struct {
	text map[string]string
}

// textFor returns the substituted value text of a namespaced key.
func (s *substitution) textFor(ns, key string) (string, bool) {
	t, ok := s.text[ns+":"+key]
	return t, ok
}

// substitute resolves every `${namespace:key}` token in every entry, in
// dependency order. A reference inside an included document is looked up
// relative to its own mount point first, then against the root namespace.
func substitute(ctx context.Context, entries []*flatEntry) (*substitution, error) {
	logger := ctxlog.FromContext(ctx)

	byID := make(map[string]*flatEntry, len(entries))
	graph := refgraph.New()
	for _, fe := range entries {
		byID[fe.id] = fe
		graph.AddNode(fe.id)
	}

	// Edges: the referenced key must be resolved before the referencing one.
	for _, fe := range entries {
		for _, m := range refRe.FindAllStringSubmatch(fe.entry.Raw, -1) {
			target, err := lookupTarget(byID, fe, m[1], m[2])
			if err != nil {
				return nil, err
			}
			if target == fe.id {
				return nil, &CircularReferenceError{Keys: []string{fe.id}}
			}
			if err := graph.AddEdge(target, fe.id); err != nil {
				return nil, err
			}
		}
	}

	order, err := graph.TopoSort()
	if err != nil {
		var cycleErr *refgraph.CycleError
		if errors.As(err, &cycleErr) {
			return nil, &CircularReferenceError{Keys: cycleErr.Members}
		}
		return nil, err
	}

	sub := &substitution{text: make(map[string]string, len(entries))}
	for _, id := range order {
		fe := byID[id]
		text := refRe.ReplaceAllStringFunc(fe.entry.Raw, func(tok string) string {
			m := refRe.FindStringSubmatch(tok)
			// lookupTarget succeeded above, and dependencies are already
			// substituted by construction of the topological order.
			target, _ := lookupTarget(byID, fe, m[1], m[2])
			return sub.text[target]
		})
		sub.text[id] = text
	}
	logger.Debug("reference substitution complete", "entries", len(entries))

	return sub, nil
}

// lookupTarget maps a reference token to the entry id it denotes. The
// namespace is tried relative to the referencing entry's mount prefix
// first, so included documents can reference their own sections, then
// absolute from the root.
func lookupTarget(byID map[string]*flatEntry, from *flatEntry, ns, key string) (string, error) {
	var candidates []string
	if from.prefix != "" {
		candidates = append(candidates, joinNS(from.prefix, ns)+":"+key)
	}
	candidates = append(candidates, ns+":"+key)

	for _, id := range candidates {
		if _, ok := byID[id]; ok {
			return id, nil
		}
	}
	return "", &UnresolvedReferenceError{
		Ref: ns + ":" + key,
		Key: from.id,
		Pos: from.entry.Pos,
	}
}
