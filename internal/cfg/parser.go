package cfg

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	includeRe = regexp.MustCompile(`^#include\s+(\S+)\s+as\s+([A-Za-z_][A-Za-z0-9_]*)\s*$`)
	sectionRe = regexp.MustCompile(`^\[([A-Za-z0-9_][A-Za-z0-9_.-]*)\]$`)
	keyRe     = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.-]*$`)
)

// Parse parses one configuration file into a Document. Include directives
// are recorded but not followed; see Resolver for recursive loading.
func Parse(path string, src []byte) (*Document, error) {
	doc := newDocument(path)
	current := doc.Root

	// Multi-line list literals: an assignment with unbalanced brackets stays
	// pending and swallows subsequent lines until the brackets close.
	var pending *Entry
	var depth int

	lines := strings.Split(string(src), "\n")
	for i, line := range lines {
		pos := Pos{File: path, Line: i + 1}

		if pending != nil {
			pending.Raw += " " + strings.TrimSpace(line)
			depth += bracketDelta(line)
			if depth <= 0 {
				pending.Raw = strings.TrimSpace(pending.Raw)
				if err := current.add(pending); err != nil {
					return nil, err
				}
				pending = nil
			}
			continue
		}

		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			continue

		case isIncludeDirective(trimmed):
			m := includeRe.FindStringSubmatch(trimmed)
			if m == nil {
				return nil, &ParseError{Pos: pos,
					Msg: fmt.Sprintf("malformed include directive %q, want `#include <path> as <alias>`", trimmed)}
			}
			doc.Includes = append(doc.Includes, &Include{Path: m[1], Alias: m[2], Pos: pos})

		case strings.HasPrefix(trimmed, "#"):
			continue

		case strings.HasPrefix(trimmed, "["):
			m := sectionRe.FindStringSubmatch(trimmed)
			if m == nil {
				return nil, &ParseError{Pos: pos, Msg: fmt.Sprintf("malformed section header %q", trimmed)}
			}
			sec := newSection(m[1], pos)
			if err := doc.addSection(sec); err != nil {
				return nil, err
			}
			current = sec

		default:
			key, val, found := strings.Cut(trimmed, "=")
			if !found {
				return nil, &ParseError{Pos: pos, Msg: fmt.Sprintf("expected `key = value`, got %q", trimmed)}
			}
			key = strings.TrimSpace(key)
			if !keyRe.MatchString(key) {
				return nil, &ParseError{Pos: pos, Msg: fmt.Sprintf("invalid key %q", key)}
			}
			entry := &Entry{Key: key, Raw: strings.TrimSpace(val), Pos: pos}
			depth = bracketDelta(entry.Raw)
			if depth > 0 {
				pending = entry
				continue
			}
			if err := current.add(entry); err != nil {
				return nil, err
			}
		}
	}

	if pending != nil {
		return nil, &ParseError{Pos: pending.Pos,
			Msg: fmt.Sprintf("unterminated list literal in value of %q", pending.Key)}
	}

	if err := checkAliases(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// isIncludeDirective reports whether a `#` line is an include directive
// rather than a comment: the `#include` word must stand alone, so a comment
// like `#included from the template` stays a comment while a malformed
// directive like `#include x.cfg` still gets a proper error.
func isIncludeDirective(line string) bool {
	rest, ok := strings.CutPrefix(line, "#include")
	if !ok {
		return false
	}
	return rest == "" || rest[0] == ' ' || rest[0] == '\t'
}

// bracketDelta returns the net bracket nesting change across a line,
// ignoring bracket characters inside quotes.
func bracketDelta(line string) int {
	var delta int
	var quote rune
	for _, c := range line {
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '[' || c == '{' || c == '(':
			delta++
		case c == ']' || c == '}' || c == ')':
			delta--
		}
	}
	return delta
}

// checkAliases rejects include aliases that collide with each other or with
// local section names.
func checkAliases(doc *Document) error {
	seen := make(map[string]Pos)
	for _, inc := range doc.Includes {
		if prev, ok := seen[inc.Alias]; ok {
			return &DuplicateKeyError{Pos: inc.Pos, Namespace: inc.Alias, Key: inc.Alias, Prev: prev}
		}
		seen[inc.Alias] = inc.Pos
	}
	for _, sec := range doc.Sections {
		if prev, ok := seen[sec.Name]; ok {
			return &DuplicateKeyError{Pos: sec.Pos, Namespace: sec.Name, Key: sec.Name, Prev: prev}
		}
	}
	return nil
}
