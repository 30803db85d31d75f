package param

import "strings"

// Key is a dissected `param.*` configuration key:
// `param.[<selector>.]<name>[.<attr>]`, e.g. `param.nh.theta13.range`.
type Key struct {
	Name     string
	Selector string
	Attr     string
}

// Qualified returns the declaration key without the attr suffix, as it
// appears in the section (`param.nh.theta13`).
func (k Key) Qualified() string {
	if k.Selector == "" {
		return "param." + k.Name
	}
	return "param." + k.Selector + "." + k.Name
}

// PriorName is the key looked up in spline prior data files: the parameter
// name, suffixed with the selector for hierarchy variants (`theta13_nh`).
func (k Key) PriorName() string {
	if k.Selector == "" {
		return k.Name
	}
	return k.Name + "_" + k.Selector
}

// attrSuffixes are the recognized metadata attachments, longest first so
// `prior.data` wins over `prior`.
var attrSuffixes = []string{"prior.data", "fixed", "prior", "range"}

// ParseKey dissects a section key. Returns false when the key is not a
// `param.*` key at all. knownSelector decides whether the component after
// `param.` is a hierarchy selector or part of the parameter name.
func ParseKey(key string, knownSelector func(string) bool) (Key, bool) {
	rest, ok := strings.CutPrefix(key, "param.")
	if !ok || rest == "" {
		return Key{}, false
	}

	var k Key
	for _, attr := range attrSuffixes {
		if trimmed, found := strings.CutSuffix(rest, "."+attr); found {
			k.Attr = attr
			rest = trimmed
			break
		}
	}
	if rest == "" {
		return Key{}, false
	}

	if sel, name, found := strings.Cut(rest, "."); found && knownSelector(sel) && name != "" {
		k.Selector = sel
		k.Name = name
	} else {
		k.Name = rest
	}
	return k, true
}
