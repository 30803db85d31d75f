// Package cfg parses the layered `.cfg` text format used to configure
// analysis pipelines: line-oriented sections and key-value assignments,
// `#include <path> as <alias>` directives that mount other documents under a
// namespace alias, and multi-line list literals.
//
// Parsing stops at the textual level. Reference substitution
// (`${namespace:key}`), value typing, and parameter assembly are performed by
// the resolver package on top of the Document produced here.
package cfg
