// Package slug turns category display names into the URL path segments the
// Carrefour storefront uses to address listings.
package slug

import "strings"

// Rule is a literal substitution.
type Rule struct {
	From string
	To   string
}

// DefaultRules is the storefront substitution table. Order matters: each rule
// runs over the output of the previous one.
var DefaultRules = []Rule{
	{" ", "-"},
	{"$", "%24"},
	{"&", "and"},
	{"(", "%28"},
	{")", "%29"},
	{"/", "%2F"},
	{"．", ""},
}

type Encoder struct {
	rules []Rule
}

func NewEncoder(rules []Rule) *Encoder {
	return &Encoder{rules: append([]Rule(nil), rules...)}
}

// Default returns an encoder with DefaultRules.
func Default() *Encoder {
	return NewEncoder(DefaultRules)
}

// Encode applies every rule in order to the whole name.
func (e *Encoder) Encode(name string) string {
	for _, r := range e.rules {
		name = strings.ReplaceAll(name, r.From, r.To)
	}
	return name
}

// Path encodes each name and joins them with "/".
func (e *Encoder) Path(names ...string) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = e.Encode(n)
	}
	return strings.Join(parts, "/")
}
