// Package grammar holds the declarative LL(1) grammar table that drives the
// predictive parser: nonterminals, their production alternatives, FIRST and
// FOLLOW sets, and the derived selection table.
//
// The grammar itself is data, never code. It is authored in TOML and loaded
// at startup; the FIRST/FOLLOW sets and the selection table are computed and
// validated once when the table is built, so LL(1) violations surface as
// configuration errors rather than parse-time surprises.
package grammar

import (
	"fmt"
	"sort"
)

// Epsilon is the marker used in FIRST sets for nullable derivations.
const Epsilon = "ε"

// End is the end-of-input marker used in FOLLOW sets and as the lookahead
// kind once the token stream is exhausted.
const End = "$"

// Production is one ordered alternative of a nonterminal. Symbols are
// terminal or nonterminal names; an empty production derives epsilon.
type Production []string

// IsEpsilon reports whether the production derives the empty string directly.
func (p Production) IsEpsilon() bool { return len(p) == 0 }

func (p Production) String() string {
	if p.IsEpsilon() {
		return Epsilon
	}
	s := ""
	for i, sym := range p {
		if i > 0 {
			s += " "
		}
		s += sym
	}
	return s
}

// SymbolSet is a set of terminal names (possibly including the Epsilon or
// End markers).
type SymbolSet map[string]struct{}

// NewSymbolSet builds a set from the given members.
func NewSymbolSet(members ...string) SymbolSet {
	s := make(SymbolSet, len(members))
	for _, m := range members {
		s[m] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s SymbolSet) Has(sym string) bool {
	_, ok := s[sym]
	return ok
}

// Add inserts sym and reports whether it was newly added.
func (s SymbolSet) Add(sym string) bool {
	if s.Has(sym) {
		return false
	}
	s[sym] = struct{}{}
	return true
}

// AddAll inserts every member of other except skip, reporting whether the
// set changed.
func (s SymbolSet) AddAll(other SymbolSet, skip string) bool {
	changed := false
	for sym := range other {
		if sym == skip {
			continue
		}
		if s.Add(sym) {
			changed = true
		}
	}
	return changed
}

// Sorted returns the members in lexical order.
func (s SymbolSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for sym := range s {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// Equal reports whether two sets have identical members.
func (s SymbolSet) Equal(other SymbolSet) bool {
	if len(s) != len(other) {
		return false
	}
	for sym := range s {
		if !other.Has(sym) {
			return false
		}
	}
	return true
}

// NonTerminal is one grammar definition: a name, its ordered production
// alternatives, and the FIRST/FOLLOW sets computed (or declared) for it.
type NonTerminal struct {
	Name        string
	Productions []Production
	First       SymbolSet // terminals that can begin a derivation; may contain Epsilon
	Follow      SymbolSet // terminals that can follow; may contain End
}

// Nullable reports whether the nonterminal can derive the empty string.
func (nt *NonTerminal) Nullable() bool { return nt.First.Has(Epsilon) }

// Grammar is the full table: the start symbol, the terminal alphabet, and
// every nonterminal definition.
type Grammar struct {
	Start        string
	Terminals    SymbolSet
	NonTerminals map[string]*NonTerminal
}

// IsTerminal reports whether sym names a terminal of this grammar.
func (g *Grammar) IsTerminal(sym string) bool {
	_, ok := g.NonTerminals[sym]
	return !ok
}

// Validate checks structural well-formedness: the start symbol exists and
// every production symbol is either a declared terminal or a defined
// nonterminal.
func (g *Grammar) Validate() error {
	if _, ok := g.NonTerminals[g.Start]; !ok {
		return fmt.Errorf("grammar: start symbol %q is not a defined nonterminal", g.Start)
	}
	for name, nt := range g.NonTerminals {
		if len(nt.Productions) == 0 {
			return fmt.Errorf("grammar: nonterminal %q has no productions", name)
		}
		for i, prod := range nt.Productions {
			for _, sym := range prod {
				if _, ok := g.NonTerminals[sym]; ok {
					continue
				}
				if !g.Terminals.Has(sym) {
					return fmt.Errorf("grammar: %s alternative %d references unknown symbol %q", name, i, sym)
				}
			}
		}
	}
	return nil
}

// FirstOf computes the FIRST set of a symbol string (the tail of a
// production), using the per-nonterminal FIRST sets already computed.
func (g *Grammar) FirstOf(symbols []string) SymbolSet {
	out := NewSymbolSet()
	if len(symbols) == 0 {
		out.Add(Epsilon)
		return out
	}
	for i, sym := range symbols {
		if g.IsTerminal(sym) {
			out.Add(sym)
			return out
		}
		nt := g.NonTerminals[sym]
		out.AddAll(nt.First, Epsilon)
		if !nt.Nullable() {
			return out
		}
		if i == len(symbols)-1 {
			out.Add(Epsilon)
		}
	}
	return out
}

// ComputeSets fills in the FIRST and FOLLOW set of every nonterminal by
// fixpoint iteration, replacing whatever sets were present.
func (g *Grammar) ComputeSets() {
	for _, nt := range g.NonTerminals {
		nt.First = NewSymbolSet()
		nt.Follow = NewSymbolSet()
	}

	// FIRST fixpoint.
	for changed := true; changed; {
		changed = false
		for _, nt := range g.NonTerminals {
			for _, prod := range nt.Productions {
				if prod.IsEpsilon() {
					if nt.First.Add(Epsilon) {
						changed = true
					}
					continue
				}
				nullable := true
				for _, sym := range prod {
					if g.IsTerminal(sym) {
						if nt.First.Add(sym) {
							changed = true
						}
						nullable = false
						break
					}
					sub := g.NonTerminals[sym]
					if nt.First.AddAll(sub.First, Epsilon) {
						changed = true
					}
					if !sub.Nullable() {
						nullable = false
						break
					}
				}
				if nullable {
					if nt.First.Add(Epsilon) {
						changed = true
					}
				}
			}
		}
	}

	// FOLLOW fixpoint.
	g.NonTerminals[g.Start].Follow.Add(End)
	for changed := true; changed; {
		changed = false
		for _, nt := range g.NonTerminals {
			for _, prod := range nt.Productions {
				for i, sym := range prod {
					sub, ok := g.NonTerminals[sym]
					if !ok {
						continue
					}
					rest := g.FirstOf(prod[i+1:])
					if sub.Follow.AddAll(rest, Epsilon) {
						changed = true
					}
					if rest.Has(Epsilon) {
						if sub.Follow.AddAll(nt.Follow, "") {
							changed = true
						}
					}
				}
			}
		}
	}
}
