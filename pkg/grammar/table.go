package grammar

import "fmt"

// ConflictError reports an LL(1) well-formedness violation: two alternatives
// of one nonterminal are selectable on the same lookahead terminal. This is
// a grammar-authoring defect, detected once when the selection table is
// built, never during parsing.
type ConflictError struct {
	NonTerminal string
	Lookahead   string
	First       Production
	Second      Production
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("grammar: LL(1) conflict in %s on lookahead %q: %q vs %q",
		e.NonTerminal, e.Lookahead, e.First.String(), e.Second.String())
}

// SelectionTable maps (nonterminal, lookahead terminal) to exactly one
// production alternative. Built once, read-only afterward.
type SelectionTable struct {
	grammar *Grammar
	entries map[string]map[string]int // nonterminal -> lookahead -> alternative index
}

// BuildSelectionTable computes FIRST/FOLLOW sets if needed and builds the
// predictive selection table, enforcing the pairwise-disjointness invariant
// of each nonterminal's selection sets.
func BuildSelectionTable(g *Grammar) (*SelectionTable, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	t := &SelectionTable{
		grammar: g,
		entries: make(map[string]map[string]int, len(g.NonTerminals)),
	}

	for name, nt := range g.NonTerminals {
		row := make(map[string]int)
		t.entries[name] = row

		for i, prod := range nt.Productions {
			selection := g.FirstOf(prod)
			if selection.Has(Epsilon) {
				// A nullable alternative is selected by anything that may
				// follow the nonterminal.
				delete(selection, Epsilon)
				selection.AddAll(nt.Follow, "")
			}
			for lookahead := range selection {
				if prev, ok := row[lookahead]; ok && prev != i {
					return nil, &ConflictError{
						NonTerminal: name,
						Lookahead:   lookahead,
						First:       nt.Productions[prev],
						Second:      prod,
					}
				}
				row[lookahead] = i
			}
		}
	}

	return t, nil
}

// Lookup returns the production alternative for (nonterminal, lookahead),
// or false if there is no entry, meaning a syntax error at this point.
func (t *SelectionTable) Lookup(nonterminal, lookahead string) (Production, bool) {
	row, ok := t.entries[nonterminal]
	if !ok {
		return nil, false
	}
	idx, ok := row[lookahead]
	if !ok {
		return nil, false
	}
	return t.grammar.NonTerminals[nonterminal].Productions[idx], true
}

// LookupIndex is Lookup but returns the alternative index, which the parser
// records on syntax tree nodes so later passes can tell which alternative
// was taken.
func (t *SelectionTable) LookupIndex(nonterminal, lookahead string) (int, bool) {
	row, ok := t.entries[nonterminal]
	if !ok {
		return 0, false
	}
	idx, ok := row[lookahead]
	return idx, ok
}

// Expected returns the sorted set of lookahead terminals that have an entry
// for the given nonterminal. This is the "expected one of {…}" set for
// syntax error diagnostics.
func (t *SelectionTable) Expected(nonterminal string) []string {
	row, ok := t.entries[nonterminal]
	if !ok {
		return nil
	}
	set := NewSymbolSet()
	for lookahead := range row {
		set.Add(lookahead)
	}
	return set.Sorted()
}

// Grammar returns the grammar this table was built from.
func (t *SelectionTable) Grammar() *Grammar { return t.grammar }
