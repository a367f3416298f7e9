package grammar

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/BurntSushi/toml"
)

//go:embed loom_grammar.toml
var loomGrammarTOML []byte

// tableFile is the on-disk shape of a grammar table.
//
// Only the start symbol, terminal alphabet and productions are required:
// FIRST and FOLLOW sets are computed at load time. Declared [first]/[follow]
// sections, when present, are cross-checked against the computed sets and a
// mismatch is a configuration error.
type tableFile struct {
	Start       string                `toml:"start"`
	Terminals   []string              `toml:"terminals"`
	Productions map[string][][]string `toml:"productions"`
	First       map[string][]string   `toml:"first"`
	Follow      map[string][]string   `toml:"follow"`
}

// Load parses a TOML grammar table, computes its FIRST/FOLLOW sets and
// validates structural well-formedness. LL(1) checking happens later, in
// BuildSelectionTable.
func Load(data []byte) (*Grammar, error) {
	var f tableFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("grammar: parse error: %w", err)
	}
	if f.Start == "" {
		return nil, fmt.Errorf("grammar: missing start symbol")
	}
	if len(f.Productions) == 0 {
		return nil, fmt.Errorf("grammar: no productions")
	}

	g := &Grammar{
		Start:        f.Start,
		Terminals:    NewSymbolSet(f.Terminals...),
		NonTerminals: make(map[string]*NonTerminal, len(f.Productions)),
	}
	for name, alts := range f.Productions {
		if g.Terminals.Has(name) {
			return nil, fmt.Errorf("grammar: %q is declared both terminal and nonterminal", name)
		}
		nt := &NonTerminal{Name: name}
		for _, alt := range alts {
			nt.Productions = append(nt.Productions, Production(alt))
		}
		g.NonTerminals[name] = nt
	}

	if err := g.Validate(); err != nil {
		return nil, err
	}
	g.ComputeSets()

	for name, declared := range f.First {
		nt, ok := g.NonTerminals[name]
		if !ok {
			return nil, fmt.Errorf("grammar: [first] references unknown nonterminal %q", name)
		}
		if set := NewSymbolSet(declared...); !set.Equal(nt.First) {
			return nil, fmt.Errorf("grammar: declared FIRST(%s) = %v does not match computed %v",
				name, set.Sorted(), nt.First.Sorted())
		}
	}
	for name, declared := range f.Follow {
		nt, ok := g.NonTerminals[name]
		if !ok {
			return nil, fmt.Errorf("grammar: [follow] references unknown nonterminal %q", name)
		}
		if set := NewSymbolSet(declared...); !set.Equal(nt.Follow) {
			return nil, fmt.Errorf("grammar: declared FOLLOW(%s) = %v does not match computed %v",
				name, set.Sorted(), nt.Follow.Sorted())
		}
	}

	return g, nil
}

// LoadLoom loads the embedded Loom language grammar.
func LoadLoom() (*Grammar, error) {
	return Load(loomGrammarTOML)
}

var (
	loomOnce  sync.Once
	loomTable *SelectionTable
	loomErr   error
)

// LoomTable returns the selection table for the embedded Loom grammar,
// built once on first use.
func LoomTable() (*SelectionTable, error) {
	loomOnce.Do(func() {
		g, err := LoadLoom()
		if err != nil {
			loomErr = err
			return
		}
		loomTable, loomErr = BuildSelectionTable(g)
	})
	return loomTable, loomErr
}
