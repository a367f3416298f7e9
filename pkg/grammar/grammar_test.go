package grammar

import (
	"errors"
	"strings"
	"testing"
)

// toy grammar: balanced expression lists, small enough to verify FIRST and
// FOLLOW sets by hand.
//
//	S -> E $
//	E -> T E'
//	E' -> plus T E' | ε
//	T -> lparen E rparen | id
func toyGrammar() *Grammar {
	g := &Grammar{
		Start:     "E",
		Terminals: NewSymbolSet("plus", "lparen", "rparen", "id"),
		NonTerminals: map[string]*NonTerminal{
			"E": {Name: "E", Productions: []Production{
				{"T", "E'"},
			}},
			"E'": {Name: "E'", Productions: []Production{
				{"plus", "T", "E'"},
				{},
			}},
			"T": {Name: "T", Productions: []Production{
				{"lparen", "E", "rparen"},
				{"id"},
			}},
		},
	}
	g.ComputeSets()
	return g
}

func TestComputeFirstSets(t *testing.T) {
	g := toyGrammar()

	tests := []struct {
		nt   string
		want []string
	}{
		{"E", []string{"id", "lparen"}},
		{"E'", []string{"plus", Epsilon}},
		{"T", []string{"id", "lparen"}},
	}
	for _, tt := range tests {
		got := g.NonTerminals[tt.nt].First
		if !got.Equal(NewSymbolSet(tt.want...)) {
			t.Errorf("FIRST(%s) = %v, want %v", tt.nt, got.Sorted(), tt.want)
		}
	}
}

func TestComputeFollowSets(t *testing.T) {
	g := toyGrammar()

	tests := []struct {
		nt   string
		want []string
	}{
		{"E", []string{End, "rparen"}},
		{"E'", []string{End, "rparen"}},
		{"T", []string{"plus", End, "rparen"}},
	}
	for _, tt := range tests {
		got := g.NonTerminals[tt.nt].Follow
		if !got.Equal(NewSymbolSet(tt.want...)) {
			t.Errorf("FOLLOW(%s) = %v, want %v", tt.nt, got.Sorted(), tt.want)
		}
	}
}

func TestSelectionTable(t *testing.T) {
	table, err := BuildSelectionTable(toyGrammar())
	if err != nil {
		t.Fatalf("BuildSelectionTable: %v", err)
	}

	tests := []struct {
		nt, lookahead string
		wantAlt       int
		wantEntry     bool
	}{
		{"T", "lparen", 0, true},
		{"T", "id", 1, true},
		{"T", "plus", 0, false},
		{"E'", "plus", 0, true},
		// The nullable alternative is selected on FOLLOW(E').
		{"E'", "rparen", 1, true},
		{"E'", End, 1, true},
		{"E'", "id", 0, false},
	}
	for _, tt := range tests {
		alt, ok := table.LookupIndex(tt.nt, tt.lookahead)
		if ok != tt.wantEntry {
			t.Errorf("LookupIndex(%s, %s) entry = %t, want %t", tt.nt, tt.lookahead, ok, tt.wantEntry)
			continue
		}
		if ok && alt != tt.wantAlt {
			t.Errorf("LookupIndex(%s, %s) = %d, want %d", tt.nt, tt.lookahead, alt, tt.wantAlt)
		}
	}
}

func TestExpected(t *testing.T) {
	table, err := BuildSelectionTable(toyGrammar())
	if err != nil {
		t.Fatalf("BuildSelectionTable: %v", err)
	}
	got := table.Expected("T")
	want := []string{"id", "lparen"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Expected(T) = %v, want %v", got, want)
	}
}

func TestConflictDetected(t *testing.T) {
	// A -> id | id id is not LL(1): both alternatives start with id.
	g := &Grammar{
		Start:     "A",
		Terminals: NewSymbolSet("id"),
		NonTerminals: map[string]*NonTerminal{
			"A": {Name: "A", Productions: []Production{
				{"id"},
				{"id", "id"},
			}},
		},
	}
	g.ComputeSets()

	_, err := BuildSelectionTable(g)
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected *ConflictError, got %v", err)
	}
	if conflict.NonTerminal != "A" || conflict.Lookahead != "id" {
		t.Errorf("conflict = %+v", conflict)
	}
}

func TestNullableFollowConflictDetected(t *testing.T) {
	// B is nullable and id is both in FIRST(B) and FOLLOW(B):
	//	A -> B id
	//	B -> id | ε
	g := &Grammar{
		Start:     "A",
		Terminals: NewSymbolSet("id"),
		NonTerminals: map[string]*NonTerminal{
			"A": {Name: "A", Productions: []Production{{"B", "id"}}},
			"B": {Name: "B", Productions: []Production{{"id"}, {}}},
		},
	}
	g.ComputeSets()

	if _, err := BuildSelectionTable(g); err == nil {
		t.Fatal("expected FIRST/FOLLOW conflict")
	}
}

func TestValidateRejectsUnknownSymbol(t *testing.T) {
	g := &Grammar{
		Start:     "A",
		Terminals: NewSymbolSet("id"),
		NonTerminals: map[string]*NonTerminal{
			"A": {Name: "A", Productions: []Production{{"ghost"}}},
		},
	}
	err := g.Validate()
	if err == nil || !strings.Contains(err.Error(), "ghost") {
		t.Errorf("Validate = %v", err)
	}
}

func TestLoadRejectsDeclaredSetMismatch(t *testing.T) {
	src := `
start = "A"
terminals = ["id"]

[productions]
A = [["id"]]

[first]
A = ["id", "lparen"]
`
	_, err := Load([]byte(src))
	if err == nil || !strings.Contains(err.Error(), "FIRST") {
		t.Errorf("Load = %v", err)
	}
}

func TestLoadCrossChecksDeclaredSets(t *testing.T) {
	src := `
start = "A"
terminals = ["id"]

[productions]
A = [["id"]]

[first]
A = ["id"]

[follow]
A = ["$"]
`
	if _, err := Load([]byte(src)); err != nil {
		t.Errorf("Load: %v", err)
	}
}

func TestLoomGrammarWellFormed(t *testing.T) {
	table, err := LoomTable()
	if err != nil {
		t.Fatalf("LoomTable: %v", err)
	}

	g := table.Grammar()
	if g.Start != "program" {
		t.Errorf("start = %q", g.Start)
	}

	// Spot-check selection entries the parser leans on.
	spots := []struct {
		nt, lookahead string
	}{
		{"program", "node"},
		{"program", End},
		{"node_item", "fn"},
		{"node_item", "export"},
		{"stmt", "while"},
		{"stmt", "id"},
		{"factor", "int_lit"},
		{"factor", "lparen"},
		{"else_clause", "else"},
	}
	for _, s := range spots {
		if _, ok := table.Lookup(s.nt, s.lookahead); !ok {
			t.Errorf("no selection entry for (%s, %s)", s.nt, s.lookahead)
		}
	}
}

func TestProductionString(t *testing.T) {
	if got := (Production{}).String(); got != Epsilon {
		t.Errorf("epsilon String = %q", got)
	}
	if got := (Production{"a", "b"}).String(); got != "a b" {
		t.Errorf("String = %q", got)
	}
}
