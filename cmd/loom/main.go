// Loom CLI - front end, assembler and virtual machine for Loom programs
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/loom-lang/loom/pkg/ast"
	"github.com/loom-lang/loom/pkg/bytecode"
	"github.com/loom-lang/loom/pkg/grammar"
	"github.com/loom-lang/loom/pkg/lexer"
	"github.com/loom-lang/loom/pkg/parser"
	"github.com/loom-lang/loom/pkg/sema"
	"github.com/loom-lang/loom/pkg/store"

	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("loom")

func main() {
	verbosity := flag.Int("v", 0, "Log verbosity (0 = quiet)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: loom [options] <command> [args...]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  tokens <file.loom>          Print the token stream\n")
		fmt.Fprintf(os.Stderr, "  parse [-cst] <file.loom>    Print the syntax tree\n")
		fmt.Fprintf(os.Stderr, "  check <file.loom>           Run semantic analysis\n")
		fmt.Fprintf(os.Stderr, "  asm [-o out] <file.lasm>    Assemble to a bytecode file\n")
		fmt.Fprintf(os.Stderr, "  dis <file.lbc>              Disassemble a bytecode file\n")
		fmt.Fprintf(os.Stderr, "  run [-trace] <file>         Execute a .lasm or .lbc file\n")
		fmt.Fprintf(os.Stderr, "  store <put|get|list|rm>     Manage the program store\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  loom check thermostat.loom\n")
		fmt.Fprintf(os.Stderr, "  loom asm blink.lasm && loom run blink.lbc\n")
		fmt.Fprintf(os.Stderr, "  loom store put blink blink.lasm\n")
	}
	flag.Parse()

	commonlog.Configure(*verbosity, nil)

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	var err error
	switch args[0] {
	case "tokens":
		err = cmdTokens(args[1:])
	case "parse":
		err = cmdParse(args[1:])
	case "check":
		err = cmdCheck(args[1:])
	case "asm":
		err = cmdAsm(args[1:])
	case "dis":
		err = cmdDis(args[1:])
	case "run":
		err = cmdRun(args[1:])
	case "store":
		err = cmdStore(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "loom: unknown command %q\n", args[0])
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "loom: %v\n", err)
		os.Exit(1)
	}
}

func readSource(args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("expected exactly one source file")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// frontend runs lex and parse over one source file.
func frontend(src string) (*parser.Tree, error) {
	table, err := grammar.LoomTable()
	if err != nil {
		return nil, err
	}
	tokens, err := lexer.Tokenize(src)
	if err != nil {
		return nil, err
	}
	return parser.ParseTokens(tokens, table)
}

func cmdTokens(args []string) error {
	src, err := readSource(args)
	if err != nil {
		return err
	}
	tokens, err := lexer.Tokenize(src)
	if err != nil {
		return err
	}
	for _, t := range tokens {
		fmt.Printf("%s\t%s\n", t.Pos, t)
	}
	return nil
}

func cmdParse(args []string) error {
	fs := flag.NewFlagSet("parse", flag.ExitOnError)
	cst := fs.Bool("cst", false, "Print the concrete syntax tree instead of the semantic tree")
	if err := fs.Parse(args); err != nil {
		return err
	}
	src, err := readSource(fs.Args())
	if err != nil {
		return err
	}
	tree, err := frontend(src)
	if err != nil {
		return err
	}
	if *cst {
		dumpCST(os.Stdout, tree, 0)
		return nil
	}
	prog, err := ast.Build(tree)
	if err != nil {
		return err
	}
	dumpAST(os.Stdout, prog, 0)
	return nil
}

func cmdCheck(args []string) error {
	src, err := readSource(args)
	if err != nil {
		return err
	}
	tree, err := frontend(src)
	if err != nil {
		return err
	}
	prog, err := ast.Build(tree)
	if err != nil {
		return err
	}
	info, errs := sema.Analyze(prog)
	if len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintln(os.Stderr, e)
		}
		return fmt.Errorf("%d error(s)", len(errs))
	}
	fmt.Printf("ok: %d node(s), order %s\n", len(info.Order), strings.Join(info.Order, " "))
	return nil
}

func cmdAsm(args []string) error {
	fs := flag.NewFlagSet("asm", flag.ExitOnError)
	out := fs.String("o", "", "Output file (default: input with .lbc extension)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("expected exactly one assembly file")
	}
	in := fs.Arg(0)
	data, err := os.ReadFile(in)
	if err != nil {
		return err
	}
	prog, err := bytecode.Assemble(string(data))
	if err != nil {
		return err
	}
	encoded, err := prog.Serialize()
	if err != nil {
		return err
	}
	path := *out
	if path == "" {
		path = strings.TrimSuffix(in, filepath.Ext(in)) + ".lbc"
	}
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return err
	}
	log.Infof("assembled %d instructions to %s", len(prog), path)
	return nil
}

func cmdDis(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("expected exactly one bytecode file")
	}
	prog, err := loadProgram(args[0])
	if err != nil {
		return err
	}
	name := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
	fmt.Print(prog.DisassembleWithName(name))
	return nil
}

func cmdRun(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	trace := fs.Bool("trace", false, "Print each instruction before it executes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("expected exactly one program file")
	}
	prog, err := loadProgram(fs.Arg(0))
	if err != nil {
		return err
	}

	vm := bytecode.NewVM()
	vm.Trace = *trace
	log.Infof("executing %s (%d instructions)", fs.Arg(0), len(prog))
	res, err := vm.Execute(prog)
	if err != nil {
		return err
	}
	if res.HasValue {
		fmt.Println(res.Value)
	}
	return nil
}

// loadProgram reads a program from disk: .lasm sources are assembled,
// anything else is decoded as a binary bytecode file.
func loadProgram(path string) (bytecode.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(path, ".lasm") {
		return bytecode.Assemble(string(data))
	}
	return bytecode.Deserialize(data)
}

func cmdStore(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("store: expected put, get, list or rm")
	}

	st, err := store.OpenDefault()
	if err != nil {
		return err
	}
	defer st.Close()

	switch args[0] {
	case "put":
		if len(args) != 3 {
			return fmt.Errorf("store put: expected <name> <file>")
		}
		prog, err := loadProgram(args[2])
		if err != nil {
			return err
		}
		id, err := st.Put(args[1], prog)
		if err != nil {
			return err
		}
		log.Infof("stored %q as %s", args[1], id)
		fmt.Println(id)
		return nil
	case "get":
		if len(args) != 2 {
			return fmt.Errorf("store get: expected <name>")
		}
		prog, err := st.GetByName(args[1])
		if err != nil {
			return err
		}
		fmt.Print(prog.DisassembleWithName(args[1]))
		return nil
	case "list":
		entries, err := st.List()
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Printf("%s  %s  %s  %s\n", e.ID, e.CreatedAt.Format("2006-01-02 15:04:05"), e.Hash[:12], e.Name)
		}
		return nil
	case "rm":
		if len(args) != 2 {
			return fmt.Errorf("store rm: expected <name>")
		}
		return st.Delete(args[1])
	default:
		return fmt.Errorf("store: unknown subcommand %q", args[0])
	}
}
