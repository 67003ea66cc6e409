package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/peterh/liner"

	"github.com/chazu/kavya/manifest"
	"github.com/chazu/kavya/vm"
)

// lineReader reads one REPL line at a time. It returns io.EOF at the end
// of input.
type lineReader interface {
	Prompt(prompt string) (string, error)
}

// plainReader reads lines from a non-terminal input.
type plainReader struct {
	in  *bufio.Reader
	out io.Writer
}

func (r *plainReader) Prompt(prompt string) (string, error) {
	fmt.Fprint(r.out, prompt)
	line, err := r.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// isTerminal reports whether r is an interactive terminal.
func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// runREPL reads and runs one line at a time until `exit` or end of input.
// Definitions persist between lines.
func (c *cli) runREPL(machine *vm.VM, m *manifest.Manifest) int {
	var reader lineReader
	if isTerminal(c.inStream) {
		ln := liner.NewLiner()
		defer ln.Close()
		ln.SetCtrlCAborts(true)

		histPath := m.HistoryPath()
		if f, err := os.Open(histPath); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
		defer func() {
			if histPath == "" {
				return
			}
			if f, err := os.Create(histPath); err == nil {
				_, _ = ln.WriteHistory(f)
				_ = f.Close()
			}
		}()

		reader = &historyReader{ln}
	} else {
		reader = &plainReader{in: c.input(), out: c.outStream}
	}

	return c.repl(machine, reader, m.REPL.Prompt)
}

// historyReader records every line entered in the liner history.
type historyReader struct {
	ln *liner.State
}

func (r *historyReader) Prompt(prompt string) (string, error) {
	line, err := r.ln.Prompt(prompt)
	if err == nil && strings.TrimSpace(line) != "" {
		r.ln.AppendHistory(line)
	}
	return line, err
}

func (c *cli) repl(machine *vm.VM, reader lineReader, prompt string) int {
	for {
		line, err := reader.Prompt(prompt)
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				c.log.Errorf("reading input: %s", err)
			}
			fmt.Fprintln(c.outStream)
			return exitOK
		}

		input := strings.TrimSpace(line)
		switch {
		case input == "":
			continue
		case input == "exit":
			fmt.Fprintln(c.outStream, "Exiting...")
			fmt.Fprintln(c.outStream, "Goodbye!")
			return exitOK
		case strings.HasPrefix(input, ":"):
			c.handleREPLCommand(machine, input)
		default:
			machine.Interpret(line)
		}
	}
}

// handleREPLCommand handles REPL meta-commands
func (c *cli) handleREPLCommand(machine *vm.VM, cmd string) {
	switch cmd {
	case ":help", ":h", ":?":
		fmt.Fprintln(c.outStream, "REPL Commands:")
		fmt.Fprintln(c.outStream, "  :help, :h, :?     Show this help")
		fmt.Fprintln(c.outStream, "  :globals          List defined global variables")
		fmt.Fprintln(c.outStream, "  :dump             Toggle bytecode disassembly")
		fmt.Fprintln(c.outStream, "  exit              Exit REPL")
	case ":globals":
		for _, name := range machine.GlobalNames() {
			val, _ := machine.Global(name)
			fmt.Fprintf(c.outStream, "%s = %s\n", name, val)
		}
	case ":dump":
		machine.DumpChunks = !machine.DumpChunks
		state := "off"
		if machine.DumpChunks {
			state = "on"
		}
		fmt.Fprintf(c.outStream, "Bytecode dump %s\n", state)
	default:
		fmt.Fprintf(c.outStream, "Unknown command: %s (type :help for commands)\n", cmd)
	}
}
