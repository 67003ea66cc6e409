package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tliron/commonlog"

	"github.com/chazu/kavya/compiler"
	"github.com/chazu/kavya/manifest"
	"github.com/chazu/kavya/server"
	"github.com/chazu/kavya/vm"

	_ "github.com/tliron/commonlog/simple"
)

const name = "kavya"

const version = "0.1.0"

// sourceExt is the extension of Kavya source files. chunkExt marks a
// chunk file written by -c.
const (
	sourceExt = ".kav"
	chunkExt  = ".kavc"
)

// Exit codes follow sysexits.h.
const (
	exitOK       = 0
	exitUsage    = 64 // EX_USAGE
	exitDataErr  = 65 // EX_DATAERR: compile error
	exitSoftware = 70 // EX_SOFTWARE: runtime error
	exitIOErr    = 74 // EX_IOERR
	exitConfig   = 78 // EX_CONFIG
)

type cli struct {
	inStream  io.Reader
	outStream io.Writer
	errStream io.Writer

	// in buffers inStream; the REPL and `ask` share it so neither loses
	// input read ahead by the other.
	in *bufio.Reader

	log commonlog.Logger
}

func (c *cli) run(args []string) int {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.errStream)
	fs.Usage = func() {
		fmt.Fprintf(c.errStream, "Usage: %s [path to %s file]\n\nOptions:\n", name, sourceExt)
		fs.PrintDefaults()
	}

	verbose := fs.Bool("v", false, "Verbose output (same as -verbosity 4)")
	verbosity := fs.Int("verbosity", -1, "Log verbosity (overrides kavya.toml)")
	dump := fs.Bool("d", false, "Disassemble each chunk before running it")
	output := fs.String("c", "", "Compile the script to a "+chunkExt+" chunk file instead of running it")
	lspMode := fs.Bool("lsp", false, "Serve the Language Server Protocol on stdio")
	noManifest := fs.Bool("no-manifest", false, "Ignore kavya.toml")
	showVersion := fs.Bool("version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if *showVersion {
		fmt.Fprintf(c.outStream, "%s %s\n", name, version)
		return exitOK
	}

	m, err := c.loadManifest(*noManifest)
	if err != nil {
		fmt.Fprintf(c.errStream, "%s: %s\n", name, err)
		return exitConfig
	}

	level := m.Log.Verbosity
	if *verbose {
		level = 4
	}
	if *verbosity >= 0 {
		level = *verbosity
	}
	c.configureLogging(level, m.LogPath())
	if m.Dir != "" {
		c.log.Infof("using %s", filepath.Join(m.Dir, manifest.FileName))
	}

	machine := c.newVM()
	machine.DumpChunks = *dump || m.Run.Dump

	if *lspMode {
		c.log.Info("starting language server")
		if err := server.NewLSP(machine, version).Run(); err != nil {
			fmt.Fprintf(c.errStream, "%s: %s\n", name, err)
			return exitSoftware
		}
		return exitOK
	}

	switch paths := fs.Args(); len(paths) {
	case 0:
		return c.runREPL(machine, m)
	case 1:
		if *output != "" {
			return c.compileFile(machine, paths[0], *output)
		}
		return c.runFile(machine, paths[0])
	default:
		fmt.Fprintf(c.errStream, "Usage: %s [path to %s file]\n", name, sourceExt)
		return exitUsage
	}
}

func (c *cli) loadManifest(skip bool) (*manifest.Manifest, error) {
	if skip {
		return manifest.Default(), nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	m, err := manifest.FindAndLoad(wd)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return manifest.Default(), nil
	}
	return m, nil
}

func (c *cli) configureLogging(verbosity int, path string) {
	if path != "" {
		commonlog.Configure(verbosity, &path)
	} else {
		commonlog.Configure(verbosity, nil)
	}
	c.log = commonlog.GetLogger("kavya.cli")
}

// newVM creates a VM wired to the CLI's streams with the compiler installed.
func (c *cli) newVM() *vm.VM {
	machine := vm.New(
		vm.WithOutput(c.outStream),
		vm.WithErrorOutput(c.errStream),
		vm.WithInput(c.input()),
	)
	machine.UseCompiler(compiler.Compile)
	return machine
}

func (c *cli) input() *bufio.Reader {
	if c.in == nil {
		c.in = bufio.NewReader(c.inStream)
	}
	return c.in
}

// runFile runs one .kav script or a chunk file compiled from one.
func (c *cli) runFile(machine *vm.VM, path string) int {
	ext := filepath.Ext(path)
	if ext != sourceExt && ext != chunkExt {
		return c.unsupported()
	}

	data, code := c.readFile(path)
	if code != exitOK {
		return code
	}
	c.log.Debugf("loaded %s (%d bytes)", path, len(data))

	if ext == chunkExt {
		chunk, err := vm.UnmarshalChunk(data, machine.Heap())
		if err != nil {
			fmt.Fprintf(c.errStream, "Could not load chunk file \"%s\": %s\n", path, err)
			return exitDataErr
		}
		return exitCode(machine.InterpretChunk(chunk))
	}
	return exitCode(machine.Interpret(string(data)))
}

// compileFile compiles one .kav script and writes the chunk to output.
func (c *cli) compileFile(machine *vm.VM, path, output string) int {
	if filepath.Ext(path) != sourceExt {
		return c.unsupported()
	}
	data, code := c.readFile(path)
	if code != exitOK {
		return code
	}

	chunk, err := machine.Compile(string(data))
	if err != nil {
		fmt.Fprintln(c.errStream, err)
		return exitDataErr
	}
	encoded, err := vm.MarshalChunk(chunk)
	if err != nil {
		fmt.Fprintf(c.errStream, "%s: %s\n", name, err)
		return exitSoftware
	}
	if err := os.WriteFile(output, encoded, 0o644); err != nil {
		fmt.Fprintf(c.errStream, "Could not write file \"%s\".\n", output)
		return exitIOErr
	}
	c.log.Infof("wrote %s (%d bytes)", output, len(encoded))
	return exitOK
}

func (c *cli) unsupported() int {
	fmt.Fprintf(c.errStream, "Unsupported file type. Please use a %s file.\n", sourceExt)
	return exitUsage
}

func (c *cli) readFile(path string) ([]byte, int) {
	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(c.errStream, "Could not open file \"%s\".\n", path)
		return nil, exitIOErr
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		fmt.Fprintf(c.errStream, "Could not read file \"%s\".\n", path)
		return nil, exitIOErr
	}
	return data, exitOK
}

// exitCode maps an interpreter result to the process exit status.
func exitCode(result vm.InterpretResult) int {
	switch result {
	case vm.InterpretCompileError:
		return exitDataErr
	case vm.InterpretRuntimeError:
		return exitSoftware
	}
	return exitOK
}
