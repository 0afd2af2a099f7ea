package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/funvibe/kestrel/internal/backend"
	"github.com/funvibe/kestrel/internal/config"
	"github.com/funvibe/kestrel/internal/diagnostics"
	"github.com/funvibe/kestrel/internal/ir"
	"github.com/funvibe/kestrel/internal/linker"
	"github.com/funvibe/kestrel/internal/pipeline"
	"github.com/funvibe/kestrel/internal/prettyprinter"
)

const exitConfig = 78

// countFlag counts repetitions of a boolean flag (-v -v).
type countFlag int

func (f *countFlag) String() string   { return strconv.Itoa(int(*f)) }
func (f *countFlag) IsBoolFlag() bool { return true }

func (f *countFlag) Set(s string) error {
	on, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	if on {
		*f++
	}
	return nil
}

// options are the flags every command accepts.
type options struct {
	configPath string
	verbose    countFlag
	tree       bool
	vm         bool
}

func newFlagSet(name string, out io.Writer, o *options, backends bool) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	fs.StringVar(&o.configPath, "config", "", "configuration file (yaml or toml)")
	fs.Var(&o.verbose, "v", "increase log verbosity (repeatable)")
	if backends {
		fs.BoolVar(&o.tree, "tree", false, "use the tree-walking interpreter")
		fs.BoolVar(&o.vm, "vm", false, "compile and run on the register VM")
	}
	return fs
}

// prepare loads configuration, applies flag overrides, configures logging
// and opens the diagnostics sink.
func (c *CLI) prepare(o *options) (*config.Config, diagnostics.Sink, error) {
	cfg, err := c.loadConfig(o.configPath)
	if err != nil {
		return nil, nil, err
	}
	if BackendType != "" {
		cfg.Backend = BackendType
	}
	switch {
	case o.tree && o.vm:
		return nil, nil, fmt.Errorf("-tree and -vm are mutually exclusive")
	case o.tree:
		cfg.Backend = config.BackendTree
	case o.vm:
		cfg.Backend = config.BackendVM
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	configureLogging(cfg, int(o.verbose))
	sink, err := c.openSink(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, sink, nil
}

func (c *CLI) openSink(cfg *config.Config) (diagnostics.Sink, error) {
	switch cfg.Diagnostics.Sink {
	case diagnostics.SinkStdout:
		return diagnostics.NewWriterSink(c.Stdout), nil
	case "", diagnostics.SinkStderr:
		return diagnostics.NewWriterSink(c.Stderr), nil
	}
	return diagnostics.Open(cfg.Diagnostics.Sink, cfg.Diagnostics.Path)
}

func (c *CLI) report(sink diagnostics.Sink, ctx *pipeline.PipelineContext) {
	if !ctx.Failed() {
		return
	}
	if err := sink.Write(ctx.RunID, ctx.Errors); err != nil {
		fmt.Fprintf(c.Stderr, "%s: writing diagnostics: %s\n", appName, err)
	}
}

// readSource returns the program text and its path. A single "-" or no
// argument reads standard input.
func (c *CLI) readSource(args []string, eval string) (string, string, error) {
	if eval != "" {
		if len(args) > 0 {
			return "", "", fmt.Errorf("-e takes no file argument")
		}
		return eval, "", nil
	}
	switch {
	case len(args) > 1:
		return "", "", fmt.Errorf("expected one source file, got %d", len(args))
	case len(args) == 0 || args[0] == "-":
		if c.Stdin == nil {
			return "", "", fmt.Errorf("no source file given")
		}
		data, err := io.ReadAll(c.Stdin)
		if err != nil {
			return "", "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), "", nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", "", err
	}
	return string(data), args[0], nil
}

func (c *CLI) cmdRun(args []string) int {
	var o options
	fs := newFlagSet("run", c.Stderr, &o, true)
	eval := fs.String("e", "", "source to run instead of a file")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	source, path, err := c.readSource(fs.Args(), *eval)
	if err != nil {
		fmt.Fprintf(c.Stderr, "%s: %s\n", appName, err)
		return exitIO
	}
	cfg, sink, err := c.prepare(&o)
	if err != nil {
		fmt.Fprintf(c.Stderr, "%s: %s\n", appName, err)
		return exitConfig
	}
	defer sink.Close()

	b, err := backend.New(cfg)
	if err != nil {
		fmt.Fprintf(c.Stderr, "%s: %s\n", appName, err)
		return exitConfig
	}
	ctx := pipeline.NewPipelineContext(source)
	ctx.FilePath = path
	ctx.Out = c.Stdout
	ctx = backend.Pipeline(b).Run(ctx)
	c.report(sink, ctx)
	return backend.Status(ctx)
}

// compile runs the front end, compiler and linker over one source file.
// With a nil program the returned int is the exit status.
func (c *CLI) compile(fs *flag.FlagSet, o *options) (*pipeline.PipelineContext, *linker.Program, int) {
	source, path, err := c.readSource(fs.Args(), "")
	if err != nil {
		fmt.Fprintf(c.Stderr, "%s: %s\n", appName, err)
		return nil, nil, exitIO
	}
	_, sink, err := c.prepare(o)
	if err != nil {
		fmt.Fprintf(c.Stderr, "%s: %s\n", appName, err)
		return nil, nil, exitConfig
	}
	defer sink.Close()

	ctx := pipeline.NewPipelineContext(source)
	ctx.FilePath = path
	stages := append(backend.FrontEnd(), &ir.CompilerProcessor{}, &linker.LinkerProcessor{})
	ctx = pipeline.New(stages...).Run(ctx)
	if ctx.Failed() {
		c.report(sink, ctx)
		return ctx, nil, backend.StatusCompileError
	}
	return ctx, ctx.Program.(*linker.Program), 0
}

func (c *CLI) cmdCompile(args []string) int {
	var o options
	fs := newFlagSet("compile", c.Stderr, &o, false)
	dump := fs.Bool("dump", false, "print the linked program")
	tree := fs.Bool("ast", false, "print the parsed program, fully parenthesized")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	ctx, prog, status := c.compile(fs, &o)
	if prog == nil {
		return status
	}
	if *tree {
		fmt.Fprint(c.Stdout, prettyprinter.Print(ctx.AstRoot))
	}
	if *dump {
		fmt.Fprint(c.Stdout, linker.Disassemble(prog))
	}
	if *tree || *dump {
		return 0
	}
	path := ctx.FilePath
	if path == "" {
		path = "<stdin>"
	}
	fmt.Fprintf(c.Stdout, "%s: %d instructions, %d functions, %d bytes of data\n", path, len(prog.Code), len(prog.Functions), len(prog.Data))
	return 0
}

func (c *CLI) cmdBuild(args []string) int {
	var o options
	fs := newFlagSet("build", c.Stderr, &o, false)
	output := fs.String("o", "", "image path (default: source name with "+config.ImageFileExt+")")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	ctx, prog, status := c.compile(fs, &o)
	if prog == nil {
		return status
	}
	path := ctx.FilePath
	target := *output
	if target == "" {
		if path == "" {
			fmt.Fprintf(c.Stderr, "%s: -o is required when reading stdin\n", appName)
			return exitUsage
		}
		target = linker.ImageName(path)
	}
	data, err := linker.Marshal(prog)
	if err != nil {
		fmt.Fprintf(c.Stderr, "%s: %s\n", appName, err)
		return exitIO
	}
	if err := os.WriteFile(target, data, 0644); err != nil {
		fmt.Fprintf(c.Stderr, "%s: %s\n", appName, err)
		return exitIO
	}
	fmt.Fprintf(c.Stdout, "Compiled %s -> %s (%d bytes)\n", path, target, len(data))
	return 0
}

func (c *CLI) cmdExec(args []string) int {
	var o options
	fs := newFlagSet("exec", c.Stderr, &o, false)
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(c.Stderr, "usage: %s exec <file%s>\n", appName, config.ImageFileExt)
		return exitUsage
	}
	path := fs.Arg(0)
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(c.Stderr, "%s: %s\n", appName, err)
		return exitIO
	}
	prog, err := linker.Unmarshal(data)
	if err != nil {
		fmt.Fprintf(c.Stderr, "%s: %s: %s\n", appName, path, err)
		return exitIO
	}
	cfg, sink, err := c.prepare(&o)
	if err != nil {
		fmt.Fprintf(c.Stderr, "%s: %s\n", appName, err)
		return exitConfig
	}
	defer sink.Close()

	ctx := pipeline.NewPipelineContext("")
	ctx.FilePath = path
	ctx.Out = c.Stdout
	ctx.Program = prog
	ctx = backend.NewExecutionProcessor(backend.NewVM(cfg)).Process(ctx)
	c.report(sink, ctx)
	return backend.Status(ctx)
}
