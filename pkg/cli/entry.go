// Package cli is the kestrel command-line front end.
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/funvibe/kestrel/internal/config"
)

const appName = "kestrel"

// BackendType overrides the configured backend when set at build time:
// -ldflags "-X github.com/funvibe/kestrel/pkg/cli.BackendType=vm"
var BackendType = ""

// Exit statuses for usage and I/O problems.
const (
	exitUsage = 2
	exitIO    = 74
)

// CLI holds the streams a command talks to.
type CLI struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	// Dir is searched for kestrel.yaml / kestrel.toml.
	Dir string
}

// Run is the process entry point.
func Run() {
	c := &CLI{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr, Dir: "."}
	os.Exit(c.Main(os.Args[1:]))
}

// Main dispatches args[0] and returns the exit status.
func (c *CLI) Main(args []string) int {
	if len(args) == 0 {
		c.usage()
		return exitUsage
	}
	switch cmd := args[0]; cmd {
	case "run":
		return c.cmdRun(args[1:])
	case "compile":
		return c.cmdCompile(args[1:])
	case "build":
		return c.cmdBuild(args[1:])
	case "exec":
		return c.cmdExec(args[1:])
	case "repl":
		return c.cmdRepl(args[1:])
	case "version", "-version", "--version":
		fmt.Fprintf(c.Stdout, "%s %s\n", appName, config.Version)
		return 0
	case "help", "-h", "-help", "--help":
		c.usage()
		return 0
	default:
		if isSourceFile(cmd) {
			return c.cmdRun(args)
		}
		fmt.Fprintf(c.Stderr, "%s: unknown command %q\n", appName, cmd)
		c.usage()
		return exitUsage
	}
}

func (c *CLI) usage() {
	fmt.Fprintf(c.Stdout, `Kestrel %s

Usage:
  %s run [-tree|-vm] [-config file] [-v] <file.kes>   Run a script.
  %s run -e <source>                                Run source given on the command line.
  %s compile [-dump] <file.kes>                     Type-check and compile; -dump prints the program.
  %s build [-o out.kbc] <file.kes>                  Write a bytecode image.
  %s exec <file.kbc>                                Run a bytecode image.
  %s repl                                           Start an interactive session.
  %s version                                        Print the version.
`, config.Version, appName, appName, appName, appName, appName, appName, appName)
}

// isSourceFile checks if a file has a recognized source extension
func isSourceFile(path string) bool {
	for _, ext := range config.SourceFileExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// loadConfig reads the explicit config file, or searches c.Dir.
func (c *CLI) loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	dir := c.Dir
	if dir == "" {
		dir = "."
	}
	return config.Find(dir)
}

// configureLogging applies the log section; -v flags add to its verbosity.
func configureLogging(cfg *config.Config, extra int) {
	var path *string
	if cfg.Log.File != "" {
		path = &cfg.Log.File
	}
	commonlog.Configure(cfg.Log.Verbosity+extra, path)
}
