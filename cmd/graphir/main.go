package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/funvibe/graphir/internal/config"
	"github.com/funvibe/graphir/internal/remote"
	"github.com/funvibe/graphir/pkg/graphir"
)

func usage() {
	prog := os.Args[0]
	fmt.Fprintf(os.Stderr, `Usage:
  %[1]s print <file>                      render a graph document
  %[1]s rewrite <file> [-o out] [--cache] [--remote addr]
                                          outline precision scopes
  %[1]s exec <file> [args...] [--remote addr]
                                          rewrite and run with scalar inputs
  %[1]s serve [--addr host:port]          run the rewrite server
`, prog)
}

// isGraphFile checks if a file has a recognized graph document extension
func isGraphFile(path string) bool {
	for _, ext := range config.GraphFileExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// stdoutIsTerminal reports whether color output is appropriate.
func stdoutIsTerminal() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// splitFlags separates positional arguments from host flags.
func splitFlags(args []string) (positional []string, flags map[string]string) {
	flags = make(map[string]string)
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			positional = append(positional, arg)
			continue
		}
		name := strings.TrimLeft(arg, "-")
		switch name {
		case "cache", "color", "no-color":
			flags[name] = "true"
		case "remote", "addr", "o":
			if i+1 >= len(args) {
				fmt.Fprintf(os.Stderr, "flag --%s needs a value\n", name)
				os.Exit(2)
			}
			i++
			flags[name] = args[i]
		default:
			fmt.Fprintf(os.Stderr, "unknown flag %s\n", arg)
			os.Exit(2)
		}
	}
	return positional, flags
}

func newEngine(flags map[string]string) (*graphir.Engine, error) {
	var opts []graphir.Option
	if flags["cache"] == "true" {
		dir, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		opts = append(opts, graphir.WithCache(dir))
	}
	if addr := flags["remote"]; addr != "" {
		opts = append(opts, graphir.WithRemote(addr))
	}
	return graphir.New(opts...)
}

func handlePrint(args []string) bool {
	if len(args) == 0 || args[0] != "print" {
		return false
	}
	positional, flags := splitFlags(args[1:])
	if len(positional) != 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s print <file>\n", os.Args[0])
		os.Exit(2)
	}
	e, err := newEngine(flags)
	if err != nil {
		fatal(err)
	}
	defer e.Close()

	color := stdoutIsTerminal()
	if flags["no-color"] == "true" {
		color = false
	}
	text, err := e.PrintFile(positional[0], color)
	if err != nil {
		fatal(err)
	}
	fmt.Print(text)
	return true
}

func handleRewrite(args []string) bool {
	if len(args) == 0 || args[0] != "rewrite" {
		return false
	}
	positional, flags := splitFlags(args[1:])
	if len(positional) != 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s rewrite <file> [-o out]\n", os.Args[0])
		os.Exit(2)
	}
	if !isGraphFile(positional[0]) {
		fmt.Fprintf(os.Stderr, "not a graph document: %s\n", positional[0])
		os.Exit(2)
	}
	e, err := newEngine(flags)
	if err != nil {
		fatal(err)
	}
	defer e.Close()

	// A bundle destination gets the binary format, anything else YAML.
	dest := flags["o"]
	var out []byte
	if strings.HasSuffix(dest, config.BundleFileExt) {
		out, err = e.RewriteFileBundle(context.Background(), positional[0])
	} else {
		out, err = e.RewriteFile(context.Background(), positional[0])
	}
	if err != nil {
		fatal(err)
	}
	if dest != "" {
		if err := os.WriteFile(dest, out, 0o644); err != nil {
			fatal(err)
		}
	} else {
		os.Stdout.Write(out)
	}
	return true
}

func handleExec(args []string) bool {
	if len(args) == 0 || args[0] != "exec" {
		return false
	}
	positional, flags := splitFlags(args[1:])
	if len(positional) < 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s exec <file> [args...]\n", os.Args[0])
		os.Exit(2)
	}
	inputs := make([]float64, 0, len(positional)-1)
	for _, raw := range positional[1:] {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			fatal(fmt.Errorf("argument %q is not a number", raw))
		}
		inputs = append(inputs, v)
	}
	e, err := newEngine(flags)
	if err != nil {
		fatal(err)
	}
	defer e.Close()

	results, err := e.ExecFile(context.Background(), positional[0], inputs)
	if err != nil {
		fatal(err)
	}
	for _, r := range results {
		fmt.Println(strconv.FormatFloat(r, 'g', -1, 64))
	}
	return true
}

func handleServe(args []string) bool {
	if len(args) == 0 || args[0] != "serve" {
		return false
	}
	_, flags := splitFlags(args[1:])
	addr := flags["addr"]
	if addr == "" {
		addr = config.DefaultServeAddr
	}
	fmt.Fprintf(os.Stderr, "rewrite server listening on %s\n", addr)
	if err := remote.NewServer().ListenAndServe(addr); err != nil {
		fatal(err)
	}
	return true
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func main() {
	// Catch panics and show user-friendly error
	defer func() {
		if r := recover(); r != nil {
			if os.Getenv("DEBUG") == "1" {
				panic(r) // Re-panic to get stack trace
			}
			fmt.Fprintf(os.Stderr, "Internal error: %v\n", r)
			fmt.Fprintln(os.Stderr, "This is a bug. Please report it.")
			os.Exit(1)
		}
	}()

	args := os.Args[1:]
	if len(args) == 0 || args[0] == "help" || args[0] == "-help" || args[0] == "--help" {
		usage()
		return
	}

	if handlePrint(args) {
		return
	}
	if handleRewrite(args) {
		return
	}
	if handleExec(args) {
		return
	}
	if handleServe(args) {
		return
	}

	fmt.Fprintf(os.Stderr, "unknown command %q\n", args[0])
	usage()
	os.Exit(2)
}
