package main

import (
	"io"
	"time"

	flag "github.com/spf13/pflag"
)

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
}

// renderFlags holds flags for the render command.
type renderFlags struct {
	common commonFlags
	mode   string
	page   int
	html   bool
}

// exportFlags holds flags for the export command.
type exportFlags struct {
	common  commonFlags
	output  string
	backend string
	timeout time.Duration
}

// serveFlags holds flags for the serve command.
type serveFlags struct {
	common commonFlags
	addr   string
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show debug logs")
}

func newFlagSet(name string, usage func(io.Writer), stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { usage(stderr) }
	return fs
}

// parsePagesFlags parses pages command flags and returns positional args.
func parsePagesFlags(args []string, stderr io.Writer) (*commonFlags, []string, error) {
	fs := newFlagSet("pages", printPagesUsage, stderr)
	f := &commonFlags{}
	addCommonFlags(fs, f)
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}

// parseRenderFlags parses render command flags and returns positional args.
func parseRenderFlags(args []string, stderr io.Writer) (*renderFlags, []string, error) {
	fs := newFlagSet("render", printRenderUsage, stderr)
	f := &renderFlags{}
	fs.StringVarP(&f.mode, "mode", "m", "preview", "transform mode: preview, export")
	fs.IntVarP(&f.page, "page", "p", -1, "render one page (0-based)")
	fs.BoolVar(&f.html, "html", false, "compile to a standalone HTML document")
	addCommonFlags(fs, &f.common)
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}

// parseExportFlags parses export command flags and returns positional args.
func parseExportFlags(args []string, stderr io.Writer) (*exportFlags, []string, error) {
	fs := newFlagSet("export", printExportUsage, stderr)
	f := &exportFlags{}
	fs.StringVarP(&f.output, "output", "o", "", "output PDF path (default: input with .pdf)")
	fs.StringVarP(&f.backend, "backend", "b", "", "export backend: marp, chrome")
	fs.DurationVarP(&f.timeout, "timeout", "t", 0, "export timeout (e.g., 30s, 2m)")
	addCommonFlags(fs, &f.common)
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}

// parseServeFlags parses serve command flags and returns positional args.
func parseServeFlags(args []string, stderr io.Writer) (*serveFlags, []string, error) {
	fs := newFlagSet("serve", printServeUsage, stderr)
	f := &serveFlags{}
	fs.StringVarP(&f.addr, "addr", "a", "", "listen address (default from config)")
	addCommonFlags(fs, &f.common)
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}
