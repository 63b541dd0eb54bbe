package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: slidesync <command> [flags] <file.md>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  pages      List the pages of a deck")
	fmt.Fprintln(w, "  render     Print transformed markdown or compiled HTML")
	fmt.Fprintln(w, "  export     Export a deck to PDF")
	fmt.Fprintln(w, "  serve      Serve a live preview that follows the file")
	fmt.Fprintln(w, "  version    Show version information")
	fmt.Fprintln(w, "  help       Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'slidesync help <command>' for details on a specific command.")
}

func printCommonFlags(w io.Writer) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Common:")
	fmt.Fprintln(w, "  -c, --config <path>       Config file path")
	fmt.Fprintln(w, "  -q, --quiet               Only show errors")
	fmt.Fprintln(w, "  -v, --verbose             Show debug logs")
}

func printPagesUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: slidesync pages <file.md> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "List each page with its byte range and first line.")
	printCommonFlags(w)
}

func printRenderUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: slidesync render <file.md> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run the pages through the transform pipeline and print the result.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -m, --mode <s>            Transform mode: preview, export")
	fmt.Fprintln(w, "  -p, --page <n>            Render one page (0-based)")
	fmt.Fprintln(w, "      --html                Compile to a standalone HTML document")
	printCommonFlags(w)
}

func printExportUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: slidesync export <file.md> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Export the deck to PDF.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -o, --output <path>       Output PDF (default: input with .pdf)")
	fmt.Fprintln(w, "  -b, --backend <s>         Backend: marp, chrome")
	fmt.Fprintln(w, "  -t, --timeout <d>         Export timeout (e.g., 30s, 2m)")
	printCommonFlags(w)
}

func printServeUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: slidesync serve <file.md> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Serve a live preview. The preview follows edits to the file, and")
	fmt.Fprintln(w, "clicking a slide moves connected editors to its page.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -a, --addr <host:port>    Listen address")
	printCommonFlags(w)
}

// runHelp prints help for a specific command.
func runHelp(args []string, env *Environment) {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return
	}

	switch args[0] {
	case "pages":
		printPagesUsage(env.Stdout)
	case "render":
		printRenderUsage(env.Stdout)
	case "export":
		printExportUsage(env.Stdout)
	case "serve":
		printServeUsage(env.Stdout)
	case "version":
		fmt.Fprintln(env.Stdout, "Usage: slidesync version")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show version information.")
	case "help":
		fmt.Fprintln(env.Stdout, "Usage: slidesync help [command]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show help for a command.")
	default:
		fmt.Fprintf(env.Stderr, "Unknown command: %s\n", args[0])
		printUsage(env.Stderr)
	}
}
