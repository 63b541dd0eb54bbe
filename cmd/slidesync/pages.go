package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	slidesync "github.com/alnah/go-slidesync"
)

func runPages(ctx context.Context, args []string, env *Environment) error {
	flags, positional, err := parsePagesFlags(args, env.Stderr)
	if err != nil {
		return err
	}
	s, err := newSession(positional, *flags, env)
	if err != nil {
		return err
	}
	doc, err := s.load(ctx, slidesync.NewRegistry(slidesync.WithLogger(s.log)))
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(env.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PAGE\tSTART\tEND\tFIRST LINE")
	for _, rec := range doc.Pages() {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%s\n", rec.Page, rec.Start, rec.End, firstLine(rec.Content))
	}
	return tw.Flush()
}

// firstLine returns the first non-blank line of s, trimmed.
func firstLine(s string) string {
	for line := range strings.Lines(s) {
		if t := strings.TrimSpace(line); t != "" {
			return t
		}
	}
	return ""
}
