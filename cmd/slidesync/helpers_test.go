package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testDeck = "# Alpha\n\nfirst\n---\n# Beta\n\nsecond\n"

// catConfig makes the marp backend print the markdown it is given, so the
// "PDF" is the prepared deck.
const catConfig = `export:
  command: ["sh", "-c", "cat \"$0\""]
diagram:
  enabled: false
`

// newDeck writes a deck and a config file to a temp dir.
func newDeck(t *testing.T, content, cfg string) (deck, config string) {
	t.Helper()
	dir := t.TempDir()
	deck = filepath.Join(dir, "deck.md")
	config = filepath.Join(dir, "slidesync.yaml")
	if err := os.WriteFile(deck, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(config, []byte(cfg), 0o600); err != nil {
		t.Fatal(err)
	}
	return deck, config
}

// run invokes runMain with captured output.
func run(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	env := &Environment{
		Stdout: &out,
		Stderr: &errOut,
		Getenv: func(string) string { return "" },
	}
	code = runMain(context.Background(), args, env)
	return code, out.String(), errOut.String()
}

func lines(s string) []string {
	return strings.Split(strings.TrimRight(s, "\n"), "\n")
}
