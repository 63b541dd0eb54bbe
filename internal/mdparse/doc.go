// Package mdparse wraps goldmark's parser so callers can recover the exact
// source extent of page separators, fenced code blocks, a leading YAML
// frontmatter block, and inline links and images.
//
// goldmark keeps line segments for most blocks but not for thematic breaks,
// and a fenced block's segments exclude its fence lines. Parse registers thin
// wrappers around goldmark's own thematic break and fenced code parsers, at a
// higher priority, which record where each block opened. Detection rules stay
// goldmark's.
//
// Inline nodes carry no span at all. The link, code span, autolink and raw
// HTML parsers are wrapped the same way so links and images can be rewritten
// without touching the bytes around them.
package mdparse
