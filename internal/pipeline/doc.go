// Package pipeline rewrites the markdown of one page for a render target.
//
// A Processor runs a fixed sequence of stages over an mdtree tree, each a
// full concurrent pass committed before the next begins:
//   - Frontmatter extraction (page 0 only)
//   - Embed and wikilink resolution
//   - Stylesheet note inlining
//   - Image alt-text sizing
//   - Image URL resolution, which depends on the Mode
//   - Diagram code-block rasterization
//
// Per-node failures never fail a page: unresolvable images are dropped and
// failed diagrams become visible error markers. Only context errors are
// returned.
//
// The package also holds the HTML side of rendering: the goldmark converter
// used by the slide compiler and embed cache, CSS injection, and the image
// source rewriter applied to compiled markup.
package pipeline
