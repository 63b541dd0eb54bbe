// Package mdtree is a small, closed markdown tree for source-preserving
// rewrites.
//
// Build keeps every byte it does not understand as verbatim Text, so
// Render(Build(src)) == src. Only images, links, wiki markers, root-level
// fenced code and frontmatter become structured nodes. Transform edits the
// tree in two phases: all transforms run concurrently against the unchanged
// tree, then the planned edits are applied per parent.
package mdtree
