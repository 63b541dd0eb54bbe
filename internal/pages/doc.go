// Package pages splits a markdown document into slide pages at root-level
// horizontal rules, diffs successive page lists, and keeps the authoritative
// per-document list that renderers read from.
package pages
