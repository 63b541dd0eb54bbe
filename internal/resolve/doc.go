// Package resolve locates referenced files inside a vault, the directory tree
// a deck's notes and images live in.
//
// A reference is tried relative to the note that contains it, then relative
// to the vault root, then by base name anywhere in the vault. Preview paths
// take the form /files/<vault-relative path> and are accepted back as input.
package resolve
