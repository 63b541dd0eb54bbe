// Package cursor keeps an editor and a preview agreeing on the current page.
//
// A Channel holds the current State of one document. Each side subscribes
// with its Origin and only sees states set by the other side. States emitted
// while a side is still reacting to a delivery are dropped, so an update
// never bounces back to where it came from.
package cursor
