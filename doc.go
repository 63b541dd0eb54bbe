// Package slidesync keeps a live slide preview in sync with a markdown
// document split into pages by thematic breaks, and exports the deck to PDF.
//
// # Quick Start
//
// Open a document, attach a renderer, and feed it text:
//
//	reg := slidesync.NewRegistry()
//	doc := reg.Open("/notes/talk.md")
//	defer reg.Close(doc.ID())
//
//	compiler, err := slidesync.NewGoldmarkCompiler()
//	if err != nil {
//		return err
//	}
//	proc := pipeline.NewProcessor(resolver)
//	r := slidesync.NewRenderer(doc, proc, compiler)
//	defer r.Close()
//	r.OnFrame(func(f slidesync.Frame) { publish(f.Markup, f.Stylesheet) })
//
//	doc.Update(ctx, text)
//
// # Incremental Updates
//
// Each Update segments the text into pages and compares them with the
// previous segmentation. When the page count changes the whole list is
// replaced. Otherwise only pages whose content changed are merged into the
// store and re-rendered; the offsets of the remaining pages are shifted to
// stay aligned with the text.
//
// # Cursor Sync
//
// Document.Sync carries the current page and the side that set it. The
// editor and the preview each subscribe for the other side's changes, and
// state changes made while applying one are suppressed, so a change never
// echoes back to where it came from.
//
// # Export
//
// Exporter runs every page through the pipeline in export mode and hands
// the joined markdown to a Backend: MarpBackend shells out to marp-cli,
// ChromeBackend prints the compiled slides with headless Chrome.
package slidesync
