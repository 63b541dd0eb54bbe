package pipeline

import (
	"net/url"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// SourceRewriter maps a reference found in markup to its replacement. It
// returns false to leave the reference alone.
type SourceRewriter func(ref string) (string, bool)

// RewriteImageSources rewrites the src of every <img> in markup for which
// rewrite returns true. Data URLs, remote URLs and anchors are never passed
// to rewrite. Fragments are rendered back as fragments.
func RewriteImageSources(markup string, rewrite SourceRewriter) (string, error) {
	if !strings.Contains(strings.ToLower(markup), "<img") {
		return markup, nil
	}
	doc, isFragment, err := parseHTML(markup)
	if err != nil {
		return "", err
	}
	rewriteNode(doc, map[atom.Atom]string{atom.Img: "src"}, rewrite)
	return renderHTML(doc, isFragment)
}

// RewriteRelativePaths converts relative image and link paths to absolute
// file:// URLs under sourceDir. If sourceDir is empty, returns the HTML
// unchanged. Paths escaping sourceDir are left alone.
func RewriteRelativePaths(htmlContent, sourceDir string) (string, error) {
	if sourceDir == "" {
		return htmlContent, nil
	}

	absSourceDir, err := filepath.Abs(sourceDir)
	if err != nil {
		return "", err
	}

	doc, isFragment, err := parseHTML(htmlContent)
	if err != nil {
		return "", err
	}

	rewriteNode(doc, map[atom.Atom]string{atom.Img: "src", atom.A: "href"}, func(ref string) (string, bool) {
		absPath := filepath.Join(absSourceDir, ref)
		if !isPathUnderDir(absPath, absSourceDir) {
			return "", false
		}
		return pathToFileURL(absPath), true
	})

	return renderHTML(doc, isFragment)
}

// parseHTML parses HTML content, handling both full documents and fragments.
func parseHTML(content string) (*html.Node, bool, error) {
	trimmed := strings.ToLower(strings.TrimSpace(content))

	if strings.HasPrefix(trimmed, "<!doctype") || strings.HasPrefix(trimmed, "<html") {
		doc, err := html.Parse(strings.NewReader(content))
		return doc, false, err
	}

	body := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Body,
		Data:     "body",
	}
	nodes, err := html.ParseFragment(strings.NewReader(content), body)
	if err != nil {
		return nil, true, err
	}

	container := &html.Node{Type: html.DocumentNode}
	for _, n := range nodes {
		container.AppendChild(n)
	}
	return container, true, nil
}

// renderHTML renders the document back to string. Fragments render only
// their children.
func renderHTML(doc *html.Node, isFragment bool) (string, error) {
	var buf strings.Builder

	if isFragment {
		for c := doc.FirstChild; c != nil; c = c.NextSibling {
			if err := html.Render(&buf, c); err != nil {
				return "", err
			}
		}
		return buf.String(), nil
	}

	if err := html.Render(&buf, doc); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// rewriteNode walks the tree and rewrites the attribute named in attrs for
// each matching element.
func rewriteNode(n *html.Node, attrs map[atom.Atom]string, rewrite SourceRewriter) {
	if n.Type == html.ElementNode {
		if key, ok := attrs[n.DataAtom]; ok {
			for i, attr := range n.Attr {
				if attr.Key != key || !isRelativePath(attr.Val) {
					continue
				}
				if v, ok := rewrite(attr.Val); ok {
					n.Attr[i].Val = v
				}
			}
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		rewriteNode(c, attrs, rewrite)
	}
}

// isRelativePath returns true if the path is a local reference to rewrite.
func isRelativePath(path string) bool {
	if path == "" {
		return false
	}

	lower := strings.ToLower(path)
	for _, prefix := range []string{"http://", "https://", "file://", "data:", "//", "#"} {
		if strings.HasPrefix(lower, prefix) {
			return false
		}
	}

	return !filepath.IsAbs(path)
}

// isPathUnderDir checks if absPath is under dir (prevents path traversal).
func isPathUnderDir(absPath, dir string) bool {
	cleanPath := filepath.Clean(absPath)
	cleanDir := filepath.Clean(dir)

	if !strings.HasSuffix(cleanDir, string(filepath.Separator)) {
		cleanDir += string(filepath.Separator)
	}

	return strings.HasPrefix(cleanPath+string(filepath.Separator), cleanDir)
}

// pathToFileURL converts an absolute path to a file:// URL.
func pathToFileURL(absPath string) string {
	u := url.URL{
		Scheme: "file",
		Path:   filepath.ToSlash(absPath),
	}
	return u.String()
}
