package assets

import (
	"bytes"
	"fmt"
	"html/template"
)

// Built-in asset names.
const (
	SlidesStyle     = "slides"
	ThemeStyle      = "theme"
	PreviewTemplate = "preview"
)

// PreviewPage holds the values substituted into the preview shell.
type PreviewPage struct {
	Title    string
	Socket   string // websocket path
	ThemeCSS string // stylesheet URL
}

// RenderPreview loads the preview template through loader and executes it.
func RenderPreview(loader AssetLoader, page PreviewPage) (string, error) {
	src, err := loader.LoadTemplate(PreviewTemplate)
	if err != nil {
		return "", err
	}
	tmpl, err := template.New(PreviewTemplate).Parse(src)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTemplateParse, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, page); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTemplateParse, err)
	}
	return buf.String(), nil
}
