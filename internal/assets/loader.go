package assets

// AssetLoader loads stylesheets and HTML templates by name.
type AssetLoader interface {
	// LoadStyle loads a stylesheet by name (without .css extension).
	LoadStyle(name string) (string, error)

	// LoadTemplate loads an HTML template by name (without .html extension).
	LoadTemplate(name string) (string, error)
}
