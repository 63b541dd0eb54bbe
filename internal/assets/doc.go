// Package assets provides the stylesheets and HTML templates used by the
// preview server and the slide compiler.
//
// # Loader Architecture
//
//	AssetLoader (interface)
//	    │
//	    ├── EmbeddedLoader    - loads from go:embed filesystem (built-in theme)
//	    ├── FilesystemLoader  - loads from a theme directory on disk
//	    └── AssetResolver     - combines both with custom-first fallback
//
// # Directory Structure
//
//	{themeDir}/
//	├── styles/
//	│   ├── slides.css        # Slide layout used by the compiler
//	│   └── theme.css         # Preview theme served at /theme.css
//	└── templates/
//	    └── preview.html      # Preview shell page
//
// # Security
//
// Asset names are validated to prevent path traversal attacks.
// FilesystemLoader resolves symlinks and verifies paths stay within basePath.
package assets
