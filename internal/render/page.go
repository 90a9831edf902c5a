// Package render turns a release catalog into a set of static pages.
// Rendering is a pure function of the catalog: identical catalogs produce
// byte-identical pages, which keeps the output reproducible and cacheable.
package render

// Page is one output file: a relative path under the output directory
// and its content. Pages are never mutated after creation.
type Page struct {
	Path    string
	Content []byte

	// SourcePath, when set, marks a file that is copied verbatim from
	// disk instead of carrying its content in memory. Used for local
	// artifact files published next to the rendered pages; Content is
	// nil for such pages.
	SourcePath string
}
