package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/yuin/goldmark"

	"git.home.luguber.info/inful/relix/internal/catalog"
	"git.home.luguber.info/inful/relix/internal/config"
	relerr "git.home.luguber.info/inful/relix/internal/errors"
)

//go:embed templates/*.tmpl templates/style.css
var templateFS embed.FS

// Output paths are part of the tool's contract: CI pipelines and
// downstream consumers rely on them staying put.
const (
	IndexPage    = "index.html"
	StylePath    = "static/style.css"
	JSONIndex    = "index.0.json"
	JSONIndexMin = "index.0-min.json"
)

// ReleasePagePath returns the per-release page path for a version identifier.
func ReleasePagePath(version string) string {
	return fmt.Sprintf("releases/%s/index.html", version)
}

// Renderer produces the static page set for a catalog.
type Renderer struct {
	title        string
	description  string
	baseURL      string
	releasePages bool
	jsonIndex    bool

	templates *template.Template
	markdown  goldmark.Markdown
}

// New creates a renderer from configuration. Template parse failures are
// a programming error and panic at startup rather than mid-run.
func New(cfg *config.Config) *Renderer {
	tpl := template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))
	return &Renderer{
		title:        cfg.Title,
		description:  cfg.Description,
		baseURL:      normalizeBaseURL(cfg.BaseURL),
		releasePages: cfg.Render.ReleasePages,
		jsonIndex:    cfg.Render.JSONIndex,
		templates:    tpl,
		markdown:     goldmark.New(),
	}
}

func normalizeBaseURL(u string) string {
	if u == "" {
		return ""
	}
	if !strings.HasSuffix(u, "/") {
		u += "/"
	}
	return u
}

// artifactView is the template-facing projection of an artifact. Optional
// fields degrade by omission: unknown sizes render empty, not "0 B".
type artifactView struct {
	Name      string
	URL       string
	SizeHuman string
	Checksum  string
}

type releaseView struct {
	Title         string
	Version       string
	Channel       string
	Date          string
	ArtifactCount int
	PageHref      string
	Artifacts     []artifactView
}

type indexContext struct {
	Title       string
	Description string
	BaseURL     string
	Releases    []releaseView
}

type releaseContext struct {
	SiteTitle string
	Release   releaseView
	NotesHTML template.HTML
}

// Render turns the catalog into the full page set. It is deterministic:
// no clock, no randomness, no map iteration reaches the output.
func (r *Renderer) Render(c *catalog.Catalog) ([]Page, error) {
	var pages []Page
	seen := make(map[string]struct{})

	add := func(path string, content []byte) error {
		if _, dup := seen[path]; dup {
			return relerr.RenderError(fmt.Sprintf("duplicate output path %q", path)).
				WithContext("path", path)
		}
		seen[path] = struct{}{}
		pages = append(pages, Page{Path: path, Content: content})
		return nil
	}

	indexHTML, err := r.renderIndex(c)
	if err != nil {
		return nil, err
	}
	if err := add(IndexPage, indexHTML); err != nil {
		return nil, err
	}

	if r.releasePages {
		for _, rel := range c.Releases() {
			page, err := r.renderRelease(rel)
			if err != nil {
				return nil, err
			}
			if err := add(ReleasePagePath(rel.Version), page); err != nil {
				return nil, err
			}
		}
	}

	if r.jsonIndex {
		full, minified, err := renderJSONIndex(c)
		if err != nil {
			return nil, err
		}
		if err := add(JSONIndex, full); err != nil {
			return nil, err
		}
		if err := add(JSONIndexMin, minified); err != nil {
			return nil, err
		}
	}

	style, err := templateFS.ReadFile("templates/style.css")
	if err != nil {
		return nil, relerr.RenderError(fmt.Sprintf("embedded stylesheet missing: %v", err))
	}
	if err := add(StylePath, style); err != nil {
		return nil, err
	}

	return pages, nil
}

func (r *Renderer) renderIndex(c *catalog.Catalog) ([]byte, error) {
	ctx := indexContext{
		Title:       r.title,
		Description: r.description,
		BaseURL:     r.baseURL,
		Releases:    make([]releaseView, 0, c.Len()),
	}
	for _, rel := range c.Releases() {
		view := r.releaseView(rel, 0)
		if r.releasePages {
			view.PageHref = r.baseURL + "releases/" + rel.Version + "/"
			view.Artifacts = nil // listed on the release page instead
		}
		ctx.Releases = append(ctx.Releases, view)
	}

	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, "index.html.tmpl", ctx); err != nil {
		return nil, relerr.RenderError(fmt.Sprintf("execute index template: %v", err))
	}
	return buf.Bytes(), nil
}

func (r *Renderer) renderRelease(rel catalog.Release) ([]byte, error) {
	ctx := releaseContext{
		SiteTitle: r.title,
		Release:   r.releaseView(rel, 2),
	}
	if rel.Notes != "" {
		var buf bytes.Buffer
		if err := r.markdown.Convert([]byte(rel.Notes), &buf); err != nil {
			return nil, relerr.RenderError(fmt.Sprintf("convert release notes for %s: %v", rel.Version, err))
		}
		// Goldmark's default policy already drops raw HTML from the
		// markdown, so the converted output is safe to inline.
		ctx.NotesHTML = template.HTML(buf.String()) // #nosec G203
	}

	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, "release.html.tmpl", ctx); err != nil {
		return nil, relerr.RenderError(fmt.Sprintf("execute release template for %s: %v", rel.Version, err))
	}
	return buf.Bytes(), nil
}

// releaseView projects a release for templates. depth is the directory
// depth of the page embedding the view, used to rebase relative artifact
// URLs (directory-source artifacts are addressed relative to the root).
func (r *Renderer) releaseView(rel catalog.Release, depth int) releaseView {
	view := releaseView{
		Title:         rel.Title(),
		Version:       rel.Version,
		Channel:       string(rel.Channel),
		ArtifactCount: len(rel.Artifacts),
	}
	if rel.Date != nil {
		view.Date = rel.Date.UTC().Format("2006-01-02")
	}
	for _, a := range rel.Artifacts {
		view.Artifacts = append(view.Artifacts, artifactView{
			Name:      a.Name,
			URL:       rebaseURL(a.URL, depth),
			SizeHuman: humanSize(a.Size),
			Checksum:  a.Checksum,
		})
	}
	return view
}

func humanSize(size int64) string {
	if size <= 0 {
		return ""
	}
	return humanize.Bytes(uint64(size))
}

// rebaseURL prefixes relative artifact references with enough "../" to
// resolve from a page depth directories below the output root. Absolute
// and root-relative URLs pass through untouched.
func rebaseURL(url string, depth int) string {
	if depth == 0 || strings.Contains(url, "://") || strings.HasPrefix(url, "/") {
		return url
	}
	return strings.Repeat("../", depth) + url
}
