// Package verify checks structural invariants of a rendered page set,
// chiefly that every internal link resolves to another rendered page.
package verify

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/relix/internal/render"
)

// Problem describes one broken internal link.
type Problem struct {
	Page string // page containing the link
	Href string // the offending href
}

func (p Problem) String() string {
	return fmt.Sprintf("%s: broken internal link %q", p.Page, p.Href)
}

// Links parses every rendered HTML page and checks that each relative
// href resolves to another entry in the page set, rendered pages and
// published artifact files alike. Absolute URLs are out of scope: their
// reachability is the release source's concern (see
// source.VerifyArtifacts).
func Links(pages []render.Page) ([]Problem, error) {
	known := make(map[string]struct{}, len(pages))
	for _, p := range pages {
		known[p.Path] = struct{}{}
	}

	var problems []Problem
	for _, p := range pages {
		if !strings.HasSuffix(p.Path, ".html") {
			continue
		}
		hrefs, err := extractHrefs(p.Content)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", p.Path, err)
		}
		for _, href := range hrefs {
			if !isInternal(href) {
				continue
			}
			target := resolve(p.Path, href)
			if _, ok := known[target]; !ok {
				problems = append(problems, Problem{Page: p.Path, Href: href})
			}
		}
	}
	return problems, nil
}

// extractHrefs collects href attributes of anchor and link elements.
func extractHrefs(content []byte) ([]string, error) {
	doc, err := html.Parse(strings.NewReader(string(content)))
	if err != nil {
		return nil, err
	}

	var hrefs []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "a" || n.Data == "link") {
			for _, attr := range n.Attr {
				if attr.Key == "href" && attr.Val != "" {
					hrefs = append(hrefs, attr.Val)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return hrefs, nil
}

// isInternal reports whether a href points into the rendered page set.
func isInternal(href string) bool {
	if strings.HasPrefix(href, "#") {
		return false
	}
	u, err := url.Parse(href)
	if err != nil {
		return false
	}
	// Absolute URLs and root-relative URLs leave the page set: artifact
	// downloads, configured base URLs, external sites.
	return u.Scheme == "" && u.Host == "" && !strings.HasPrefix(href, "/")
}

// resolve maps a relative href from a page to the page path it targets.
// Directory-style links resolve to the directory's index.html.
func resolve(fromPage, href string) string {
	if i := strings.IndexAny(href, "?#"); i >= 0 {
		href = href[:i]
	}
	target := path.Join(path.Dir(fromPage), href)
	if href == "" || strings.HasSuffix(href, "/") {
		target = path.Join(target, "index.html")
	}
	return target
}
