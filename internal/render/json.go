package render

import (
	"encoding/json"
	"fmt"

	"git.home.luguber.info/inful/relix/internal/catalog"
	relerr "git.home.luguber.info/inful/relix/internal/errors"
)

// renderJSONIndex produces the machine-readable index in both indented
// and minified form. The schema is versioned through the file name
// (index.0.json); consumers pin the schema by fetching that exact path.
func renderJSONIndex(c *catalog.Catalog) (full, minified []byte, err error) {
	// Marshal a non-nil slice so an empty catalog yields [] instead of null.
	releases := c.Releases()
	if releases == nil {
		releases = []catalog.Release{}
	}

	full, err = json.MarshalIndent(releases, "", "    ")
	if err != nil {
		return nil, nil, relerr.RenderError(fmt.Sprintf("marshal json index: %v", err))
	}
	full = append(full, '\n')

	minified, err = json.Marshal(releases)
	if err != nil {
		return nil, nil, relerr.RenderError(fmt.Sprintf("marshal minified json index: %v", err))
	}
	return full, minified, nil
}
