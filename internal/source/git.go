package source

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage/memory"

	"git.home.luguber.info/inful/relix/internal/catalog"
	relerr "git.home.luguber.info/inful/relix/internal/errors"
	"git.home.luguber.info/inful/relix/internal/logfields"
)

// GitSource enumerates releases from the tags of a remote repository,
// listed in-memory without cloning. Artifact URLs are synthesized from a
// template expanding {version} (canonical, no "v") and {tag} (as pushed);
// an empty template yields releases without artifacts, which still get
// indexed.
type GitSource struct {
	repoURL          string
	artifactTemplate string

	// listRefs is swappable for tests; defaults to a memory-storage remote List.
	listRefs func(ctx context.Context) ([]*plumbing.Reference, error)
}

// NewGitSource creates a git source for the given remote URL.
func NewGitSource(repoURL, artifactTemplate string) *GitSource {
	s := &GitSource{repoURL: repoURL, artifactTemplate: artifactTemplate}
	s.listRefs = s.listRemote
	return s
}

func (s *GitSource) Name() string { return fmt.Sprintf("git:%s", s.repoURL) }

func (s *GitSource) listRemote(ctx context.Context) ([]*plumbing.Reference, error) {
	remote := git.NewRemote(memory.NewStorage(), &gitconfig.RemoteConfig{
		Name: "origin",
		URLs: []string{s.repoURL},
	})
	return remote.ListContext(ctx, &git.ListOptions{})
}

// Enumerate lists remote tags and converts version-shaped tags into
// releases. Failure to reach the remote is fatal; a tag that is not a
// version (e.g. "nightly") is skipped silently since arbitrary tags are
// normal in real repositories.
func (s *GitSource) Enumerate(ctx context.Context) ([]catalog.Release, []Warning, error) {
	refs, err := s.listRefs(ctx)
	if err != nil {
		return nil, nil, relerr.SourceUnavailable(err, fmt.Sprintf("list references of %s", s.repoURL))
	}

	var releases []catalog.Release
	for _, ref := range refs {
		if ref.Type() == plumbing.SymbolicReference {
			continue
		}
		refName := ref.Name().String()
		if !strings.HasPrefix(refName, "refs/tags/") {
			continue
		}
		tag := strings.TrimPrefix(refName, "refs/tags/")

		parsed, err := catalog.ParseVersion(tag)
		if err != nil {
			slog.Debug("Ignoring non-version tag", logfields.Release(tag))
			continue
		}

		rel := catalog.Release{
			Version: tag,
			Parsed:  parsed,
			Channel: inferChannel(parsed),
		}
		if s.artifactTemplate != "" {
			url := expandArtifactTemplate(s.artifactTemplate, parsed, tag)
			rel.Artifacts = []catalog.Artifact{{Name: urlBaseName(url), URL: url}}
		}
		releases = append(releases, rel)
	}
	return releases, nil, nil
}

func expandArtifactTemplate(tmpl string, v catalog.Version, tag string) string {
	out := strings.ReplaceAll(tmpl, "{version}", v.String())
	return strings.ReplaceAll(out, "{tag}", tag)
}

func urlBaseName(url string) string {
	if i := strings.LastIndex(url, "/"); i >= 0 && i < len(url)-1 {
		return url[i+1:]
	}
	return url
}
