package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"

	"git.home.luguber.info/inful/relix/internal/catalog"
	"git.home.luguber.info/inful/relix/internal/logfields"
)

// verifyConcurrency bounds parallel HEAD requests during verification.
const verifyConcurrency = 8

// VerifyArtifacts HEAD-checks every http(s) artifact URL in parallel and
// returns one warning per unreachable artifact. Results are merged only
// after all checks complete; verification never removes entries from the
// catalog, it only reports.
func VerifyArtifacts(ctx context.Context, releases []catalog.Release, client *http.Client) []Warning {
	if client == nil {
		client = http.DefaultClient
	}

	type check struct {
		entry string
		url   string
	}
	var checks []check
	for _, rel := range releases {
		for _, a := range rel.Artifacts {
			if !strings.HasPrefix(a.URL, "http://") && !strings.HasPrefix(a.URL, "https://") {
				continue // relative references are verified by the publishing layout, not HTTP
			}
			checks = append(checks, check{entry: fmt.Sprintf("%s/%s", rel.Version, a.Name), url: a.URL})
		}
	}
	if len(checks) == 0 {
		return nil
	}

	var (
		mu       sync.Mutex
		warnings []Warning
		wg       sync.WaitGroup
	)
	sem := make(chan struct{}, verifyConcurrency)

	for _, c := range checks {
		wg.Add(1)
		sem <- struct{}{}
		go func(c check) {
			defer wg.Done()
			defer func() { <-sem }()
			if reason := headCheck(ctx, client, c.url); reason != "" {
				slog.Debug("Artifact verification failed",
					logfields.Artifact(c.entry), "url", c.url, "reason", reason)
				mu.Lock()
				warnings = append(warnings, Warning{Entry: c.entry, Reason: reason})
				mu.Unlock()
			}
		}(c)
	}
	wg.Wait()

	sort.Slice(warnings, func(i, j int) bool { return warnings[i].Entry < warnings[j].Entry })
	return warnings
}

func headCheck(ctx context.Context, client *http.Client, url string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return fmt.Sprintf("invalid artifact url: %v", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Sprintf("artifact unreachable: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Sprintf("artifact unavailable at %s (status %d)", url, resp.StatusCode)
	}
	return ""
}
