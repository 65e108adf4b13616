package titles

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
)

var skipPrefixes = []string{"about:", "file:", "chrome:", "data:", "javascript:"}

// Resolver fetches a tab's page and extracts its document title, so a
// record tab can be renamed once the record's real name is known
// ("Ticket" -> "Ticket #42 — Printer on fire"). BaseURL is the origin the
// admin console is served from; tab urls are paths relative to it.
type Resolver struct {
	BaseURL string
	Client  *http.Client
}

// NewResolver creates a resolver for the console at baseURL.
func NewResolver(baseURL string) *Resolver {
	return &Resolver{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// Skippable reports whether a url can never yield a title (non-HTTP
// schemes).
func Skippable(url string) bool {
	for _, prefix := range skipPrefixes {
		if strings.HasPrefix(url, prefix) {
			return true
		}
	}
	return false
}

// Resolve fetches the page behind a tab path and returns its extracted
// title. Returns an error for non-HTTP urls or failed extraction; callers
// keep the classifier's title in that case.
func (r *Resolver) Resolve(path string) (string, error) {
	if Skippable(path) {
		return "", fmt.Errorf("skipping non-HTTP url: %s", path)
	}

	url := path
	if strings.HasPrefix(path, "/") {
		if r.BaseURL == "" {
			return "", fmt.Errorf("no base url configured for %s", path)
		}
		url = r.BaseURL + path
	}

	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	req.Header.Set("User-Agent", "tabdeck/1.0")
	resp, err := r.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("fetch %s: HTTP %d", url, resp.StatusCode)
	}

	article, err := readability.FromReader(resp.Body, nil)
	if err != nil {
		return "", fmt.Errorf("extract title from %s: %w", url, err)
	}

	title := strings.TrimSpace(article.Title)
	if title == "" {
		return "", fmt.Errorf("no title in %s", url)
	}
	return title, nil
}
