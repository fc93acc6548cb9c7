// Package version tracks the running build and polls for newer releases.
package version

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"vrbridge/internal/httputil"
)

const releaseAPI = "https://api.github.com/repos/vrbridge/vrbridge/releases/latest"

const checkInterval = 6 * time.Hour

// Info is the version state exposed on the API.
type Info struct {
	Current         string `json:"version"`
	Latest          string `json:"latestVersion,omitempty"`
	UpdateAvailable bool   `json:"updateAvailable"`
	ReleaseURL      string `json:"releaseUrl,omitempty"`
}

// Checker compares the running build against the latest published release.
// A "dev" build never checks and never reports an update.
type Checker struct {
	current    string
	releaseAPI string
	client     *http.Client

	mu         sync.RWMutex
	latest     string
	releaseURL string
}

// NewChecker builds a checker for the given build version. The release
// endpoint can be overridden with VERSION_CHECK_URL for testing.
func NewChecker(current string) *Checker {
	api := releaseAPI
	if u := os.Getenv("VERSION_CHECK_URL"); u != "" {
		api = u
	}
	return &Checker{
		current:    strings.TrimPrefix(current, "v"),
		releaseAPI: api,
		client:     httputil.NewClient(),
	}
}

// Run checks immediately and then on a fixed interval until ctx ends.
func (c *Checker) Run(ctx context.Context) {
	c.refresh(ctx)
	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.refresh(ctx)
		}
	}
}

// Info returns the current version state.
func (c *Checker) Info() Info {
	c.mu.RLock()
	defer c.mu.RUnlock()

	info := Info{Current: c.current}
	if c.latest != "" {
		info.Latest = c.latest
		info.ReleaseURL = c.releaseURL
		if c.current != "dev" && newerThan(c.latest, c.current) {
			info.UpdateAvailable = true
		}
	}
	return info
}

func (c *Checker) refresh(ctx context.Context) {
	if c.current == "dev" {
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.releaseAPI, nil)
	if err != nil {
		log.Printf("[version] %v", err)
		return
	}
	req.Header.Set("User-Agent", "VRBridge/"+c.current)

	resp, err := c.client.Do(req)
	if err != nil {
		log.Printf("[version] %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("[version] release API returned %d", resp.StatusCode)
		return
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		log.Printf("[version] read: %v", err)
		return
	}

	var release struct {
		TagName string `json:"tag_name"`
		HTMLURL string `json:"html_url"`
	}
	if err := json.Unmarshal(body, &release); err != nil {
		log.Printf("[version] parse: %v", err)
		return
	}

	c.mu.Lock()
	c.latest = strings.TrimPrefix(release.TagName, "v")
	c.releaseURL = release.HTMLURL
	c.mu.Unlock()
}

// newerThan reports whether version a is numerically newer than b.
// Pre-release and build suffixes are ignored.
func newerThan(a, b string) bool {
	av, bv := parseVersion(a), parseVersion(b)
	for i := 0; i < 3; i++ {
		if av[i] != bv[i] {
			return av[i] > bv[i]
		}
	}
	return false
}

func parseVersion(v string) [3]int {
	if i := strings.IndexAny(v, "-+"); i != -1 {
		v = v[:i]
	}
	var out [3]int
	for i, part := range strings.SplitN(v, ".", 3) {
		out[i], _ = strconv.Atoi(part)
	}
	return out
}
