package badlist

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/kluth/shai-hulud-scanner/internal/logging"
)

// DefaultURL is the upstream affected-packages list.
const DefaultURL = "https://raw.githubusercontent.com/Amruth-SV/shai-hulud-scanner/main/affected-packages.json"

// CacheFilename is the cache file written next to the invocation.
const CacheFilename = "affected-packages-cache.json"

// LocalFilename is the bundled fallback list shipped with the scanner.
const LocalFilename = "affected-packages.json"

const fetchTimeout = 10 * time.Second

// Fetcher loads the badlist once per invocation: cache file first, then
// the remote list (cached on success), then the bundled local fallback.
type Fetcher struct {
	URL      string
	CacheDir string // directory holding the cache file; defaults to CWD
	LocalDir string // directory holding the bundled fallback; defaults to CWD
	Client   *http.Client
}

// NewFetcher creates a Fetcher with the default URL and a 10s HTTP timeout.
func NewFetcher() *Fetcher {
	return &Fetcher{
		URL:    DefaultURL,
		Client: &http.Client{Timeout: fetchTimeout},
	}
}

// Get returns the badlist, trying cache, remote and local fallback in order.
func (f *Fetcher) Get(ctx context.Context, log logging.Logger) (Badlist, error) {
	if list := f.loadCache(log); list != nil {
		return list, nil
	}

	list, err := f.fetchRemote(ctx)
	if err == nil {
		log.Info("Fetched latest affected-packages.json from remote (%d packages).", list.Len())
		f.saveCache(list, log)
		return list, nil
	}
	log.Warn("Remote fetch failed: %v", err)
	log.Info("Falling back to local %s...", LocalFilename)

	list, lerr := f.loadLocal()
	if lerr != nil {
		log.Error("Failed to load local %s. Cannot proceed without threat intelligence.", LocalFilename)
		return nil, fmt.Errorf("no affected list available: %w", lerr)
	}
	log.Info("Using local %s (%d packages).", LocalFilename, list.Len())
	return list, nil
}

func (f *Fetcher) cachePath() string {
	return filepath.Join(f.CacheDir, CacheFilename)
}

func (f *Fetcher) loadCache(log logging.Logger) Badlist {
	data, err := os.ReadFile(f.cachePath())
	if err != nil {
		return nil
	}
	var list Badlist
	if err := json.Unmarshal(data, &list); err != nil {
		return nil
	}
	log.Info("Using cached affected-packages.json (%d packages).", list.Len())
	return list
}

func (f *Fetcher) saveCache(list Badlist, log logging.Logger) {
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return
	}
	if err := os.WriteFile(f.cachePath(), data, 0o644); err != nil {
		log.Warn("Failed to cache affected list: %v", err)
	}
}

func (f *Fetcher) fetchRemote(ctx context.Context) (Badlist, error) {
	url := f.URL
	if url == "" {
		url = DefaultURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: fetchTimeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remote list returned %d", resp.StatusCode)
	}

	var list Badlist
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("failed to parse remote affected-packages.json: %w", err)
	}
	return list, nil
}

func (f *Fetcher) loadLocal() (Badlist, error) {
	data, err := os.ReadFile(filepath.Join(f.LocalDir, LocalFilename))
	if err != nil {
		return nil, err
	}
	var list Badlist
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, err
	}
	return list, nil
}
