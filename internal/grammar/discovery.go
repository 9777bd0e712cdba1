package grammar

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	json "github.com/goccy/go-json"
)

// Catalog is the grammar_sources.json file: language -> git URL. Managed by
// the download subsystem; AddSource validates new entries are GitHub HTTPS
// URLs before admitting them.
type Catalog struct {
	path    string
	Sources map[string]string
}

// LoadCatalog reads grammar_sources.json from path, creating an empty
// catalog if the file doesn't exist yet.
func LoadCatalog(path string) (*Catalog, error) {
	c := &Catalog{path: path, Sources: map[string]string{}}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading grammar catalog %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &c.Sources); err != nil {
		return nil, fmt.Errorf("parsing grammar catalog %s: %w", path, err)
	}
	return c, nil
}

// Save writes the catalog back to its backing file.
func (c *Catalog) Save() error {
	data, err := json.MarshalIndent(c.Sources, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.path, data, 0644)
}

// AddSource registers a language -> repository URL mapping. The URL must be
// a valid GitHub HTTPS URL.
func (c *Catalog) AddSource(language, repoURL string) error {
	if !isGitHubHTTPSURL(repoURL) {
		return fmt.Errorf("grammar source %q must be a GitHub HTTPS URL", repoURL)
	}
	c.Sources[language] = repoURL
	return nil
}

// RemoveSource drops language's catalog entry. It reports false if the
// language had no entry to remove.
func (c *Catalog) RemoveSource(language string) bool {
	if _, ok := c.Sources[language]; !ok {
		return false
	}
	delete(c.Sources, language)
	return true
}

func isGitHubHTTPSURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "https" {
		return false
	}
	return u.Host == "github.com" && strings.Count(strings.Trim(u.Path, "/"), "/") >= 1
}

// ListAvailable returns every language name the catalog knows a repository
// URL for, regardless of whether it's installed yet.
func (c *Catalog) ListAvailable() []string {
	out := make([]string, 0, len(c.Sources))
	for lang := range c.Sources {
		out = append(out, lang)
	}
	return out
}

// RepositoryURL returns the catalog's URL for language, if any.
func (c *Catalog) RepositoryURL(language string) (string, bool) {
	u, ok := c.Sources[language]
	return u, ok
}
