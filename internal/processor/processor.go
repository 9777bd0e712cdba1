// Package processor makes the fallback tier's text specialists discoverable
// as typed plugin capability descriptors rather than the hard-wired values
// fallback.NewRegistry builds: a name, a priority, the file types/extensions
// claimed, and a construct/configure pair, resolved against
// chunker.processors config overrides the way internal/config.ProcessorConfig
// already models (Enabled, Priority, Config) but nothing previously consumed.
package processor

import (
	"sort"

	"github.com/standardbeagle/chunker/internal/config"
	"github.com/standardbeagle/chunker/internal/fallback"
	"github.com/standardbeagle/chunker/internal/types"
)

// Capability describes one pluggable specialist: enough for a catalog
// listing (name, priority, claimed file types) plus the factory/configure
// pair that builds and tunes a live instance.
type Capability struct {
	Name                string
	Priority            int
	SupportedFileTypes  []types.Language
	SupportedExtensions []string
	Construct           func() fallback.Specialist
	Configure           func(fallback.Specialist, map[string]any)
}

// DefaultCapabilities describes the specialists fallback.NewRegistry wires
// in by default, recast as discoverable descriptors.
func DefaultCapabilities() []Capability {
	return []Capability{
		{
			Name:                "markdown_section",
			Priority:            10,
			SupportedFileTypes:  []types.Language{types.LangMarkdown},
			SupportedExtensions: []string{".md", ".markdown"},
			Construct:           func() fallback.Specialist { return fallback.NewMarkdownSectionSplitter() },
		},
		{
			Name:                "log_level",
			Priority:            5,
			SupportedFileTypes:  []types.Language{types.LangLog},
			SupportedExtensions: []string{".log", ".out", ".err"},
			Construct:           func() fallback.Specialist { return fallback.NewLogLevelSplitter() },
		},
	}
}

// Registry holds Capability descriptors and resolves them, against a
// loaded Config, into a live fallback.Registry.
type Registry struct {
	capabilities []Capability
}

// NewRegistry builds a Registry from the given descriptors, or
// DefaultCapabilities when none are given.
func NewRegistry(capabilities ...Capability) *Registry {
	if len(capabilities) == 0 {
		capabilities = DefaultCapabilities()
	}
	r := &Registry{}
	r.capabilities = append(r.capabilities, capabilities...)
	return r
}

// Register adds a capability descriptor, replacing any existing one under
// the same name.
func (r *Registry) Register(cap Capability) {
	for i, existing := range r.capabilities {
		if existing.Name == cap.Name {
			r.capabilities[i] = cap
			return
		}
	}
	r.capabilities = append(r.capabilities, cap)
}

// List returns the registered capability descriptors, highest priority
// first, with any chunker.processors.<name>.priority override from cfg
// already applied. cfg may be nil to see declared priorities unmodified.
func (r *Registry) List(cfg *config.Config) []Capability {
	out := make([]Capability, len(r.capabilities))
	copy(out, r.capabilities)
	for i := range out {
		if cfg == nil {
			continue
		}
		if override, ok := cfg.Processors[out[i].Name]; ok && override.Priority != 0 {
			out[i].Priority = override.Priority
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	return out
}

// Build resolves every capability enabled under cfg.Processors (absence
// from the config defaults to enabled, per ProcessorConfig.IsEnabled),
// constructs and configures an instance for each, and returns a
// fallback.Registry with them registered in descending-priority order so
// FindProcessors reports higher-priority specialists first.
func (r *Registry) Build(cfg *config.Config) *fallback.Registry {
	reg := fallback.NewEmptyRegistry()
	for _, cap := range r.List(cfg) {
		var override config.ProcessorConfig
		if cfg != nil {
			override = cfg.Processors[cap.Name]
		}
		if !override.IsEnabled() {
			continue
		}
		spec := cap.Construct()
		if cap.Configure != nil && len(override.Config) > 0 {
			cap.Configure(spec, override.Config)
		}
		reg.Register(spec)
	}
	return reg
}
