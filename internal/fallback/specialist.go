package fallback

import (
	"regexp"
	"strings"

	"github.com/standardbeagle/chunker/internal/types"
)

// TextSegment is one specialist-produced span of text, tagged with the
// boundary that opened it.
type TextSegment struct {
	Text        string
	Start       int
	End         int
	SegmentType BoundaryType
	Metadata    map[string]any
}

// Specialist recognizes and splits one file shape (markdown sections, log
// entries, ...). Registered in a Registry and looked up by name.
type Specialist interface {
	Name() string
	CanProcess(path string, fileType types.Language) bool
	Process(text string) []TextSegment
}

// Registry keys specialists by name and answers find_processors queries:
// which registered specialists claim to handle a given file.
type Registry struct {
	specialists map[string]Specialist
	order       []string
}

// NewRegistry builds a Registry pre-populated with the markdown section
// splitter and the log-level splitter.
func NewRegistry() *Registry {
	r := NewEmptyRegistry()
	r.Register(NewMarkdownSectionSplitter())
	r.Register(NewLogLevelSplitter())
	return r
}

// NewEmptyRegistry builds a Registry with no specialists registered, for
// callers (internal/processor's capability resolver) that assemble the
// specialist set themselves.
func NewEmptyRegistry() *Registry {
	return &Registry{specialists: map[string]Specialist{}}
}

// Register adds or replaces a specialist under its own name.
func (r *Registry) Register(s Specialist) {
	if _, exists := r.specialists[s.Name()]; !exists {
		r.order = append(r.order, s.Name())
	}
	r.specialists[s.Name()] = s
}

// FindProcessors returns the names of registered specialists willing to
// process the given file, in registration order.
func (r *Registry) FindProcessors(path string, fileType types.Language) []string {
	var names []string
	for _, name := range r.order {
		if r.specialists[name].CanProcess(path, fileType) {
			names = append(names, name)
		}
	}
	return names
}

// Get returns a registered specialist by name.
func (r *Registry) Get(name string) (Specialist, bool) {
	s, ok := r.specialists[name]
	return s, ok
}

// ProcessorChain composes multiple specialists, running each over the
// full text and concatenating their segments in specialist order.
type ProcessorChain struct {
	specialists []Specialist
}

// NewProcessorChain builds a ProcessorChain from the named specialists
// resolved against a Registry.
func NewProcessorChain(registry *Registry, names []string) *ProcessorChain {
	chain := &ProcessorChain{}
	for _, name := range names {
		if s, ok := registry.Get(name); ok {
			chain.specialists = append(chain.specialists, s)
		}
	}
	return chain
}

// Process runs every chained specialist over text and returns their
// combined segments.
func (c *ProcessorChain) Process(text string) []TextSegment {
	var out []TextSegment
	for _, s := range c.specialists {
		out = append(out, s.Process(text)...)
	}
	return out
}

var markdownHeaderPattern = regexp.MustCompile(`(?m)^(#{1,6})[ \t]+(.+)$`)

// MarkdownSectionSplitter splits markdown text into sections at each
// header line, so a header and its body become one segment.
type MarkdownSectionSplitter struct{}

func NewMarkdownSectionSplitter() *MarkdownSectionSplitter { return &MarkdownSectionSplitter{} }

func (m *MarkdownSectionSplitter) Name() string { return "markdown_section" }

func (m *MarkdownSectionSplitter) CanProcess(path string, fileType types.Language) bool {
	if fileType == types.LangMarkdown {
		return true
	}
	return strings.HasSuffix(strings.ToLower(path), ".md") || strings.HasSuffix(strings.ToLower(path), ".markdown")
}

func (m *MarkdownSectionSplitter) Process(text string) []TextSegment {
	matches := markdownHeaderPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return []TextSegment{{Text: text, Start: 0, End: len(text), SegmentType: BoundarySection}}
	}

	var segments []TextSegment
	if matches[0][0] > 0 {
		preamble := text[:matches[0][0]]
		if strings.TrimSpace(preamble) != "" {
			segments = append(segments, TextSegment{Text: preamble, Start: 0, End: matches[0][0], SegmentType: BoundarySection})
		}
	}

	for i, m := range matches {
		start := m[0]
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		level := m[3] - m[2]
		title := text[m[4]:m[5]]
		segments = append(segments, TextSegment{
			Text:        text[start:end],
			Start:       start,
			End:         end,
			SegmentType: BoundarySection,
			Metadata:    map[string]any{"heading_level": level, "title": title},
		})
	}
	return segments
}

var logLevelPattern = regexp.MustCompile(`\b(ERROR|WARN|WARNING|INFO|DEBUG|TRACE|FATAL)\b`)

// LogLevelSplitter splits log text into one segment per entry, where an
// entry starts at each line carrying a recognized log level and continues
// through any unlabeled continuation lines (stack traces, wrapped
// messages) that follow it.
type LogLevelSplitter struct{}

func NewLogLevelSplitter() *LogLevelSplitter { return &LogLevelSplitter{} }

func (l *LogLevelSplitter) Name() string { return "log_level" }

func (l *LogLevelSplitter) CanProcess(path string, fileType types.Language) bool {
	if fileType == types.LangLog {
		return true
	}
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".log") || strings.HasSuffix(lower, ".out") || strings.HasSuffix(lower, ".err")
}

func (l *LogLevelSplitter) Process(text string) []TextSegment {
	lines := strings.Split(text, "\n")

	var segments []TextSegment
	entryStart := -1
	entryLine := 0
	pos := 0
	var level string

	flush := func(endPos int) {
		if entryStart < 0 {
			return
		}
		segments = append(segments, TextSegment{
			Text:        text[entryStart:endPos],
			Start:       entryStart,
			End:         endPos,
			SegmentType: BoundarySection,
			Metadata:    map[string]any{"log_level": level, "line": entryLine},
		})
	}

	for i, line := range lines {
		if m := logLevelPattern.FindString(line); m != "" {
			flush(pos)
			entryStart = pos
			entryLine = i
			level = m
		} else if entryStart < 0 {
			entryStart = pos
			entryLine = i
			level = ""
		}
		pos += len(line) + 1
	}
	end := len(text)
	flush(end)

	return segments
}
