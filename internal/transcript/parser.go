package transcript

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/scottschatz/software-capitalization-sub001/internal/discovery"
)

// rawRecord is one transcript line. Only type dispatch and the timestamp
// are read here; the message payload is decoded lazily.
type rawRecord struct {
	Type      string      `json:"type"`
	Timestamp string      `json:"timestamp"`
	Message   *rawMessage `json:"message"`
}

type rawMessage struct {
	Role    string          `json:"role"`
	Model   string          `json:"model"`
	Content json.RawMessage `json:"content"`
	Usage   rawUsage        `json:"usage"`
}

type rawUsage struct {
	InputTokens              int64 `json:"input_tokens"`
	OutputTokens             int64 `json:"output_tokens"`
	CacheReadInputTokens     int64 `json:"cache_read_input_tokens"`
	CacheCreationInputTokens int64 `json:"cache_creation_input_tokens"`
}

// contentBlock is one element of an array-valued message content.
type contentBlock struct {
	Type  string          `json:"type"`
	Text  string          `json:"text"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// ParseFile streams the transcript at path and returns its session metrics.
// It returns (nil, nil) when the file contains no countable user or
// assistant record (an empty file, or one with only system/progress/summary
// records). Read errors are returned; a malformed line, or a record without
// a parseable timestamp, is skipped.
func ParseFile(path string, opts Options) (*Session, error) {
	opts.applyDefaults()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("transcript: open %s: %w", path, err)
	}
	defer f.Close()

	acc, err := parse(f, opts)
	if err != nil {
		return nil, fmt.Errorf("transcript: read %s: %w", path, err)
	}
	if acc == nil {
		return nil, nil
	}

	session := acc.finalize(opts)
	session.SessionID = sessionIDFromPath(path)
	session.ProjectPath = projectPathFromFile(path)
	return session, nil
}

// accumulator carries parse state across the streamed lines.
type accumulator struct {
	session   Session
	days      map[string]*dayState
	files     map[string]struct{}
	sawRecord bool
}

type dayState struct {
	events  []time.Time
	msgs    int
	tools   int
	prompts []Prompt
}

// parse streams r one line at a time so 200MB+ transcripts never have to
// fit in memory. bufio.Reader rather than Scanner because a single line
// holding an echoed tool result can be arbitrarily long.
func parse(r io.Reader, opts Options) (*accumulator, error) {
	acc := &accumulator{
		days:  make(map[string]*dayState),
		files: make(map[string]struct{}),
	}
	acc.session.ToolCounts = make(map[string]int)

	reader := bufio.NewReaderSize(r, 64*1024)
	for {
		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			acc.processLine(line, opts)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}

	if !acc.sawRecord {
		return nil, nil
	}
	return acc, nil
}

// processLine handles one transcript record. Anything malformed is skipped;
// a bad line never aborts the parse.
func (a *accumulator) processLine(line string, opts Options) {
	line = strings.TrimSpace(line)
	if line == "" || line[0] != '{' {
		return
	}

	var rec rawRecord
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		return
	}
	if rec.Type != "user" && rec.Type != "assistant" {
		return
	}

	// The timestamp is structural: a record that cannot be placed on a day
	// would skew session totals against the per-day breakdown.
	ts, ok := parseTimestamp(rec.Timestamp)
	if !ok {
		return
	}

	a.sawRecord = true
	a.session.MessageCount++

	day := a.day(localDate(ts, opts.Location))
	day.events = append(day.events, ts)
	day.msgs++

	if rec.Message != nil {
		a.session.TotalInputTokens += rec.Message.Usage.InputTokens
		a.session.TotalOutputTokens += rec.Message.Usage.OutputTokens
		a.session.CacheReadTokens += rec.Message.Usage.CacheReadInputTokens
		a.session.CacheCreationTokens += rec.Message.Usage.CacheCreationInputTokens
		if a.session.Model == "" && rec.Message.Model != "" {
			a.session.Model = rec.Message.Model
		}
	}

	switch rec.Type {
	case "user":
		text := contentText(rec.Message)
		if !isHumanPrompt(text) {
			return
		}
		a.session.UserPromptCount++
		excerpt := promptExcerpt(text)
		if a.session.FirstPrompt == "" {
			a.session.FirstPrompt = excerpt
		}
		day.prompts = append(day.prompts, Prompt{Timestamp: ts, Text: excerpt})
	case "assistant":
		for _, block := range contentBlocks(rec.Message) {
			if block.Type != "tool_use" {
				continue
			}
			name := block.Name
			if name == "" {
				name = "unknown"
			}
			a.session.ToolCounts[name]++
			a.session.ToolInvocations++
			day.tools++
			for _, p := range referencedPaths(block.Input) {
				a.files[p] = struct{}{}
			}
		}
	}
}

func (a *accumulator) day(date string) *dayState {
	d, ok := a.days[date]
	if !ok {
		d = &dayState{}
		a.days[date] = d
	}
	return d
}

// finalize turns the accumulated state into an ordered Session.
func (a *accumulator) finalize(opts Options) *Session {
	s := a.session

	dates := make([]string, 0, len(a.days))
	for date := range a.days {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	var allEvents []time.Time
	for _, date := range dates {
		ds := a.days[date]
		first, last, _ := eventBounds(ds.events)
		sort.Slice(ds.prompts, func(i, j int) bool {
			return ds.prompts[i].Timestamp.Before(ds.prompts[j].Timestamp)
		})
		s.Days = append(s.Days, Day{
			Date:             date,
			FirstEvent:       first,
			LastEvent:        last,
			ActiveMinutes:    activeMinutes(ds.events, opts.GapThreshold),
			WallClockMinutes: wallClockMinutes(ds.events),
			MessageCount:     ds.msgs,
			ToolInvocations:  ds.tools,
			PromptCount:      len(ds.prompts),
			Prompts:          ds.prompts,
		})
		allEvents = append(allEvents, ds.events...)
	}

	if first, last, ok := eventBounds(allEvents); ok {
		s.StartedAt = first
		s.EndedAt = last
		s.DurationMinutes = roundMinutes(last.Sub(first))
	}

	s.ReferencedFiles = make([]string, 0, len(a.files))
	for p := range a.files {
		s.ReferencedFiles = append(s.ReferencedFiles, p)
	}
	sort.Strings(s.ReferencedFiles)

	return &s
}

// parseTimestamp accepts RFC3339 timestamps, with or without fractional
// seconds. All transcript timestamps are UTC.
func parseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return ts.UTC(), true
}

// contentText extracts the human-readable text of a message whose content
// is either a bare string or an array of content blocks.
func contentText(msg *rawMessage) string {
	if msg == nil || len(msg.Content) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(msg.Content, &s); err == nil {
		return s
	}
	var parts []string
	for _, block := range contentBlocks(msg) {
		if block.Type == "text" && block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// contentBlocks returns the array form of a message's content, or nil when
// the content is a bare string or malformed.
func contentBlocks(msg *rawMessage) []contentBlock {
	if msg == nil || len(msg.Content) == 0 {
		return nil
	}
	var blocks []contentBlock
	if err := json.Unmarshal(msg.Content, &blocks); err != nil {
		return nil
	}
	return blocks
}

var uuidRe = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)

// sessionIDFromPath extracts the UUID-shaped substring of the file name,
// falling back to the raw path when none is present.
func sessionIDFromPath(path string) string {
	m := uuidRe.FindString(filepath.Base(path))
	if m != "" {
		if _, err := uuid.Parse(m); err == nil {
			return m
		}
	}
	return path
}

// projectPathFromFile decodes the parent directory name of the two-level
// transcript hierarchy. Subagent transcripts live one level deeper under
// subagents/, so their project is the grandparent. Falls back to "unknown".
func projectPathFromFile(path string) string {
	parent := filepath.Dir(path)
	name := filepath.Base(parent)
	if name == "subagents" {
		name = filepath.Base(filepath.Dir(parent))
	}
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "unknown"
	}
	return discovery.DecodePath(name)
}
