// Package transcript parses AI coding assistant session transcripts into
// per-session and per-day activity metrics. Parsing streams one line at a
// time so very large transcripts never have to fit in memory, and a
// malformed line is skipped rather than aborting the parse.
package transcript

import "time"

// Session holds the metrics extracted from one transcript file.
type Session struct {
	SessionID   string    `json:"sessionId"`
	ProjectPath string    `json:"projectPath"`
	StartedAt   time.Time `json:"startedAt"`
	EndedAt     time.Time `json:"endedAt"`

	DurationMinutes int `json:"durationMinutes"`

	TotalInputTokens    int64 `json:"totalInputTokens"`
	TotalOutputTokens   int64 `json:"totalOutputTokens"`
	CacheReadTokens     int64 `json:"cacheReadTokens"`
	CacheCreationTokens int64 `json:"cacheCreationTokens"`

	MessageCount    int    `json:"messageCount"`
	ToolInvocations int    `json:"toolInvocations"`
	UserPromptCount int    `json:"userPromptCount"`
	Model           string `json:"model"`
	FirstPrompt     string `json:"firstPrompt"`

	ToolCounts      map[string]int `json:"toolCounts"`
	ReferencedFiles []string       `json:"referencedFiles"`

	// Days is ordered by date, one entry per local calendar day with events.
	Days []Day `json:"dailyBreakdown"`
}

// Day is the per-calendar-day breakdown of a session. The date is derived
// from UTC event timestamps via the configured timezone, never from file
// modification time.
type Day struct {
	Date       string    `json:"date"` // YYYY-MM-DD in the configured zone
	FirstEvent time.Time `json:"firstEvent"`
	LastEvent  time.Time `json:"lastEvent"`

	// ActiveMinutes sums only consecutive event gaps strictly below the idle
	// threshold; WallClockMinutes is the unfiltered first-to-last span kept
	// for audit comparison. ActiveMinutes <= WallClockMinutes always.
	ActiveMinutes    int `json:"activeMinutes"`
	WallClockMinutes int `json:"wallClockMinutes"`

	MessageCount    int      `json:"messageCount"`
	ToolInvocations int      `json:"toolInvocations"`
	PromptCount     int      `json:"promptCount"`
	Prompts         []Prompt `json:"prompts"`
}

// Prompt is one timestamped human prompt, trimmed to an excerpt.
type Prompt struct {
	Timestamp time.Time `json:"timestamp"`
	Text      string    `json:"text"`
}

// Options configures a parse. The timezone is an explicit parameter so the
// parser stays pure and independently testable.
type Options struct {
	// Location converts UTC event timestamps to business-local calendar
	// days. Defaults to America/New_York.
	Location *time.Location
	// GapThreshold is the idle cutoff for active-time estimation.
	// Defaults to 15 minutes.
	GapThreshold time.Duration
}

// DefaultGapThreshold is the empirically chosen idle cutoff.
const DefaultGapThreshold = 15 * time.Minute

func (o *Options) applyDefaults() {
	if o.Location == nil {
		loc, err := time.LoadLocation("America/New_York")
		if err != nil {
			loc = time.UTC
		}
		o.Location = loc
	}
	if o.GapThreshold == 0 {
		o.GapThreshold = DefaultGapThreshold
	}
}
