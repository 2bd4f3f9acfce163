package meeting

import (
	"errors"
	"time"
)

// Cache kinds, one namespace per operation.
const (
	KindSummary     = "meeting-summary"
	KindActionItems = "action-items"
)

// ResultTTL is how long a generated result stays cached.
const ResultTTL = time.Hour

// Defaults applied to unset Options fields.
const (
	DefaultModel       = "gpt-4"
	DefaultTemperature = 0.3
	DefaultMaxTokens   = 1000
)

var (
	// ErrEmptyTranscript is returned for a blank transcript.
	ErrEmptyTranscript = errors.New("meeting: transcript is empty")

	// ErrParseResponse is returned when the model output is not the expected JSON.
	ErrParseResponse = errors.New("meeting: failed to parse model response")
)

// Options tune a model call. Unset fields take the service defaults.
type Options struct {
	Model       string   `json:"model,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   int      `json:"maxTokens,omitempty"`
}

// Temperature returns a pointer for Options.Temperature.
func Temperature(t float64) *float64 {
	return &t
}

// DefaultOptions returns the package defaults.
func DefaultOptions() Options {
	return Options{
		Model:       DefaultModel,
		Temperature: Temperature(DefaultTemperature),
		MaxTokens:   DefaultMaxTokens,
	}
}

// resolve fills unset fields from base.
func (o Options) resolve(base Options) Options {
	if o.Model == "" {
		o.Model = base.Model
	}
	if o.Temperature == nil {
		o.Temperature = base.Temperature
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = base.MaxTokens
	}
	return o
}

// Summary is the structured digest of one meeting.
type Summary struct {
	Title        string   `json:"title"`
	Summary      string   `json:"summary"`
	KeyPoints    []string `json:"keyPoints"`
	ActionItems  []string `json:"actionItems"`
	NextSteps    []string `json:"nextSteps"`
	Participants []string `json:"participants,omitempty"`
	Date         string   `json:"date,omitempty"`
}

// Priority ranks an action item.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ItemStatus tracks an action item's progress.
type ItemStatus string

const (
	StatusPending    ItemStatus = "pending"
	StatusInProgress ItemStatus = "in-progress"
	StatusCompleted  ItemStatus = "completed"
)

// UnassignedOwner is used when the model names nobody.
const UnassignedOwner = "Unassigned"

// ActionItem is one task extracted from a transcript.
type ActionItem struct {
	ID       string     `json:"id"`
	Task     string     `json:"task"`
	Assignee string     `json:"assignee"`
	DueDate  string     `json:"dueDate,omitempty"`
	Priority Priority   `json:"priority"`
	Status   ItemStatus `json:"status"`
	Notes    string     `json:"notes,omitempty"`
}
