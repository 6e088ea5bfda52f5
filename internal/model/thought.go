package model

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Thought priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Thought lifecycle: a new thought is pending until the user (or the
// classifier) banks it as a memory or turns it into an action.
const (
	StatusPending      = "pending"
	StatusMemoryBanked = "memory_banked"
	StatusActioned     = "actioned"
)

// Task progress for actioned thoughts. on_hold is a side branch that can
// return to in_progress.
const (
	TaskNotStarted = "not_started"
	TaskInProgress = "in_progress"
	TaskOnHold     = "on_hold"
	TaskCompleted  = "completed"
)

// Categories the classifier is asked to choose from. The column itself is a
// free string, so manual entries outside this list are accepted.
var Categories = []string{
	"reflection", "idea", "concern", "goal",
	"memory", "task", "emotion", "observation",
}

// Thought is a single captured note, enriched by the classifier.
type Thought struct {
	ID             string      `json:"id"              db:"id"`
	UserID         string      `json:"user_id"         db:"user_id"`
	Transcription  *string     `json:"transcription"   db:"transcription"`
	ProcessedText  string      `json:"processed_text"  db:"processed_text"`
	Category       string      `json:"category"        db:"category"`
	SubCategory    *string     `json:"sub_category"    db:"sub_category"`
	MoodScore      *float64    `json:"mood_score"      db:"mood_score"`
	Priority       string      `json:"priority"        db:"priority"`
	Tags           Tags        `json:"tags"            db:"tags"`
	ActionSteps    ActionSteps `json:"action_steps"    db:"action_steps"`
	Status         string      `json:"status"          db:"status"`
	TaskStatus     *string     `json:"task_status"     db:"task_status"`
	RequiresTriage bool        `json:"requires_triage" db:"requires_triage"`
	CreatedDate    time.Time   `json:"created_date"    db:"created_date"`
	UpdatedAt      time.Time   `json:"updated_at"      db:"updated_at"`
}

// ThoughtPatch is a partial update. Only fields with Set=true are written.
type ThoughtPatch struct {
	Transcription  Optional[*string]     `json:"transcription"`
	ProcessedText  Optional[string]      `json:"processed_text"`
	Category       Optional[string]      `json:"category"`
	SubCategory    Optional[*string]     `json:"sub_category"`
	MoodScore      Optional[*float64]    `json:"mood_score"`
	Priority       Optional[string]      `json:"priority"`
	Tags           Optional[Tags]        `json:"tags"`
	ActionSteps    Optional[ActionSteps] `json:"action_steps"`
	Status         Optional[string]      `json:"status"`
	TaskStatus     Optional[*string]     `json:"task_status"`
	RequiresTriage Optional[bool]        `json:"requires_triage"`
}

// ThoughtFilter holds optional equality filters. Empty strings are ignored.
type ThoughtFilter struct {
	Status     string
	Category   string
	Priority   string
	TaskStatus string
}

// =========================================================================
// JSON ARRAY COLUMNS
// =========================================================================

// Tags is stored as a JSON-encoded TEXT column. A NULL column reads back as
// an empty slice, and a nil slice is written and serialized as [].
type Tags []string

func (t Tags) Value() (driver.Value, error) {
	return encodeJSONArray(t)
}

func (t *Tags) Scan(src any) error {
	var out []string
	if err := decodeJSONArray(src, &out); err != nil {
		return fmt.Errorf("model: scanning tags: %w", err)
	}
	if out == nil {
		out = []string{}
	}
	*t = out
	return nil
}

func (t Tags) MarshalJSON() ([]byte, error) {
	if t == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(t))
}

// ActionStep is one concrete next step suggested for a thought.
type ActionStep struct {
	Step           string   `json:"step"`
	Recommendation string   `json:"recommendation,omitempty"`
	SuggestedTools []string `json:"suggested_tools,omitempty"`
	EstimatedTime  string   `json:"estimated_time,omitempty"`
}

// UnmarshalJSON also accepts a bare string, which older prompts and the
// test-mode provider emit, and treats it as the step text.
func (a *ActionStep) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*a = ActionStep{Step: s}
		return nil
	}

	type plain ActionStep
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*a = ActionStep(p)
	return nil
}

// ActionSteps is stored the same way as Tags.
type ActionSteps []ActionStep

// UnmarshalJSON drops null elements and steps with no text; those come
// from model output and would otherwise read back as blank steps.
func (s *ActionSteps) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*s = nil
		return nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := make(ActionSteps, 0, len(raw))
	for _, r := range raw {
		if bytes.Equal(bytes.TrimSpace(r), []byte("null")) {
			continue
		}
		var step ActionStep
		if err := json.Unmarshal(r, &step); err != nil {
			return err
		}
		if strings.TrimSpace(step.Step) == "" {
			continue
		}
		out = append(out, step)
	}
	*s = out
	return nil
}

func (s ActionSteps) Value() (driver.Value, error) {
	return encodeJSONArray(s)
}

func (s *ActionSteps) Scan(src any) error {
	var out []ActionStep
	if err := decodeJSONArray(src, &out); err != nil {
		return fmt.Errorf("model: scanning action steps: %w", err)
	}
	if out == nil {
		out = []ActionStep{}
	}
	*s = out
	return nil
}

func (s ActionSteps) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]ActionStep(s))
}

func encodeJSONArray[T any](v []T) (driver.Value, error) {
	if v == nil {
		return "[]", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func decodeJSONArray(src any, dest any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("unsupported column type %T", src)
	}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dest)
}

// =========================================================================
// ENUM CHECKS
// =========================================================================

func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusMemoryBanked, StatusActioned:
		return true
	}
	return false
}

func ValidTaskStatus(s string) bool {
	switch s {
	case TaskNotStarted, TaskInProgress, TaskOnHold, TaskCompleted:
		return true
	}
	return false
}
