package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sakif/omi/internal/model"
)

// Routing destinations the classifier may pick when no triage is needed.
const (
	DestinationTodo     = "todo"
	DestinationThoughts = "thoughts"
)

// Classification is one thought as returned by the model. It mirrors the
// Thought fields the model fills in, plus the routing decision.
type Classification struct {
	Transcription   string            `json:"transcription,omitempty"`
	ProcessedText   string            `json:"processed_text"`
	Category        string            `json:"category"`
	SubCategory     string            `json:"sub_category,omitempty"`
	MoodScore       *float64          `json:"mood_score"`
	Priority        string            `json:"priority"`
	Tags            model.Tags        `json:"tags"`
	ActionSteps     model.ActionSteps `json:"action_steps"`
	RequiresTriage  bool              `json:"requires_triage"`
	AutoDestination *string           `json:"auto_destination,omitempty"`
}

// Destination returns the auto-route target, or "" when the thought needs
// the user's decision or the model gave no usable destination.
func (c Classification) Destination() string {
	if c.RequiresTriage || c.AutoDestination == nil {
		return ""
	}
	switch d := *c.AutoDestination; d {
	case DestinationTodo, DestinationThoughts:
		return d
	}
	return ""
}

const routingTemplate = `You are an expert AI assistant that analyzes human thoughts. %s

ROUTING RULES:
1. AUTOMATIC TO "ACTIONS" (no user triage needed):
   - Tasks: clear actionable items, especially "how-to" questions and problems to solve
   - Goals: achievement-oriented thoughts
   - Urgent concerns: problems requiring immediate action
   - Questions needing answers: "How do I...", "I need to...", "I don't know how..."

2. AUTOMATIC TO "THOUGHTS ARCHIVE" (no user triage needed):
   - Emotional venting: pure emotional expression
   - Simple observations: neutral observations about life or the world
   - Personal notes: simple notes to self
   - Memories: past experiences being recorded
   - Pure reflections: self-awareness without action needed

3. REQUIRES USER TRIAGE (ambiguous cases):
   - Complex ideas: creative concepts that could go either direction
   - Mixed reflections: thoughts with both emotional and actionable elements

For actionable items provide detailed, step-by-step action_steps that serve as a complete guide.

For each thought, determine:
- transcription: original text
- processed_text: cleaned version
- category: one of %s
- sub_category: a more specific sub-category (e.g. business idea, health concern)
- mood_score: -1 to 1
- priority: low, medium, high
- tags: 2-4 relevant keywords
- action_steps: for actionable items, step-by-step guidance including suggested_tools and estimated_time for each step
- requires_triage: true/false (false = auto-route, true = needs user decision)
- auto_destination: "todo" or "thoughts" (only set when requires_triage is false)

Text to analyze: %q
`

// RoutingPrompt builds the classification prompt for text. Titles of the
// user's active goals, when any, are given to the model as context.
func RoutingPrompt(text string, activeGoals []string) string {
	goals := ""
	if len(activeGoals) > 0 {
		goals = fmt.Sprintf("The user has the following active goals, use them for context: %s.",
			strings.Join(activeGoals, ", "))
	}
	return fmt.Sprintf(routingTemplate, goals, strings.Join(model.Categories, ", "), text)
}

// RoutingSchema is the JSON Schema the model's reply must follow.
func RoutingSchema() json.RawMessage {
	return json.RawMessage(routingSchema)
}

var routingSchema = mustSchema(map[string]any{
	"type": "object",
	"properties": map[string]any{
		"thoughts": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"transcription":  map[string]any{"type": "string"},
					"processed_text": map[string]any{"type": "string"},
					"category":       map[string]any{"type": "string", "enum": model.Categories},
					"sub_category":   map[string]any{"type": "string"},
					"mood_score":     map[string]any{"type": "number"},
					"priority": map[string]any{
						"type": "string",
						"enum": []string{model.PriorityLow, model.PriorityMedium, model.PriorityHigh},
					},
					"tags": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					"action_steps": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"step":            map[string]any{"type": "string"},
								"recommendation":  map[string]any{"type": "string"},
								"suggested_tools": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
								"estimated_time":  map[string]any{"type": "string"},
							},
						},
					},
					"requires_triage":  map[string]any{"type": "boolean"},
					"auto_destination": map[string]any{"type": "string", "enum": []string{DestinationTodo, DestinationThoughts}},
				},
				"required": []string{"processed_text", "category", "priority", "requires_triage"},
			},
		},
	},
	"required": []string{"thoughts"},
})

func mustSchema(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("ai: encoding routing schema: %v", err))
	}
	return b
}

// ParseClassification decodes a routing reply. It accepts both the
// {"thoughts": [...]} envelope and a single bare thought object, which some
// models return for short inputs. Entries without processed_text or
// category are dropped.
func ParseClassification(raw string) ([]Classification, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("ai: empty classification reply")
	}

	var envelope struct {
		Thoughts []Classification `json:"thoughts"`
	}
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		return nil, fmt.Errorf("ai: decoding classification: %w", err)
	}

	items := envelope.Thoughts
	if items == nil {
		var single Classification
		if err := json.Unmarshal([]byte(raw), &single); err == nil && single.ProcessedText != "" {
			items = []Classification{single}
		}
	}

	out := make([]Classification, 0, len(items))
	for _, c := range items {
		if strings.TrimSpace(c.ProcessedText) == "" || strings.TrimSpace(c.Category) == "" {
			continue
		}
		if !model.ValidPriority(c.Priority) {
			c.Priority = model.PriorityMedium
		}
		if c.Tags == nil {
			c.Tags = model.Tags{}
		}
		if c.ActionSteps == nil {
			c.ActionSteps = model.ActionSteps{}
		}
		out = append(out, c)
	}
	return out, nil
}
