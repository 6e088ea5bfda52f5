package model

import "time"

// Goal statuses.
const (
	GoalActive    = "active"
	GoalPaused    = "paused"
	GoalCompleted = "completed"
)

// Goal is a long-running objective. Active goals are fed to the classifier
// as context when processing new thoughts.
type Goal struct {
	ID          string    `json:"id"           db:"id"`
	UserID      string    `json:"user_id"      db:"user_id"`
	Title       string    `json:"title"        db:"title"`
	Description *string   `json:"description"  db:"description"`
	Status      string    `json:"status"       db:"status"`
	CreatedDate time.Time `json:"created_date" db:"created_date"`
	UpdatedAt   time.Time `json:"updated_at"   db:"updated_at"`
}

type GoalPatch struct {
	Title       Optional[string]  `json:"title"`
	Description Optional[*string] `json:"description"`
	Status      Optional[string]  `json:"status"`
}

type GoalFilter struct {
	Status string
}

func ValidGoalStatus(s string) bool {
	switch s {
	case GoalActive, GoalPaused, GoalCompleted:
		return true
	}
	return false
}
