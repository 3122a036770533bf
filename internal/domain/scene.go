package domain

import "encoding/json"

// ScenePlan is the ordered list of scene specs produced by the planner,
// together with the plan-level suggestions that ride along in the output
// envelope. It is immutable once produced within a generation session.
type ScenePlan struct {
	Scenes                 []PlannedScene
	TextOverlaySuggestions []string
	ThumbnailPrompt        string
}

// PlannedScene describes one scene before any agent has run for it.
type PlannedScene struct {
	Index   int    `json:"index"`
	Purpose string `json:"purpose"`
	Notes   string `json:"notes,omitempty"`
}

// SceneResult is one scene's materialized output. Index is the 1-based plan
// index and never changes after the scene has been persisted. Generated image
// URLs live in their own rows keyed by scene index, not here.
type SceneResult struct {
	Index              int                 `json:"index"`
	Purpose            string              `json:"purpose"`
	ImagePrompt        string              `json:"imagePrompt"`
	NegativePrompt     string              `json:"negativePrompt,omitempty"`
	Camera             Camera              `json:"camera"`
	Environment        Environment         `json:"environment"`
	OnScreenText       OnScreenText        `json:"onScreenText"`
	CompositionNotes   string              `json:"compositionNotes,omitempty"`
	AgentContributions []AgentContribution `json:"agentContributions"`
	GenerationContext  GenerationContext   `json:"generationContext"`
}

// Camera captures the cinematography decisions for a scene.
type Camera struct {
	Shot     string `json:"shot,omitempty"`
	Lens     string `json:"lens,omitempty"`
	Movement string `json:"movement,omitempty"`
}

// Environment captures where and when the scene takes place.
type Environment struct {
	Location  string `json:"location,omitempty"`
	TimeOfDay string `json:"timeOfDay,omitempty"`
	Lighting  string `json:"lighting,omitempty"`
}

// OnScreenText is the text overlay rendered onto the scene.
type OnScreenText struct {
	Text       string `json:"text,omitempty"`
	StyleNotes string `json:"styleNotes,omitempty"`
}

// AgentContribution records one agent step's input and raw output for the
// provenance trail.
type AgentContribution struct {
	AgentID   string          `json:"agentId"`
	AgentName string          `json:"agentName"`
	Role      string          `json:"role"`
	Order     int             `json:"order"`
	Input     string          `json:"input"`
	Output    json.RawMessage `json:"output"`
}

// GenerationContext is the snapshot of inputs and scene-level decisions that
// produced a scene.
type GenerationContext struct {
	ContentTypeName string         `json:"contentTypeName"`
	Inputs          map[string]any `json:"inputs"`
	Purpose         string         `json:"purpose"`
	Locale          string         `json:"locale,omitempty"`
}
