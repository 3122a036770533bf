package domain

import (
	"encoding/json"
	"time"
)

// ProjectStatus enumerates the lifecycle states of a content creation request.
type ProjectStatus string

const (
	ProjectStatusPending   ProjectStatus = "pending"
	ProjectStatusCompleted ProjectStatus = "completed"
	ProjectStatusFailed    ProjectStatus = "failed"
	ProjectStatusCancelled ProjectStatus = "cancelled"
)

// GeneratedOutputFormat is the schema tag persisted with every storyboard.
const GeneratedOutputFormat = "storyboard_v1"

// Project is one row of content_creation_requests.
type Project struct {
	ID            string
	ContentTypeID string
	Inputs        map[string]any
	Output        *GeneratedOutput
	Status        ProjectStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// GeneratedOutput is the persisted generated_output JSON document.
type GeneratedOutput struct {
	Format                  string                   `json:"format"`
	Scenes                  []SceneResult            `json:"scenes"`
	TextOverlaySuggestions  []string                 `json:"textOverlaySuggestions,omitempty"`
	ThumbnailPrompt         string                   `json:"thumbnailPrompt,omitempty"`
	ImageGenerationSettings *ImageGenerationSettings `json:"imageGenerationSettings,omitempty"`
}

// ImageGenerationSettings records what the client asked the image stage to do.
type ImageGenerationSettings struct {
	ReferenceImageURLs []string `json:"referenceImageUrls,omitempty"`
	Model              string   `json:"model"`
	NumImages          int      `json:"numImages"`
	AspectRatio        string   `json:"aspectRatio"`
	Size               string   `json:"size"`
}

// GeneratedImage is one row of generated_images. The (ProjectID, SceneIndex,
// ImageIndex) triple is unique; inserts on an existing key are ignored.
type GeneratedImage struct {
	ProjectID  string
	SceneIndex int
	ImageIndex int
	ImageURL   string
	CreatedAt  time.Time
}

// Scene returns the scene with the given 1-based plan index, or nil.
func (o *GeneratedOutput) Scene(index int) *SceneResult {
	if o == nil {
		return nil
	}
	for i := range o.Scenes {
		if o.Scenes[i].Index == index {
			return &o.Scenes[i]
		}
	}
	return nil
}

// MarshalOutput serializes a generated output document for jsonb storage.
func MarshalOutput(o *GeneratedOutput) ([]byte, error) {
	if o == nil {
		o = &GeneratedOutput{Format: GeneratedOutputFormat, Scenes: []SceneResult{}}
	}
	return json.Marshal(o)
}
