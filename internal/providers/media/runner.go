package media

import "context"

// RunInput is one image generation unit: one (scene, image index) pair.
type RunInput struct {
	Prompt             string
	NegativePrompt     string
	ReferenceImageURLs []string
	AspectRatio        string
	Size               string

	ProjectID  string
	SceneIndex int
	ImageIndex int
}

// Runner is the contract for image/video generation providers. One call
// yields one or more media URLs; provider-specific output shapes are
// normalized by the implementation before returning.
type Runner interface {
	Run(ctx context.Context, modelID string, input RunInput) ([]string, error)
}
