package media

import "strings"

// ModelSpec describes one supported image generation model.
type ModelSpec struct {
	ID string
	// RequiresReferenceImages marks edit-style models that cannot run
	// without at least one uploaded reference image.
	RequiresReferenceImages bool
}

var models = map[string]ModelSpec{
	"gemini-2.5-flash-image":      {ID: "gemini-2.5-flash-image"},
	"gemini-2.0-flash-image":      {ID: "gemini-2.0-flash-image"},
	"gemini-2.5-flash-image-edit": {ID: "gemini-2.5-flash-image-edit", RequiresReferenceImages: true},
}

// LookupModel resolves a model id to its spec.
func LookupModel(id string) (ModelSpec, bool) {
	spec, ok := models[strings.TrimSpace(id)]
	return spec, ok
}
