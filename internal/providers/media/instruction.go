package media

import (
	"fmt"
	"strings"

	"server/internal/domain"
)

// BuildSceneInstruction flattens a scene's structured output into the single
// prompt string image models expect. A non-empty override replaces the
// scene's stored image prompt but keeps the cinematography context.
func BuildSceneInstruction(scene domain.SceneResult, settings domain.ImageGenerationSettings, override string) string {
	parts := []string{}

	prompt := strings.TrimSpace(override)
	if prompt == "" {
		prompt = strings.TrimSpace(scene.ImagePrompt)
	}
	if prompt != "" {
		parts = append(parts, prompt+".")
	}

	if shot := describeCamera(scene.Camera); shot != "" {
		parts = append(parts, "Camera: "+shot+".")
	}
	if env := describeEnvironment(scene.Environment); env != "" {
		parts = append(parts, "Setting: "+env+".")
	}
	if notes := strings.TrimSpace(scene.CompositionNotes); notes != "" {
		parts = append(parts, "Composition: "+notes+".")
	}
	if text := strings.TrimSpace(scene.OnScreenText.Text); text != "" {
		style := strings.TrimSpace(scene.OnScreenText.StyleNotes)
		if style != "" {
			parts = append(parts, fmt.Sprintf("Leave space for overlay text %q (%s).", text, style))
		} else {
			parts = append(parts, fmt.Sprintf("Leave space for overlay text %q.", text))
		}
	}
	if aspect := strings.TrimSpace(settings.AspectRatio); aspect != "" {
		parts = append(parts, "Compose for a "+aspect+" frame.")
	}
	if size := strings.TrimSpace(settings.Size); size != "" {
		parts = append(parts, "Target output size "+size+".")
	}

	return strings.Join(parts, " ")
}

func describeCamera(c domain.Camera) string {
	var fields []string
	if v := strings.TrimSpace(c.Shot); v != "" {
		fields = append(fields, v)
	}
	if v := strings.TrimSpace(c.Lens); v != "" {
		fields = append(fields, v+" lens")
	}
	if v := strings.TrimSpace(c.Movement); v != "" {
		fields = append(fields, v)
	}
	return strings.Join(fields, ", ")
}

func describeEnvironment(e domain.Environment) string {
	var fields []string
	if v := strings.TrimSpace(e.Location); v != "" {
		fields = append(fields, v)
	}
	if v := strings.TrimSpace(e.TimeOfDay); v != "" {
		fields = append(fields, v)
	}
	if v := strings.TrimSpace(e.Lighting); v != "" {
		fields = append(fields, v+" lighting")
	}
	return strings.Join(fields, ", ")
}
