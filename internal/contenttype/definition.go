package contenttype

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"server/internal/domain"
)

// Content type definitions accumulated several shapes over time: agents under
// prompting.agents or workflow.steps, prompt fields in camelCase or
// snake_case, temperatures as numbers or strings. ParseDefinition translates
// whatever is stored into the one normalized domain.ContentType so nothing
// downstream branches on shape.

type rawDefinition struct {
	InputsContract []rawInputField `json:"inputsContract"`
	OutputContract string          `json:"outputContract"`

	ScenePolicy *rawScenePolicy `json:"sceneGenerationPolicy"`

	Prompting *rawPrompting `json:"prompting"`
	Workflow  *rawWorkflow  `json:"workflow"`
}

type rawInputField struct {
	Key       string   `json:"key"`
	Name      string   `json:"name"`
	Type      string   `json:"type"`
	Required  bool     `json:"required"`
	MaxLength int      `json:"maxLength"`
	Min       *float64 `json:"min"`
	Max       *float64 `json:"max"`
	Values    []string `json:"values"`
	Options   []string `json:"options"`
}

type rawScenePolicy struct {
	MinScenes int      `json:"minScenes"`
	MaxScenes int      `json:"maxScenes"`
	Min       int      `json:"min"`
	Max       int      `json:"max"`
	Rules     []string `json:"rules"`
}

type rawPrompting struct {
	SystemPrompt   string     `json:"systemPrompt"`
	ExecutionOrder string     `json:"executionOrder"`
	Agents         []rawAgent `json:"agents"`
}

type rawWorkflow struct {
	SystemPrompt string     `json:"systemPrompt"`
	Steps        []rawAgent `json:"steps"`
}

type rawAgent struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Role         string          `json:"role"`
	SystemPrompt string          `json:"systemPrompt"`
	SystemSnake  string          `json:"system_prompt"`
	Prompt       string          `json:"prompt"`
	TaskPrompt   string          `json:"taskPrompt"`
	Task         string          `json:"task"`
	Instructions string          `json:"instructions"`
	Temperature  json.RawMessage `json:"temperature"`
	Order        *int            `json:"order"`
}

const defaultAgentTemperature = 0.7

// ParseDefinition decodes a stored definition document into a normalized
// content type.
func ParseDefinition(id, name, category string, version int, raw []byte) (*domain.ContentType, error) {
	var def rawDefinition
	if err := json.Unmarshal(raw, &def); err != nil {
		return nil, fmt.Errorf("content type %s: decode definition: %w", id, err)
	}

	ct := &domain.ContentType{
		ID:             id,
		Name:           name,
		Category:       category,
		Version:        version,
		OutputContract: def.OutputContract,
	}

	for _, f := range def.InputsContract {
		field, err := normalizeField(f)
		if err != nil {
			return nil, fmt.Errorf("content type %s: %w", id, err)
		}
		ct.InputsContract = append(ct.InputsContract, field)
	}

	ct.ScenePolicy = normalizePolicy(def.ScenePolicy)
	ct.Prompting = normalizePrompting(def.Prompting, def.Workflow)
	return ct, nil
}

func normalizeField(f rawInputField) (domain.InputField, error) {
	key := strings.TrimSpace(f.Key)
	if key == "" {
		key = strings.TrimSpace(f.Name)
	}
	if key == "" {
		return domain.InputField{}, fmt.Errorf("input field missing key")
	}
	fieldType := domain.InputFieldType(strings.ToLower(strings.TrimSpace(f.Type)))
	switch fieldType {
	case domain.InputTypeString, domain.InputTypeNumber, domain.InputTypeBoolean,
		domain.InputTypeEnum, domain.InputTypeList:
	case "":
		fieldType = domain.InputTypeString
	default:
		return domain.InputField{}, fmt.Errorf("input field %q: unknown type %q", key, f.Type)
	}
	values := f.Values
	if len(values) == 0 {
		values = f.Options
	}
	return domain.InputField{
		Key:       key,
		Type:      fieldType,
		Required:  f.Required,
		MaxLength: f.MaxLength,
		Min:       f.Min,
		Max:       f.Max,
		Values:    values,
	}, nil
}

func normalizePolicy(p *rawScenePolicy) domain.SceneGenerationPolicy {
	policy := domain.SceneGenerationPolicy{MinScenes: 1, MaxScenes: 6}
	if p == nil {
		return policy
	}
	if p.MinScenes > 0 {
		policy.MinScenes = p.MinScenes
	} else if p.Min > 0 {
		policy.MinScenes = p.Min
	}
	if p.MaxScenes > 0 {
		policy.MaxScenes = p.MaxScenes
	} else if p.Max > 0 {
		policy.MaxScenes = p.Max
	}
	if policy.MaxScenes < policy.MinScenes {
		policy.MaxScenes = policy.MinScenes
	}
	policy.Rules = p.Rules
	return policy
}

func normalizePrompting(p *rawPrompting, legacy *rawWorkflow) domain.Prompting {
	prompting := domain.Prompting{ExecutionOrder: "sequential"}

	var agents []rawAgent
	switch {
	case p != nil:
		prompting.SystemPrompt = p.SystemPrompt
		if strings.TrimSpace(p.ExecutionOrder) != "" {
			prompting.ExecutionOrder = strings.ToLower(strings.TrimSpace(p.ExecutionOrder))
		}
		agents = p.Agents
	case legacy != nil:
		prompting.SystemPrompt = legacy.SystemPrompt
		agents = legacy.Steps
	}

	for i, a := range agents {
		prompting.Agents = append(prompting.Agents, normalizeAgent(a, i))
	}
	sort.SliceStable(prompting.Agents, func(i, j int) bool {
		return prompting.Agents[i].Order < prompting.Agents[j].Order
	})
	return prompting
}

func normalizeAgent(a rawAgent, position int) domain.AgentSpec {
	spec := domain.AgentSpec{
		ID:          strings.TrimSpace(a.ID),
		Name:        strings.TrimSpace(a.Name),
		Role:        strings.TrimSpace(a.Role),
		Temperature: parseTemperature(a.Temperature),
	}
	if spec.ID == "" {
		spec.ID = fmt.Sprintf("agent-%d", position+1)
	}
	if spec.Name == "" {
		spec.Name = spec.ID
	}
	if spec.Role == "" {
		spec.Role = slugify(spec.Name)
	}

	spec.SystemPrompt = firstNonEmpty(a.SystemPrompt, a.SystemSnake, a.Prompt)
	spec.TaskPrompt = firstNonEmpty(a.TaskPrompt, a.Task, a.Instructions)

	if a.Order != nil {
		spec.Order = *a.Order
	} else {
		spec.Order = position + 1
	}
	return spec
}

func parseTemperature(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return defaultAgentTemperature
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		if n < 0 || n > 2 {
			return defaultAgentTemperature
		}
		return n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil && n >= 0 && n <= 2 {
			return n
		}
	}
	return defaultAgentTemperature
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func slugify(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteRune('_')
		}
	}
	slug := strings.Trim(b.String(), "_")
	if slug == "" {
		return "agent"
	}
	return slug
}
