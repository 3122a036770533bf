package domain

// ContentType is a template definition controlling input fields, scene count
// policy and the agent workflow. It is created and edited elsewhere; the
// generation core treats it as read-only.
type ContentType struct {
	ID       string
	Name     string
	Category string
	Version  int

	InputsContract []InputField
	OutputContract string

	ScenePolicy SceneGenerationPolicy
	Prompting   Prompting
}

// InputFieldType enumerates the supported input field kinds.
type InputFieldType string

const (
	InputTypeString  InputFieldType = "string"
	InputTypeNumber  InputFieldType = "number"
	InputTypeBoolean InputFieldType = "boolean"
	InputTypeEnum    InputFieldType = "enum"
	InputTypeList    InputFieldType = "list"
)

// InputField is one typed descriptor of the inputs contract.
type InputField struct {
	Key      string         `json:"key"`
	Type     InputFieldType `json:"type"`
	Required bool           `json:"required"`
	// Constraints interpreted per type: MaxLength for strings and list
	// entries, Min/Max for numbers, Values for enums.
	MaxLength int      `json:"maxLength,omitempty"`
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	Values    []string `json:"values,omitempty"`
}

// SceneGenerationPolicy bounds how many scenes the planner may produce and
// carries free-form planning rules ("start strong", "end with closure").
// Rules are instructions to the planning step, not constraints enforced here.
type SceneGenerationPolicy struct {
	MinScenes int      `json:"minScenes"`
	MaxScenes int      `json:"maxScenes"`
	Rules     []string `json:"rules,omitempty"`
}

// Prompting holds the content type's system prompt template and its ordered
// agent workflow.
type Prompting struct {
	SystemPrompt   string
	ExecutionOrder string
	Agents         []AgentSpec
}

// AgentSpec is the single normalized representation of one agent step. Legacy
// stored shapes are translated into it once, at the contenttype boundary.
type AgentSpec struct {
	ID           string
	Name         string
	Role         string
	SystemPrompt string
	TaskPrompt   string
	Temperature  float64
	Order        int
}
