package types

// RunRequest is the payload of POST /run.
type RunRequest struct {
	// Name of the prompt to execute.
	// example: summarize
	Prompt string `json:"prompt" example:"summarize"`
	// Caller parameters; they override document and prompt parameters.
	Params map[string]any `json:"params,omitempty"`
	// If true, run the prompt's dependencies first.
	// example: true
	WithDependencies bool `json:"with_dependencies,omitempty" example:"true"`
}

// RunResponse wraps the outputs of one execution.
type RunResponse struct {
	// Prompt that was executed.
	Prompt string `json:"prompt"`
	// Outputs recorded for the prompt.
	Outputs []Output `json:"outputs"`
	// Canonical text of the first output, if it has one.
	Text string `json:"text,omitempty"`
}

// BatchRequest is the payload of POST /batch.
type BatchRequest struct {
	// Name of the prompt to execute.
	// example: summarize
	Prompt string `json:"prompt" example:"summarize"`
	// One execution per entry, in order.
	ParamsList []map[string]any `json:"params_list"`
	// If true, each entry runs the prompt's dependencies first.
	WithDependencies bool `json:"with_dependencies,omitempty"`
}

// BatchResponse holds one output sequence per BatchRequest entry.
type BatchResponse struct {
	Prompt  string     `json:"prompt"`
	Results [][]Output `json:"results"`
}

// RenderRequest is the payload of POST /render.
type RenderRequest struct {
	// example: summarize
	Prompt string         `json:"prompt" example:"summarize"`
	Params map[string]any `json:"params,omitempty"`
}

// RenderResponse carries a lenient template preview.
type RenderResponse struct {
	Prompt string `json:"prompt"`
	Text   string `json:"text"`
}

// SaveRequest is the payload of POST /save.
type SaveRequest struct {
	// Target path; empty means the path the document was loaded from.
	// example: ./travel.aiconfig.json
	Path string `json:"path,omitempty" example:"./travel.aiconfig.json"`
	// If false, outputs are omitted from the written file.
	// example: true
	IncludeOutputs bool `json:"include_outputs" example:"true"`
}

// PromptSummary describes one prompt in GET /prompts.
type PromptSummary struct {
	// example: summarize
	Name string `json:"name" example:"summarize"`
	// Effective model id.
	// example: gpt-4o-mini
	Model string `json:"model" example:"gpt-4o-mini"`
	// Names of prompts whose output this prompt references.
	DependsOn []string `json:"depends_on,omitempty"`
	// Number of recorded outputs.
	Outputs int      `json:"outputs"`
	Tags    []string `json:"tags,omitempty"`
}

// PromptsResponse wraps the list returned by GET /prompts.
type PromptsResponse struct {
	Document string          `json:"document"`
	Prompts  []PromptSummary `json:"prompts"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: unknown prompt: summarize
	Error string `json:"error" example:"unknown prompt: summarize"`
	// HTTP status code.
	// example: 404
	Code int `json:"code" example:"404"`
}
