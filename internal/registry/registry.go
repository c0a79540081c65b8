// Package registry holds the process-wide model registry. It is the single
// source of truth for provider dispatch and per-model pricing.
package registry

import "sort"

// Provider tags route a model to its adapter.
const (
	ProviderBedrock = "bedrock"
	ProviderGemini  = "gemini"
)

// Pricing is USD per one million tokens.
type Pricing struct {
	Input  float64 `json:"input"`
	Output float64 `json:"output"`
}

// ModelInfo describes one invocable model.
type ModelInfo struct {
	ModelID        string  `json:"modelId"`
	Provider       string  `json:"provider"`
	DisplayName    string  `json:"displayName"`
	Description    string  `json:"description"`
	Category       string  `json:"category"`
	SupportsImages bool    `json:"supportsImages"`
	MaxTokens      int     `json:"maxTokens"`
	Pricing        Pricing `json:"pricing"`
}

// models is the authoritative registry. Pricing changes require a release note.
var models = map[string]ModelInfo{
	"us.anthropic.claude-sonnet-4-5-20250929-v1:0": {
		ModelID:        "us.anthropic.claude-sonnet-4-5-20250929-v1:0",
		Provider:       ProviderBedrock,
		DisplayName:    "Claude Sonnet 4.5",
		Description:    "Balanced model for general assistant and document work",
		Category:       "standard",
		SupportsImages: true,
		MaxTokens:      8192,
		Pricing:        Pricing{Input: 3.0, Output: 15.0},
	},
	"us.anthropic.claude-haiku-4-5-20251001-v1:0": {
		ModelID:        "us.anthropic.claude-haiku-4-5-20251001-v1:0",
		Provider:       ProviderBedrock,
		DisplayName:    "Claude Haiku 4.5",
		Description:    "Fast, low-cost model for short interactive turns",
		Category:       "fast",
		SupportsImages: true,
		MaxTokens:      8192,
		Pricing:        Pricing{Input: 1.0, Output: 5.0},
	},
	"gemini-3-flash-preview": {
		ModelID:        "gemini-3-flash-preview",
		Provider:       ProviderGemini,
		DisplayName:    "Gemini 3 Flash",
		Description:    "Fast multimodal model on the Gemini API",
		Category:       "fast",
		SupportsImages: true,
		MaxTokens:      8192,
		Pricing:        Pricing{Input: 0.5, Output: 3.0},
	},
	"gemini-3-pro-preview": {
		ModelID:        "gemini-3-pro-preview",
		Provider:       ProviderGemini,
		DisplayName:    "Gemini 3 Pro",
		Description:    "High-capability multimodal model on the Gemini API",
		Category:       "standard",
		SupportsImages: true,
		MaxTokens:      8192,
		Pricing:        Pricing{Input: 2.0, Output: 12.0},
	},
}

// Lookup returns the registry entry for modelID.
func Lookup(modelID string) (ModelInfo, bool) {
	m, ok := models[modelID]
	return m, ok
}

// List returns all known models sorted by model id.
func List() []ModelInfo {
	out := make([]ModelInfo, 0, len(models))
	for _, m := range models {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ModelID < out[j].ModelID })
	return out
}

// Cost computes the USD cost of a turn from token counts.
func (m ModelInfo) Cost(inputTokens, outputTokens int) float64 {
	return float64(inputTokens)/1e6*m.Pricing.Input + float64(outputTokens)/1e6*m.Pricing.Output
}
