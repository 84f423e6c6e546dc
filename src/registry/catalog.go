package registry

import "github.com/mkoskin/chatter/src/chatsdk"

// Hosted provider ids. The local provider id lives in localclient, which
// registers itself through a Probe.
const (
	ProviderOpenAI = "openai"
	ProviderGoogle = "google"
)

// staticCatalog is the hosted-provider catalog known at build time.
func staticCatalog() []ProviderDefinition {
	return []ProviderDefinition{
		{
			ID:             ProviderOpenAI,
			Label:          "OpenAI",
			RequiresAPIKey: true,
			Models: []ProviderModel{
				{ID: "gpt-4o", Label: "GPT-4o", Kind: chatsdk.ModelKindText},
				{ID: "gpt-4o-mini", Label: "GPT-4o mini", Kind: chatsdk.ModelKindText},
				{ID: "gpt-image-1", Label: "GPT Image 1", Kind: chatsdk.ModelKindImage},
				{ID: "dall-e-3", Label: "DALL-E 3", Kind: chatsdk.ModelKindImage},
				{ID: "dall-e-2", Label: "DALL-E 2", Kind: chatsdk.ModelKindImage},
			},
		},
		{
			ID:             ProviderGoogle,
			Label:          "Google",
			RequiresAPIKey: true,
			Models: []ProviderModel{
				{ID: "gemini-2.0-flash", Label: "Gemini 2.0 Flash", Kind: chatsdk.ModelKindText},
				{ID: "gemini-1.5-pro", Label: "Gemini 1.5 Pro", Kind: chatsdk.ModelKindText},
				{ID: "gemini-2.0-flash-preview-image-generation", Label: "Gemini 2.0 Flash Image", Kind: chatsdk.ModelKindImage},
			},
		},
	}
}
