package generation

import (
	"context"
	"log"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const enhancerSystemPrompt = `You rewrite short 3D model descriptions into precise, geometry-rich prompts for a text-to-3D generator. Keep the user's intent, add shape, proportion and surface detail. Reply with the rewritten prompt only.`

// PromptEnhancer optionally rewrites terse prompts before dispatch.
// It is best-effort: any failure falls back to the original prompt, so
// generation never depends on the LLM being up.
type PromptEnhancer struct {
	client *openai.Client
	model  string
}

// NewPromptEnhancer creates an enhancer, or nil when no API key is
// configured. A nil enhancer is safe to call.
func NewPromptEnhancer(apiKey string) *PromptEnhancer {
	if apiKey == "" {
		log.Printf("ℹ️  Prompt enhancement disabled (no OpenAI API key)")
		return nil
	}

	return &PromptEnhancer{
		client: openai.NewClient(apiKey),
		model:  openai.GPT4oMini,
	}
}

// Enhance returns a refined version of prompt, or the original on any
// failure or when the enhancer is disabled.
func (e *PromptEnhancer) Enhance(ctx context.Context, prompt string) string {
	if e == nil || prompt == "" {
		return prompt
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: enhancerSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   300,
		Temperature: 0.4,
	})
	if err != nil {
		log.Printf("⚠️  Prompt enhancement failed, using original prompt: %v", err)
		return prompt
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return prompt
	}

	return SanitizePrompt(resp.Choices[0].Message.Content)
}
