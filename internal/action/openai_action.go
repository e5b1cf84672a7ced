package action

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/smilemakc/anacostia/internal/node"
)

// OpenAIAction is an LLM-backed validation/annotation action node hook,
// grounded on smilemakc-mbflow's OpenAICompletionExecutor: resolve an API
// key, build a chat-completion request from a prompt template, call the
// API, and store the response on the node's Variables for downstream
// nodes or gate conditions to consume.
type OpenAIAction struct {
	Client    *openai.Client
	Model     string
	OutputKey string
	// BuildPrompt renders the prompt for the current execution, typically
	// reading from n.Variables.
	BuildPrompt func(n *node.Node) (string, error)
}

// NewOpenAIAction builds an OpenAIAction with a client constructed from
// apiKey, defaulting Model to "gpt-4o" and OutputKey to "output", mirroring
// smilemakc-mbflow's OpenAICompletionConfig defaults.
func NewOpenAIAction(apiKey string, buildPrompt func(n *node.Node) (string, error)) *OpenAIAction {
	return &OpenAIAction{
		Client:      openai.NewClient(apiKey),
		Model:       "gpt-4o",
		OutputKey:   "output",
		BuildPrompt: buildPrompt,
	}
}

// Execute implements the node.Hooks-compatible Execute signature: true if
// the completion returned at least one choice, with the content stashed
// in n.Variables[OutputKey] for downstream gate.Evaluator conditions.
func (a *OpenAIAction) Execute(ctx context.Context, n *node.Node) (bool, error) {
	prompt, err := a.BuildPrompt(n)
	if err != nil {
		return false, fmt.Errorf("building prompt: %w", err)
	}

	resp, err := a.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return false, fmt.Errorf("openai completion request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return false, nil
	}

	content := resp.Choices[0].Message.Content
	n.SetVariable(a.OutputKey, content)
	return true, nil
}
