package agent

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"

	"github.com/ensura-lab/ensura/pkg/domain/interfaces"
	"github.com/ensura-lab/ensura/pkg/domain/types"
)

// gollemLLM adapts a gollem provider client to the pipeline's narrow
// capability interface. Each call opens a fresh session so no provider state
// leaks between turns.
type gollemLLM struct {
	client gollem.LLMClient
}

// NewLLM wraps a gollem client as the pipeline's language model capability.
func NewLLM(client gollem.LLMClient) interfaces.LLM {
	return &gollemLLM{client: client}
}

func (g *gollemLLM) GenerateText(ctx context.Context, systemPrompt, prompt string) (string, error) {
	session, err := g.client.NewSession(ctx,
		gollem.WithSessionSystemPrompt(systemPrompt),
	)
	if err != nil {
		return "", goerr.Wrap(types.ErrCapabilityUnavailable, "failed to create LLM session", goerr.V("cause", err.Error()))
	}

	resp, err := session.GenerateContent(ctx, gollem.Text(prompt))
	if err != nil {
		return "", goerr.Wrap(types.ErrCapabilityUnavailable, "failed to generate content", goerr.V("cause", err.Error()))
	}
	if resp == nil || len(resp.Texts) == 0 {
		return "", goerr.Wrap(types.ErrCapabilityUnavailable, "LLM returned an empty response")
	}
	return strings.TrimSpace(strings.Join(resp.Texts, "\n")), nil
}

func (g *gollemLLM) GenerateJSON(ctx context.Context, systemPrompt, prompt string, schema *gollem.Parameter) (string, error) {
	session, err := g.client.NewSession(ctx,
		gollem.WithSessionContentType(gollem.ContentTypeJSON),
		gollem.WithSessionResponseSchema(schema),
		gollem.WithSessionSystemPrompt(systemPrompt),
	)
	if err != nil {
		return "", goerr.Wrap(types.ErrCapabilityUnavailable, "failed to create LLM session", goerr.V("cause", err.Error()))
	}

	resp, err := session.GenerateContent(ctx, gollem.Text(prompt))
	if err != nil {
		return "", goerr.Wrap(types.ErrCapabilityUnavailable, "failed to generate content", goerr.V("cause", err.Error()))
	}
	if resp == nil || len(resp.Texts) == 0 {
		return "", goerr.Wrap(types.ErrCapabilityUnavailable, "LLM returned an empty response")
	}
	return resp.Texts[0], nil
}
