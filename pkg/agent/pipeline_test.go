package agent_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gt"

	"github.com/ensura-lab/ensura/pkg/agent"
	"github.com/ensura-lab/ensura/pkg/agent/tool"
	"github.com/ensura-lab/ensura/pkg/domain/model"
	"github.com/ensura-lab/ensura/pkg/domain/types"
	memrepo "github.com/ensura-lab/ensura/pkg/repository/memory"
	"github.com/ensura-lab/ensura/pkg/service/cache"
	"github.com/ensura-lab/ensura/pkg/service/memory"
	"github.com/ensura-lab/ensura/pkg/service/metrics"
)

func newTestPipeline(t *testing.T, llm *mockLLM, search *mockSearch) (*agent.Pipeline, *memory.Service) {
	t.Helper()

	mem := memory.New(memrepo.New(), 20)
	c := cache.New(64, time.Minute)
	pipeline := agent.NewPipeline(
		agent.NewClassifier(llm, c, time.Minute),
		agent.NewRetriever(search, c, time.Minute, 4, 0.3),
		tool.New(tool.DefaultConfig()),
		agent.NewGenerator(llm),
		mem,
		metrics.New(),
		6,
	)
	return pipeline, mem
}

func TestPipelineTurn(t *testing.T) {
	ctx := context.Background()

	llm := &mockLLM{
		generateJSONFn: func(_ context.Context, _, _ string, _ *gollem.Parameter) (string, error) {
			return `{"intent":"POLICY_TYPES"}`, nil
		},
		generateTextFn: func(_ context.Context, _, _ string) (string, error) {
			return "Term life insurance covers a fixed period.", nil
		},
	}
	search := &mockSearch{
		queryFn: func(_ context.Context, _ string, _ int, _ float64) ([]model.RetrievedDocument, error) {
			return []model.RetrievedDocument{
				{Source: "policy_guide.txt", Content: "Term life covers 10 to 30 years.", Score: 0.9},
			}, nil
		},
	}
	pipeline, mem := newTestPipeline(t, llm, search)

	session, err := mem.NewSession(ctx, "user-1")
	gt.NoError(t, err).Required()

	answer, trace, err := pipeline.Run(ctx, session.ID, "What is term life insurance?")
	gt.NoError(t, err).Required()

	gt.Value(t, answer.Text).Equal("Term life insurance covers a fixed period.")
	gt.Array(t, answer.Sources).Equal([]string{"policy_guide.txt"})
	gt.Value(t, trace.Intent).Equal(types.IntentPolicyTypes)
	gt.String(t, trace.TurnID.String()).NotEqual("")
	gt.Array(t, trace.Tools).Length(0)

	// Both sides of the turn are committed to the session, user first.
	msgs, err := mem.History(ctx, session.ID, 0)
	gt.NoError(t, err).Required()
	gt.Array(t, msgs).Length(2)
	gt.Value(t, msgs[0].Role).Equal(types.RoleUser)
	gt.Value(t, msgs[0].Content).Equal("What is term life insurance?")
	gt.Value(t, msgs[1].Role).Equal(types.RoleAssistant)
}

func TestPipelineFollowUpSeesHistory(t *testing.T) {
	ctx := context.Background()

	var answerPrompts []string
	llm := &mockLLM{
		generateJSONFn: func(_ context.Context, _, _ string, _ *gollem.Parameter) (string, error) {
			return `{"intent":"POLICY_TYPES"}`, nil
		},
		generateTextFn: func(_ context.Context, _, prompt string) (string, error) {
			answerPrompts = append(answerPrompts, prompt)
			if len(answerPrompts) == 1 {
				return "Term life insurance covers a fixed period.", nil
			}
			return "Compared with term, whole life lasts a lifetime and builds cash value.", nil
		},
	}
	var searchQueries []string
	search := &mockSearch{
		queryFn: func(_ context.Context, text string, _ int, _ float64) ([]model.RetrievedDocument, error) {
			searchQueries = append(searchQueries, text)
			return nil, nil
		},
	}
	pipeline, mem := newTestPipeline(t, llm, search)

	session, err := mem.NewSession(ctx, "user-1")
	gt.NoError(t, err).Required()

	_, _, err = pipeline.Run(ctx, session.ID, "What is term life insurance?")
	gt.NoError(t, err).Required()

	answer, trace, err := pipeline.Run(ctx, session.ID, "Compare it with whole life insurance")
	gt.NoError(t, err).Required()

	// The follow-up prompt carries the first exchange, so "it" is resolvable.
	gt.Array(t, answerPrompts).Length(2)
	gt.String(t, answerPrompts[1]).Contains("User: What is term life insurance?")
	gt.String(t, answerPrompts[1]).Contains("Assistant: Term life insurance covers a fixed period.")

	// The follow-up search query is enhanced with the prior exchange too.
	enhanced := false
	for _, q := range searchQueries {
		if strings.Contains(q, "Current question: Compare it with whole life insurance") &&
			strings.Contains(q, "What is term life insurance?") {
			enhanced = true
		}
	}
	gt.Bool(t, enhanced).True()

	gt.Array(t, trace.Tools).Has(types.ToolPolicyComparator)
	gt.String(t, answer.Reasoning).Contains("policy_comparator")

	msgs, err := mem.History(ctx, session.ID, 0)
	gt.NoError(t, err).Required()
	gt.Array(t, msgs).Length(4)
}

func TestPipelineClassifierFailureDegrades(t *testing.T) {
	ctx := context.Background()

	llm := &mockLLM{
		generateJSONFn: func(_ context.Context, _, _ string, _ *gollem.Parameter) (string, error) {
			return "", errors.New("provider down")
		},
	}
	pipeline, mem := newTestPipeline(t, llm, &mockSearch{})

	session, err := mem.NewSession(ctx, "user-1")
	gt.NoError(t, err).Required()

	answer, trace, err := pipeline.Run(ctx, session.ID, "hello there")
	gt.NoError(t, err).Required()

	gt.Value(t, trace.Intent).Equal(types.IntentGeneral)
	gt.String(t, answer.Text).NotEqual("")
}

func TestPipelineRetrievalFailureDegrades(t *testing.T) {
	ctx := context.Background()

	var captured string
	llm := &mockLLM{
		generateTextFn: func(_ context.Context, _, prompt string) (string, error) {
			captured = prompt
			return "General guidance without sources.", nil
		},
	}
	search := &mockSearch{
		queryFn: func(_ context.Context, _ string, _ int, _ float64) ([]model.RetrievedDocument, error) {
			return nil, errors.New("index offline")
		},
	}
	pipeline, mem := newTestPipeline(t, llm, search)

	session, err := mem.NewSession(ctx, "user-1")
	gt.NoError(t, err).Required()

	answer, _, err := pipeline.Run(ctx, session.ID, "What is a beneficiary?")
	gt.NoError(t, err).Required()

	gt.Array(t, answer.Sources).Length(0)
	gt.String(t, captured).Contains("No specific information found.")

	// The degraded turn is still committed.
	msgs, err := mem.History(ctx, session.ID, 0)
	gt.NoError(t, err).Required()
	gt.Array(t, msgs).Length(2)
}

func TestPipelineGenerationFailureLeavesMemoryUntouched(t *testing.T) {
	ctx := context.Background()

	llm := &mockLLM{
		generateTextFn: func(_ context.Context, _, _ string) (string, error) {
			return "", errors.New("provider down")
		},
	}
	pipeline, mem := newTestPipeline(t, llm, &mockSearch{})

	session, err := mem.NewSession(ctx, "user-1")
	gt.NoError(t, err).Required()

	_, trace, err := pipeline.Run(ctx, session.ID, "What is term life insurance?")
	gt.Error(t, err)
	gt.String(t, trace.TurnID.String()).NotEqual("")

	msgs, err := mem.History(ctx, session.ID, 0)
	gt.NoError(t, err).Required()
	gt.Array(t, msgs).Length(0)
}

func TestPipelineToolValidationFailureContinues(t *testing.T) {
	ctx := context.Background()

	var captured string
	llm := &mockLLM{
		generateJSONFn: func(_ context.Context, _, _ string, _ *gollem.Parameter) (string, error) {
			return `{"intent":"PREMIUMS"}`, nil
		},
		generateTextFn: func(_ context.Context, _, prompt string) (string, error) {
			captured = prompt
			return "Premiums are only available for applicants 18 and older.", nil
		},
	}
	pipeline, mem := newTestPipeline(t, llm, &mockSearch{})

	session, err := mem.NewSession(ctx, "user-1")
	gt.NoError(t, err).Required()

	answer, trace, err := pipeline.Run(ctx, session.ID, "calculate a premium for my 10 year old child")
	gt.NoError(t, err).Required()

	gt.Array(t, trace.Tools).Has(types.ToolPremiumCalculator)
	gt.String(t, captured).Contains("age must be between 18 and 75")
	if strings.Contains(answer.Reasoning, "Tools Used") {
		t.Errorf("failed tool must not be reported as used: %s", answer.Reasoning)
	}
}
