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
	"github.com/ensura-lab/ensura/pkg/domain/model"
	"github.com/ensura-lab/ensura/pkg/domain/types"
	"github.com/ensura-lab/ensura/pkg/service/cache"
)

type mockLLM struct {
	generateTextFn func(ctx context.Context, systemPrompt, prompt string) (string, error)
	generateJSONFn func(ctx context.Context, systemPrompt, prompt string, schema *gollem.Parameter) (string, error)
}

func (m *mockLLM) GenerateText(ctx context.Context, systemPrompt, prompt string) (string, error) {
	if m.generateTextFn != nil {
		return m.generateTextFn(ctx, systemPrompt, prompt)
	}
	return "mock answer", nil
}

func (m *mockLLM) GenerateJSON(ctx context.Context, systemPrompt, prompt string, schema *gollem.Parameter) (string, error) {
	if m.generateJSONFn != nil {
		return m.generateJSONFn(ctx, systemPrompt, prompt, schema)
	}
	return `{"intent":"GENERAL"}`, nil
}

type mockSearch struct {
	queryFn func(ctx context.Context, text string, k int, minScore float64) ([]model.RetrievedDocument, error)
}

func (m *mockSearch) Query(ctx context.Context, text string, k int, minScore float64) ([]model.RetrievedDocument, error) {
	if m.queryFn != nil {
		return m.queryFn(ctx, text, k, minScore)
	}
	return nil, nil
}

func TestClassifier(t *testing.T) {
	ctx := context.Background()

	calls := 0
	llm := &mockLLM{
		generateJSONFn: func(_ context.Context, _, prompt string, schema *gollem.Parameter) (string, error) {
			calls++
			gt.String(t, prompt).Contains("How much does term life cost?")
			gt.Value(t, schema.Type).Equal(gollem.TypeObject)
			gt.Bool(t, schema.Properties["intent"].Required).True()
			return `{"intent":"PREMIUMS"}`, nil
		},
	}
	classifier := agent.NewClassifier(llm, cache.New(8, time.Minute), time.Minute)

	intent, cached := classifier.Classify(ctx, "How much does term life cost?", "")
	gt.Value(t, intent).Equal(types.IntentPremiums)
	gt.Bool(t, cached).False()
	gt.Number(t, calls).Equal(1)

	// Identical query in the same context is served from cache.
	intent, cached = classifier.Classify(ctx, "How much does term life cost?", "")
	gt.Value(t, intent).Equal(types.IntentPremiums)
	gt.Bool(t, cached).True()
	gt.Number(t, calls).Equal(1)

	// The same query under different recent history is a fresh classification.
	intent, cached = classifier.Classify(ctx, "How much does term life cost?", "User: I asked about whole life")
	gt.Value(t, intent).Equal(types.IntentPremiums)
	gt.Bool(t, cached).False()
	gt.Number(t, calls).Equal(2)
}

func TestClassifierFallsBackToGeneral(t *testing.T) {
	ctx := context.Background()

	cases := map[string]func(ctx context.Context, systemPrompt, prompt string, schema *gollem.Parameter) (string, error){
		"model error": func(_ context.Context, _, _ string, _ *gollem.Parameter) (string, error) {
			return "", errors.New("provider down")
		},
		"malformed json": func(_ context.Context, _, _ string, _ *gollem.Parameter) (string, error) {
			return "not json", nil
		},
		"unknown label": func(_ context.Context, _, _ string, _ *gollem.Parameter) (string, error) {
			return `{"intent":"BANKING"}`, nil
		},
	}

	for name, fn := range cases {
		t.Run(name, func(t *testing.T) {
			classifier := agent.NewClassifier(&mockLLM{generateJSONFn: fn}, cache.New(8, time.Minute), time.Minute)
			intent, cached := classifier.Classify(ctx, "some question", "")
			gt.Value(t, intent).Equal(types.IntentGeneral)
			gt.Bool(t, cached).False()
		})
	}
}

func TestRetrieverMergesIntentHint(t *testing.T) {
	ctx := context.Background()

	var queries []string
	search := &mockSearch{
		queryFn: func(_ context.Context, text string, _ int, _ float64) ([]model.RetrievedDocument, error) {
			queries = append(queries, text)
			if strings.Contains(text, "eligibility requirements") {
				return []model.RetrievedDocument{
					{Source: "underwriting.txt", Content: "age limits", Score: 0.9},
					{Source: "faq.txt", Content: "common questions", Score: 0.5},
				}, nil
			}
			return []model.RetrievedDocument{
				{Source: "faq.txt", Content: "common questions", Score: 0.7},
			}, nil
		},
	}
	retriever := agent.NewRetriever(search, cache.New(8, time.Minute), time.Minute, 4, 0.3)

	docs, cached, err := retriever.Retrieve(ctx, "can I qualify at 70?", "", types.IntentEligibility)
	gt.NoError(t, err)
	gt.Bool(t, cached).False()
	gt.Array(t, queries).Length(2)

	// Duplicate document kept once at its best score, results ordered by score.
	gt.Array(t, docs).Length(2)
	gt.Value(t, docs[0].Source).Equal("underwriting.txt")
	gt.Value(t, docs[1].Source).Equal("faq.txt")
	gt.Value(t, docs[1].Score).Equal(0.7)

	_, cached, err = retriever.Retrieve(ctx, "can I qualify at 70?", "", types.IntentEligibility)
	gt.NoError(t, err)
	gt.Bool(t, cached).True()
	gt.Array(t, queries).Length(2)
}

func TestRetrieverFoldsHistoryIntoQuery(t *testing.T) {
	ctx := context.Background()

	var queries []string
	search := &mockSearch{
		queryFn: func(_ context.Context, text string, _ int, _ float64) ([]model.RetrievedDocument, error) {
			queries = append(queries, text)
			return nil, nil
		},
	}
	retriever := agent.NewRetriever(search, cache.New(8, time.Minute), time.Minute, 4, 0.3)

	history := "User: What is term life insurance?\nAssistant: Term life covers a fixed period."
	_, _, err := retriever.Retrieve(ctx, "Compare it with whole life", history, types.IntentGeneral)
	gt.NoError(t, err)

	gt.Array(t, queries).Length(1)
	gt.String(t, queries[0]).Contains("What is term life insurance?")
	gt.String(t, queries[0]).Contains("Current question: Compare it with whole life")
}

func TestRetrieverError(t *testing.T) {
	ctx := context.Background()

	search := &mockSearch{
		queryFn: func(_ context.Context, _ string, _ int, _ float64) ([]model.RetrievedDocument, error) {
			return nil, errors.New("index gone")
		},
	}
	c := cache.New(8, time.Minute)
	retriever := agent.NewRetriever(search, c, time.Minute, 4, 0.3)

	_, _, err := retriever.Retrieve(ctx, "anything", "", types.IntentGeneral)
	gt.Error(t, err)

	// Failures are not cached.
	gt.Number(t, c.Len()).Equal(0)
}

func TestGenerator(t *testing.T) {
	ctx := context.Background()

	var captured string
	llm := &mockLLM{
		generateTextFn: func(_ context.Context, systemPrompt, prompt string) (string, error) {
			gt.String(t, systemPrompt).Contains("life insurance support assistant")
			captured = prompt
			return "Term life lasts for a fixed period.", nil
		},
	}
	gen := agent.NewGenerator(llm)

	docs := []model.RetrievedDocument{
		{Source: "policy_guide.txt", Content: "Term life covers 10 to 30 years.", Score: 0.91},
		{Source: "policy_guide.txt", Content: "Premiums stay level for the term.", Score: 0.84},
		{Source: "faq.txt", Content: "Coverage ends at expiry.", Score: 0.72},
	}
	tools := []model.ToolInvocation{
		{Tool: types.ToolPremiumCalculator, Result: map[string]any{"monthly_premium": 66.0}},
	}

	answer, err := gen.Generate(ctx, "What is term life?", "User: hello\nAssistant: hi", types.IntentPolicyTypes, docs, tools)
	gt.NoError(t, err).Required()

	gt.Value(t, answer.Text).Equal("Term life lasts for a fixed period.")
	gt.Array(t, answer.Sources).Equal([]string{"policy_guide.txt", "faq.txt"})
	gt.Value(t, answer.Reasoning).Equal("Intent: POLICY_TYPES | Tools Used: premium_calculator")

	gt.String(t, captured).Contains("[Source 1: policy_guide.txt]")
	gt.String(t, captured).Contains("[Source 3: faq.txt]")
	gt.String(t, captured).Contains("User: hello")
	gt.String(t, captured).Contains("monthly_premium")
}

func TestGeneratorWithoutContext(t *testing.T) {
	ctx := context.Background()

	var captured string
	llm := &mockLLM{
		generateTextFn: func(_ context.Context, _, prompt string) (string, error) {
			captured = prompt
			return "Happy to help.", nil
		},
	}
	gen := agent.NewGenerator(llm)

	answer, err := gen.Generate(ctx, "hi", "", types.IntentGeneral, nil, nil)
	gt.NoError(t, err).Required()

	gt.Array(t, answer.Sources).Length(0)
	gt.Value(t, answer.Reasoning).Equal("Intent: GENERAL")
	gt.String(t, captured).Contains("No previous conversation")
	gt.String(t, captured).Contains("No specific information found.")
}

func TestGeneratorToolFailureNote(t *testing.T) {
	ctx := context.Background()

	var captured string
	llm := &mockLLM{
		generateTextFn: func(_ context.Context, _, prompt string) (string, error) {
			captured = prompt
			return "Could you share the applicant's age?", nil
		},
	}
	gen := agent.NewGenerator(llm)

	tools := []model.ToolInvocation{
		{Tool: types.ToolPremiumCalculator, FailureNote: "age must be between 18 and 75 to calculate a premium"},
	}

	answer, err := gen.Generate(ctx, "premium for my 10 year old", "", types.IntentPremiums, nil, tools)
	gt.NoError(t, err).Required()

	// Failed invocations do not count as used tools.
	gt.Value(t, answer.Reasoning).Equal("Intent: PREMIUMS")
	gt.String(t, captured).Contains("age must be between 18 and 75")
	gt.String(t, captured).Contains("Ask the user for the missing details")
}
