package usecase_test

import (
	"context"
	"errors"
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
	"github.com/ensura-lab/ensura/pkg/service/limiter"
	"github.com/ensura-lab/ensura/pkg/service/memory"
	"github.com/ensura-lab/ensura/pkg/service/metrics"
	"github.com/ensura-lab/ensura/pkg/usecase"
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

type mockLoader struct {
	reloadFn func(ctx context.Context) (int, error)
}

func (m *mockLoader) Reload(ctx context.Context) (int, error) {
	if m.reloadFn != nil {
		return m.reloadFn(ctx)
	}
	return 0, nil
}

type testEnv struct {
	uc    *usecase.UseCases
	cache *cache.Cache
}

func newTestUseCases(t *testing.T, calls int, opts ...usecase.Option) *testEnv {
	t.Helper()

	llm := &mockLLM{}
	mem := memory.New(memrepo.New(), 20)
	c := cache.New(64, time.Minute)
	collector := metrics.New()
	pipeline := agent.NewPipeline(
		agent.NewClassifier(llm, c, time.Minute),
		agent.NewRetriever(&mockSearch{}, c, time.Minute, 4, 0.3),
		tool.New(tool.DefaultConfig()),
		agent.NewGenerator(llm),
		mem,
		collector,
		6,
	)
	return &testEnv{
		uc:    usecase.New(mem, pipeline, limiter.New(calls, time.Minute), collector, c, opts...),
		cache: c,
	}
}

func TestSendMessage(t *testing.T) {
	ctx := context.Background()
	env := newTestUseCases(t, 10)

	session, err := env.uc.CreateSession(ctx, "user-1")
	gt.NoError(t, err).Required()

	result, err := env.uc.SendMessage(ctx, "10.0.0.1", session.ID, "What is term life insurance?")
	gt.NoError(t, err).Required()

	gt.Value(t, result.SessionID).Equal(session.ID)
	gt.Value(t, result.Answer).Equal("mock answer")
	gt.String(t, result.TurnID.String()).NotEqual("")
	gt.Value(t, result.RateLimit.Limit).Equal(10)
	gt.Number(t, result.RateLimit.Remaining).Less(10)

	_, msgs, err := env.uc.GetHistory(ctx, session.ID, 0)
	gt.NoError(t, err).Required()
	gt.Array(t, msgs).Length(2)
}

func TestSendMessageValidation(t *testing.T) {
	ctx := context.Background()
	env := newTestUseCases(t, 10)

	session, err := env.uc.CreateSession(ctx, "user-1")
	gt.NoError(t, err).Required()

	_, err = env.uc.SendMessage(ctx, "10.0.0.1", session.ID, "   ")
	gt.Error(t, err)
	gt.Bool(t, errors.Is(err, types.ErrValidation)).True()
}

func TestSendMessageUnknownSession(t *testing.T) {
	ctx := context.Background()
	env := newTestUseCases(t, 10)

	_, err := env.uc.SendMessage(ctx, "10.0.0.1", model.SessionID("missing"), "hello")
	gt.Error(t, err)
	gt.Bool(t, errors.Is(err, types.ErrSessionNotFound)).True()
}

func TestSendMessageRateLimited(t *testing.T) {
	ctx := context.Background()
	env := newTestUseCases(t, 1)

	session, err := env.uc.CreateSession(ctx, "user-1")
	gt.NoError(t, err).Required()

	_, err = env.uc.SendMessage(ctx, "10.0.0.1", session.ID, "first message")
	gt.NoError(t, err).Required()

	_, err = env.uc.SendMessage(ctx, "10.0.0.1", session.ID, "second message")
	gt.Error(t, err)
	gt.Bool(t, errors.Is(err, types.ErrAdmissionRejected)).True()

	// A different client key is unaffected.
	_, err = env.uc.SendMessage(ctx, "10.0.0.2", session.ID, "other client")
	gt.NoError(t, err)

	// The rejected turn did not touch the session.
	_, msgs, err := env.uc.GetHistory(ctx, session.ID, 0)
	gt.NoError(t, err).Required()
	gt.Array(t, msgs).Length(4)
}

func TestDeleteSession(t *testing.T) {
	ctx := context.Background()
	env := newTestUseCases(t, 10)

	session, err := env.uc.CreateSession(ctx, "user-1")
	gt.NoError(t, err).Required()

	gt.NoError(t, env.uc.DeleteSession(ctx, session.ID))

	_, _, err = env.uc.GetHistory(ctx, session.ID, 0)
	gt.Error(t, err)
	gt.Bool(t, errors.Is(err, types.ErrSessionNotFound)).True()
}

func TestListSessions(t *testing.T) {
	ctx := context.Background()
	env := newTestUseCases(t, 10)

	for range 3 {
		_, err := env.uc.CreateSession(ctx, "user-1")
		gt.NoError(t, err).Required()
	}

	sessions, err := env.uc.ListSessions(ctx)
	gt.NoError(t, err).Required()
	gt.Array(t, sessions).Length(3)
}

func TestReloadKnowledgeBase(t *testing.T) {
	ctx := context.Background()

	loader := &mockLoader{
		reloadFn: func(_ context.Context) (int, error) { return 42, nil },
	}
	env := newTestUseCases(t, 10, usecase.WithKnowledgeLoader(loader))

	env.cache.Set("stale", "entry", time.Minute)
	gt.Number(t, env.cache.Len()).Equal(1)

	n, err := env.uc.ReloadKnowledgeBase(ctx)
	gt.NoError(t, err).Required()
	gt.Number(t, n).Equal(42)
	gt.Number(t, env.cache.Len()).Equal(0)
}

func TestReloadKnowledgeBaseWithoutLoader(t *testing.T) {
	ctx := context.Background()
	env := newTestUseCases(t, 10)

	_, err := env.uc.ReloadKnowledgeBase(ctx)
	gt.Error(t, err)
	gt.Bool(t, errors.Is(err, types.ErrCapabilityUnavailable)).True()
}

func TestMetricsSnapshot(t *testing.T) {
	ctx := context.Background()
	env := newTestUseCases(t, 10)

	session, err := env.uc.CreateSession(ctx, "user-1")
	gt.NoError(t, err).Required()

	_, err = env.uc.SendMessage(ctx, "10.0.0.1", session.ID, "What is term life insurance?")
	gt.NoError(t, err).Required()

	snap := env.uc.Metrics()
	gt.Map(t, snap.Operations).HasKey("pipeline_turn")
	gt.Number(t, snap.Operations["pipeline_turn"].Count).Equal(1)

	// Classification and retrieval both missed the cold cache.
	gt.Number(t, snap.Cache.Misses).GreaterOrEqual(2)
	gt.Number(t, snap.Cache.Entries).GreaterOrEqual(2)
}
