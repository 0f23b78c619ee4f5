package agent

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/ensura-lab/ensura/pkg/agent/tool"
	"github.com/ensura-lab/ensura/pkg/domain/model"
	"github.com/ensura-lab/ensura/pkg/domain/types"
	"github.com/ensura-lab/ensura/pkg/service/memory"
	"github.com/ensura-lab/ensura/pkg/service/metrics"
	"github.com/ensura-lab/ensura/pkg/utils/logging"
)

// recentWindow is how many trailing messages feed classification and the
// retrieval search query.
const recentWindow = 2

// Pipeline runs a single chat turn through its fixed stage order: classify,
// retrieve, route tools, execute tools, generate. Stages communicate only
// through the turn state that accumulates inside Run; a turn either reaches
// the end and is committed to memory, or fails and leaves the session
// history untouched.
type Pipeline struct {
	classifier *Classifier
	retriever  *Retriever
	tools      []tool.Tool
	generator  *Generator
	memory     *memory.Service
	metrics    *metrics.Collector

	// contextWindow is how many recent messages feed generation as
	// conversation context.
	contextWindow int
}

func NewPipeline(classifier *Classifier, retriever *Retriever, tools []tool.Tool, generator *Generator, mem *memory.Service, collector *metrics.Collector, contextWindow int) *Pipeline {
	if contextWindow < 1 {
		contextWindow = 6
	}
	return &Pipeline{
		classifier:    classifier,
		retriever:     retriever,
		tools:         tools,
		generator:     generator,
		memory:        mem,
		metrics:       collector,
		contextWindow: contextWindow,
	}
}

// Run executes one turn for an existing session. On success the user message
// and the generated answer are appended to the session, in that order. On
// failure nothing is appended, so a retried turn sees the same history as
// the failed one did.
func (p *Pipeline) Run(ctx context.Context, sessionID model.SessionID, query string) (*model.Answer, *model.TurnTrace, error) {
	started := time.Now()
	trace := &model.TurnTrace{TurnID: model.NewTurnID()}
	logger := logging.From(ctx).With(types.TurnIDKey, trace.TurnID.String(), types.SessionIDKey, sessionID.String())
	ctx = logging.With(ctx, logger)

	history := p.memory.RecentContext(ctx, sessionID, p.contextWindow)
	// Classification and search see only the last exchange so a follow-up
	// question resolves its referent without dragging in the whole session.
	recent := p.memory.RecentContext(ctx, sessionID, recentWindow)

	stageStart := time.Now()
	intent, cached := p.classifier.Classify(ctx, query, recent)
	trace.Intent = intent
	trace.ClassifierCached = cached
	trace.ClassifyLatency = time.Since(stageStart)
	p.metrics.ObserveExtra("pipeline_classify", trace.ClassifyLatency, false, "cache_hits", boolToFloat(cached))
	logger.Debug("classified intent", "intent", intent.String(), "cached", cached)

	stageStart = time.Now()
	docs, retrievalCached, err := p.retriever.Retrieve(ctx, query, recent, intent)
	if err != nil {
		// Retrieval is best effort: generation proceeds without grounding
		// context rather than failing the turn.
		logger.Warn("retrieval failed, continuing without context", "error", err.Error())
		p.metrics.RecordError("retrieval")
		docs = nil
	}
	trace.RetrievalCached = retrievalCached
	trace.RetrieveLatency = time.Since(stageStart)
	p.metrics.ObserveExtra("pipeline_retrieve", trace.RetrieveLatency, err != nil, "cache_hits", boolToFloat(retrievalCached))

	stageStart = time.Now()
	var invocations []model.ToolInvocation
	for _, t := range tool.Route(p.tools, query, intent) {
		inv := t.Invoke(query)
		invocations = append(invocations, inv)
		trace.Tools = append(trace.Tools, inv.Tool)
		if inv.Failed() {
			logger.Debug("tool reported validation failure", types.ToolNameKey, inv.Tool.String(), "note", inv.FailureNote)
			p.metrics.RecordError("tool_validation")
		}
	}
	trace.ToolLatency = time.Since(stageStart)
	if len(invocations) > 0 {
		p.metrics.Observe("pipeline_tools", trace.ToolLatency, false)
	}

	stageStart = time.Now()
	answer, err := p.generator.Generate(ctx, query, history, intent, docs, invocations)
	trace.GenerateLatency = time.Since(stageStart)
	p.metrics.Observe("pipeline_generate", trace.GenerateLatency, err != nil)
	if err != nil {
		p.metrics.RecordError("generation")
		return nil, trace, goerr.Wrap(err, "turn failed at generation", goerr.V(types.TurnIDKey, trace.TurnID))
	}

	if err := p.memory.Append(ctx, sessionID, model.NewMessage(types.RoleUser, query)); err != nil {
		return nil, trace, goerr.Wrap(err, "failed to record user message")
	}
	if err := p.memory.Append(ctx, sessionID, model.NewMessage(types.RoleAssistant, answer.Text)); err != nil {
		return nil, trace, goerr.Wrap(err, "failed to record assistant message")
	}

	trace.TotalLatency = time.Since(started)
	p.metrics.Observe("pipeline_turn", trace.TotalLatency, false)
	logger.Info("turn completed",
		"intent", intent.String(),
		"tools", len(invocations),
		"sources", len(answer.Sources),
		"latency_ms", trace.TotalLatency.Milliseconds(),
	)
	return answer, trace, nil
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
