package agent

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"strings"
	"text/template"
	"time"

	"github.com/m-mizutani/gollem"

	"github.com/ensura-lab/ensura/pkg/domain/interfaces"
	"github.com/ensura-lab/ensura/pkg/domain/types"
	"github.com/ensura-lab/ensura/pkg/service/cache"
	"github.com/ensura-lab/ensura/pkg/utils/logging"
)

//go:embed prompt/intent.md
var intentPromptTmpl string

var intentPrompt = template.Must(template.New("intent").Parse(intentPromptTmpl))

var intentSchema = &gollem.Parameter{
	Title:       "IntentClassification",
	Description: "Classification of an insurance question into a known intent",
	Type:        gollem.TypeObject,
	Properties: map[string]*gollem.Parameter{
		"intent": {
			Type:        gollem.TypeString,
			Description: "One of POLICY_TYPES, ELIGIBILITY, CLAIMS, PREMIUMS, COVERAGE, GENERAL",
			Required:    true,
		},
	},
}

const classifierCachePrefix = "intent"

// Classifier assigns an intent label to each user question. Classification
// is best effort: any failure, including a label outside the closed intent
// set, degrades to IntentGeneral so the turn always proceeds.
type Classifier struct {
	llm   interfaces.LLM
	cache *cache.Cache
	ttl   time.Duration
}

func NewClassifier(llm interfaces.LLM, c *cache.Cache, ttl time.Duration) *Classifier {
	return &Classifier{llm: llm, cache: c, ttl: ttl}
}

// Classify returns the intent for query and whether it came from the cache.
// history is the recent conversation window; the same question classified in
// a different recent context is a distinct cache entry.
func (c *Classifier) Classify(ctx context.Context, query, history string) (types.Intent, bool) {
	key := cache.Key(classifierCachePrefix, query, history)
	if v, ok := c.cache.Get(key); ok {
		if intent, ok := v.(types.Intent); ok {
			return intent, true
		}
	}

	intent := c.classify(ctx, query, history)
	c.cache.Set(key, intent, c.ttl)
	return intent, false
}

func (c *Classifier) classify(ctx context.Context, query, history string) types.Intent {
	logger := logging.From(ctx)

	var prompt bytes.Buffer
	if err := intentPrompt.Execute(&prompt, map[string]string{"Question": query, "History": history}); err != nil {
		logger.Warn("failed to render intent prompt, falling back to general", "error", err.Error())
		return types.IntentGeneral
	}

	raw, err := c.llm.GenerateJSON(ctx, "", prompt.String(), intentSchema)
	if err != nil {
		logger.Warn("intent classification failed, falling back to general", "error", err.Error())
		return types.IntentGeneral
	}

	var parsed struct {
		Intent string `json:"intent"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		logger.Warn("malformed intent response, falling back to general", "response", raw)
		return types.IntentGeneral
	}

	intent, err := types.ParseIntent(strings.ToUpper(strings.TrimSpace(parsed.Intent)))
	if err != nil {
		logger.Warn("unknown intent label, falling back to general", "label", parsed.Intent)
		return types.IntentGeneral
	}
	return intent
}
