package agent

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/m-mizutani/goerr/v2"

	"github.com/ensura-lab/ensura/pkg/domain/interfaces"
	"github.com/ensura-lab/ensura/pkg/domain/model"
	"github.com/ensura-lab/ensura/pkg/domain/types"
)

//go:embed prompt/system.md
var systemPrompt string

//go:embed prompt/answer.md
var answerPromptTmpl string

var answerPrompt = template.Must(template.New("answer").Parse(answerPromptTmpl))

// Generator produces the final answer from the accumulated turn state.
type Generator struct {
	llm interfaces.LLM
}

func NewGenerator(llm interfaces.LLM) *Generator {
	return &Generator{llm: llm}
}

// Generate renders the answer prompt from the retrieved documents, tool
// invocations and conversation history, and asks the model for the final
// response. Sources are the deduplicated document names in retrieval order.
func (g *Generator) Generate(ctx context.Context, query, history string, intent types.Intent, docs []model.RetrievedDocument, tools []model.ToolInvocation) (*model.Answer, error) {
	if history == "" {
		history = "No previous conversation"
	}

	data := map[string]string{
		"History":  history,
		"Context":  buildContext(docs, tools),
		"Question": query,
	}

	var prompt bytes.Buffer
	if err := answerPrompt.Execute(&prompt, data); err != nil {
		return nil, goerr.Wrap(err, "failed to render answer prompt")
	}

	text, err := g.llm.GenerateText(ctx, systemPrompt, prompt.String())
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate answer")
	}

	return &model.Answer{
		Text:      text,
		Sources:   sourceNames(docs),
		Reasoning: buildReasoning(intent, tools),
	}, nil
}

// buildContext renders the retrieved passages as numbered source blocks
// followed by the raw tool results.
func buildContext(docs []model.RetrievedDocument, tools []model.ToolInvocation) string {
	var sb strings.Builder

	if len(docs) == 0 {
		sb.WriteString("No specific information found.")
	}
	for i, doc := range docs {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "[Source %d: %s]\n%s", i+1, doc.Source, doc.Content)
	}

	executed := false
	for _, inv := range tools {
		if inv.Failed() {
			continue
		}
		if !executed {
			sb.WriteString("\n\nTool Results:\n")
			executed = true
		}
		fmt.Fprintf(&sb, "\n%s:\n%v\n", strings.ToUpper(inv.Tool.String()), inv.Result)
	}

	for _, inv := range tools {
		if inv.Failed() {
			fmt.Fprintf(&sb, "\n\nNote: the %s could not run: %s. Ask the user for the missing details.", inv.Tool, inv.FailureNote)
		}
	}

	return sb.String()
}

func sourceNames(docs []model.RetrievedDocument) []string {
	seen := map[string]bool{}
	var names []string
	for _, doc := range docs {
		if seen[doc.Source] {
			continue
		}
		seen[doc.Source] = true
		names = append(names, doc.Source)
	}
	return names
}

func buildReasoning(intent types.Intent, tools []model.ToolInvocation) string {
	reasoning := "Intent: " + intent.String()
	var used []string
	for _, inv := range tools {
		if !inv.Failed() {
			used = append(used, inv.Tool.String())
		}
	}
	if len(used) > 0 {
		reasoning += " | Tools Used: " + strings.Join(used, ", ")
	}
	return reasoning
}
