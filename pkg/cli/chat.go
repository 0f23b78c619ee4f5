package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/ensura-lab/ensura/pkg/agent"
	"github.com/ensura-lab/ensura/pkg/agent/tool"
	"github.com/ensura-lab/ensura/pkg/cli/config"
	"github.com/ensura-lab/ensura/pkg/repository/memory"
	"github.com/ensura-lab/ensura/pkg/service/cache"
	"github.com/ensura-lab/ensura/pkg/service/knowledge"
	"github.com/ensura-lab/ensura/pkg/service/limiter"
	"github.com/ensura-lab/ensura/pkg/service/metrics"
	"github.com/ensura-lab/ensura/pkg/usecase"

	memsvc "github.com/ensura-lab/ensura/pkg/service/memory"
)

// cmdChat runs the assistant as an interactive terminal session against an
// in-process pipeline, without starting the HTTP server.
func cmdChat() *cli.Command {
	var llmCfg config.LLM
	var pipeCfg config.Pipeline
	var appCfg config.App

	flags := llmCfg.Flags()
	flags = append(flags, pipeCfg.Flags()...)
	flags = append(flags, appCfg.Flags()...)

	return &cli.Command{
		Name:  "chat",
		Usage: "Chat with the assistant interactively in the terminal",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := pipeCfg.Validate(); err != nil {
				return goerr.Wrap(err, "invalid pipeline configuration")
			}

			toolCfg, err := appCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to load domain configuration")
			}

			llmClient, err := llmCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to configure LLM provider")
			}

			knowledgeSvc, err := knowledge.New(llmClient, pipeCfg.KnowledgeDir,
				knowledge.WithChunking(pipeCfg.ChunkSize, pipeCfg.ChunkOverlap))
			if err != nil {
				return goerr.Wrap(err, "failed to initialize knowledge service")
			}
			if _, err := knowledgeSvc.Reload(ctx); err != nil {
				color.Yellow("knowledge base not loaded, answers will lack document grounding: %v", err)
			}

			llm := agent.NewLLM(llmClient)
			mem := memsvc.New(memory.New(), pipeCfg.MaxMessages)
			pipelineCache := cache.New(pipeCfg.CacheCapacity, pipeCfg.CacheTTL)
			collector := metrics.New()

			pipeline := agent.NewPipeline(
				agent.NewClassifier(llm, pipelineCache, pipeCfg.CacheTTL),
				agent.NewRetriever(knowledgeSvc, pipelineCache, pipeCfg.CacheTTL, pipeCfg.RetrievalTopK, pipeCfg.RetrievalScore),
				tool.New(toolCfg),
				agent.NewGenerator(llm),
				mem,
				collector,
				pipeCfg.ContextWindow,
			)

			uc := usecase.New(mem, pipeline,
				limiter.New(pipeCfg.RateLimitCalls, pipeCfg.RateLimitPeriod),
				collector, pipelineCache,
				usecase.WithKnowledgeLoader(knowledgeSvc),
			)

			return runChatLoop(ctx, uc)
		},
	}
}

func runChatLoop(ctx context.Context, uc *usecase.UseCases) error {
	title := color.New(color.FgCyan, color.Bold)
	assistant := color.New(color.FgGreen, color.Bold)
	dim := color.New(color.Faint)
	warn := color.New(color.FgYellow)

	title.Println("Life Insurance Support Assistant")
	fmt.Println("Ask anything about life insurance. Type /help for commands.")
	fmt.Println()

	session, err := uc.CreateSession(ctx, "cli")
	if err != nil {
		return err
	}
	dim.Printf("Session created: %s\n\n", session.ID)

	scanner := bufio.NewScanner(os.Stdin)
	prompt := color.New(color.FgBlue, color.Bold)

	for {
		prompt.Print("You> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch line {
		case "/quit", "/exit":
			dim.Println("Goodbye.")
			return nil

		case "/help":
			fmt.Println("  /help      Show this help message")
			fmt.Println("  /history   Show conversation history")
			fmt.Println("  /clear     Clear conversation history")
			fmt.Println("  /new       Start a new session")
			fmt.Println("  /quit      Exit")
			continue

		case "/history":
			_, msgs, err := uc.GetHistory(ctx, session.ID, 0)
			if err != nil {
				warn.Printf("failed to load history: %v\n", err)
				continue
			}
			if len(msgs) == 0 {
				dim.Println("No conversation history yet")
				continue
			}
			for _, msg := range msgs {
				fmt.Printf("%s: %s\n", msg.Role, msg.Content)
			}
			continue

		case "/clear", "/new":
			if err := uc.DeleteSession(ctx, session.ID); err != nil {
				warn.Printf("failed to clear session: %v\n", err)
				continue
			}
			session, err = uc.CreateSession(ctx, "cli")
			if err != nil {
				return err
			}
			dim.Printf("Session created: %s\n", session.ID)
			continue
		}

		result, err := uc.SendMessage(ctx, "cli", session.ID, line)
		if err != nil {
			warn.Printf("error: %v\n", err)
			continue
		}

		fmt.Println()
		assistant.Println("Assistant:")
		fmt.Println(result.Answer)
		if len(result.Sources) > 0 {
			dim.Printf("Sources: %s\n", strings.Join(result.Sources, ", "))
		}
		if result.Reasoning != "" {
			dim.Printf("[%s]\n", result.Reasoning)
		}
		fmt.Println()
	}
}
