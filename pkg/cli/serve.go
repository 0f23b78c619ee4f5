package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/ensura-lab/ensura/pkg/agent"
	"github.com/ensura-lab/ensura/pkg/agent/tool"
	"github.com/ensura-lab/ensura/pkg/cli/config"
	httpctrl "github.com/ensura-lab/ensura/pkg/controller/http"
	"github.com/ensura-lab/ensura/pkg/service/cache"
	"github.com/ensura-lab/ensura/pkg/service/knowledge"
	"github.com/ensura-lab/ensura/pkg/service/limiter"
	"github.com/ensura-lab/ensura/pkg/service/memory"
	"github.com/ensura-lab/ensura/pkg/service/metrics"
	"github.com/ensura-lab/ensura/pkg/usecase"
	"github.com/ensura-lab/ensura/pkg/utils/async"
	"github.com/ensura-lab/ensura/pkg/utils/logging"
)

func cmdServe() *cli.Command {
	var addr string
	var llmCfg config.LLM
	var repoCfg config.Repository
	var pipeCfg config.Pipeline
	var appCfg config.App

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("ENSURA_ADDR"),
			Destination: &addr,
		},
	}
	flags = append(flags, llmCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, pipeCfg.Flags()...)
	flags = append(flags, appCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start the HTTP chat service",
		Flags:   flags,
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

			repo, err := repoCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to initialize session store")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logging.Default().Error("failed to close session store", "error", err.Error())
				}
			}()

			knowledgeSvc, err := knowledge.New(llmClient, pipeCfg.KnowledgeDir,
				knowledge.WithChunking(pipeCfg.ChunkSize, pipeCfg.ChunkOverlap))
			if err != nil {
				return goerr.Wrap(err, "failed to initialize knowledge service")
			}
			// Initial ingest runs in the background so the server accepts
			// requests immediately; retrieval degrades until it finishes.
			async.Dispatch(ctx, func(ctx context.Context) error {
				n, err := knowledgeSvc.Reload(ctx)
				if err != nil {
					return goerr.Wrap(err, "initial knowledge base load failed",
						goerr.V("dir", pipeCfg.KnowledgeDir))
				}
				logging.Default().Info("knowledge base loaded", "chunks", n)
				return nil
			})

			llm := agent.NewLLM(llmClient)
			mem := memory.New(repo, pipeCfg.MaxMessages)
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

			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(uc),
				ReadHeaderTimeout: 30 * time.Second,
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server", "addr", addr)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				logging.Default().Info("Server shutdown completed")
				return nil
			}
		},
	}
}
