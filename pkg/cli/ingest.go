package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/ensura-lab/ensura/pkg/cli/config"
	"github.com/ensura-lab/ensura/pkg/service/knowledge"
	"github.com/ensura-lab/ensura/pkg/utils/logging"
)

// cmdIngest embeds the knowledge base documents once and reports the chunk
// count. Useful for verifying documents and provider credentials before
// starting the server.
func cmdIngest() *cli.Command {
	var llmCfg config.LLM
	var pipeCfg config.Pipeline

	flags := llmCfg.Flags()
	flags = append(flags, pipeCfg.Flags()...)

	return &cli.Command{
		Name:  "ingest",
		Usage: "Embed the knowledge base documents and report the chunk count",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := pipeCfg.Validate(); err != nil {
				return goerr.Wrap(err, "invalid pipeline configuration")
			}

			llmClient, err := llmCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to configure LLM provider")
			}

			svc, err := knowledge.New(llmClient, pipeCfg.KnowledgeDir,
				knowledge.WithChunking(pipeCfg.ChunkSize, pipeCfg.ChunkOverlap))
			if err != nil {
				return goerr.Wrap(err, "failed to initialize knowledge service")
			}

			n, err := svc.Reload(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to ingest knowledge base")
			}

			logging.Default().Info("knowledge base ingested",
				"dir", pipeCfg.KnowledgeDir,
				"chunks", n,
			)
			return nil
		},
	}
}
