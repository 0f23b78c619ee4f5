package config

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/ensura-lab/ensura/pkg/domain/interfaces"
	"github.com/ensura-lab/ensura/pkg/repository/memory"
	"github.com/ensura-lab/ensura/pkg/repository/sqlite"
	"github.com/ensura-lab/ensura/pkg/utils/logging"
)

// Repository holds CLI flags for session store backend configuration
type Repository struct {
	backend string
	dbPath  string
}

// Flags returns CLI flags for repository configuration
func (r *Repository) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "repository-backend",
			Usage:       "Session store backend (memory or sqlite)",
			Value:       "memory",
			Sources:     cli.EnvVars("ENSURA_REPOSITORY_BACKEND"),
			Destination: &r.backend,
		},
		&cli.StringFlag{
			Name:        "sqlite-path",
			Usage:       "SQLite database path (required when using sqlite backend)",
			Sources:     cli.EnvVars("ENSURA_SQLITE_PATH"),
			Destination: &r.dbPath,
		},
	}
}

// Configure initializes the session store for the configured backend. The
// caller is responsible for calling Close() on the returned repository.
func (r *Repository) Configure() (interfaces.Repository, error) {
	switch r.backend {
	case "sqlite":
		if r.dbPath == "" {
			return nil, goerr.New("sqlite-path is required when using sqlite backend")
		}
		repo, err := sqlite.New(r.dbPath)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize sqlite repository")
		}
		logging.Default().Info("Using SQLite session store", "path", r.dbPath)
		return repo, nil

	case "memory":
		logging.Default().Info("Using in-memory session store")
		return memory.New(), nil

	default:
		return nil, goerr.New("invalid repository backend", goerr.V("backend", r.backend))
	}
}
