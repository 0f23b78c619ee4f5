package config

import (
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"

	"github.com/ensura-lab/ensura/pkg/agent/tool"
	"github.com/ensura-lab/ensura/pkg/utils/logging"
)

// App holds the optional domain configuration file overriding the built-in
// rating tables, validation ranges and trigger keywords.
type App struct {
	path string
}

// Flags returns CLI flags for application configuration
func (a *App) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "domain-config",
			Usage:       "TOML file overriding tool rating tables and keywords",
			Sources:     cli.EnvVars("ENSURA_DOMAIN_CONFIG"),
			Destination: &a.path,
		},
	}
}

// Configure returns the tool configuration: built-in defaults, overlaid with
// the TOML file when one is given. Keys absent from the file keep their
// default values.
func (a *App) Configure() (tool.Config, error) {
	cfg := tool.DefaultConfig()
	if a.path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(a.path)
	if err != nil {
		return cfg, goerr.Wrap(err, "failed to read domain config", goerr.V("path", a.path))
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, goerr.Wrap(err, "failed to parse domain config", goerr.V("path", a.path))
	}
	if err := validateToolConfig(cfg); err != nil {
		return cfg, err
	}

	logging.Default().Info("Loaded domain configuration", "path", a.path)
	return cfg, nil
}

func validateToolConfig(cfg tool.Config) error {
	if cfg.Premium.BaseRatePer1000 <= 0 {
		return goerr.New("premium base rate must be positive", goerr.V("value", cfg.Premium.BaseRatePer1000))
	}
	if cfg.Premium.Limits.MinAge >= cfg.Premium.Limits.MaxAge {
		return goerr.New("premium age limits are inverted",
			goerr.V("min", cfg.Premium.Limits.MinAge), goerr.V("max", cfg.Premium.Limits.MaxAge))
	}
	if cfg.Eligibility.MinAge >= cfg.Eligibility.MaxAge {
		return goerr.New("eligibility age limits are inverted",
			goerr.V("min", cfg.Eligibility.MinAge), goerr.V("max", cfg.Eligibility.MaxAge))
	}
	if len(cfg.Comparison.Policies) < 2 {
		return goerr.New("comparison matrix needs at least two policy types")
	}
	return nil
}
