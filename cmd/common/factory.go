package common

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/sgryjp/cldb/internal/config"
	"github.com/sgryjp/cldb/internal/logger"
)

// NewCommandDeps creates CommandDeps by loading config and creating logger.
// A positive verbosity (the -v count) overrides the configured log level.
func NewCommandDeps(verbosity int) (CommandDeps, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return CommandDeps{}, fmt.Errorf("load config: %w", err)
	}

	if verbosity > 0 {
		cfg.Logger.Level = logger.LevelForVerbosity(verbosity)
	}

	log, err := logger.New(cfg.Logger)
	if err != nil {
		return CommandDeps{}, fmt.Errorf("create logger: %w", err)
	}

	deps := CommandDeps{
		Logger: log.With(logger.String("app", cfg.App.Name)),
		Config: cfg,
	}

	if validateErr := deps.Validate(); validateErr != nil {
		return CommandDeps{}, fmt.Errorf("validate deps: %w", validateErr)
	}

	return deps, nil
}
