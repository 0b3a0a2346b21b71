package cli

import (
	"github.com/compozy/pieceagent/pkg/config"
	"github.com/compozy/pieceagent/pkg/logger"
	"github.com/spf13/cobra"
)

const (
	flagConfig   = "config"
	flagLogLevel = "log-level"
	flagLogJSON  = "log-json"
	flagFormat   = "format"
)

func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "pieceagent",
		Short:         "Resolve piece action inputs from natural language",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setup(cmd)
		},
	}
	flags := root.PersistentFlags()
	flags.String(flagConfig, "pieceagent.yaml", "Path to the configuration file")
	flags.String(flagLogLevel, "", "Log level: debug, info, warn, error or disabled")
	flags.Bool(flagLogJSON, false, "Emit logs as JSON")
	flags.String(flagFormat, OutputFormatJSON, "Output format: json or yaml")

	root.AddCommand(
		LevelsCmd(),
		SchemaCmd(),
		ResolveCmd(),
		VersionCmd(),
	)
	return root
}

// setup loads configuration and attaches it and the logger to the command
// context.
func setup(cmd *cobra.Command) error {
	ctx := cmd.Context()
	path, err := cmd.Flags().GetString(flagConfig)
	if err != nil {
		return err
	}
	overrides := map[string]any{}
	if cmd.Flags().Changed(flagLogLevel) {
		level, _ := cmd.Flags().GetString(flagLogLevel)
		overrides["log"] = map[string]any{"level": level}
	}
	if cmd.Flags().Changed(flagLogJSON) {
		asJSON, _ := cmd.Flags().GetBool(flagLogJSON)
		logSection, _ := overrides["log"].(map[string]any)
		if logSection == nil {
			logSection = map[string]any{}
		}
		logSection["json"] = asJSON
		overrides["log"] = logSection
	}
	cfg, err := config.Load(ctx, config.NewYAMLSource(path), config.NewMapSource(config.SourceCLI, overrides))
	if err != nil {
		return err
	}
	log := logger.SetupLogger(logger.LogLevel(cfg.Log.Level), cfg.Log.JSON, cfg.Log.Source)
	ctx = logger.ContextWithLogger(ctx, log)
	ctx = config.ContextWithConfig(ctx, cfg)
	cmd.SetContext(ctx)
	return nil
}
