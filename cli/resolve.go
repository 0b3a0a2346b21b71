package cli

import (
	"context"
	"errors"

	"github.com/compozy/pieceagent/engine/core"
	"github.com/compozy/pieceagent/engine/executor"
	llmadapter "github.com/compozy/pieceagent/engine/llm/adapter"
	"github.com/compozy/pieceagent/engine/piece"
	"github.com/compozy/pieceagent/engine/resolver"
	"github.com/compozy/pieceagent/engine/schema"
	"github.com/compozy/pieceagent/pkg/config"
	"github.com/spf13/cobra"
)

const flagInstruction = "instruction"

// ResolveCmd resolves an action's input from an instruction and runs it on a
// dry-run runtime that echoes the resolved input back as the step output.
func ResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <action-file>",
		Short: "Resolve an action's input from a natural-language instruction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			instruction, err := cmd.Flags().GetString(flagInstruction)
			if err != nil {
				return err
			}
			cfg := config.FromContext(ctx)
			loaded, err := loadActionFile(args[0])
			if err != nil {
				return err
			}
			model, err := llmadapter.NewModel(&cfg.LLM)
			if err != nil {
				return err
			}
			generator := llmadapter.NewStructuredGenerator(
				llmadapter.NewLangChainAdapter(model),
				&cfg.LLM,
				llmadapter.WithBackoff(cfg.LLM.RetryBackoffBase, cfg.LLM.RetryBackoffMax),
			)
			exec, err := newExecutor(cfg, loaded, generator)
			if err != nil {
				return err
			}
			result := exec.Execute(ctx, &executor.Operation{
				Instruction: instruction,
				Action:      loaded.Ref,
				StepName:    loaded.Ref.ActionName,
				Input:       loaded.Input,
			})
			if err := writeOutput(cmd, result); err != nil {
				return err
			}
			if result.Status == executor.StatusFailed {
				return errors.New(result.ErrorMessage)
			}
			return nil
		},
	}
	cmd.Flags().String(flagInstruction, "", "Natural-language instruction to resolve")
	_ = cmd.MarkFlagRequired(flagInstruction)
	return cmd
}

func newExecutor(
	cfg *config.Config,
	loaded *loadedAction,
	generator llmadapter.ObjectGenerator,
) (*executor.Executor, error) {
	catalog, err := piece.NewCatalog(&fileSource{loaded: loaded}, cfg.Catalog.CacheSize)
	if err != nil {
		return nil, err
	}
	res := resolver.New(
		generator,
		schema.NewSynthesizer(nil),
		resolver.WithMaxConcurrentProperties(cfg.Resolver.MaxConcurrentProperties),
	)
	return executor.New(catalog, res, executor.WithRuntime(executor.StepKindPiece, dryRunRuntime())), nil
}

func dryRunRuntime() executor.Runtime {
	return executor.RuntimeFunc(func(_ context.Context, step *executor.Step, _ *executor.ExecutionContext) (*executor.RunOutput, error) {
		return &executor.RunOutput{
			Steps: map[string]executor.StepOutput{
				step.Name: {
					Output: map[string]any(core.RedactAuth(step.Settings.Input)),
					Status: executor.StepStatusSucceeded,
				},
			},
		}, nil
	})
}
