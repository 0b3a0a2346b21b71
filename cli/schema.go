package cli

import (
	"github.com/compozy/pieceagent/engine/piece"
	"github.com/compozy/pieceagent/engine/schema"
	"github.com/spf13/cobra"
)

type levelSchema struct {
	Level  int           `json:"level"`
	Schema schema.Schema `json:"schema"`
}

// SchemaCmd prints the output schema requested from the model at each level.
// Runtime options are not available offline, so dropdowns and dynamic
// properties render their open fallback shapes.
func SchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema <action-file>",
		Short: "Print the per-level extraction schemas of an action",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			loaded, err := loadActionFile(args[0])
			if err != nil {
				return err
			}
			levels, err := piece.SortLevels(loaded.Action.Props)
			if err != nil {
				return err
			}
			synth := schema.NewSynthesizer(nil)
			sctx := &schema.Context{Input: loaded.Input}
			out := make([]levelSchema, 0, len(levels))
			for i, level := range levels {
				fields := make([]schema.Field, 0, len(level))
				for _, name := range level {
					prop, _ := loaded.Action.Props.Get(name)
					if prop.Type.IsAuth() {
						continue
					}
					synthesized, err := synth.Synthesize(ctx, name, prop, sctx)
					if err != nil {
						return err
					}
					fields = append(fields, schema.Field{Name: name, Schema: synthesized.Schema, Required: prop.Required})
				}
				if len(fields) == 0 {
					continue
				}
				out = append(out, levelSchema{Level: i, Schema: schema.ObjectOf(fields, true)})
			}
			return writeOutput(cmd, out)
		},
	}
}
