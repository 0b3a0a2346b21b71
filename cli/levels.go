package cli

import (
	"github.com/compozy/pieceagent/engine/piece"
	"github.com/spf13/cobra"
)

func LevelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "levels <action-file>",
		Short: "Print the resolution levels of an action's properties",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := loadActionFile(args[0])
			if err != nil {
				return err
			}
			levels, err := piece.SortLevels(loaded.Action.Props)
			if err != nil {
				return err
			}
			return writeOutput(cmd, map[string]any{"levels": levels})
		},
	}
}
