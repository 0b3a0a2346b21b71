package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/tidwall/pretty"
)

// Output format constants
const (
	OutputFormatJSON = "json"
	OutputFormatYAML = "yaml"
)

// writeOutput renders data in the format selected by --format. JSON is
// colorized when stdout is an interactive terminal.
func writeOutput(cmd *cobra.Command, data any) error {
	format, err := cmd.Flags().GetString(flagFormat)
	if err != nil {
		format = OutputFormatJSON
	}
	out := cmd.OutOrStdout()
	switch format {
	case OutputFormatJSON:
		raw, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("encode output: %w", err)
		}
		raw = pretty.Pretty(raw)
		if shouldUseColor(out) {
			raw = pretty.Color(raw, nil)
		}
		_, err = out.Write(raw)
		return err
	case OutputFormatYAML:
		raw, err := yaml.MarshalWithOptions(data, yaml.UseJSONMarshaler())
		if err != nil {
			return fmt.Errorf("encode output: %w", err)
		}
		_, err = out.Write(raw)
		return err
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func shouldUseColor(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
