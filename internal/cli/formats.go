package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/alnah/go-audioconv/internal/convert"
	"github.com/alnah/go-audioconv/internal/media"
	"github.com/alnah/go-audioconv/internal/transcode"
)

// FormatsCmd creates the formats command.
func FormatsCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List accepted audio formats",
		Long: `List the formats accepted for input and output.

The list honors the "formats" config setting. The default output format
is marked with an asterisk.`,
		Example: `  audioconv formats`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFormats(env)
		},
	}
}

// runFormats prints the accepted formats as a table.
func runFormats(env *Env) error {
	cfg, err := env.ConfigLoader.Load()
	if err != nil {
		return err
	}
	formats, err := cfg.FormatSet()
	if err != nil {
		return err
	}
	def := media.Format(firstNonEmpty(cfg.OutputFormat, string(convert.DefaultTarget)))

	tw := tabwriter.NewWriter(env.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "FORMAT\tEXTENSION\tMIME\tCOMPRESSION")
	for _, f := range formats.List() {
		name := string(f)
		if f == def {
			name += " *"
		}
		compression := "lossless"
		if transcode.Lossy(f) {
			compression = "lossy"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", name, f.Ext(), f.MIME(), compression)
	}
	return tw.Flush()
}
