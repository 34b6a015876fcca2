package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// ExportCmd returns the export command
func ExportCmd(opts *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export MRN",
		Short: "Export a patient's timeline as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(opts, func(s *session) error {
				var w io.Writer = cmd.OutOrStdout()
				if output != "" && output != "-" {
					f, err := os.Create(output)
					if err != nil {
						return fmt.Errorf("failed to create export file: %w", err)
					}
					defer f.Close()
					w = f
				}
				return s.store.ExportJSON(cmd.Context(), args[0], w)
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "-", "Output file")

	return cmd
}

// ImportCmd returns the import command
func ImportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Import a timeline export; existing records are kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open import file: %w", err)
			}
			defer f.Close()

			return withSession(opts, func(s *session) error {
				imported, skipped, err := s.store.ImportJSON(cmd.Context(), f)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d assessments, skipped %d already present\n", imported, skipped)
				return nil
			})
		},
	}
}
