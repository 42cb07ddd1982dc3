package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/arthur-debert/assetyaml/assetyaml/store"
	"github.com/arthur-debert/assetyaml/assetyaml/yamldoc"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"
)

func (cli *CLI) newFmtCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fmt FILE...",
		Short: "Rewrite documents in canonical form",
		Long: `Rewrite asset documents in canonical form: four space indentation,
item ids and override markers on keys, tombstones after live items.

With --check nothing is written; a unified diff is printed for every
document that is not canonical and the command fails.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			check := cli.viperInst.GetBool("check")
			changed := 0
			for _, path := range args {
				original, err := os.ReadFile(path)
				if err != nil {
					return NewFileError("format", err, CommonSuggestions.CheckPath)
				}
				doc, err := yamldoc.Parse(original)
				if err != nil {
					return NewFileError("format", fmt.Errorf("%s: %w", path, err))
				}
				formatted := doc.Bytes()
				if bytes.Equal(original, formatted) {
					continue
				}
				changed++

				if check {
					diff, err := unifiedDiff(path, original, formatted)
					if err != nil {
						return WrapError("format", err)
					}
					fmt.Fprint(cmd.OutOrStdout(), diff)
					continue
				}
				if err := store.WriteFile(path, formatted); err != nil {
					return NewFileError("format", err, CommonSuggestions.CheckPerms)
				}
				cli.logger.Info("formatted document", "path", path)
			}

			if check && changed > 0 {
				return &CLIError{
					Operation:   "check formatting",
					Cause:       fmt.Sprintf("%d of %d documents are not canonical", changed, len(args)),
					Suggestions: []string{CommonSuggestions.RunFmt},
				}
			}
			return nil
		},
	}
	cmd.Flags().Bool("check", false, "Report documents that are not canonical without rewriting them")
	return cmd
}

func unifiedDiff(path string, a, b []byte) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(a)),
		B:        difflib.SplitLines(string(b)),
		FromFile: path,
		ToFile:   path + " (canonical)",
		Context:  3,
	})
}
