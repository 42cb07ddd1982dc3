package main

import (
	"fmt"

	"github.com/arthur-debert/assetyaml/assetyaml/collision"
	"github.com/arthur-debert/assetyaml/assetyaml/store"
	"github.com/spf13/cobra"
)

func (cli *CLI) newCleanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean DIR",
		Short: "Renumber duplicated assets and repair item ids",
		Long: `Load the package in DIR, give every asset that duplicates the id of an
earlier one a fresh id and a free location, and fix references between the
renumbered assets.

In id-keyed mappings, entries added by hand without an item id get one
("knots: x" becomes "<id>~knots: x"), repeated item ids are replaced and
tombstones of live ids are dropped.

Only changed documents are written. A document whose asset moved to a new
location is removed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(args[0], store.Options{
				Dynamic: true,
				Logger:  cli.logger,
			})
			if err != nil {
				return NewFileError("clean", err, CommonSuggestions.CheckPath)
			}
			defer func() { _ = st.Close() }()

			pkg, diags, err := st.Load(cmd.Context())
			for _, d := range diags {
				fmt.Fprintln(cmd.ErrOrStderr(), d.String())
			}
			if err != nil {
				return NewFileError("load package", err)
			}

			duplicates := len(pkg.TemporaryAssets)
			if err := collision.ValidateAssets(pkg, collision.ValidateOptions{
				AlwaysCreateNewID:       cli.viperInst.GetBool("always-new-id"),
				CaseInsensitive:         cli.viperInst.GetBool("case-insensitive"),
				RemoveUnloadableObjects: cli.viperInst.GetBool("remove-unloadable"),
				Logger:                  cli.logger,
			}); err != nil {
				return WrapError("clean", err)
			}

			out := cmd.OutOrStdout()
			if cli.viperInst.GetBool("dry-run") {
				for _, item := range pkg.Dirty() {
					fmt.Fprintf(out, "would write %s\n", item)
					if old, moved := st.Moved(item); moved && !pkg.ContainsLocation(old) {
						fmt.Fprintf(out, "would remove %s\n", old)
					}
				}
				return nil
			}

			written, err := st.Save(cmd.Context(), pkg)
			if err != nil {
				return NewFileError("save package", err, CommonSuggestions.TryDryRun)
			}
			fmt.Fprintf(out, "cleaned %d assets, wrote %d documents\n", duplicates, written)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.Bool("always-new-id", false, "Give every duplicated asset a new id, including the first")
	flags.Bool("case-insensitive", false, "Compare locations without regard to case")
	flags.Bool("remove-unloadable", false, "Drop placeholders of unknown types while cleaning")
	flags.Bool("dry-run", false, "List the documents that would be written")
	return cmd
}
