package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/arthur-debert/assetyaml/assetyaml/store"
	"github.com/arthur-debert/assetyaml/assetyaml/yamldoc"
	"github.com/arthur-debert/assetyaml/types"
	"github.com/spf13/cobra"
)

func (cli *CLI) newDocCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doc",
		Short: "Read and edit single documents",
		Long: `Read and edit single documents. PATH is a dot separated list of member
names and sequence indices from the document root, for example Layers.0.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get FILE PATH",
		Short: "Print the node at PATH",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, node, err := lookup("get", args[0], args[1])
			if err != nil {
				return err
			}
			n := node.YAML()
			_, err = cmd.OutOrStdout().Write(yamldoc.Marshal(n, doc.SubtreeOverrides(n)))
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rm FILE PATH",
		Short: "Remove the member or sequence entry at PATH",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			parentPath, last := splitPath(args[1])
			doc, parent, err := lookup("remove", args[0], parentPath)
			if err != nil {
				return err
			}

			removed := false
			switch p := parent.(type) {
			case *yamldoc.Mapping:
				removed = p.RemoveChild(last)
			case *yamldoc.Sequence:
				i, err := strconv.Atoi(last)
				if err != nil {
					return NewValidationError("remove", "sequence index", last)
				}
				removed = p.RemoveAt(i)
			}
			if !removed {
				return NewNotFoundError("remove", args[0], args[1], "Run 'assetctl doc get FILE PARENT' to list the members")
			}
			return cli.write("remove", args[0], doc)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "override FILE PATH TYPE",
		Short: "Set the override markers of the member at PATH",
		Long: `Set the override markers of the member at PATH. TYPE is a "|" separated
combination of base, new and sealed; base clears the markers.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, ok := types.ParseOverrideType(args[2])
			if !ok {
				return NewValidationError("set override", "override type", args[2],
					"Use base, new, sealed or a combination such as new|sealed")
			}

			parentPath, last := splitPath(args[1])
			doc, parent, err := lookup("set override", args[0], parentPath)
			if err != nil {
				return err
			}
			m, isMapping := parent.(*yamldoc.Mapping)
			if !isMapping || !m.SetOverride(last, o) {
				return NewNotFoundError("set override", args[0], args[1])
			}
			return cli.write("set override", args[0], doc)
		},
	})

	return cmd
}

// lookup parses file and resolves path in it. An empty path is the root.
func lookup(operation, file, path string) (*yamldoc.Document, yamldoc.Node, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, nil, NewFileError(operation, err, CommonSuggestions.CheckPath)
	}
	doc, err := yamldoc.Parse(data)
	if err != nil {
		return nil, nil, NewFileError(operation, fmt.Errorf("%s: %w", file, err))
	}
	var steps []string
	if path != "" {
		steps = strings.Split(path, ".")
	}
	node := doc.Lookup(steps...)
	if node == nil {
		return nil, nil, NewNotFoundError(operation, file, path)
	}
	return doc, node, nil
}

func splitPath(path string) (parent, last string) {
	i := strings.LastIndex(path, ".")
	if i < 0 {
		return "", path
	}
	return path[:i], path[i+1:]
}

func (cli *CLI) write(operation, file string, doc *yamldoc.Document) error {
	if err := store.WriteFile(file, doc.Bytes()); err != nil {
		return NewFileError(operation, err, CommonSuggestions.CheckPerms)
	}
	cli.logger.Info("document updated", "path", file, "operation", operation)
	return nil
}
