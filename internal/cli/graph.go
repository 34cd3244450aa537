package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stacklicense/pkg/dag"
	"github.com/matzehuels/stacklicense/pkg/errors"
	"github.com/matzehuels/stacklicense/pkg/pkglist"
	"github.com/matzehuels/stacklicense/pkg/render/nodelink"
)

type graphOpts struct {
	project  projectFlags
	format   string
	output   string
	detailed bool
}

// graphCommand creates the graph command.
func (c *CLI) graphCommand() *cobra.Command {
	var opts graphOpts

	cmd := &cobra.Command{
		Use:   "graph [path]",
		Short: "Render the production dependency graph",
		Long: `Graph resolves the crate at path and draws the crates that end up in the
build, connected by their normal dependency edges. Crates without a license
identifier are highlighted.`,
		Example: `  stacklicense graph -f svg -o deps.svg
  stacklicense graph --detailed | dot -Tpng > deps.png`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			res, _, err := c.resolveProject(ctx, &opts.project, targetArg(args))
			if err != nil {
				return err
			}

			root, _ := res.Packages.Root()
			dot := nodelink.ToDOT(res.Graph, nodelink.Options{
				Detailed: opts.detailed,
				Root:     rootNodeID(res.Graph, root),
			})

			var data []byte
			switch opts.format {
			case "dot":
				data = []byte(dot)
			case "svg":
				if data, err = nodelink.RenderSVG(ctx, dot); err != nil {
					return errors.Wrap(errors.ErrCodeEncode, err, "render svg")
				}
			default:
				return errors.New(errors.ErrCodeInvalidFormat, "unknown graph format %q (want dot or svg)", opts.format)
			}

			if opts.output == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(opts.output, data, 0o644); err != nil {
				return errors.Wrap(errors.ErrCodeInvalidPath, err, "write %s", opts.output)
			}
			printSuccess("Rendered %d crates, %d edges", res.Graph.NodeCount(), res.Graph.EdgeCount())
			printFile(opts.output)
			return nil
		},
	}

	opts.project.register(cmd)
	cmd.Flags().StringVarP(&opts.format, "format", "f", "dot", "output format: dot or svg")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show license identifiers in node labels")

	return cmd
}

// rootNodeID finds the graph node of the root package.
func rootNodeID(g *dag.DAG, root pkglist.Package) string {
	for _, n := range g.Nodes() {
		if n.Meta["name"] == root.Name && n.Meta["version"] == root.Version {
			return n.ID
		}
	}
	return ""
}
