package cli

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/stacklicense/pkg/errors"
)

// browseCommand creates the browse command.
func (c *CLI) browseCommand() *cobra.Command {
	var project projectFlags

	cmd := &cobra.Command{
		Use:   "browse [artifact|path]",
		Short: "Explore a package list interactively",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := c.loadList(cmd.Context(), &project, targetArg(args))
			if err != nil {
				return err
			}
			if len(list) == 0 {
				printInfo("No packages")
				return nil
			}
			p := tea.NewProgram(NewBrowseModel(list), tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			if _, err := p.Run(); err != nil {
				return errors.Wrap(errors.ErrCodeInternal, err, "run browser")
			}
			return nil
		},
	}

	project.register(cmd)
	return cmd
}
