package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/stacklicense/pkg/errors"
	"github.com/matzehuels/stacklicense/pkg/pkglist"
)

// Output formats accepted by show.
const (
	formatText     = "text"
	formatJSON     = "json"
	formatYAML     = "yaml"
	formatMarkdown = "markdown"
)

var showFormats = []string{formatText, formatJSON, formatYAML, formatMarkdown}

type showOpts struct {
	project projectFlags
	format  string
	short   bool
	width   int
}

// showCommand creates the show command.
func (c *CLI) showCommand() *cobra.Command {
	var opts showOpts

	cmd := &cobra.Command{
		Use:   "show [artifact|path]",
		Short: "Print the licenses of a crate's dependencies",
		Long: `Show prints a package list. The argument is either a generated .bin
artifact or a crate directory / Cargo.toml, which is resolved first.

With --short only the license identifiers and the crates using them are
listed.`,
		Example: `  stacklicense show target/debug/build/app-*/out/LICENSE-3RD-PARTY.bin
  stacklicense show --short
  stacklicense show . --format markdown`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := c.loadList(cmd.Context(), &opts.project, targetArg(args))
			if err != nil {
				return err
			}
			if opts.short {
				return writeSummary(cmd.OutOrStdout(), list, opts.format)
			}
			return writeList(cmd.OutOrStdout(), list, opts.format, opts.width)
		},
	}

	opts.project.register(cmd)
	cmd.Flags().StringVarP(&opts.format, "format", "f", formatText, "output format: "+strings.Join(showFormats, ", "))
	cmd.Flags().BoolVarP(&opts.short, "short", "s", false, "only list license identifiers and the crates using them")
	cmd.Flags().IntVar(&opts.width, "width", 100, "word wrap width for markdown output")

	return cmd
}

// writeList renders the full list in the given format.
func writeList(w io.Writer, list pkglist.PackageList, format string, width int) error {
	switch format {
	case formatText, "":
		_, err := list.WriteTo(w)
		return err
	case formatJSON:
		return writeJSON(w, list)
	case formatYAML:
		return writeYAML(w, list)
	case formatMarkdown:
		out, err := renderMarkdown(list.Markdown(), width)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err
	}
	return unknownFormat(format)
}

// writeSummary renders the per-license summary. Text output is a table.
func writeSummary(w io.Writer, list pkglist.PackageList, format string) error {
	groups := list.Summary()
	switch format {
	case formatText, "":
		_, err := fmt.Fprintln(w, summaryTable(groups))
		return err
	case formatJSON:
		return writeJSON(w, groups)
	case formatYAML:
		return writeYAML(w, groups)
	case formatMarkdown:
		var b strings.Builder
		b.WriteString("| License | Crates |\n| --- | --- |\n")
		for _, g := range groups {
			fmt.Fprintf(&b, "| `%s` | %s |\n", g.License, strings.Join(g.Packages, ", "))
		}
		_, err := io.WriteString(w, b.String())
		return err
	}
	return unknownFormat(format)
}

func summaryTable(groups []pkglist.LicenseGroup) string {
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	rows := make([][]string, len(groups))
	for i, g := range groups {
		rows[i] = []string{g.License, strconv.Itoa(len(g.Packages)), strings.Join(g.Packages, ", ")}
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("License", "Crates", "Names").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return headerStyle
			case col == 0:
				return StyleLicense
			case col == 1:
				return StyleNumber
			}
			return lipgloss.NewStyle()
		}).
		String()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(errors.ErrCodeEncode, err, "encode json")
	}
	return nil
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(errors.ErrCodeEncode, err, "encode yaml")
	}
	return enc.Close()
}

// renderMarkdown renders markdown for the terminal with glamour.
func renderMarkdown(md string, width int) (string, error) {
	opts := []glamour.TermRendererOption{glamour.WithAutoStyle()}
	if width > 0 {
		opts = append(opts, glamour.WithWordWrap(width))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "create markdown renderer")
	}
	out, err := r.Render(md)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeEncode, err, "render markdown")
	}
	return out, nil
}

func unknownFormat(format string) error {
	return errors.New(errors.ErrCodeInvalidFormat, "unknown format %q (want %s)", format, strings.Join(showFormats, ", "))
}
