package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

// helpStyles are the colors used by the help screens.
type helpStyles struct {
	title   lipgloss.Style
	header  lipgloss.Style
	command lipgloss.Style
	flag    lipgloss.Style
	muted   lipgloss.Style
	errText lipgloss.Style
}

func newHelpStyles(w io.Writer) helpStyles {
	r := lipgloss.NewRenderer(w)
	return helpStyles{
		title:   r.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7D79F6"}),
		header:  r.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#268BD2", Dark: "#61AFEF"}),
		command: r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#2AA198", Dark: "#56B6C2"}),
		flag:    r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#6C71C4", Dark: "#C678DD"}),
		muted:   r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#93A1A1", Dark: "#5C6370"}),
		errText: r.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#DC322F", Dark: "#E06C75"}),
	}
}

// getTerminalWidth returns the terminal width, or 80 when stdout is not a
// terminal.
func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}

// wrapText wraps text to width, breaking on spaces.
func wrapText(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}
	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		words := strings.Fields(paragraph)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		line := words[0]
		for _, word := range words[1:] {
			if len(line)+1+len(word) > width {
				lines = append(lines, line)
				line = word
				continue
			}
			line += " " + word
		}
		lines = append(lines, line)
	}
	return lines
}

// SetStyledHelp applies the styled help to cmd.
func SetStyledHelp(cmd *cobra.Command) {
	cmd.SetHelpFunc(styledHelpFunc)
}

// ApplyStyledHelpRecursive applies the styled help to cmd and all its
// subcommands. Call it after every subcommand has been added.
func ApplyStyledHelpRecursive(cmd *cobra.Command) {
	cmd.SetHelpFunc(styledHelpFunc)
	cmd.SetUsageFunc(styledUsageFunc)
	for _, sub := range cmd.Commands() {
		ApplyStyledHelpRecursive(sub)
	}
}

// styledUsageFunc prints nothing; errors are reported by Execute.
func styledUsageFunc(cmd *cobra.Command) error {
	return nil
}

// PrintError prints a styled error with a help hint.
func PrintError(cmd *cobra.Command, err error) {
	s := newHelpStyles(cmd.ErrOrStderr())
	fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", s.errText.Render("Error:"), err.Error())
	fmt.Fprintf(cmd.ErrOrStderr(), "%s\n", s.muted.Render(fmt.Sprintf("Run '%s --help' for usage.", cmd.CommandPath())))
}

// parseDescription splits a long description into text and examples.
func parseDescription(long string) (description string, examples string) {
	for _, marker := range []string{"\nExamples:\n", "\nExample:\n"} {
		if idx := strings.Index(long, marker); idx != -1 {
			return strings.TrimSpace(long[:idx]), strings.TrimSpace(long[idx+len(marker):])
		}
	}
	return long, ""
}

func styledHelpFunc(cmd *cobra.Command, _ []string) {
	w := cmd.OutOrStdout()
	s := newHelpStyles(w)
	width := getTerminalWidth() - 2

	title := cmd.CommandPath()
	if cmd.Short != "" {
		title += " - " + cmd.Short
	}
	fmt.Fprintln(w, s.title.Render(title))

	description, examples := parseDescription(cmd.Long)
	if description != "" {
		fmt.Fprintln(w)
		for _, line := range wrapText(description, width) {
			fmt.Fprintln(w, line)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, s.header.Render("USAGE"))
	fmt.Fprintf(w, "  %s\n", cmd.UseLine())

	if cmd.HasAvailableSubCommands() {
		fmt.Fprintln(w)
		fmt.Fprintln(w, s.header.Render("COMMANDS"))
		pad := 0
		for _, sub := range cmd.Commands() {
			if sub.IsAvailableCommand() && len(sub.Name()) > pad {
				pad = len(sub.Name())
			}
		}
		for _, sub := range cmd.Commands() {
			if !sub.IsAvailableCommand() {
				continue
			}
			name := fmt.Sprintf("%-*s", pad, sub.Name())
			fmt.Fprintf(w, "  %s  %s\n", s.command.Render(name), sub.Short)
		}
	}

	renderFlags(w, s, "FLAGS", cmd.LocalFlags())
	if cmd.HasAvailableInheritedFlags() {
		renderFlags(w, s, "GLOBAL FLAGS", cmd.InheritedFlags())
	}

	if examples != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, s.header.Render("EXAMPLES"))
		for _, line := range strings.Split(examples, "\n") {
			trimmed := strings.TrimSpace(line)
			if strings.HasPrefix(trimmed, "#") {
				fmt.Fprintf(w, "  %s\n", s.muted.Render(trimmed))
				continue
			}
			fmt.Fprintf(w, "  %s\n", trimmed)
		}
	}

	if cmd.HasAvailableSubCommands() {
		fmt.Fprintln(w)
		fmt.Fprintln(w, s.muted.Render(fmt.Sprintf("Use \"%s [command] --help\" for more information about a command.", cmd.CommandPath())))
	}
}

func renderFlags(w io.Writer, s helpStyles, header string, flags *pflag.FlagSet) {
	if !flags.HasAvailableFlags() {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, s.header.Render(header))
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		fmt.Fprintf(w, "  %s  %s%s\n", s.flag.Render(formatFlagName(f)), f.Usage, formatDefault(f))
	})
}

func formatFlagName(f *pflag.Flag) string {
	name := "--" + f.Name
	if f.Shorthand != "" {
		name = "-" + f.Shorthand + ", " + name
	} else {
		name = "    " + name
	}
	if typ := f.Value.Type(); typ != "bool" {
		name += " " + typ
	}
	return name
}

func formatDefault(f *pflag.Flag) string {
	switch f.DefValue {
	case "", "false", "0", "[]":
		return ""
	}
	return fmt.Sprintf(" (default %s)", f.DefValue)
}
