package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/grovetools/vdd/pkg/models"
)

// writeJSON prints v as indented JSON.
func writeJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// writeTopology prints monitors as JSON or as a table.
func writeTopology(w io.Writer, monitors models.Topology, asJSON bool) error {
	if asJSON {
		if monitors == nil {
			monitors = models.Topology{}
		}
		return writeJSON(w, monitors)
	}
	if len(monitors) == 0 {
		_, err := fmt.Fprintln(w, "No monitors")
		return err
	}

	r := lipgloss.NewRenderer(w)
	header := r.NewStyle().Bold(true).Padding(0, 1)
	cell := r.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "NAME", "ENABLED", "MODES").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		})
	for _, m := range monitors {
		t.Row(
			strconv.FormatUint(uint64(m.ID), 10),
			m.NameOr("-"),
			strconv.FormatBool(m.Enabled),
			formatModes(m.Modes),
		)
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// formatModes renders modes as "1920x1080@60/144, 1280x720".
func formatModes(modes []models.Mode) string {
	parts := make([]string, 0, len(modes))
	for _, mode := range modes {
		s := fmt.Sprintf("%dx%d", mode.Width, mode.Height)
		if len(mode.RefreshRates) > 0 {
			rates := make([]string, len(mode.RefreshRates))
			for i, rate := range mode.RefreshRates {
				rates[i] = strconv.FormatUint(uint64(rate), 10)
			}
			s += "@" + strings.Join(rates, "/")
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, ", ")
}
