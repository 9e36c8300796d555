package main

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/sells-group/langid/internal/langcode"
	"github.com/sells-group/langid/internal/provider"
	"github.com/sells-group/langid/internal/resilience"
)

func newTable(w io.Writer, headers ...any) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row(headers))
	return tw
}

func rightAlign(cols ...int) []table.ColumnConfig {
	out := make([]table.ColumnConfig, 0, len(cols))
	for _, n := range cols {
		out = append(out, table.ColumnConfig{Number: n, Align: text.AlignRight, AlignHeader: text.AlignLeft})
	}
	return out
}

// renderRound writes the per-provider results, the vote and the totals.
func renderRound(w io.Writer, resp *detectResponse) {
	tw := newTable(w, "Provider", "Status", "Language", "Confidence", "Time (s)", "Tokens", "Cost (USD)", "Error")
	for _, r := range resp.Results {
		tw.AppendRow(table.Row{
			r.Provider,
			string(r.Status),
			dash(r.LanguageCode()),
			confidence(r.Confidence),
			strconv.FormatFloat(r.TimeTaken, 'f', 2, 64),
			r.Cost.Tokens,
			strconv.FormatFloat(r.Cost.USD, 'f', 6, 64),
			r.ErrorText(),
		})
	}
	tw.SetColumnConfigs(rightAlign(4, 5, 6, 7))
	tw.Render()

	scores := resp.Ensemble.Scores
	if len(scores) > 0 {
		st := newTable(w, "Language", "Name", "Score")
		for _, code := range slices.Sorted(maps.Keys(scores)) {
			st.AppendRow(table.Row{code, langcode.Name(code), strconv.FormatFloat(scores[code], 'f', 4, 64)})
		}
		st.SetColumnConfigs(rightAlign(3))
		st.Render()
	}

	final := resp.Ensemble.Final()
	if final == "" {
		fmt.Fprintln(w, "Final language: none")
	} else {
		fmt.Fprintf(w, "Final language: %s (%s)\n", final, langcode.Name(final))
	}
	total := resp.Ensemble.TotalCost
	fmt.Fprintf(w, "Total cost: $%.6f (%d tokens)\n", total.USD, total.Tokens)
	if resp.GroundTruthLanguage != nil && resp.GroundTruthMatch != nil {
		fmt.Fprintf(w, "Ground truth: %s (match: %t)\n", *resp.GroundTruthLanguage, *resp.GroundTruthMatch)
	}
}

// renderPanel writes the provider panel with each breaker's state.
func renderPanel(w io.Writer, descs []provider.Descriptor, textDesc *provider.Descriptor, states map[string]resilience.CircuitState) {
	tw := newTable(w, "Provider", "Kind", "Role", "Audio tier", "Transcriber", "Circuit")
	row := func(d provider.Descriptor, role string) {
		circuit := "-"
		if s, ok := states[d.Name]; ok {
			circuit = s.String()
		}
		tw.AppendRow(table.Row{d.Name, dash(d.Kind), role, yesNo(d.AudioBased), yesNo(d.Transcriber), circuit})
	}
	for _, d := range descs {
		row(d, "primary")
	}
	if textDesc != nil {
		row(*textDesc, "text")
	}
	tw.Render()
}

func confidence(c *float64) string {
	if c == nil {
		return "-"
	}
	return strconv.FormatFloat(*c, 'f', 3, 64)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
