package executor

import (
	"fmt"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/patternql/querycore/ids"
	"github.com/patternql/querycore/value"
)

// ColumnNames resolves a column header for each output variable, falling
// back to the variable's synthetic id string when names is nil or lacks
// an entry (e.g. a variable introduced purely by lowering).
func ColumnNames(vars []ids.VariableVertexId, names map[ids.VariableVertexId]string) []string {
	headers := make([]string, len(vars))
	for i, v := range vars {
		if n, ok := names[v]; ok && n != "" {
			headers[i] = n
		} else {
			headers[i] = v.String()
		}
	}
	return headers
}

// FormatTable renders rows as a markdown table over the given output
// variables, one column per variable in order, with a trailing row count.
func FormatTable(rows []Row, vars []ids.VariableVertexId, names map[ids.VariableVertexId]string) string {
	if len(rows) == 0 {
		return fmt.Sprintf("_Columns: %v_\n\n_No rows_", ColumnNames(vars, names))
	}

	var b strings.Builder
	alignment := make([]tw.Align, len(vars))
	for i := range alignment {
		alignment[i] = tw.AlignNone
	}

	table := tablewriter.NewTable(&b,
		tablewriter.WithRenderer(renderer.NewMarkdown()),
		tablewriter.WithAlignment(alignment),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)
	table.Header(ColumnNames(vars, names))

	for _, r := range rows {
		cells := make([]string, len(vars))
		for i, v := range vars {
			cells[i] = formatValue(r.Values[v])
		}
		table.Append(cells)
	}
	table.Render()

	fmt.Fprintf(&b, "\n_%d rows_\n", len(rows))
	return b.String()
}

func formatValue(v value.Value) string {
	if v == nil {
		return "nil"
	}
	switch v := v.(type) {
	case string:
		return v
	case int64:
		return fmt.Sprintf("%d", v)
	case float64:
		return fmt.Sprintf("%.2f", v)
	case bool:
		return fmt.Sprintf("%t", v)
	case time.Time:
		return v.Format("2006-01-02 15:04:05")
	default:
		return value.ToString(v)
	}
}
