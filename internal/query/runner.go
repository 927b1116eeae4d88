package query

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"gorm.io/gorm"

	"github.com/Skotchmaster/shopdata/internal/models"
)

const (
	// MaxRows is how many rows of a result are printed.
	MaxRows     = 10
	bannerWidth = 80
	// in runes
	maxEchoLength = 200
)

// Result is one executed statement. Err is set when the store rejected it.
type Result struct {
	Index     int
	Statement string
	Columns   []string
	Rows      [][]string
	Total     int
	Err       error
}

type Runner struct {
	DB  *gorm.DB
	Out io.Writer
	Log *slog.Logger
}

// Run executes every statement of batch in order and renders each result to
// r.Out. A failing statement is reported inline and the rest still run; the
// returned count is the number of failures.
func (r *Runner) Run(ctx context.Context, batch string) (int, error) {
	failed := 0
	for i, stmt := range Split(batch) {
		if err := ctx.Err(); err != nil {
			return failed, err
		}
		res := r.Exec(ctx, i+1, stmt)
		if res == nil {
			continue
		}
		if res.Err != nil {
			failed++
			r.Log.Warn("query_failed", "index", res.Index, "err", res.Err)
		} else {
			r.Log.Debug("query_done", "index", res.Index, "rows", res.Total)
		}
		Render(r.Out, res)
	}
	return failed, nil
}

// Exec runs a single statement with its terminator stripped. It returns nil
// when nothing is left to execute.
func (r *Runner) Exec(ctx context.Context, index int, stmt string) *Result {
	stmt = strings.TrimRight(strings.TrimSpace(stmt), ";")
	stmt = strings.TrimSpace(stmt)
	if stmt == "" {
		return nil
	}
	res := &Result{Index: index, Statement: stmt}

	rows, err := r.DB.WithContext(ctx).Raw(stmt).Rows()
	if err != nil {
		res.Err = err
		return res
	}
	defer rows.Close()

	if err := collect(rows, res); err != nil {
		res.Err = err
	}
	return res
}

func collect(rows *sql.Rows, res *Result) error {
	cols, err := rows.Columns()
	if err != nil {
		return err
	}
	res.Columns = cols

	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return err
		}
		res.Total++
		if len(res.Rows) < MaxRows {
			row := make([]string, len(values))
			for i, v := range values {
				row[i] = formatValue(v)
			}
			res.Rows = append(res.Rows, row)
		}
	}
	return rows.Err()
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(x)
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return models.FormatTime(x)
	default:
		return fmt.Sprint(x)
	}
}

// Render writes the banner and the table (or error) for one result.
func Render(w io.Writer, res *Result) {
	banner := strings.Repeat("=", bannerWidth)
	fmt.Fprintf(w, "\n%s\nQuery %d\n%s\n", banner, res.Index, banner)

	if res.Err != nil {
		echo := res.Statement
		if r := []rune(echo); len(r) > maxEchoLength {
			echo = string(r[:maxEchoLength])
		}
		fmt.Fprintf(w, "Error executing query %d: %v\n", res.Index, res.Err)
		fmt.Fprintf(w, "Query was: %s...\n", echo)
		return
	}

	if res.Total == 0 {
		fmt.Fprintln(w, "(No rows returned)")
		return
	}

	widths := make([]int, len(res.Columns))
	for i, c := range res.Columns {
		widths[i] = runewidth.StringWidth(c)
	}
	for _, row := range res.Rows {
		for i, v := range row {
			if n := runewidth.StringWidth(v); n > widths[i] {
				widths[i] = n
			}
		}
	}

	fmt.Fprintln(w, joinRow(res.Columns, widths))
	rule := 3 * (len(widths) - 1)
	for _, n := range widths {
		rule += n
	}
	fmt.Fprintln(w, strings.Repeat("-", rule))
	for _, row := range res.Rows {
		fmt.Fprintln(w, joinRow(row, widths))
	}
	if res.Total > MaxRows {
		fmt.Fprintf(w, "... (%d more rows)\n", res.Total-MaxRows)
	}
}

func joinRow(cells []string, widths []int) string {
	padded := make([]string, len(cells))
	for i, c := range cells {
		if i == len(cells)-1 {
			padded[i] = c
			continue
		}
		padded[i] = runewidth.FillRight(c, widths[i])
	}
	return strings.Join(padded, " | ")
}
