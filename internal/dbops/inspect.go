package dbops

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/imamik/opspipe/internal/pipeline"
	"github.com/imamik/opspipe/internal/platform/database"
)

// TableCount is the row count of one table of interest.
type TableCount struct {
	Table string
	Rows  int64
	Found bool
	// Missing explains the absence. Always a NotFoundError when set.
	Missing error
}

// Report is the result of an inspection.
type Report struct {
	Schema string
	Tables []string
	Counts []TableCount
}

// Render formats the report as trace lines.
func (r *Report) Render() string {
	var b strings.Builder
	label := r.Schema
	if label == "" {
		label = "default schema"
	}
	if len(r.Tables) == 0 {
		fmt.Fprintf(&b, "tables in %s: (none)", label)
	} else {
		fmt.Fprintf(&b, "tables in %s: %s", label, strings.Join(r.Tables, ", "))
	}
	for _, c := range r.Counts {
		if c.Found {
			fmt.Fprintf(&b, "\n%s rows: %d", c.Table, c.Rows)
		} else {
			fmt.Fprintf(&b, "\n%s: not found", c.Table)
		}
	}
	return b.String()
}

// InspectSchema lists the tables in a schema and counts rows of selected tables.
type InspectSchema struct {
	Schema    string
	Tables    []string
	MaxRunFor time.Duration
}

// Name implements pipeline.Step.
func (s InspectSchema) Name() string { return "inspect schema" }

// Timeout implements pipeline.Timeouter.
func (s InspectSchema) Timeout() time.Duration { return s.MaxRunFor }

// Run implements pipeline.Step.
func (s InspectSchema) Run(ctx context.Context, sess *database.Session, r pipeline.Recorder) (*pipeline.StepResult, error) {
	dialect := sess.Dialect()
	report := &Report{Schema: s.Schema}

	tables, err := listTables(ctx, sess, dialect, s.Schema)
	if err != nil {
		return nil, pipeline.ExecutionError(s.Name(), err)
	}
	report.Tables = tables

	present := make(map[string]bool, len(tables))
	for _, t := range tables {
		present[t] = true
	}

	for _, table := range s.Tables {
		count := TableCount{Table: table}
		if !present[table] && !strings.Contains(table, ".") {
			count.Missing = pipeline.NotFoundError(table, fmt.Errorf("table %s does not exist", table))
			r.Note("table %s not found", table)
			report.Counts = append(report.Counts, count)
			continue
		}

		err := sess.QueryRowContext(ctx, dialect.CountRowsQuery(s.Schema, table)).Scan(&count.Rows)
		switch {
		case err == nil:
			count.Found = true
		case dialect.IsUndefinedTable(err):
			count.Missing = pipeline.NotFoundError(table, err)
			r.Note("table %s not found", table)
		default:
			return nil, pipeline.ExecutionError(s.Name(), fmt.Errorf("count rows of %s: %w", table, err))
		}
		report.Counts = append(report.Counts, count)
	}

	return &pipeline.StepResult{
		Output:  report.Render(),
		Details: report,
	}, nil
}

func listTables(ctx context.Context, sess *database.Session, dialect database.Dialect, schema string) ([]string, error) {
	query, args := dialect.ListTablesQuery(schema)
	rows, err := sess.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("list tables: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return tables, nil
}
