package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/justcall-client/internal/config"
	"github.com/Sternrassler/justcall-client/pkg/client"
	"github.com/Sternrassler/justcall-client/pkg/pagination"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// NotAvailable fills table cells for absent fields.
	NotAvailable = "-"

	maxCellWidth = 48
)

// ErrInvalidID is returned when an ID argument is not a positive integer.
var ErrInvalidID = errors.New("id must be a positive integer")

// column maps a table header to a record field. Dotted keys descend into
// nested objects, e.g. "call_info.direction".
type column struct {
	Header string
	Key    string
}

// newClient builds a client from the loaded configuration. The returned func
// releases the client and, when configured, the Redis connection of the gate.
func newClient(ctx context.Context) (*client.Client, func(), error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, nil, err
	}
	cc, err := cfg.ClientConfig()
	if err != nil {
		return nil, nil, err
	}

	gate, closeGate, err := cfg.Gate(ctx)
	if err != nil {
		return nil, nil, err
	}
	if gate != nil {
		cc.Gate = gate
	}

	c, err := client.New(cc)
	if err != nil {
		_ = closeGate()
		return nil, nil, fmt.Errorf("failed to create client: %w", err)
	}
	return c, func() {
		_ = c.Close()
		_ = closeGate()
	}, nil
}

// iterOptions applies the global --max cap. Zero or less means no cap.
func iterOptions() []pagination.Option {
	if n := viper.GetInt("max"); n > 0 {
		return []pagination.Option{client.MaxItems(n)}
	}
	return nil
}

// collect drains seq, keeping the records read before a failure.
func collect(seq iter.Seq2[client.Record, error]) ([]client.Record, error) {
	return pagination.Collect(seq)
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w (got %q)", ErrInvalidID, arg)
	}
	return id, nil
}

// parseTime reads a --from/--to style flag. Empty means unset.
func parseTime(flag, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := client.ParseDateTime(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: %w", flag, err)
	}
	return t, nil
}

func outputFormat() string {
	return viper.GetString("output")
}

// encode writes v as JSON or YAML. It reports false for the table format.
func encode(w io.Writer, v any) (bool, error) {
	switch outputFormat() {
	case config.OutputJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return true, encoder.Encode(v)
	case config.OutputYAML:
		encoder := yaml.NewEncoder(w)
		defer encoder.Close()
		return true, encoder.Encode(v)
	default:
		return false, nil
	}
}

// printRecords renders a list in the configured output format.
func printRecords(w io.Writer, noun string, records []client.Record, columns []column) error {
	if records == nil {
		records = []client.Record{}
	}
	if done, err := encode(w, records); done {
		return err
	}

	if len(records) == 0 {
		_, err := fmt.Fprintf(w, "No %s found\n", noun)
		return err
	}

	table := tablewriter.NewWriter(w)
	headers := make([]any, len(columns))
	for i, col := range columns {
		headers[i] = col.Header
	}
	table.Header(headers...)
	for _, rec := range records {
		row := make([]any, len(columns))
		for i, col := range columns {
			row[i] = cell(rec, col.Key)
		}
		_ = table.Append(row...)
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	_, err := fmt.Fprintf(w, "%d %s\n", len(records), noun)
	return err
}

// printRecord renders one object as a field/value table, or encoded.
func printRecord(w io.Writer, rec client.Record) error {
	if done, err := encode(w, rec); done {
		return err
	}

	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	table := tablewriter.NewWriter(w)
	table.Header("Field", "Value")
	for _, k := range keys {
		_ = table.Append(k, formatCell(rec[k]))
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	return nil
}

// lookup resolves a dotted key.
func lookup(rec client.Record, key string) any {
	var cur any = map[string]any(rec)
	for _, part := range strings.Split(key, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			if r, isRec := cur.(client.Record); isRec {
				m = r
			} else {
				return nil
			}
		}
		cur = m[part]
	}
	return cur
}

func cell(rec client.Record, key string) string {
	return formatCell(lookup(rec, key))
}

// formatCell renders a JSON value for a table. Nested values stay JSON.
func formatCell(value any) string {
	var s string
	switch v := value.(type) {
	case nil:
		return NotAvailable
	case map[string]any, []any:
		b, err := json.Marshal(v)
		if err != nil {
			return NotAvailable
		}
		s = string(b)
	default:
		s = client.Record{"v": v}.String("v")
	}
	if s == "" {
		return NotAvailable
	}
	if r := []rune(s); len(r) > maxCellWidth {
		s = string(r[:maxCellWidth-3]) + "..."
	}
	return s
}
