package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// renderCSV writes a tabular payload as a header row plus one row per
// entry, and anything else as a flattened key row plus a value row.
func renderCSV(data interface{}) ([]byte, error) {
	generic, err := normalize(data)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	switch v := generic.(type) {
	case map[string]interface{}:
		if rows, ok := v["rows"].([]interface{}); ok {
			err = writeTable(w, columnsOf(v, rows), rows)
		} else {
			err = writeFlat(w, v)
		}
	case []interface{}:
		err = writeTable(w, columnsOf(nil, v), v)
	case nil:
	default:
		err = w.Write([]string{cell(v)})
	}
	if err != nil {
		return nil, err
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// normalize turns a typed payload and a payload read back from the store
// into the same generic shape.
func normalize(data interface{}) (interface{}, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode report data: %w", err)
	}
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("decode report data: %w", err)
	}
	return generic, nil
}

func columnsOf(payload map[string]interface{}, rows []interface{}) []string {
	if payload != nil {
		if declared, ok := payload["columns"].([]interface{}); ok && len(declared) > 0 {
			cols := make([]string, 0, len(declared))
			for _, c := range declared {
				cols = append(cols, cell(c))
			}
			return cols
		}
	}
	if len(rows) == 0 {
		return nil
	}
	first, ok := rows[0].(map[string]interface{})
	if !ok {
		return nil
	}
	cols := make([]string, 0, len(first))
	for k := range first {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

func writeTable(w *csv.Writer, columns []string, rows []interface{}) error {
	if len(columns) == 0 {
		return nil
	}
	if err := w.Write(columns); err != nil {
		return err
	}
	for _, r := range rows {
		row, _ := r.(map[string]interface{})
		record := make([]string, len(columns))
		for i, c := range columns {
			record[i] = cell(row[c])
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return nil
}

func writeFlat(w *csv.Writer, payload map[string]interface{}) error {
	flat := map[string]string{}
	flatten("", payload, flat)

	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := make([]string, len(keys))
	for i, k := range keys {
		values[i] = flat[k]
	}
	if err := w.Write(keys); err != nil {
		return err
	}
	return w.Write(values)
}

func flatten(prefix string, v interface{}, out map[string]string) {
	m, ok := v.(map[string]interface{})
	if !ok {
		out[prefix] = cell(v)
		return
	}
	for k, child := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		flatten(key, child, out)
	}
}

func cell(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		raw, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(raw)
	}
}
