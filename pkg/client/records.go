package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Record is one JSON object returned by the API. Numbers are json.Number.
type Record map[string]any

// String returns the field as a string. Numbers are formatted; missing and
// null fields return "".
func (r Record) String(key string) string {
	switch v := r[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

// Int returns the field as an integer. Numeric strings are accepted.
func (r Record) Int(key string) (int64, bool) {
	return toInt(r[key])
}

// ID returns the record's "id" field.
func (r Record) ID() (string, bool) {
	id := r.String("id")
	return id, id != ""
}

// Records returns the list of objects under key.
func (r Record) Records(key string) ([]Record, error) {
	v, ok := r[key]
	if !ok || v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("field %q is %T, want array", key, v)
	}
	out := make([]Record, 0, len(list))
	for i, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("field %q[%d] is %T, want object", key, i, item)
		}
		out = append(out, Record(obj))
	}
	return out, nil
}

// ListResult is a decoded list response.
type ListResult struct {
	Status   string
	Count    int
	Total    int
	HasTotal bool
	Items    []Record

	// Raw is the full response object.
	Raw Record
}

func newListResult(raw Record, itemsKey string) (*ListResult, error) {
	items, err := raw.Records(itemsKey)
	if err != nil {
		return nil, err
	}
	res := &ListResult{
		Status: raw.String("status"),
		Items:  items,
		Raw:    raw,
	}
	if n, ok := raw.Int("count"); ok {
		res.Count = int(n)
	} else {
		res.Count = len(items)
	}
	if n, ok := raw.Int("total"); ok {
		res.Total = int(n)
		res.HasTotal = true
	}
	return res, nil
}

func decodeRecord(body []byte) (Record, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return Record{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var rec Record
	if err := dec.Decode(&rec); err != nil {
		return nil, err
	}
	if rec == nil {
		rec = Record{}
	}
	return rec, nil
}

func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		if f, err := n.Float64(); err == nil {
			return int64(f), true
		}
	case string:
		if i, err := strconv.ParseInt(n, 10, 64); err == nil {
			return i, true
		}
	case float64:
		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	}
	return 0, false
}
