package mdm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// FilterPostData is the save hook: data is a JSON object describing the
// record about to be committed. Only the value of the configured content
// field is replaced; every byte outside it, key order and whitespace
// included, is kept. Records without the content field, or with a
// non-string one, come back unchanged.
func (t *Transformer) FilterPostData(ctx context.Context, data []byte) ([]byte, error) {
	start, end, found, err := fieldSpan(data, t.cfg.ContentField)
	if err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	if !found {
		return data, nil
	}
	var content string
	if err := json.Unmarshal(data[start:end], &content); err != nil {
		t.log.Debug("content field is not a string", "field", t.cfg.ContentField, "error", err)
		return data, nil
	}

	rewritten := t.Transform(ctx, content)
	if rewritten == content {
		return data, nil
	}

	enc, err := marshalRaw(rewritten)
	if err != nil {
		return nil, fmt.Errorf("encode content: %w", err)
	}
	out := make([]byte, 0, len(data)-(end-start)+len(enc))
	out = append(out, data[:start]...)
	out = append(out, enc...)
	return append(out, data[end:]...), nil
}

// fieldSpan locates the value of the top-level key name in the JSON object
// data. With duplicate keys the last one wins, as with json.Unmarshal.
func fieldSpan(data []byte, name string) (start, end int, found bool, err error) {
	if !json.Valid(data) {
		return 0, 0, false, errors.New("invalid JSON")
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return 0, 0, false, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return 0, 0, false, errors.New("record is not a JSON object")
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return 0, 0, false, err
		}
		key, _ := tok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return 0, 0, false, err
		}
		if key == name {
			end = int(dec.InputOffset())
			start = end - len(raw)
			found = true
		}
	}
	return start, end, found, nil
}

// marshalRaw encodes v without escaping <, > and &, which content is full of.
func marshalRaw(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
