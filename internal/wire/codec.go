package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// SchemaError reports a line that is not a valid message.
type SchemaError struct {
	Kind   Kind // empty when the kind could not be read
	Reason string
	Err    error // underlying JSON error, if any
}

func (e *SchemaError) Error() string {
	var b strings.Builder
	b.WriteString("wire: schema error")
	if e.Kind != "" {
		fmt.Fprintf(&b, " for %q", string(e.Kind))
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *SchemaError) Unwrap() error { return e.Err }

// envelope is the on-wire JSON shape.
type envelope struct {
	Kind   Kind              `json:"kind"`
	Fields map[string]string `json:"fields"`
}

// Encode renders m as a single line without the trailing newline.
func Encode(m Message) (string, error) {
	if err := validate(m.kind, m.fields); err != nil {
		return "", err
	}
	fields := m.fields
	if fields == nil {
		fields = map[string]string{}
	}
	// json.Marshal escapes control characters, so the output never contains
	// a raw newline.
	b, err := json.Marshal(envelope{Kind: m.kind, Fields: fields})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Decode parses one line into a Message.
func Decode(line string) (Message, error) {
	line = strings.TrimRight(line, "\r\n")

	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(line), &top); err != nil {
		return Message{}, &SchemaError{Reason: "not a JSON object", Err: err}
	}
	if top == nil {
		return Message{}, &SchemaError{Reason: "not a JSON object"}
	}
	if len(top) != 2 {
		return Message{}, &SchemaError{Reason: fmt.Sprintf("want exactly keys kind and fields, got %d keys", len(top))}
	}
	rawKind, okKind := top["kind"]
	rawFields, okFields := top["fields"]
	if !okKind || !okFields {
		return Message{}, &SchemaError{Reason: "want exactly keys kind and fields"}
	}

	var kind Kind
	if err := json.Unmarshal(rawKind, &kind); err != nil {
		return Message{}, &SchemaError{Reason: "kind is not a string", Err: err}
	}
	if !kind.Known() {
		return Message{}, &SchemaError{Kind: kind, Reason: "unknown kind"}
	}

	if bytes.Equal(bytes.TrimSpace(rawFields), []byte("null")) {
		return Message{}, &SchemaError{Kind: kind, Reason: "fields is null"}
	}
	var fields map[string]string
	if err := json.Unmarshal(rawFields, &fields); err != nil {
		return Message{}, &SchemaError{Kind: kind, Reason: "fields is not a flat string map", Err: err}
	}
	if err := validate(kind, fields); err != nil {
		return Message{}, err
	}
	if fields == nil {
		fields = map[string]string{}
	}
	return Message{kind: kind, fields: fields}, nil
}

// validate checks that fields holds exactly the names kind requires.
func validate(kind Kind, fields map[string]string) error {
	names, ok := catalog[kind]
	if !ok {
		return &SchemaError{Kind: kind, Reason: "unknown kind"}
	}
	var missing, extra []string
	for _, n := range names {
		if _, ok := fields[n]; !ok {
			missing = append(missing, n)
		}
	}
	if len(fields)+len(missing) != len(names) {
		want := make(map[string]struct{}, len(names))
		for _, n := range names {
			want[n] = struct{}{}
		}
		for n := range fields {
			if _, ok := want[n]; !ok {
				extra = append(extra, n)
			}
		}
	}
	if len(missing) == 0 && len(extra) == 0 {
		for _, n := range names {
			if !utf8.ValidString(fields[n]) {
				return &SchemaError{Kind: kind, Reason: "field " + n + " is not valid UTF-8"}
			}
		}
		return nil
	}
	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "missing "+strings.Join(sortedCopy(missing), ","))
	}
	if len(extra) > 0 {
		parts = append(parts, "unexpected "+strings.Join(sortedCopy(extra), ","))
	}
	return &SchemaError{Kind: kind, Reason: strings.Join(parts, "; ")}
}

func sortedCopy(in []string) []string {
	out := append([]string{}, in...)
	sort.Strings(out)
	return out
}
