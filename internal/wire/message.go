package wire

import "maps"

// Message is one decoded or constructed wire message. It is immutable: the
// constructors copy the field map and Fields returns a copy.
type Message struct {
	kind   Kind
	fields map[string]string
}

// New builds a message after checking fields against the schema of kind.
func New(kind Kind, fields map[string]string) (Message, error) {
	if err := validate(kind, fields); err != nil {
		return Message{}, err
	}
	return Message{kind: kind, fields: maps.Clone(fields)}, nil
}

// MustNew is New for messages built from constants; it panics on schema
// errors.
func MustNew(kind Kind, fields map[string]string) Message {
	m, err := New(kind, fields)
	if err != nil {
		panic(err)
	}
	return m
}

// Kind returns the message tag.
func (m Message) Kind() Kind { return m.kind }

// Field returns the value of name, or "" when absent.
func (m Message) Field(name string) string { return m.fields[name] }

// Fields returns a copy of the field map.
func (m Message) Fields() map[string]string {
	if m.fields == nil {
		return map[string]string{}
	}
	return maps.Clone(m.fields)
}

// With returns a copy of m with name set to value. The result is checked
// against the schema again.
func (m Message) With(name, value string) (Message, error) {
	fields := m.Fields()
	fields[name] = value
	return New(m.kind, fields)
}

// Equal reports whether two messages have the same kind and fields.
func (m Message) Equal(o Message) bool {
	return m.kind == o.kind && maps.Equal(m.fields, o.fields)
}

// IsZero reports whether m is the zero Message.
func (m Message) IsZero() bool { return m.kind == "" }
