package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Condition is one named boolean signal.
type Condition struct {
	Name      string `json:"name"`
	Satisfied bool   `json:"satisfied"`
}

// Conditions is a JSON object of name -> bool that keeps the order the keys
// were written in. A nil value means the field was absent or null.
type Conditions []Condition

// UnmarshalJSON reads a JSON object token by token so key order survives.
func (c *Conditions) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*c = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("conditions: expected object, got %v", tok)
	}

	out := Conditions{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("conditions: expected key, got %v", tok)
		}

		// Anything but a literal true counts as unsatisfied.
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("conditions: value of %q: %w", name, err)
		}
		out = append(out, Condition{Name: name, Satisfied: string(bytes.TrimSpace(value)) == "true"})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*c = out
	return nil
}

// MarshalJSON writes the conditions back as an object in slice order.
func (c Conditions) MarshalJSON() ([]byte, error) {
	if c == nil {
		return []byte("null"), nil
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, cond := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(cond.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if cond.Satisfied {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Satisfied counts the conditions that hold.
func (c Conditions) Satisfied() int {
	n := 0
	for _, cond := range c {
		if cond.Satisfied {
			n++
		}
	}
	return n
}
