package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Entry is one keyed document of a Collection.
type Entry struct {
	ID  string
	Raw Raw
}

// Collection is a JSON object of documents keyed by store id. Unlike a Go
// map it keeps the keys in the order they were received.
type Collection struct {
	Entries []Entry
}

// Len returns the number of entries.
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Entries)
}

// UnmarshalJSON decodes an object of documents. A JSON null decodes to an
// empty collection.
func (c *Collection) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		c.Entries = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("record collection: expected object, got %v", tok)
	}

	entries := []Entry{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return errors.New("record collection: non-string key")
		}
		var raw Raw
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("record collection: entry %s: %w", key, err)
		}
		entries = append(entries, Entry{ID: key, Raw: raw})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	c.Entries = entries
	return nil
}

// MarshalJSON encodes the collection as an object in entry order.
func (c Collection) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range c.Entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.ID)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(e.Raw)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
