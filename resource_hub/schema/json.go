package schema

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONColumn stores an optional struct as a JSON text column. A nil Data
// round trips as SQL NULL.
type JSONColumn[T any] struct {
	Data *T
}

func NewJSONColumn[T any](data *T) JSONColumn[T] {
	return JSONColumn[T]{Data: data}
}

func (c JSONColumn[T]) Value() (driver.Value, error) {
	if c.Data == nil {
		return nil, nil
	}
	serialized, err := json.Marshal(c.Data)
	if err != nil {
		return nil, fmt.Errorf("error serializing json column: %w", err)
	}
	return string(serialized), nil
}

func (c *JSONColumn[T]) Scan(value interface{}) error {
	if value == nil {
		c.Data = nil
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan type %T into json column", value)
	}

	data := new(T)
	if err := json.Unmarshal(raw, data); err != nil {
		return fmt.Errorf("error deserializing json column: %w", err)
	}
	c.Data = data
	return nil
}
