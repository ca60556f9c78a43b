package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Duration оборачивает time.Duration для JSON конфигурации:
// принимает строки вида "24h" и целые наносекунды
type Duration time.Duration

// Std возвращает значение как time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// UnmarshalJSON implements json.Unmarshaler
func (d *Duration) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value, err)
		}
		*d = Duration(parsed)
	default:
		return fmt.Errorf("invalid duration type %T", v)
	}

	return nil
}

// MarshalJSON implements json.Marshaler
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}
