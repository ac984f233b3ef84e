package bridge

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/lone-faerie/thermo/temperature"
)

// ErrInvalidPayload is returned by [ParsePayload] for payloads that do not hold a reading.
var ErrInvalidPayload = errors.New("invalid payload")

type jsonReading struct {
	Value *float32 `json:"value"`
	Unit  string   `json:"unit,omitempty"`
}

// ParsePayload parses a temperature reading. The payload is either a bare number,
// such as "21.5", or a JSON object such as {"value": 21.5, "unit": "C"}. The
// returned scale is zero unless the payload names a unit.
func ParsePayload(p []byte) (v float32, unit temperature.Scale, err error) {
	p = bytes.TrimSpace(p)
	if len(p) == 0 {
		return 0, 0, fmt.Errorf("%w: empty", ErrInvalidPayload)
	}
	if p[0] != '{' {
		f, err := strconv.ParseFloat(string(p), 32)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, 0, fmt.Errorf("%w: %q", ErrInvalidPayload, p)
		}
		return float32(f), 0, nil
	}
	var r jsonReading
	if err = json.Unmarshal(p, &r); err != nil {
		return 0, 0, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	if r.Value == nil {
		return 0, 0, fmt.Errorf("%w: no value", ErrInvalidPayload)
	}
	if r.Unit != "" {
		if unit, err = temperature.ParseScaleString(r.Unit); err != nil {
			return 0, 0, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
		}
	}
	return *r.Value, unit, nil
}

// AppendValue appends the shortest representation of v that parses back to the same float32.
func AppendValue(b []byte, v float32) []byte {
	return strconv.AppendFloat(b, float64(v), 'f', -1, 32)
}
