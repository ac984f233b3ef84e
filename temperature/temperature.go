// Package temperature converts temperatures between the Celsius, Fahrenheit,
// and Kelvin scales.
//
// Every conversion is clamped at absolute zero: an input at or below the
// source scale's absolute zero converts to exactly the absolute zero of the
// destination scale.
package temperature

import (
	"errors"
	"fmt"
	"strings"
)

// Absolute zero of each scale.
const (
	AbsoluteZeroC float32 = -273.15
	AbsoluteZeroF float32 = -459.67
	AbsoluteZeroK float32 = 0.0
)

// ErrInvalidScale is returned when a unit code or name does not denote a known [Scale].
var ErrInvalidScale = errors.New("invalid temperature scale")

// Scale is a temperature scale. The value of each scale is its upper-case unit code.
type Scale byte

const (
	Celsius    Scale = 'C'
	Fahrenheit Scale = 'F'
	Kelvin     Scale = 'K'
)

// Scales lists every known scale.
var Scales = []Scale{Celsius, Fahrenheit, Kelvin}

// ParseScale returns the Scale denoted by the unit code c, ignoring case.
func ParseScale(c byte) (Scale, error) {
	switch c {
	case 'c', 'C':
		return Celsius, nil
	case 'f', 'F':
		return Fahrenheit, nil
	case 'k', 'K':
		return Kelvin, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidScale, c)
}

// ParseScaleString returns the Scale denoted by s, which may be a single unit
// code, the name of the scale, or its symbol. Case is ignored.
func ParseScaleString(s string) (Scale, error) {
	t := strings.TrimPrefix(strings.TrimSpace(s), "°")
	if len(t) == 1 {
		return ParseScale(t[0])
	}
	for _, sc := range Scales {
		if strings.EqualFold(t, sc.String()) {
			return sc, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidScale, s)
}

// Valid reports whether s is one of [Celsius], [Fahrenheit], or [Kelvin].
func (s Scale) Valid() bool {
	switch s {
	case Celsius, Fahrenheit, Kelvin:
		return true
	}
	return false
}

// String returns the name of the scale.
func (s Scale) String() string {
	switch s {
	case Celsius:
		return "celsius"
	case Fahrenheit:
		return "fahrenheit"
	case Kelvin:
		return "kelvin"
	case 0:
		return ""
	}
	return "Scale(" + string(rune(s)) + ")"
}

// Symbol returns the unit symbol of the scale, such as "°C".
func (s Scale) Symbol() string {
	switch s {
	case Celsius:
		return "°C"
	case Fahrenheit:
		return "°F"
	case Kelvin:
		return "K"
	}
	return ""
}

// AbsoluteZero returns absolute zero in the scale s. It returns [Invalid] if s is not valid.
func (s Scale) AbsoluteZero() float32 {
	switch s {
	case Celsius:
		return AbsoluteZeroC
	case Fahrenheit:
		return AbsoluteZeroF
	case Kelvin:
		return AbsoluteZeroK
	}
	return Invalid
}

// AppendText implements [encoding.TextAppender] by appending the unit code of s.
func (s Scale) AppendText(b []byte) ([]byte, error) {
	if !s.Valid() {
		return b, fmt.Errorf("%w: %q", ErrInvalidScale, byte(s))
	}
	return append(b, byte(s)), nil
}

// MarshalText implements [encoding.TextMarshaler].
func (s Scale) MarshalText() ([]byte, error) {
	return s.AppendText(nil)
}

// UnmarshalText implements [encoding.TextUnmarshaler].
// It accepts anything accepted by [ParseScaleString].
func (s *Scale) UnmarshalText(data []byte) (err error) {
	*s, err = ParseScaleString(string(data))
	return
}

// Set implements the flag value interface used by command-line flags.
func (s *Scale) Set(v string) error {
	return s.UnmarshalText([]byte(v))
}

// Type returns the name of the flag type.
func (s *Scale) Type() string {
	return "scale"
}
