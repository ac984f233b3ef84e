package temperature

import (
	"fmt"
	"math"
)

// Invalid is returned by [Convert] when the unit codes do not name a
// conversion. It is lower than absolute zero in every scale.
const Invalid float32 = -math.MaxFloat32

// CelsiusToFahrenheit converts c degrees Celsius to Fahrenheit using c*9/5 + 32.
// The result is never below [AbsoluteZeroF].
func CelsiusToFahrenheit(c float32) float32 {
	if c <= AbsoluteZeroC {
		return AbsoluteZeroF
	}
	return c*9/5 + 32
}

// CelsiusToKelvin converts c degrees Celsius to Kelvin using c + 273.15.
// The result is never below [AbsoluteZeroK].
func CelsiusToKelvin(c float32) float32 {
	if c <= AbsoluteZeroC {
		return AbsoluteZeroK
	}
	return c + 273.15
}

// FahrenheitToCelsius converts f degrees Fahrenheit to Celsius using (f-32)*5/9.
// The result is never below [AbsoluteZeroC].
func FahrenheitToCelsius(f float32) float32 {
	if f <= AbsoluteZeroF {
		return AbsoluteZeroC
	}
	return (f - 32) * 5 / 9
}

// FahrenheitToKelvin converts f degrees Fahrenheit to Kelvin using (f-32)*5/9 + 273.15.
// The result is never below [AbsoluteZeroK].
func FahrenheitToKelvin(f float32) float32 {
	if f <= AbsoluteZeroF {
		return AbsoluteZeroK
	}
	return (f-32)*5/9 + 273.15
}

// KelvinToCelsius converts k Kelvin to Celsius using k - 273.15.
// The result is never below [AbsoluteZeroC].
func KelvinToCelsius(k float32) float32 {
	if k <= AbsoluteZeroK {
		return AbsoluteZeroC
	}
	return k - 273.15
}

// KelvinToFahrenheit converts k Kelvin to Fahrenheit using k*9/5 - 459.67.
// The result is never below [AbsoluteZeroF].
func KelvinToFahrenheit(k float32) float32 {
	if k <= AbsoluteZeroK {
		return AbsoluteZeroF
	}
	return k*9/5 - 459.67
}

type pair struct {
	from, to Scale
}

var conversions = map[pair]func(float32) float32{
	{Celsius, Fahrenheit}: CelsiusToFahrenheit,
	{Celsius, Kelvin}:     CelsiusToKelvin,
	{Fahrenheit, Celsius}: FahrenheitToCelsius,
	{Fahrenheit, Kelvin}:  FahrenheitToKelvin,
	{Kelvin, Celsius}:     KelvinToCelsius,
	{Kelvin, Fahrenheit}:  KelvinToFahrenheit,
}

// Convert converts v from the scale with unit code from to the scale with unit
// code to. Unit codes are one of 'C', 'F', or 'K' and case is ignored.
//
// If from and to are the same byte, v is returned unchanged without looking
// at the codes. Codes naming the same scale in different case also return v.
// If either code is unknown, Convert returns [Invalid].
func Convert(v float32, from, to byte) float32 {
	if from == to {
		return v
	}
	src, err := ParseScale(from)
	if err != nil {
		return Invalid
	}
	dst, err := ParseScale(to)
	if err != nil {
		return Invalid
	}
	if src == dst {
		return v
	}
	return conversions[pair{src, dst}](v)
}

// ConvertScale converts v from the scale from to the scale to. Unlike [Convert],
// it returns an error wrapping [ErrInvalidScale] along with [Invalid] if either
// scale is unknown.
func ConvertScale(v float32, from, to Scale) (float32, error) {
	if !from.Valid() {
		return Invalid, fmt.Errorf("%w: %q", ErrInvalidScale, byte(from))
	}
	if !to.Valid() {
		return Invalid, fmt.Errorf("%w: %q", ErrInvalidScale, byte(to))
	}
	if from == to {
		return v, nil
	}
	return conversions[pair{from, to}](v), nil
}

// Clamped reports whether converting v from the scale s is clamped at absolute zero.
func Clamped(v float32, s Scale) bool {
	return s.Valid() && v <= s.AbsoluteZero()
}
