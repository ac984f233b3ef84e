package temperature

import (
	"errors"
	"math"
	"testing"
)

func almostEqual(a, b float32) bool {
	const (
		relEpsilon = 0.0001
		absEpsilon = 0.01
	)
	diff := math.Abs(float64(a - b))
	max := math.Max(math.Abs(float64(a)), math.Abs(float64(b)))
	return diff < max*relEpsilon || diff < absEpsilon
}

func TestNamedConversions(t *testing.T) {
	var tests = []struct {
		name string
		fn   func(float32) float32
		in   float32
		want float32
	}{
		{"CelsiusToFahrenheit", CelsiusToFahrenheit, AbsoluteZeroC, AbsoluteZeroF},
		{"CelsiusToFahrenheit", CelsiusToFahrenheit, AbsoluteZeroC - 23.04, AbsoluteZeroF},
		{"CelsiusToFahrenheit", CelsiusToFahrenheit, 100, 212},
		{"CelsiusToFahrenheit", CelsiusToFahrenheit, 55, 131},
		{"FahrenheitToCelsius", FahrenheitToCelsius, AbsoluteZeroF, AbsoluteZeroC},
		{"FahrenheitToCelsius", FahrenheitToCelsius, AbsoluteZeroF - 16, AbsoluteZeroC},
		{"FahrenheitToCelsius", FahrenheitToCelsius, 212, 100},
		{"FahrenheitToCelsius", FahrenheitToCelsius, 131, 55},
		{"CelsiusToKelvin", CelsiusToKelvin, AbsoluteZeroC, AbsoluteZeroK},
		{"CelsiusToKelvin", CelsiusToKelvin, AbsoluteZeroC - 9.222, AbsoluteZeroK},
		{"CelsiusToKelvin", CelsiusToKelvin, 0, 273.15},
		{"CelsiusToKelvin", CelsiusToKelvin, 100, 373.15},
		{"KelvinToCelsius", KelvinToCelsius, AbsoluteZeroK, AbsoluteZeroC},
		{"KelvinToCelsius", KelvinToCelsius, AbsoluteZeroK - 889, AbsoluteZeroC},
		{"KelvinToCelsius", KelvinToCelsius, 273.15, 0},
		{"KelvinToCelsius", KelvinToCelsius, 373.15, 100},
		{"FahrenheitToKelvin", FahrenheitToKelvin, AbsoluteZeroF, AbsoluteZeroK},
		{"FahrenheitToKelvin", FahrenheitToKelvin, AbsoluteZeroF - 10.9, AbsoluteZeroK},
		{"FahrenheitToKelvin", FahrenheitToKelvin, 32, 273.15},
		{"FahrenheitToKelvin", FahrenheitToKelvin, 212, 373.15},
		{"KelvinToFahrenheit", KelvinToFahrenheit, AbsoluteZeroK, AbsoluteZeroF},
		{"KelvinToFahrenheit", KelvinToFahrenheit, AbsoluteZeroK - 93.3, AbsoluteZeroF},
		{"KelvinToFahrenheit", KelvinToFahrenheit, 273.15, 32},
		{"KelvinToFahrenheit", KelvinToFahrenheit, 373.15, 212},
	}
	for _, tt := range tests {
		got := tt.fn(tt.in)
		if !almostEqual(got, tt.want) {
			t.Errorf("%s(%v): wanted %v, got %v", tt.name, tt.in, tt.want, got)
		}
	}
}

func TestExactValues(t *testing.T) {
	if got := CelsiusToFahrenheit(100); got != 212 {
		t.Errorf("CelsiusToFahrenheit(100): wanted 212, got %v", got)
	}
	if got := CelsiusToFahrenheit(-273.15); got != AbsoluteZeroF {
		t.Errorf("CelsiusToFahrenheit(-273.15): wanted %v, got %v", AbsoluteZeroF, got)
	}
	if got := Convert(0, 'c', 'k'); got != 273.15 {
		t.Errorf("Convert(0, 'c', 'k'): wanted 273.15, got %v", got)
	}
	if got := Convert(-459.67, 'F', 'K'); got != 0 {
		t.Errorf("Convert(-459.67, 'F', 'K'): wanted 0, got %v", got)
	}
	if got := Convert(42, 'x', 'c'); got != Invalid {
		t.Errorf("Convert(42, 'x', 'c'): wanted Invalid, got %v", got)
	}
}

func TestClampAtAbsoluteZero(t *testing.T) {
	below := []float32{0, 0.5, 1, 100, 1e6}
	for _, from := range Scales {
		for _, to := range Scales {
			if from == to {
				continue
			}
			for _, d := range below {
				got := Convert(from.AbsoluteZero()-d, byte(from), byte(to))
				if got != to.AbsoluteZero() {
					t.Errorf("%s->%s (%v below zero): wanted %v, got %v", from, to, d, to.AbsoluteZero(), got)
				}
			}
		}
	}
}

func TestRoundTrip(t *testing.T) {
	values := []float32{-200, -40, -1.5, 0, 0.01, 21.5, 37, 100, 1000, 5500}
	for _, from := range Scales {
		for _, to := range Scales {
			if from == to {
				continue
			}
			for _, v := range values {
				if v <= from.AbsoluteZero() {
					continue
				}
				fwd := Convert(v, byte(from), byte(to))
				back := Convert(fwd, byte(to), byte(from))
				if !almostEqual(back, v) {
					t.Errorf("%s->%s->%s(%v): got %v", from, to, from, v, back)
				}
			}
		}
	}
}

func TestConvertIdentity(t *testing.T) {
	values := []float32{-1e6, AbsoluteZeroF, -1, 0, 42, 1e6}
	codes := []byte{'c', 'C', 'f', 'F', 'k', 'K', 'x', '?'}
	for _, c := range codes {
		for _, v := range values {
			if got := Convert(v, c, c); got != v {
				t.Errorf("Convert(%v, %q, %q): wanted %v, got %v", v, c, c, v, got)
			}
		}
	}

	t.Run("MixedCase", func(t *testing.T) {
		var tests = []struct {
			from, to byte
		}{
			{'C', 'c'}, {'c', 'C'}, {'F', 'f'}, {'k', 'K'},
		}
		for _, tt := range tests {
			for _, v := range values {
				if got := Convert(v, tt.from, tt.to); got != v {
					t.Errorf("Convert(%v, %q, %q): wanted %v, got %v", v, tt.from, tt.to, v, got)
				}
			}
		}
	})
}

func TestConvertCaseInsensitive(t *testing.T) {
	var pairs = [][2]byte{
		{'c', 'f'}, {'c', 'k'}, {'f', 'c'}, {'f', 'k'}, {'k', 'c'}, {'k', 'f'},
	}
	values := []float32{-500, -273.15, -40, 0, 25, 300}
	for _, p := range pairs {
		upper := [2]byte{p[0] - 'a' + 'A', p[1] - 'a' + 'A'}
		for _, v := range values {
			lo := Convert(v, p[0], p[1])
			hi := Convert(v, upper[0], upper[1])
			mixed := Convert(v, upper[0], p[1])
			if lo != hi || lo != mixed {
				t.Errorf("%c->%c(%v): lower %v, upper %v, mixed %v", p[0], p[1], v, lo, hi, mixed)
			}
		}
	}
}

func TestConvertInvalid(t *testing.T) {
	var tests = []struct {
		from, to byte
	}{
		{'x', 'c'},
		{'c', 'x'},
		{'r', 'K'},
		{0, 'f'},
		{'F', ' '},
	}
	for _, tt := range tests {
		if got := Convert(42, tt.from, tt.to); got != Invalid {
			t.Errorf("Convert(42, %q, %q): wanted Invalid, got %v", tt.from, tt.to, got)
		}
	}
}

func TestConvertScale(t *testing.T) {
	got, err := ConvertScale(100, Celsius, Fahrenheit)
	if err != nil {
		t.Fatal(err)
	}
	if got != 212 {
		t.Errorf("ConvertScale(100, C, F): wanted 212, got %v", got)
	}

	got, err = ConvertScale(-10, Kelvin, Kelvin)
	if err != nil {
		t.Fatal(err)
	}
	if got != -10 {
		t.Errorf("ConvertScale(-10, K, K): wanted -10, got %v", got)
	}

	got, err = ConvertScale(1, Scale('R'), Celsius)
	if !errors.Is(err, ErrInvalidScale) {
		t.Errorf("ConvertScale(1, R, C): wanted ErrInvalidScale, got %v", err)
	}
	if got != Invalid {
		t.Errorf("ConvertScale(1, R, C): wanted Invalid, got %v", got)
	}

	if _, err = ConvertScale(1, Celsius, 0); !errors.Is(err, ErrInvalidScale) {
		t.Errorf("ConvertScale(1, C, 0): wanted ErrInvalidScale, got %v", err)
	}
}

func TestClamped(t *testing.T) {
	var tests = []struct {
		v    float32
		s    Scale
		want bool
	}{
		{AbsoluteZeroC, Celsius, true},
		{AbsoluteZeroC + 0.5, Celsius, false},
		{-500, Fahrenheit, true},
		{0, Kelvin, true},
		{-1e6, Scale('x'), false},
	}
	for _, tt := range tests {
		if got := Clamped(tt.v, tt.s); got != tt.want {
			t.Errorf("Clamped(%v, %s): wanted %v, got %v", tt.v, tt.s, tt.want, got)
		}
	}
}

func TestInvalidBelowFloors(t *testing.T) {
	for _, s := range Scales {
		if Invalid >= s.AbsoluteZero() {
			t.Errorf("Invalid %v is not below absolute zero of %s", Invalid, s)
		}
	}
}
