package log

import (
	"bytes"
	"log/slog"
	"testing"
)

var levelNames = []struct {
	in   Level
	want string
}{
	{LevelDisabled, "DISABLED"},
	{LevelDisabled + 1, "DISABLED"},
	{LevelError, slog.LevelError.String()},
	{LevelError + 2, (slog.LevelError + 2).String()},
	{LevelWarn, slog.LevelWarn.String()},
	{LevelWarn - 1, (slog.LevelWarn - 1).String()},
	{LevelInfo, slog.LevelInfo.String()},
	{LevelInfo - 3, (slog.LevelInfo - 3).String()},
	{LevelDebug, slog.LevelDebug.String()},
}

func TestLevelString(t *testing.T) {
	for _, tt := range levelNames {
		got := tt.in.String()
		if got != tt.want {
			t.Errorf("%d: Wanted %s, got %s", tt.in, tt.want, got)
		}
	}
}

func TestLevelMarshal(t *testing.T) {
	for _, tt := range levelNames {
		got, err := tt.in.MarshalText()
		if err != nil {
			t.Fatalf("%s: %v", tt.in, err)
		}
		if string(got) != tt.want {
			t.Errorf("MarshalText %d: Wanted %s, got %s", tt.in, tt.want, got)
		}
		got, err = tt.in.MarshalJSON()
		if err != nil {
			t.Fatalf("%s: %v", tt.in, err)
		}
		if string(got) != "\""+tt.want+"\"" {
			t.Errorf("MarshalJSON %d: Wanted %s, got %s", tt.in, tt.want, got)
		}
	}
}

func TestLevelUnmarshal(t *testing.T) {
	var tests = []struct {
		in   string
		want Level
	}{
		{"DISABLED", LevelDisabled},
		{"DiSaBlE", LevelDisabled},
		{"false", LevelDisabled},
		{"off", LevelDisabled},
		{"ERROR", LevelError},
		{"Error+1", LevelError + 1},
		{"debug", LevelDebug},
	}
	for _, tt := range tests {
		var got Level
		if err := got.UnmarshalText([]byte(tt.in)); err != nil {
			t.Fatalf("%s: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("UnmarshalText %s: Wanted %s, got %s", tt.in, tt.want, got)
		}
		got = 0
		if err := got.UnmarshalJSON([]byte("\"" + tt.in + "\"")); err != nil {
			t.Fatalf("%s: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("UnmarshalJSON %s: Wanted %s, got %s", tt.in, tt.want, got)
		}
	}

	var l Level
	if err := l.UnmarshalText([]byte("loud")); err == nil {
		t.Error("loud: wanted error, got nil")
	}
}

func TestLevelAppendText(t *testing.T) {
	buf := make([]byte, 4, 16)
	want := LevelDisabled
	wantData := []byte("\x00\x00\x00\x00DISABLED")
	data, err := want.AppendText(buf)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, wantData) {
		t.Errorf("%s: Wanted %s, got %s", want, string(wantData), string(data))
	}
}

func TestLevelFlag(t *testing.T) {
	var lf LevelFlag
	if err := lf.Set("warn"); err != nil {
		t.Fatal(err)
	}
	if got := lf.Get(); got != LevelWarn {
		t.Errorf("Get: Wanted %s, got %v", LevelWarn, got)
	}
	if got := lf.String(); got != "WARN" {
		t.Errorf("String: Wanted WARN, got %s", got)
	}
}
