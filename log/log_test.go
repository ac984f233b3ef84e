package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

func TestSetJSONHandler(t *testing.T) {
	saved := defaultLogger.Logger
	t.Cleanup(func() {
		defaultLogger.Logger = saved
		SetLogLevel(LevelInfo)
	})

	var buf bytes.Buffer
	SetLogLevel(LevelWarn)
	SetJSONHandler(&buf)

	Info("dropped")
	WarnError("Bad payload", errors.New("not a number"), "topic", "sensors/room")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("%q: %v", buf.String(), err)
	}
	if rec["msg"] != "Bad payload" {
		t.Errorf("msg: wanted %q, got %v", "Bad payload", rec["msg"])
	}
	if rec["cause"] != "not a number" {
		t.Errorf("cause: wanted %q, got %v", "not a number", rec["cause"])
	}
	if rec["topic"] != "sensors/room" {
		t.Errorf("topic: wanted %q, got %v", "sensors/room", rec["topic"])
	}
	if got := GetLogLevel(); got != LevelWarn {
		t.Errorf("GetLogLevel: wanted %s, got %s", LevelWarn, got)
	}
}

func TestWarnLogger(t *testing.T) {
	saved := defaultLogger.Logger
	t.Cleanup(func() { defaultLogger.Logger = saved })

	var buf bytes.Buffer
	SetTextHandler(&buf)

	WarnLogger().Printf("reconnecting to %s", "tcp://localhost:1883")
	if !bytes.Contains(buf.Bytes(), []byte("level=WARN")) {
		t.Errorf("wanted WARN record, got %q", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte("tcp://localhost:1883")) {
		t.Errorf("wanted broker in record, got %q", buf.String())
	}
}
