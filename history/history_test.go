package history_test

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/lone-faerie/thermo/history"
	"github.com/lone-faerie/thermo/temperature"
)

func openStore(t *testing.T) *history.Store {
	t.Helper()
	s, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordRecent(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	start := time.Unix(1700000000, 0)

	for i, v := range []float32{32, 50, 212} {
		r := history.Reading{
			Target: "thermo/sensors/attic/fahrenheit",
			Value:  v,
			Scale:  temperature.Fahrenheit,
			Time:   start.Add(time.Duration(i) * time.Minute),
		}
		if err := s.Record(ctx, r); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Record(ctx, history.Reading{Target: "thermo/sensors/cryostat/kelvin", Value: 4.2, Scale: temperature.Kelvin}); err != nil {
		t.Fatal(err)
	}

	got, err := s.Recent(ctx, "thermo/sensors/attic/fahrenheit", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("wanted 2 readings, got %d", len(got))
	}
	if got[0].Value != 212 || got[1].Value != 50 {
		t.Errorf("wanted newest first [212 50], got [%v %v]", got[0].Value, got[1].Value)
	}
	if got[0].Scale != temperature.Fahrenheit || !got[0].Time.Equal(start.Add(2*time.Minute)) {
		t.Errorf("got %+v", got[0])
	}

	kelvin, err := s.Recent(ctx, "thermo/sensors/cryostat/kelvin", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(kelvin) != 1 || kelvin[0].Value != 4.2 || kelvin[0].Time.IsZero() {
		t.Errorf("cryostat: got %+v", kelvin)
	}

	targets, err := s.Targets(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"thermo/sensors/attic/fahrenheit", "thermo/sensors/cryostat/kelvin"}
	if !slices.Equal(targets, want) {
		t.Errorf("Targets: wanted %v, got %v", want, targets)
	}

	if none, err := s.Recent(ctx, "missing", 10); err != nil || len(none) != 0 {
		t.Errorf("missing: wanted no readings, got %v, %v", none, err)
	}
}

func TestRecordInvalidScale(t *testing.T) {
	s := openStore(t)
	err := s.Record(context.Background(), history.Reading{Target: "a", Value: 1, Scale: 'R'})
	if !errors.Is(err, temperature.ErrInvalidScale) {
		t.Errorf("wanted ErrInvalidScale, got %v", err)
	}
}

func TestPrune(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	now := time.Now()

	for _, age := range []time.Duration{48 * time.Hour, 25 * time.Hour, time.Hour, 0} {
		r := history.Reading{Target: "t", Value: 1, Scale: temperature.Celsius, Time: now.Add(-age)}
		if err := s.Record(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	n, err := s.Prune(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("Prune: wanted 2 deleted, got %d", n)
	}
	left, err := s.Recent(ctx, "t", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(left) != 2 {
		t.Errorf("wanted 2 readings left, got %d", len(left))
	}
}

func TestRetain(t *testing.T) {
	s := openStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	old := history.Reading{Target: "t", Value: 1, Scale: temperature.Celsius, Time: time.Now().Add(-time.Hour)}
	if err := s.Record(ctx, old); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Retain(ctx, time.Minute, 10*time.Millisecond)
	}()

	deadline := time.After(2 * time.Second)
	for {
		left, err := s.Recent(ctx, "t", 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(left) == 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for prune")
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()
	<-done
}

func TestOpenMemory(t *testing.T) {
	s, err := history.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if err = s.Record(context.Background(), history.Reading{Target: "t", Value: -40, Scale: temperature.Celsius}); err != nil {
		t.Fatal(err)
	}
	got, err := s.Recent(context.Background(), "t", 1)
	if err != nil || len(got) != 1 || got[0].Value != -40 {
		t.Errorf("got %v, %v", got, err)
	}
}
