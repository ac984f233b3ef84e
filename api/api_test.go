package api_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/lone-faerie/thermo/api"
	"github.com/lone-faerie/thermo/bridge"
	"github.com/lone-faerie/thermo/config"
	"github.com/lone-faerie/thermo/history"
	"github.com/lone-faerie/thermo/mock"
	"github.com/lone-faerie/thermo/temperature"
)

type fakeSensor struct {
	id       string
	value    float32
	critical float32
	err      error
}

func (s fakeSensor) ID() string             { return s.id }
func (s fakeSensor) Read() (float32, error) { return s.value, s.err }
func (s fakeSensor) Critical() float32      { return s.critical }

var testSensors = []bridge.Sensor{
	fakeSensor{id: "coretemp Package id 0", value: 50, critical: 100},
	fakeSensor{id: "acpitz", value: 25},
	fakeSensor{id: "broken", err: errors.New("no such device")},
}

func newServer(t *testing.T, cfg *config.Config, opts ...api.Option) *httptest.Server {
	t.Helper()
	s, err := api.New(cfg, opts...)
	if err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, ts *httptest.Server, path string, v any) int {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if v != nil {
		if err = json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
	}
	return resp.StatusCode
}

func TestConvert(t *testing.T) {
	ts := newServer(t, config.Default(config.WithScale(temperature.Fahrenheit)))

	var tests = []struct {
		query   string
		want    float32
		to      temperature.Scale
		clamped bool
	}{
		{"value=100", 212, temperature.Fahrenheit, false},
		{"value=100&from=c&to=k", 373.15, temperature.Kelvin, false},
		{"value=-500&from=celsius&to=K", 0, temperature.Kelvin, true},
		{"value=32&from=" + url.QueryEscape("°F") + "&to=C", 0, temperature.Celsius, false},
		{"value=-10&from=K&to=K", -10, temperature.Kelvin, false},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			var got api.Conversion
			if code := get(t, ts, "/convert?"+tt.query, &got); code != http.StatusOK {
				t.Fatalf("status: wanted 200, got %d", code)
			}
			if got.Value != tt.want || got.To != tt.to || got.Clamped != tt.clamped {
				t.Errorf("wanted %v %s clamped %v, got %+v", tt.want, tt.to, tt.clamped, got)
			}
			if got.Symbol != tt.to.Symbol() {
				t.Errorf("Symbol: wanted %q, got %q", tt.to.Symbol(), got.Symbol)
			}
		})
	}

	t.Run("Multiple", func(t *testing.T) {
		var got []api.Conversion
		if code := get(t, ts, "/convert?value=0&value=100&to=F", &got); code != http.StatusOK {
			t.Fatalf("status: wanted 200, got %d", code)
		}
		if len(got) != 2 || got[0].Value != 32 || got[1].Value != 212 {
			t.Errorf("got %+v", got)
		}
	})
}

func TestConvertErrors(t *testing.T) {
	ts := newServer(t, config.Default())

	for _, query := range []string{
		"",
		"value=hot",
		"value=NaN",
		"value=1&from=rankine",
		"value=1&to=x",
	} {
		t.Run(query, func(t *testing.T) {
			var got map[string]string
			if code := get(t, ts, "/convert?"+query, &got); code != http.StatusBadRequest {
				t.Errorf("status: wanted 400, got %d", code)
			}
			if got["error"] == "" {
				t.Error("missing error message")
			}
		})
	}
}

func TestConvertPayload(t *testing.T) {
	ts := newServer(t, config.Default())

	var tests = []struct {
		query   string
		payload string
		status  int
		want    float32
	}{
		{"?to=F", "100", http.StatusOK, 212},
		{"?from=K&to=C", `{"value": 0}`, http.StatusOK, -273.15},
		{"?from=K&to=C", `{"value": 212, "unit": "F"}`, http.StatusOK, 100},
		{"?to=K", `{"unit": "C"}`, http.StatusBadRequest, 0},
		{"?to=K", "", http.StatusBadRequest, 0},
		{"", "1", http.StatusOK, 1},
	}
	for _, tt := range tests {
		resp, err := http.Post(ts.URL+"/convert"+tt.query, "application/json", strings.NewReader(tt.payload))
		if err != nil {
			t.Fatal(err)
		}
		var got api.Conversion
		err = json.NewDecoder(resp.Body).Decode(&got)
		resp.Body.Close()
		if err != nil {
			t.Fatal(err)
		}
		if resp.StatusCode != tt.status {
			t.Errorf("%s %q: wanted status %d, got %d", tt.query, tt.payload, tt.status, resp.StatusCode)
			continue
		}
		if tt.status == http.StatusOK && got.Value != tt.want {
			t.Errorf("%s %q: wanted %v, got %v", tt.query, tt.payload, tt.want, got.Value)
		}
	}
}

func TestScales(t *testing.T) {
	ts := newServer(t, config.Default())

	var got []api.Scale
	if code := get(t, ts, "/scales", &got); code != http.StatusOK {
		t.Fatalf("status: wanted 200, got %d", code)
	}
	want := []api.Scale{
		{"celsius", temperature.Celsius, "°C", -273.15},
		{"fahrenheit", temperature.Fahrenheit, "°F", -459.67},
		{"kelvin", temperature.Kelvin, "K", 0},
	}
	if len(got) != len(want) {
		t.Fatalf("wanted %d scales, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("[%d]: wanted %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestSensors(t *testing.T) {
	ts := newServer(t, config.Default(), api.WithSensors(testSensors...))

	var got []api.Reading
	if code := get(t, ts, "/sensors?to=F", &got); code != http.StatusOK {
		t.Fatalf("status: wanted 200, got %d", code)
	}
	if len(got) != 3 {
		t.Fatalf("wanted 3 readings, got %d", len(got))
	}
	if got[0].Value != 122 || got[0].Critical != 212 || got[0].Scale != temperature.Fahrenheit {
		t.Errorf("[0]: got %+v", got[0])
	}
	if got[1].Value != 77 || got[1].Critical != 0 {
		t.Errorf("[1]: got %+v", got[1])
	}
	if got[2].Error == "" {
		t.Errorf("[2]: wanted error, got %+v", got[2])
	}

	var one api.Reading
	if code := get(t, ts, "/sensors/"+url.PathEscape("coretemp Package id 0"), &one); code != http.StatusOK {
		t.Fatalf("status: wanted 200, got %d", code)
	}
	if one.Value != 50 || one.Scale != temperature.Celsius {
		t.Errorf("got %+v", one)
	}

	if code := get(t, ts, "/sensors/broken", nil); code != http.StatusBadGateway {
		t.Errorf("broken: wanted 502, got %d", code)
	}
	if code := get(t, ts, "/sensors/missing", nil); code != http.StatusNotFound {
		t.Errorf("missing: wanted 404, got %d", code)
	}
}

func TestBridge(t *testing.T) {
	cfg := config.Default(config.WithRoutes(
		config.RouteConfig{Topic: "sensors/attic", From: temperature.Celsius, To: temperature.Fahrenheit},
		config.RouteConfig{Topic: "sensors/boiler", From: temperature.Fahrenheit, To: temperature.Kelvin, Throttle: time.Minute},
	))
	client := mock.NewClient(cfg.MQTT.ClientOptions(), nil)
	b, err := bridge.New(cfg, bridge.WithClient(client))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		b.Disconnect()
	})

	ts := newServer(t, cfg, api.WithBridge(b))

	if code := get(t, ts, "/healthz", nil); code != http.StatusServiceUnavailable {
		t.Errorf("healthz before connect: wanted 503, got %d", code)
	}

	if err = b.Connect(ctx); err != nil {
		t.Fatal(err)
	}
	b.Start(ctx)
	if err = <-b.Ready(); err != nil {
		t.Fatal(err)
	}
	client.Deliver("sensors/attic", []byte("100"))
	client.Deliver("sensors/attic", []byte("hot"))

	if code := get(t, ts, "/healthz", nil); code != http.StatusOK {
		t.Errorf("healthz: wanted 200, got %d", code)
	}

	var routes []api.Route
	if code := get(t, ts, "/routes", &routes); code != http.StatusOK {
		t.Fatalf("routes: wanted 200, got %d", code)
	}
	if len(routes) != 2 || routes[0].Topic != "sensors/attic" || routes[1].Throttle != "1m0s" {
		t.Errorf("routes: got %+v", routes)
	}
	if routes[0].Target != "thermo/sensors/attic/fahrenheit" {
		t.Errorf("routes[0].Target: got %q", routes[0].Target)
	}

	deadline := time.Now().Add(2 * time.Second)
	for b.Stats().Converted == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	var stats bridge.Stats
	if code := get(t, ts, "/stats", &stats); code != http.StatusOK {
		t.Fatalf("stats: wanted 200, got %d", code)
	}
	if stats.Converted != 1 || stats.Dropped != 1 {
		t.Errorf("stats: got %+v", stats)
	}

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"thermo_bridge_readings_converted_total 1",
		"thermo_bridge_readings_dropped_total 1",
		"thermo_bridge_routes 2",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics: missing %q", want)
		}
	}
}

func TestNoBridge(t *testing.T) {
	cfg := config.Default()
	cfg.HTTP.Metrics = false
	ts := newServer(t, cfg)

	for _, path := range []string{"/routes", "/stats", "/metrics", "/history"} {
		if code := get(t, ts, path, nil); code != http.StatusNotFound {
			t.Errorf("%s: wanted 404, got %d", path, code)
		}
	}
	if code := get(t, ts, "/healthz", nil); code != http.StatusOK {
		t.Errorf("healthz: wanted 200, got %d", code)
	}
}

func TestListenAndServe(t *testing.T) {
	cfg := config.Default()
	cfg.HTTP.Addr = "127.0.0.1:0"
	s, err := api.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.ListenAndServe(ctx)
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err = <-done:
		if err != nil {
			t.Errorf("ListenAndServe: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for shutdown")
	}
}

func TestHistory(t *testing.T) {
	store, err := history.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	ts := newServer(t, config.Default(), api.WithHistory(store))

	var targets []string
	if code := get(t, ts, "/history", &targets); code != http.StatusOK || len(targets) != 0 {
		t.Errorf("empty: got %d %v", code, targets)
	}

	start := time.Unix(1700000000, 0)
	for i, v := range []float32{20, 21, 22} {
		r := history.Reading{Target: "home/attic/celsius", Value: v, Scale: temperature.Celsius, Time: start.Add(time.Duration(i) * time.Second)}
		if err = store.Record(context.Background(), r); err != nil {
			t.Fatal(err)
		}
	}

	if code := get(t, ts, "/history", &targets); code != http.StatusOK || len(targets) != 1 || targets[0] != "home/attic/celsius" {
		t.Errorf("targets: got %d %v", code, targets)
	}

	var readings []history.Reading
	if code := get(t, ts, "/history?limit=2&target="+url.QueryEscape("home/attic/celsius"), &readings); code != http.StatusOK {
		t.Fatalf("status: wanted 200, got %d", code)
	}
	if len(readings) != 2 || readings[0].Value != 22 || readings[1].Value != 21 {
		t.Errorf("readings: got %+v", readings)
	}
	if !readings[0].Time.Equal(start.Add(2 * time.Second)) {
		t.Errorf("Time: got %v", readings[0].Time)
	}

	if code := get(t, ts, "/history?target=x&limit=-1", nil); code != http.StatusBadRequest {
		t.Errorf("bad limit: wanted 400, got %d", code)
	}
}
