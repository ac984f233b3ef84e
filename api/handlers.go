package api

import (
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi"
	"github.com/goccy/go-json"

	"github.com/lone-faerie/thermo/bridge"
	"github.com/lone-faerie/thermo/config"
	"github.com/lone-faerie/thermo/history"
	"github.com/lone-faerie/thermo/log"
	"github.com/lone-faerie/thermo/temperature"
)

// maxPayload is the largest body accepted by POST /convert.
const maxPayload = 4 << 10

// Scale describes a temperature scale.
type Scale struct {
	Name         string            `json:"name"`
	Code         temperature.Scale `json:"code"`
	Symbol       string            `json:"symbol"`
	AbsoluteZero float32           `json:"absolute_zero"`
}

// Conversion is the result of a conversion.
type Conversion struct {
	Input   float32           `json:"input"`
	From    temperature.Scale `json:"from"`
	Value   float32           `json:"value"`
	To      temperature.Scale `json:"to"`
	Symbol  string            `json:"symbol"`
	Clamped bool              `json:"clamped"`
}

// Reading is the current temperature of a sensor.
type Reading struct {
	ID       string            `json:"id"`
	Value    float32           `json:"value"`
	Scale    temperature.Scale `json:"scale"`
	Critical float32           `json:"critical,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// Route is a route of the bridge.
type Route struct {
	Name     string            `json:"name"`
	Topic    string            `json:"topic"`
	From     temperature.Scale `json:"from"`
	To       temperature.Scale `json:"to"`
	Target   string            `json:"target"`
	Retained bool              `json:"retained"`
	QoS      byte              `json:"qos"`
	Throttle string            `json:"throttle,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// criticaler is implemented by sensors with a known high or critical temperature.
type criticaler interface {
	Critical() float32
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WarnError("Unable to write response", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{err.Error()})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if s.bridge != nil && !s.bridge.Connected() {
		http.Error(w, "not connected", http.StatusServiceUnavailable)
		return
	}
	w.Write([]byte("ok\n"))
}

func (s *Server) listScales(w http.ResponseWriter, r *http.Request) {
	scales := make([]Scale, len(temperature.Scales))
	for i, sc := range temperature.Scales {
		scales[i] = Scale{
			Name:         sc.String(),
			Code:         sc,
			Symbol:       sc.Symbol(),
			AbsoluteZero: sc.AbsoluteZero(),
		}
	}
	writeJSON(w, http.StatusOK, scales)
}

// scaleParam returns the scale named by the query parameter key, or def if it is not set.
func scaleParam(r *http.Request, key string, def temperature.Scale) (temperature.Scale, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	sc, err := temperature.ParseScaleString(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return sc, nil
}

func (s *Server) conversion(v float32, from, to temperature.Scale) (Conversion, error) {
	out, err := temperature.ConvertScale(v, from, to)
	if err != nil {
		return Conversion{}, err
	}
	return Conversion{
		Input:   v,
		From:    from,
		Value:   out,
		To:      to,
		Symbol:  to.Symbol(),
		Clamped: from != to && temperature.Clamped(v, from),
	}, nil
}

// convert handles GET /convert?value=V&from=C&to=F. The value parameter may be
// repeated, in which case an array of conversions is returned.
func (s *Server) convert(w http.ResponseWriter, r *http.Request) {
	from, err := scaleParam(r, "from", temperature.Celsius)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	to, err := scaleParam(r, "to", s.scale)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	values := r.URL.Query()["value"]
	if len(values) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("value: missing"))
		return
	}

	results := make([]Conversion, 0, len(values))
	for _, arg := range values {
		f, err := strconv.ParseFloat(strings.TrimSpace(arg), 32)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			writeError(w, http.StatusBadRequest, fmt.Errorf("value: invalid number %q", arg))
			return
		}
		c, err := s.conversion(float32(f), from, to)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		results = append(results, c)
	}

	if len(results) == 1 {
		writeJSON(w, http.StatusOK, results[0])
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// convertPayload handles POST /convert?from=C&to=F where the body is a reading
// in any format accepted by the bridge.
func (s *Server) convertPayload(w http.ResponseWriter, r *http.Request) {
	from, err := scaleParam(r, "from", temperature.Celsius)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	to, err := scaleParam(r, "to", s.scale)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayload))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err)
		return
	}
	v, unit, err := bridge.ParsePayload(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if unit != 0 {
		from = unit
	}

	c, err := s.conversion(v, from, to)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) reading(sensor bridge.Sensor, to temperature.Scale) Reading {
	rd := Reading{ID: sensor.ID(), Scale: to}
	c, err := sensor.Read()
	if err != nil {
		rd.Error = err.Error()
		return rd
	}
	rd.Value = temperature.Convert(c, byte(temperature.Celsius), byte(to))
	if cr, ok := sensor.(criticaler); ok && cr.Critical() > 0 {
		rd.Critical = temperature.Convert(cr.Critical(), byte(temperature.Celsius), byte(to))
	}
	return rd
}

func (s *Server) listSensors(w http.ResponseWriter, r *http.Request) {
	to, err := scaleParam(r, "to", s.scale)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	readings := make([]Reading, 0, len(s.sensors))
	for _, sensor := range s.sensors {
		readings = append(readings, s.reading(sensor, to))
	}
	writeJSON(w, http.StatusOK, readings)
}

func (s *Server) getSensor(w http.ResponseWriter, r *http.Request) {
	to, err := scaleParam(r, "to", s.scale)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	id := chi.URLParam(r, "id")
	for _, sensor := range s.sensors {
		if sensor.ID() != id {
			continue
		}
		rd := s.reading(sensor, to)
		if rd.Error != "" {
			writeJSON(w, http.StatusBadGateway, rd)
			return
		}
		writeJSON(w, http.StatusOK, rd)
		return
	}
	writeError(w, http.StatusNotFound, fmt.Errorf("sensor not found: %q", id))
}

func routeJSON(r *config.RouteConfig) Route {
	out := Route{
		Name:     r.Name,
		Topic:    r.Topic,
		From:     r.From,
		To:       r.To,
		Target:   r.Target,
		Retained: r.Retained,
		QoS:      r.QoS,
	}
	if r.Throttle > 0 {
		out.Throttle = r.Throttle.String()
	}
	return out
}

func (s *Server) listRoutes(w http.ResponseWriter, r *http.Request) {
	cfgs := s.bridge.Routes()
	slices.SortFunc(cfgs, func(a, b config.RouteConfig) int {
		return strings.Compare(a.Topic, b.Topic)
	})
	routes := make([]Route, len(cfgs))
	for i := range cfgs {
		routes[i] = routeJSON(&cfgs[i])
	}
	writeJSON(w, http.StatusOK, routes)
}

// listHistory handles GET /history?target=T&limit=N. Without a target, the
// targets with stored readings are listed.
func (s *Server) listHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	target := q.Get("target")
	if target == "" {
		targets, err := s.history.Targets(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if targets == nil {
			targets = []string{}
		}
		writeJSON(w, http.StatusOK, targets)
		return
	}

	var limit int
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("limit: invalid number %q", v))
			return
		}
		limit = n
	}

	readings, err := s.history.Recent(r.Context(), target, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if readings == nil {
		readings = []history.Reading{}
	}
	writeJSON(w, http.StatusOK, readings)
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.bridge.Stats())
}
