package sysfs

import (
	"cmp"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/lone-faerie/thermo/log"
)

// Sensor is a temperature sensor of the hwmon or thermal class. Values are
// read in degrees Celsius.
type Sensor struct {
	// Name is the name of the chip, such as "coretemp", or the thermal zone.
	Name string
	// Label is the label of the sensor, such as "Package id 0".
	Label string
	// Path is the path of the attribute holding the temperature in millidegrees.
	Path string
	// Max is the high or critical temperature in millidegrees, if known.
	Max int64
	// Device is the directory of the hwmon device, such as "hwmon1".
	Device string

	qualified bool
}

// ID returns a string identifying the sensor, made of its name and label.
// When another sensor returned by [Sensors] has the same name and label, the
// device is appended, as in "nvme Composite hwmon1".
func (s *Sensor) ID() string {
	id := s.Name
	if s.Label != "" && s.Label != s.Name {
		id += " " + s.Label
	}
	if s.qualified && s.Device != "" {
		id += " " + s.Device
	}
	return id
}

// Read returns the current temperature of the sensor in degrees Celsius.
func (s *Sensor) Read() (float32, error) {
	v, err := ReadInt(s.Path)
	if err != nil {
		return 0, err
	}
	return milli(v), nil
}

// Critical returns the high or critical temperature in degrees Celsius, or
// zero if the sensor has none.
func (s *Sensor) Critical() float32 {
	return milli(s.Max)
}

func milli(v int64) float32 {
	return float32(v) / 1000
}

func hasTempInput(path string) bool {
	entries, err := os.ReadDir(path)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "temp") && strings.HasSuffix(e.Name(), "_input") {
			return true
		}
	}
	return false
}

// hwmonDirs returns the hwmon device directories with temperature inputs,
// falling back to the coretemp platform device when no hwmon device is coretemp.
func hwmonDirs() ([]string, error) {
	var (
		dirs        []string
		gotCoretemp bool
	)
	entries, err := os.ReadDir(hwmonClassPath())
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		p := filepath.Join(hwmonClassPath(), e.Name())
		if real, err := filepath.EvalSymlinks(p); err == nil {
			p = real
		}
		if strings.Contains(p, "coretemp") {
			gotCoretemp = true
		}
		if hasTempInput(p) {
			dirs = append(dirs, p)
		}
	}
	if gotCoretemp {
		return dirs, nil
	}
	entries, err = os.ReadDir(coretempPath())
	if err != nil {
		return dirs, nil
	}
	for _, e := range entries {
		p := filepath.Join(coretempPath(), e.Name())
		if hasTempInput(p) && !slices.Contains(dirs, p) {
			dirs = append(dirs, p)
		}
	}
	return dirs, nil
}

// HWMonSensors returns the labelled temperature sensors of the hwmon class.
func HWMonSensors() ([]Sensor, error) {
	dirs, err := hwmonDirs()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			err = nil
		}
		return nil, err
	}
	var sensors []Sensor
	for _, dir := range dirs {
		name, err := ReadString(filepath.Join(dir, "name"))
		if err != nil {
			log.Debug("hwmon device has no name", "path", dir)
			continue
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			base, ok := strings.CutSuffix(e.Name(), "_input")
			if !ok || !strings.HasPrefix(base, "temp") {
				continue
			}
			prefix := filepath.Join(dir, base) + "_"
			label, err := ReadString(prefix + "label")
			if err != nil {
				label = base
			}
			max, _ := ReadInt(prefix + "max")
			if crit, _ := ReadInt(prefix + "crit"); crit > max {
				max = crit
			}
			sensors = append(sensors, Sensor{
				Name:   name,
				Label:  label,
				Path:   prefix + "input",
				Max:    max,
				Device: filepath.Base(dir),
			})
		}
	}
	return sensors, nil
}

// ThermalSensors returns the sensors of the thermal zones.
func ThermalSensors() ([]Sensor, error) {
	entries, err := os.ReadDir(thermalClassPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			err = nil
		}
		return nil, err
	}
	var sensors []Sensor
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "thermal_zone") {
			continue
		}
		dir := filepath.Join(thermalClassPath(), e.Name())
		if real, err := filepath.EvalSymlinks(dir); err == nil {
			dir = real
		}
		path := filepath.Join(dir, "temp")
		if _, err := os.Stat(path); err != nil {
			continue
		}
		label, err := ReadString(filepath.Join(dir, "type"))
		if err != nil {
			continue
		}
		var max, crit int64
		for i := 0; ; i++ {
			trip := filepath.Join(dir, "trip_point_"+strconv.Itoa(i)+"_")
			typ, err := ReadString(trip + "type")
			if err != nil {
				break
			}
			var val *int64
			switch typ {
			case "high":
				val = &max
			case "critical":
				val = &crit
			default:
				continue
			}
			if x, err := ReadInt(trip + "temp"); err == nil {
				*val = x
			}
		}
		if crit > max {
			max = crit
		}
		sensors = append(sensors, Sensor{Name: e.Name(), Label: label, Path: path, Max: max})
	}
	return sensors, nil
}

// Sensors returns the sensors of both the hwmon and thermal classes, sorted by
// [Sensor.ID]. Every returned ID is unique.
func Sensors() ([]Sensor, error) {
	hwmon, err := HWMonSensors()
	if err != nil {
		return nil, err
	}
	thermal, err := ThermalSensors()
	if err != nil {
		return nil, err
	}
	sensors := append(hwmon, thermal...)
	qualify(sensors)
	slices.SortFunc(sensors, func(a, b Sensor) int {
		return cmp.Compare(a.ID(), b.ID())
	})
	return sensors, nil
}

// qualify marks the sensors sharing an ID so that their IDs include the device.
func qualify(sensors []Sensor) {
	count := make(map[string]int, len(sensors))
	for i := range sensors {
		count[sensors[i].ID()]++
	}
	for i := range sensors {
		if count[sensors[i].ID()] > 1 {
			sensors[i].qualified = true
		}
	}
}
