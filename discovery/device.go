package discovery

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"os"
	"slices"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/lone-faerie/thermo/internal/sysfs"
)

// Device implements the device mapping for the discovery payload. This ties components
// together in Home Assistant's device registry.
type Device struct {
	Identifiers  []string `json:"ids,omitempty"`
	Manufacturer string   `json:"mf,omitempty"`
	Model        string   `json:"mdl,omitempty"`
	Name         string   `json:"name,omitempty"`
	SWVersion    string   `json:"sw,omitempty"`
}

var defaultHostnames = []string{
	"localhost",
	"debian",
}

var machineIDFiles = []string{
	"/etc/machine-id",
	"/var/lib/dbus/machine-id",
}

var errNoIdentifier = errors.New("no device identifier")

var title = cases.Title(language.English)

// Title returns s in title case, such as "Attic Temperature".
func Title(s string) string {
	return title.String(s)
}

func machineID() ([]byte, error) {
	for _, name := range machineIDFiles {
		if b, err := os.ReadFile(name); err == nil {
			if b = bytes.TrimSpace(b); len(b) > 0 {
				return b, nil
			}
		}
	}
	return nil, errNoIdentifier
}

// NewDevice returns a new Device with an identifier equal to the sha256 sum of
// the machine id, encoded in base64. If there is no machine id, the hostname
// is used instead. The model and manufacturer are those of the host, if known.
func NewDevice() (*Device, error) {
	d := &Device{Model: "Temperature converter"}
	if model, err := sysfs.Product(); err == nil && model != "" {
		d.Model = model
	}
	if vendor, err := sysfs.Vendor(); err == nil {
		d.Manufacturer = vendor
	}

	hostname, _ := os.Hostname()

	id, err := machineID()
	if err != nil {
		if hostname == "" {
			return nil, err
		}
		id = []byte(hostname)
	}
	sum := sha256.Sum256(id)
	d.Identifiers = []string{base64.RawURLEncoding.EncodeToString(sum[:12])}

	if hostname != "" && !slices.Contains(defaultHostnames, hostname) {
		d.Name = Title(hostname)
	}

	return d, nil
}
