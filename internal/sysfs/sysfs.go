// Package sysfs reads hardware temperature sensors and system identification
// from the sysfs filesystem.
package sysfs

import (
	"bytes"
	"path/filepath"
	"strconv"

	"golang.org/x/sys/unix"
)

// MountPath is where sysfs is mounted.
var MountPath = "/sys"

func classPath(elem ...string) string {
	return filepath.Join(append([]string{MountPath, "class"}, elem...)...)
}

func hwmonClassPath() string   { return classPath("hwmon") }
func thermalClassPath() string { return classPath("thermal") }
func dmiIDPath() string        { return classPath("dmi", "id") }

func coretempPath() string {
	return filepath.Join(MountPath, "devices", "platform", "coretemp.0", "hwmon")
}

func sysRead(name string, b []byte) ([]byte, error) {
	fd, err := unix.Open(name, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, &pathError{"open", name, err}
	}
	n, err := unix.Read(fd, b)
	unix.Close(fd)
	if err != nil {
		return nil, &pathError{"read", name, err}
	}
	return bytes.TrimSpace(b[:n]), nil
}

// ReadInt reads the named sysfs attribute as a decimal integer.
func ReadInt(name string) (int64, error) {
	var buf [24]byte
	b, err := sysRead(name, buf[:])
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(string(b), 10, 64)
}

// ReadString reads the named sysfs attribute with surrounding space trimmed.
func ReadString(name string) (string, error) {
	var buf [128]byte
	b, err := sysRead(name, buf[:])
	if err != nil {
		return "", err
	}
	return string(b), nil
}

type pathError struct {
	op   string
	path string
	err  error
}

func (e *pathError) Error() string { return e.op + " " + e.path + ": " + e.err.Error() }
func (e *pathError) Unwrap() error { return e.err }
