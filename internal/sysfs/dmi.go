package sysfs

import "path/filepath"

func readFirst(names ...string) (s string, err error) {
	for _, name := range names {
		if s, err = ReadString(filepath.Join(dmiIDPath(), name)); err == nil && s != "" {
			return
		}
	}
	return
}

// Product returns the product name of the system, falling back to the board name.
func Product() (string, error) {
	return readFirst("product_name", "board_name")
}

// Vendor returns the vendor of the system, falling back to the board and chassis vendors.
func Vendor() (string, error) {
	return readFirst("sys_vendor", "board_vendor", "chassis_vendor")
}
