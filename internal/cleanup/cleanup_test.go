package cleanup

import (
	"slices"
	"testing"
)

func TestCleanup(t *testing.T) {
	var order []int
	Register(func() { order = append(order, 1) })
	Register(func() { order = append(order, 2) })
	Cleanup()
	if want := []int{2, 1}; !slices.Equal(order, want) {
		t.Errorf("wanted %v, got %v", want, order)
	}
	Cleanup()
	if len(order) != 2 {
		t.Errorf("second Cleanup ran %d functions", len(order)-2)
	}
}
