// Package area implements the area simulation engine: immutable area/map
// templates, the process-wide map table, the live area runtime, the fixed
// tick-order systems, and the render packet codec (spec.md §2-4.1, §4.5).
package area

import "fmt"

// Key is the stable identifier of one area instance: a map ID plus the
// area's order within that map.
type Key struct {
	MapID string
	Order uint16
}

// String renders the key as "map_id:order".
func (k Key) String() string {
	return fmt.Sprintf("%s:%d", k.MapID, k.Order)
}
