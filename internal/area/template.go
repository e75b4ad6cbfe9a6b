package area

import (
	"fmt"

	"evadearena/internal/geom"
)

// Flags are the area-level boolean flags spec.md §3 lists.
type Flags struct {
	Boss          bool
	Victory       bool
	FinalVictory  bool
}

// EnemyGroup is one group of identical enemies spawned when an Area is
// created from its Template.
type EnemyGroup struct {
	Count    int
	Position geom.Vec2
	Size     float32
	Speed    float32
	Color    geom.Color
	// Spread is the radius around Position within which each enemy in the
	// group is placed, so a group of N doesn't all spawn on one point.
	Spread float32
}

// Message is an optional area banner/announcement shown to arriving heroes.
type Message struct {
	Text  string
	Color geom.Color
}

// Template is an immutable blueprint for one area, built once from parsed
// map data at startup (spec.md §3). Areas (runtime) are instantiated from a
// Template lazily, on first reference.
type Template struct {
	Key             Key
	Alias           string // optional
	Name            string
	MapName         string
	Background      geom.Color
	TextColor       *geom.Color // optional
	Message         *Message    // optional
	Bounds          geom.Rect
	SpawnPos        geom.Vec2
	Walls           []geom.Rect
	SafeZones       []geom.Rect
	Portals         []Portal
	EnemyGroups     []EnemyGroup
	Flags           Flags
}

// MapTemplate is the compiled, immutable definition of one map: its ordered
// areas, an alias table, and the configured start area (spec.md §3).
type MapTemplate struct {
	ID         string
	Name       string
	Background geom.Color
	TextColor  *geom.Color
	Areas      []Template   // index == Order, contiguous 0..N-1
	aliasOrder map[string]uint16
	startOrder uint16
}

// NewMapTemplate validates and builds a MapTemplate from ordered areas
// (index i must have Key.Order == i) and an explicit start order (0 if the
// map file left it unset). Aliases must be unique within the map.
func NewMapTemplate(id, name string, background geom.Color, textColor *geom.Color, areas []Template, startOrder uint16) (*MapTemplate, error) {
	if len(areas) == 0 {
		return nil, fmt.Errorf("area: map %q has no areas", id)
	}
	aliasOrder := make(map[string]uint16, len(areas))
	for i, a := range areas {
		if a.Key.Order != uint16(i) {
			return nil, fmt.Errorf("area: map %q area orders must be contiguous 0..N-1, area %d has order %d", id, i, a.Key.Order)
		}
		if a.Alias == "" {
			continue
		}
		if _, dup := aliasOrder[a.Alias]; dup {
			return nil, fmt.Errorf("area: map %q has duplicate alias %q", id, a.Alias)
		}
		aliasOrder[a.Alias] = a.Key.Order
	}
	if int(startOrder) >= len(areas) {
		return nil, fmt.Errorf("area: map %q start area order %d out of range", id, startOrder)
	}
	for i := range areas {
		if err := resolveRelativePortals(id, uint16(i), len(areas), areas[i].Portals); err != nil {
			return nil, err
		}
	}
	return &MapTemplate{
		ID:         id,
		Name:       name,
		Background: background,
		TextColor:  textColor,
		Areas:      areas,
		aliasOrder: aliasOrder,
		startOrder: startOrder,
	}, nil
}

// resolveRelativePortals rewrites TargetPrevious/TargetNext portal targets
// in place into concrete TargetAreaKey values, relative to the portal's own
// area order (spec.md §3: "Previous/Next are resolved at template build
// time").
func resolveRelativePortals(mapID string, order uint16, numAreas int, portals []Portal) error {
	for i := range portals {
		var delta int
		switch portals[i].Target.Kind {
		case TargetPrevious:
			delta = -1
		case TargetNext:
			delta = 1
		default:
			continue
		}
		newOrder := int(order) + delta
		if newOrder < 0 || newOrder >= numAreas {
			return fmt.Errorf("area: map %q area %d portal target out of range (order %d)", mapID, order, newOrder)
		}
		portals[i].Target = Target{Kind: TargetAreaKey, Area: Key{MapID: mapID, Order: uint16(newOrder)}}
	}
	return nil
}

// StartKey returns the map's configured start area key.
func (m *MapTemplate) StartKey() Key {
	return Key{MapID: m.ID, Order: m.startOrder}
}

// AreaByOrder returns the template at the given order.
func (m *MapTemplate) AreaByOrder(order uint16) (*Template, bool) {
	if int(order) >= len(m.Areas) {
		return nil, false
	}
	return &m.Areas[order], true
}

// AreaByAlias resolves an alias to its template, if the map defines one.
func (m *MapTemplate) AreaByAlias(alias string) (*Template, bool) {
	order, ok := m.aliasOrder[alias]
	if !ok {
		return nil, false
	}
	return m.AreaByOrder(order)
}
