// Package mapdata parses map definition YAML documents (spec.md §6 "Maps on
// disk") into immutable internal/area templates, using gopkg.in/yaml.v3 the
// way dmitrymodder-minewire's main.go decodes its server.yaml.
package mapdata

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"evadearena/internal/area"
	"evadearena/internal/geom"

	"gopkg.in/yaml.v3"
)

const (
	defaultWidth  = 100
	defaultHeight = 15
)

type vec2File struct {
	X float32 `yaml:"x"`
	Y float32 `yaml:"y"`
}

type rectFile struct {
	X      float32 `yaml:"x"`
	Y      float32 `yaml:"y"`
	Width  float32 `yaml:"width"`
	Height float32 `yaml:"height"`
}

type placementFile struct {
	Kind   string  `yaml:"kind"`
	Offset float32 `yaml:"offset"`
}

type targetFile struct {
	Type    string `yaml:"type"` // area | alias | map | previous | next
	MapID   string `yaml:"map_id"`
	Alias   string `yaml:"alias"`
	Order   *uint16 `yaml:"order"`
}

type portalFile struct {
	Rect    rectFile      `yaml:"rect"`
	Color   string        `yaml:"color"`
	Target  targetFile    `yaml:"target"`
	TargetX placementFile `yaml:"target_x"`
	TargetY placementFile `yaml:"target_y"`
}

type enemyGroupFile struct {
	Count    int      `yaml:"count"`
	Position vec2File `yaml:"position"`
	Size     float32  `yaml:"size"`
	Speed    float32  `yaml:"speed"`
	Color    string   `yaml:"color"`
	Spread   float32  `yaml:"spread"`
}

type messageConfigFile struct {
	Color string `yaml:"color"`
}

type areaFile struct {
	Alias           string             `yaml:"alias"`
	Name            string             `yaml:"name"`
	BackgroundColor string             `yaml:"background_color"`
	TextColor       string             `yaml:"text_color"`
	Width           *float32           `yaml:"width"`
	Height          *float32           `yaml:"height"`
	SpawnPos        *vec2File          `yaml:"spawn_pos"`
	InnerWalls      []rectFile         `yaml:"inner_walls"`
	SafeZones       []rectFile         `yaml:"safe_zones"`
	Portals         []portalFile       `yaml:"portals"`
	EnemyGroups     []enemyGroupFile   `yaml:"enemy_groups"`
	Message         string             `yaml:"message"`
	MessageConfig   *messageConfigFile `yaml:"message_config"`
	Flags           []string           `yaml:"flags"`
}

type mapFile struct {
	ID              string     `yaml:"id"`
	Name            string     `yaml:"name"`
	BackgroundColor string     `yaml:"background_color"`
	TextColor       string     `yaml:"text_color"`
	StartArea       uint16     `yaml:"start_area"`
	Areas           []areaFile `yaml:"areas"`
}

// Parse decodes one map YAML document into a compiled area.MapTemplate.
// Unknown YAML fields are ignored (yaml.v3's default unmarshal behavior),
// matching spec.md §6.
func Parse(data []byte) (*area.MapTemplate, error) {
	var doc mapFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("mapdata: parse: %w", err)
	}
	if doc.ID == "" {
		return nil, fmt.Errorf("mapdata: map is missing required field \"id\"")
	}
	if len(doc.Areas) == 0 {
		return nil, fmt.Errorf("mapdata: map %q has no areas", doc.ID)
	}

	background, err := optionalColor(doc.BackgroundColor, geom.Color{A: 255})
	if err != nil {
		return nil, fmt.Errorf("mapdata: map %q: %w", doc.ID, err)
	}
	textColor, err := optionalColorPtr(doc.TextColor)
	if err != nil {
		return nil, fmt.Errorf("mapdata: map %q: %w", doc.ID, err)
	}

	areas := make([]area.Template, 0, len(doc.Areas))
	for i, af := range doc.Areas {
		tmpl, err := convertArea(doc.ID, doc.Name, uint16(i), af)
		if err != nil {
			return nil, fmt.Errorf("mapdata: map %q area %d: %w", doc.ID, i, err)
		}
		areas = append(areas, tmpl)
	}

	return area.NewMapTemplate(doc.ID, doc.Name, background, textColor, areas, doc.StartArea)
}

func convertArea(mapID, mapName string, order uint16, af areaFile) (area.Template, error) {
	width := float32(defaultWidth)
	if af.Width != nil {
		width = *af.Width
	}
	height := float32(defaultHeight)
	if af.Height != nil {
		height = *af.Height
	}
	bounds, err := geom.NewRect(0, 0, width, height)
	if err != nil {
		return area.Template{}, err
	}

	spawn := geom.Vec2{X: 5, Y: height / 2}
	if af.SpawnPos != nil {
		spawn = geom.Vec2{X: af.SpawnPos.X, Y: af.SpawnPos.Y}
	}

	name := af.Name
	if name == "" {
		name = fmt.Sprintf("Area %d", order)
	}

	background, err := optionalColor(af.BackgroundColor, geom.Color{A: 255})
	if err != nil {
		return area.Template{}, err
	}
	textColor, err := optionalColorPtr(af.TextColor)
	if err != nil {
		return area.Template{}, err
	}

	walls := make([]geom.Rect, 0, len(af.InnerWalls))
	for _, w := range af.InnerWalls {
		r, err := geom.NewRect(w.X, w.Y, w.Width, w.Height)
		if err != nil {
			return area.Template{}, fmt.Errorf("inner_walls: %w", err)
		}
		walls = append(walls, r)
	}
	safeZones := make([]geom.Rect, 0, len(af.SafeZones))
	for _, s := range af.SafeZones {
		r, err := geom.NewRect(s.X, s.Y, s.Width, s.Height)
		if err != nil {
			return area.Template{}, fmt.Errorf("safe_zones: %w", err)
		}
		safeZones = append(safeZones, r)
	}

	portals := make([]area.Portal, 0, len(af.Portals))
	for i, pf := range af.Portals {
		p, err := convertPortal(pf)
		if err != nil {
			return area.Template{}, fmt.Errorf("portals[%d]: %w", i, err)
		}
		portals = append(portals, p)
	}

	groups := make([]area.EnemyGroup, 0, len(af.EnemyGroups))
	for i, gf := range af.EnemyGroups {
		color, err := optionalColor(gf.Color, geom.Color{R: 200, G: 30, B: 30, A: 255})
		if err != nil {
			return area.Template{}, fmt.Errorf("enemy_groups[%d]: %w", i, err)
		}
		groups = append(groups, area.EnemyGroup{
			Count:    gf.Count,
			Position: geom.Vec2{X: gf.Position.X, Y: gf.Position.Y},
			Size:     gf.Size,
			Speed:    gf.Speed,
			Color:    color,
			Spread:   gf.Spread,
		})
	}

	flags := area.Flags{}
	for _, f := range af.Flags {
		switch strings.ToLower(f) {
		case "boss":
			flags.Boss = true
		case "victory":
			flags.Victory = true
		case "final_victory":
			flags.FinalVictory = true
		}
	}

	var message *area.Message
	if af.Message != "" {
		msgColor := geom.Color{R: 255, G: 255, B: 255, A: 255}
		if af.MessageConfig != nil && af.MessageConfig.Color != "" {
			c, err := geom.ParseColor(af.MessageConfig.Color)
			if err != nil {
				return area.Template{}, fmt.Errorf("message_config.color: %w", err)
			}
			msgColor = c
		}
		message = &area.Message{Text: af.Message, Color: msgColor}
	}

	return area.Template{
		Key:         area.Key{MapID: mapID, Order: order},
		Alias:       af.Alias,
		Name:        name,
		MapName:     mapName,
		Background:  background,
		TextColor:   textColor,
		Message:     message,
		Bounds:      bounds,
		SpawnPos:    spawn,
		Walls:       walls,
		SafeZones:   safeZones,
		Portals:     portals,
		EnemyGroups: groups,
		Flags:       flags,
	}, nil
}

func convertPortal(pf portalFile) (area.Portal, error) {
	rect, err := geom.NewRect(pf.Rect.X, pf.Rect.Y, pf.Rect.Width, pf.Rect.Height)
	if err != nil {
		return area.Portal{}, err
	}
	target, err := convertTarget(pf.Target)
	if err != nil {
		return area.Portal{}, err
	}
	color := area.DefaultPortalColor(target.Kind)
	if pf.Color != "" {
		c, err := geom.ParseColor(pf.Color)
		if err != nil {
			return area.Portal{}, fmt.Errorf("color: %w", err)
		}
		color = c
	}
	return area.Portal{
		Rect:    rect,
		Color:   color,
		Target:  target,
		TargetX: convertPlacement(pf.TargetX),
		TargetY: convertPlacement(pf.TargetY),
	}, nil
}

func convertTarget(tf targetFile) (area.Target, error) {
	switch strings.ToLower(tf.Type) {
	case "", "previous":
		return area.Target{Kind: area.TargetPrevious}, nil
	case "next":
		return area.Target{Kind: area.TargetNext}, nil
	case "alias":
		return area.Target{Kind: area.TargetAlias, Alias: tf.Alias}, nil
	case "map":
		return area.Target{Kind: area.TargetMap, MapID: tf.MapID}, nil
	case "area":
		if tf.Order == nil {
			return area.Target{}, fmt.Errorf("target type \"area\" requires an order")
		}
		mapID := tf.MapID
		return area.Target{Kind: area.TargetAreaKey, Area: area.Key{MapID: mapID, Order: *tf.Order}}, nil
	default:
		return area.Target{}, fmt.Errorf("unknown portal target type %q", tf.Type)
	}
}

func convertPlacement(pf placementFile) area.Placement {
	switch strings.ToLower(pf.Kind) {
	case "from_left":
		return area.Placement{Kind: area.PlacementFromLeft, Offset: pf.Offset}
	case "from_right":
		return area.Placement{Kind: area.PlacementFromRight, Offset: pf.Offset}
	case "from_bottom":
		return area.Placement{Kind: area.PlacementFromBottom, Offset: pf.Offset}
	case "from_top":
		return area.Placement{Kind: area.PlacementFromTop, Offset: pf.Offset}
	case "keep_player":
		return area.Placement{Kind: area.PlacementKeepPlayer}
	case "center", "":
		return area.Placement{Kind: area.PlacementCenter}
	default:
		return area.Placement{Kind: area.PlacementCenter}
	}
}

func optionalColor(s string, fallback geom.Color) (geom.Color, error) {
	if s == "" {
		return fallback, nil
	}
	return geom.ParseColor(s)
}

func optionalColorPtr(s string) (*geom.Color, error) {
	if s == "" {
		return nil, nil
	}
	c, err := geom.ParseColor(s)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadDir parses every *.yaml/*.yml file directly under dir into map
// templates, registers them into a fresh area.MapTable, and filters the
// result by allowlist (spec.md §6 "maps.maps (allowlist or empty=all)"). An
// empty allowlist registers every parsed map.
func LoadDir(dir string, allowlist []string) (*area.MapTable, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("mapdata: read dir %q: %w", dir, err)
	}
	allowed := make(map[string]bool, len(allowlist))
	for _, id := range allowlist {
		allowed[id] = true
	}

	table := area.NewMapTable()
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("mapdata: read %q: %w", path, err)
		}
		tmpl, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("mapdata: %s: %w", path, err)
		}
		if len(allowed) > 0 && !allowed[tmpl.ID] {
			continue
		}
		table.Register(tmpl)
	}
	return table, nil
}
