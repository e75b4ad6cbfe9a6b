package mapdata

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleMap = `
id: overworld
name: The Overworld
background_color: "#101020"
areas:
  - name: Start
    width: 50
    height: 20
    spawn_pos: {x: 5, y: 10}
    inner_walls:
      - {x: 20, y: 0, width: 2, height: 10}
    enemy_groups:
      - count: 3
        position: {x: 30, y: 10}
        size: 1
        speed: 4
        spread: 2
    portals:
      - rect: {x: 48, y: 8, width: 2, height: 4}
        target: {type: area, order: 1}
        target_x: {kind: from_left, offset: 1}
        target_y: {kind: center}
  - name: Boss Room
    flags: ["boss", "victory"]
`

func TestParseBuildsMapTemplate(t *testing.T) {
	tmpl, err := Parse([]byte(sampleMap))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if tmpl.ID != "overworld" || len(tmpl.Areas) != 2 {
		t.Fatalf("unexpected template: %+v", tmpl)
	}
	start := tmpl.Areas[0]
	if start.Bounds.W != 50 || start.Bounds.H != 20 {
		t.Errorf("unexpected bounds: %+v", start.Bounds)
	}
	if start.SpawnPos.X != 5 || start.SpawnPos.Y != 10 {
		t.Errorf("unexpected spawn pos: %+v", start.SpawnPos)
	}
	if len(start.Walls) != 1 {
		t.Fatalf("expected 1 wall, got %d", len(start.Walls))
	}
	if len(start.EnemyGroups) != 1 || start.EnemyGroups[0].Count != 3 {
		t.Fatalf("unexpected enemy groups: %+v", start.EnemyGroups)
	}
	if len(start.Portals) != 1 {
		t.Fatalf("expected 1 portal, got %d", len(start.Portals))
	}

	boss := tmpl.Areas[1]
	if boss.Name != "Boss Room" || !boss.Flags.Boss || !boss.Flags.Victory {
		t.Errorf("unexpected boss area: %+v", boss)
	}
	// Defaults apply when width/height/spawn_pos are omitted.
	if boss.Bounds.W != defaultWidth || boss.Bounds.H != defaultHeight {
		t.Errorf("expected default bounds, got %+v", boss.Bounds)
	}
}

func TestParseRejectsMissingID(t *testing.T) {
	if _, err := Parse([]byte("name: nope\nareas: []\n")); err == nil {
		t.Fatal("expected error for missing id")
	}
}

func TestLoadDirFiltersByAllowlist(t *testing.T) {
	dir := t.TempDir()
	writeMap := func(name, id string) {
		content := "id: " + id + "\nname: " + id + "\nareas:\n  - {}\n"
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}
	writeMap("a.yaml", "alpha")
	writeMap("b.yaml", "beta")
	writeMap("notes.txt", "ignored") // non-yaml, skipped

	table, err := LoadDir(dir, []string{"alpha"})
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if _, ok := table.Map("alpha"); !ok {
		t.Error("expected alpha registered")
	}
	if _, ok := table.Map("beta"); ok {
		t.Error("expected beta filtered out by allowlist")
	}

	all, err := LoadDir(dir, nil)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(all.Maps()) != 2 {
		t.Errorf("expected both maps with empty allowlist, got %v", all.Maps())
	}
}
