// Package seed loads the dungeon lookup table's bootstrap rows from a YAML
// file, for a brand-new deployment that starts with an empty store.
package seed

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cuemby/dmwcoord/pkg/store"
)

// Dungeon is one entry of the seed file.
type Dungeon struct {
	Name      string `yaml:"name"`
	ShortCode string `yaml:"short_code"`
	IsActive  bool   `yaml:"is_active"`
	SortOrder int    `yaml:"sort_order"`
}

type file struct {
	Dungeons []Dungeon `yaml:"dungeons"`
}

// LoadDungeons reads path and inserts every named entry into s via
// AddDungeon. It is a no-op if s already has dungeon rows: the seed file
// only bootstraps an empty deployment, it never overwrites whatever an
// operator has since added or deactivated through the dungeonlist command.
func LoadDungeons(path string, s *store.Store) (int, error) {
	if path == "" || len(s.Dungeons) > 0 {
		return 0, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("seed: read %s: %w", path, err)
	}

	var parsed file
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return 0, fmt.Errorf("seed: parse %s: %w", path, err)
	}

	inserted := 0
	for _, d := range parsed.Dungeons {
		if d.Name == "" {
			continue
		}
		s.AddDungeon(d.Name, d.ShortCode, d.IsActive, d.SortOrder)
		inserted++
	}
	return inserted, nil
}
