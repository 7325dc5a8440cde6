package migration

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed sql/*.sql
var embedded embed.FS

// Embedded returns the migrations compiled into the binary, ordered by version.
func Embedded() ([]Migration, error) {
	return Load(embedded, "sql")
}

// Load reads {version}_{name}.{up|down}.sql pairs from dir in fsys.
// Files that don't follow the naming scheme are ignored, as are versions
// missing either direction. The result is ordered by version.
func Load(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	type pair struct {
		name     string
		upPath   string
		downPath string
	}
	byVersion := make(map[string]*pair)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		fileName := entry.Name()
		version, rest, ok := strings.Cut(fileName, "_")
		if !ok || version == "" {
			continue
		}

		var name, direction string
		if before, found := strings.CutSuffix(rest, ".up.sql"); found {
			name, direction = before, "up"
		} else if before, found := strings.CutSuffix(rest, ".down.sql"); found {
			name, direction = before, "down"
		} else {
			continue
		}

		p, exists := byVersion[version]
		if !exists {
			p = &pair{name: name}
			byVersion[version] = p
		} else if p.name != name {
			return nil, fmt.Errorf("migration %s has conflicting names %q and %q", version, p.name, name)
		}

		if direction == "up" {
			p.upPath = path.Join(dir, fileName)
		} else {
			p.downPath = path.Join(dir, fileName)
		}
	}

	migrations := make([]Migration, 0, len(byVersion))
	for version, p := range byVersion {
		if p.upPath == "" || p.downPath == "" {
			continue
		}

		upSQL, err := fs.ReadFile(fsys, p.upPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read up migration: %w", err)
		}
		downSQL, err := fs.ReadFile(fsys, p.downPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read down migration: %w", err)
		}

		migrations = append(migrations, Migration{
			Version: version,
			Name:    p.name,
			UpSQL:   string(upSQL),
			DownSQL: string(downSQL),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return migrations, nil
}
