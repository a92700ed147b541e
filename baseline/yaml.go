package baseline

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// yamlDocument is the on-disk shape accepted by LoadFile: a name and a
// map of interface name to max version. This has no original-source
// equivalent -- baselines there are compiled in -- and supplements the
// spec's Baseline concept with a config surface for operators who want
// to pin or trim a baseline without a new module release.
type yamlDocument struct {
	Name     string            `yaml:"name"`
	Versions map[string]uint32 `yaml:"versions"`
}

// LoadFile reads a YAML baseline override from path. Every interface
// it names must already be known to ALL_OF_THEM (i.e. registered by
// the protocol package); naming an unknown interface is an error
// rather than silently advertising a global this build can't actually
// implement.
func LoadFile(path string) (Baseline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Baseline{}, fmt.Errorf("baseline: could not read %s: %w", path, err)
	}
	var doc yamlDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Baseline{}, fmt.Errorf("baseline: could not parse %s: %w", path, err)
	}
	if doc.Name == "" {
		doc.Name = path
	}
	for iface, version := range doc.Versions {
		max, known := allOfThemVersions[iface]
		if !known {
			return Baseline{}, fmt.Errorf("baseline: %s: unknown interface %q", path, iface)
		}
		if version > max {
			return Baseline{}, fmt.Errorf("baseline: %s: %s version %d exceeds the highest supported version %d", path, iface, version, max)
		}
	}
	return Baseline{name: doc.Name, versions: doc.Versions}, nil
}
