package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Trigger names accepted in a sector's print_on list.
const (
	PrintOnSubmit = "submit"
	PrintOnReady  = "ready"
)

// Sector is a preparation station (kitchen, bar) and the printer that receives its tickets.
type Sector struct {
	ID      string   `yaml:"id" json:"id"`
	Name    string   `yaml:"name" json:"name"`
	Printer string   `yaml:"printer" json:"printer,omitempty"` // host:port, raw 9100
	PrintOn []string `yaml:"print_on" json:"print_on,omitempty"`
}

func (s Sector) Prints(trigger string) bool {
	for _, t := range s.PrintOn {
		if t == trigger {
			return true
		}
	}
	return false
}

type Sectors []Sector

func (ss Sectors) Find(id string) (Sector, bool) {
	for _, s := range ss {
		if s.ID == id {
			return s, true
		}
	}
	return Sector{}, false
}

type sectorsFile struct {
	Sectors Sectors `yaml:"sectors"`
}

// LoadSectors reads the sectors YAML file. A missing file yields an empty list.
func LoadSectors(path string) (Sectors, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return ParseSectors(b)
}

func ParseSectors(b []byte) (Sectors, error) {
	var f sectorsFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("decode sectors: %w", err)
	}
	seen := map[string]bool{}
	for i, s := range f.Sectors {
		if s.ID == "" {
			return nil, fmt.Errorf("sector #%d: missing id", i)
		}
		if seen[s.ID] {
			return nil, fmt.Errorf("sector %q declared twice", s.ID)
		}
		seen[s.ID] = true
		if len(s.PrintOn) == 0 {
			f.Sectors[i].PrintOn = []string{PrintOnSubmit}
		}
	}
	return f.Sectors, nil
}
