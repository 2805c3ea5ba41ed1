package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dreschagin/limit-monitor/internal/domain/entity"
	"github.com/dreschagin/limit-monitor/internal/domain/valueobject"
)

// EngineFile is the externally supplied engine configuration:
// the measurement denylist and the per-measurement validity-interval table.
type EngineFile struct {
	Denylist []string                          `yaml:"denylist"`
	Validity map[string][]ValidityIntervalYAML `yaml:"validity"`
}

// ValidityIntervalYAML is one row of the validity table. Empty From or To
// leaves that side open; times are RFC3339 or YYYY:DOY:HH:MM:SS.
type ValidityIntervalYAML struct {
	Identity string `yaml:"identity"`
	SetID    string `yaml:"set_id"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
}

// LoadEngineFile reads and validates the engine configuration file.
func LoadEngineFile(path string) (EngineFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return EngineFile{}, err
	}
	return ParseEngineFile(data)
}

// ParseEngineFile decodes the YAML document and rejects unparsable validity times.
func ParseEngineFile(data []byte) (EngineFile, error) {
	var cfg EngineFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return EngineFile{}, fmt.Errorf("invalid engine config: %w", err)
	}
	if _, err := cfg.ValidityTable(); err != nil {
		return EngineFile{}, err
	}
	return cfg, nil
}

// DenySet returns the denylist keyed by lower-case measurement key.
func (c EngineFile) DenySet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.Denylist))
	for _, key := range c.Denylist {
		key = strings.ToLower(strings.TrimSpace(key))
		if key != "" {
			set[key] = struct{}{}
		}
	}
	return set
}

// ValidityTable converts the validity section into the engine's table,
// keyed by lower-case archive key.
func (c EngineFile) ValidityTable() (entity.ValidityTable, error) {
	table := make(entity.ValidityTable, len(c.Validity))
	for key, intervals := range c.Validity {
		key = strings.ToLower(key)
		for i, raw := range intervals {
			from, err := parseOptionalTime(raw.From)
			if err != nil {
				return nil, fmt.Errorf("validity %s[%d].from: %w", key, i, err)
			}
			to, err := parseOptionalTime(raw.To)
			if err != nil {
				return nil, fmt.Errorf("validity %s[%d].to: %w", key, i, err)
			}
			if !from.IsZero() && !to.IsZero() && from.After(to) {
				return nil, fmt.Errorf("validity %s[%d]: from is after to", key, i)
			}
			if strings.TrimSpace(raw.Identity) == "" {
				return nil, fmt.Errorf("validity %s[%d]: identity is required", key, i)
			}

			table[key] = append(table[key], entity.ValidityInterval{
				Identity:      strings.TrimSpace(raw.Identity),
				SetID:         strings.TrimSpace(raw.SetID),
				EffectiveFrom: from,
				EffectiveTo:   to,
			})
		}
	}
	return table, nil
}

func parseOptionalTime(raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, nil
	}
	return valueobject.ParseMissionTime(raw)
}
