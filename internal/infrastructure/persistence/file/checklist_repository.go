package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/dreschagin/limit-monitor/internal/domain/entity"
)

// checklistDocument is the on-disk layout of the checklist file.
type checklistDocument struct {
	Measurements []entity.Measurement `yaml:"measurements"`
}

// ChecklistRepository keeps the measurement checklist in a YAML file.
type ChecklistRepository struct {
	path string
	mu   sync.RWMutex
}

func NewChecklistRepository(path string) *ChecklistRepository {
	return &ChecklistRepository{path: path}
}

// Load reads and validates the checklist. Entries without set_id get the default set.
func (r *ChecklistRepository) Load(_ context.Context) (entity.Checklist, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read checklist %s: %w", r.path, err)
	}

	var doc checklistDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid checklist %s: %w", r.path, err)
	}

	checklist := make(entity.Checklist, 0, len(doc.Measurements))
	for i, raw := range doc.Measurements {
		m, err := entity.NewMeasurement(raw.Key, raw.Alias, raw.Owner, raw.Description, raw.Kind)
		if err != nil {
			return nil, fmt.Errorf("checklist entry %d: %w", i, err)
		}
		if raw.SetID != "" {
			m.SetID = raw.SetID
		}
		checklist = append(checklist, m)
	}

	return checklist, nil
}

// Save writes the checklist through a temp file and rename.
func (r *ChecklistRepository) Save(_ context.Context, checklist entity.Checklist) error {
	sorted := make([]entity.Measurement, len(checklist))
	copy(sorted, checklist)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })

	data, err := yaml.Marshal(checklistDocument{Measurements: sorted})
	if err != nil {
		return fmt.Errorf("failed to encode checklist: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create checklist dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".checklist-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create temp checklist: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write checklist: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write checklist: %w", err)
	}

	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("failed to replace checklist: %w", err)
	}
	return nil
}
