package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dreschagin/limit-monitor/internal/domain/entity"
	"github.com/dreschagin/limit-monitor/internal/domain/repository"
)

func TestLimitChangeReporter_BeforeAndAfter(t *testing.T) {
	limits := &memoryLimits{}
	limits.add(highLimit("tephin", 1, at(-48), 100))
	limits.add(highLimit("tephin", 2, at(30), 110))
	limits.add(highLimit("tephin", 3, at(500), 120)) // после окна
	limits.add(highLimit("TCYLAFT6_WIDE", 4, at(50), 90))
	limits.add(highLimit("pline03t", 7, at(-10), 40)) // без изменений в окне

	archive := newMemoryArchive()
	archive.put("tephin", "EPHIN TEMP")
	archive.put("tcylaft6_wide", "CNT CYL TEMP")

	checklist := entity.Checklist{{Key: "tcylaft6_wide", Alias: "TCYLAFT6_WIDE"}}
	reporter := NewLimitChangeReporter(limits, NewDescriptionResolver(archive))

	changes, err := reporter.FindChanges(context.Background(), window(0, 168), checklist)
	if err != nil {
		t.Fatalf("FindChanges() error = %v", err)
	}
	if len(changes) != 2 {
		t.Fatalf("expected 2 changed pairs, got %d", len(changes))
	}

	ephin := changes[entity.LimitChangeKey{MeasurementKey: "tephin", SetID: entity.DefaultSetID}]
	if ephin.Before == nil || ephin.Before.ModificationVersion != 1 {
		t.Errorf("before = %+v, want version 1", ephin.Before)
	}
	if ephin.After == nil || ephin.After.ModificationVersion != 2 {
		t.Errorf("after = %+v, want version 2", ephin.After)
	}
	if ephin.Description != "EPHIN TEMP" {
		t.Errorf("description = %q", ephin.Description)
	}

	wide := changes[entity.LimitChangeKey{MeasurementKey: "TCYLAFT6_WIDE", SetID: entity.DefaultSetID}]
	if wide.Before != nil {
		t.Errorf("before = %+v, want nil", wide.Before)
	}
	if wide.After == nil || wide.After.ModificationVersion != 4 {
		t.Errorf("after = %+v, want version 4", wide.After)
	}
	if wide.Description != "CNT CYL TEMP" {
		t.Errorf("description = %q, want alias resolved to archive key", wide.Description)
	}
}

func TestLimitChangeReporter_MissingDescription(t *testing.T) {
	limits := &memoryLimits{}
	limits.add(highLimit("unknown", 1, at(1), 1))

	reporter := NewLimitChangeReporter(limits, NewDescriptionResolver(newMemoryArchive()))
	changes, err := reporter.FindChanges(context.Background(), window(0, 2), nil)
	if err != nil {
		t.Fatalf("FindChanges() error = %v", err)
	}

	record := changes[entity.LimitChangeKey{MeasurementKey: "unknown", SetID: entity.DefaultSetID}]
	if record.Description != MissingDescription {
		t.Errorf("description = %q, want %q", record.Description, MissingDescription)
	}
}

func TestLimitChangeReporter_PairFailureIsRecorded(t *testing.T) {
	limits := &memoryLimits{
		revisionErrs: map[string]error{
			"tephin": &repository.CollaboratorIOError{Collaborator: "limits", Op: "latest revision", Err: errors.New("scan failed")},
		},
	}
	limits.add(highLimit("tephin", 2, at(30), 110))
	limits.add(highLimit("1pdeaat", 5, at(40), 30))

	reporter := NewLimitChangeReporter(limits, NewDescriptionResolver(newMemoryArchive()))
	changes, err := reporter.FindChanges(context.Background(), window(0, 168), nil)
	if err != nil {
		t.Fatalf("FindChanges() error = %v", err)
	}
	if len(changes) != 2 {
		t.Fatalf("expected 2 changed pairs, got %d", len(changes))
	}

	failed := changes[entity.LimitChangeKey{MeasurementKey: "tephin", SetID: entity.DefaultSetID}]
	if !strings.Contains(failed.Error, "scan failed") || failed.After != nil {
		t.Errorf("failed pair = %+v, want recorded error and no revisions", failed)
	}

	ok := changes[entity.LimitChangeKey{MeasurementKey: "1pdeaat", SetID: entity.DefaultSetID}]
	if ok.Error != "" || ok.After == nil || ok.After.ModificationVersion != 5 {
		t.Errorf("healthy pair = %+v, want version 5", ok)
	}
}
