package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dreschagin/limit-monitor/internal/domain/entity"
	"github.com/dreschagin/limit-monitor/internal/domain/repository"
	"github.com/dreschagin/limit-monitor/internal/domain/valueobject"
)

func TestBuildViolationMapUseCase_Outcomes(t *testing.T) {
	f := newEngineFixture()

	f.archive.put("1pdeaat", "PSMC DEA A temperature", 10, 10, 25, 27, 10, 10, 10, 22, 30, 10)
	f.limits.add(highLimit("1pdeaat", 1, at(-24), 20))

	f.archive.put("4rt700t", "OBA forward bulkhead", 12, 13, 14)
	f.limits.add(highLimit("4rt700t", 1, at(-24), 20))

	f.archive.put("pline03t", "Propulsion line 03")
	f.limits.add(highLimit("pline03t", 1, at(-24), 20))

	f.archive.put("tcylaft6", "Cylinder aft 6", 1, 2)
	f.archive.errs["tcylaft6"] = &repository.CollaboratorIOError{Collaborator: "archive", Op: "fetch", Err: errors.New("timeout")}
	f.limits.add(highLimit("tcylaft6", 1, at(-24), 20))

	checklist := entity.Checklist{
		measurement("1pdeaat"),
		measurement("4rt700t"),
		measurement("pline03t"),
		measurement("tcylaft6"),
		measurement("ghost"),
	}

	result, err := f.buildMap().Execute(context.Background(), checklist, testWindow())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	records, ok := result.Violations["1pdeaat"]
	if !ok {
		t.Fatalf("expected violations for 1pdeaat, got %v", result.Violations)
	}
	record := records[valueobject.CautionHigh]
	if record.NumExcursions != 2 {
		t.Errorf("NumExcursions = %d, want 2", record.NumExcursions)
	}
	if record.Extrema.Number != 30 {
		t.Errorf("Extrema = %v, want 30", record.Extrema)
	}
	if record.Description != "PSMC DEA A temperature" {
		t.Errorf("Description = %q", record.Description)
	}

	if _, ok := result.Violations["4rt700t"]; ok {
		t.Errorf("clean measurement must not appear in violation map")
	}

	wantChecked := []string{"1pdeaat", "4rt700t", "pline03t"}
	if strings.Join(result.Checked, ",") != strings.Join(wantChecked, ",") {
		t.Errorf("Checked = %v, want %v", result.Checked, wantChecked)
	}
	if len(result.Missing) != 1 || result.Missing[0] != "ghost" {
		t.Errorf("Missing = %v, want [ghost]", result.Missing)
	}
	if _, ok := result.Failed["tcylaft6"]; !ok {
		t.Errorf("expected tcylaft6 in Failed, got %v", result.Failed)
	}

	if f.metrics.outcomes[OutcomeViolations] != 1 || f.metrics.outcomes[OutcomeClean] != 1 {
		t.Errorf("unexpected outcome counters: %v", f.metrics.outcomes)
	}
	if f.metrics.outcomes[OutcomeNoData] != 1 || f.metrics.outcomes[OutcomeMissing] != 1 || f.metrics.outcomes[OutcomeFailed] != 1 {
		t.Errorf("unexpected outcome counters: %v", f.metrics.outcomes)
	}
}

func TestBuildViolationMapUseCase_Denylist(t *testing.T) {
	f := newEngineFixture()
	f.archive.put("3shtren", "SIM translation encoder", 25, 26)
	f.limits.add(highLimit("3shtren", 1, at(-24), 20))
	f.archive.put("1pdeaat", "PSMC DEA A temperature", 25, 26)
	f.limits.add(highLimit("1pdeaat", 1, at(-24), 20))

	result, err := f.buildMap("3shtren").Execute(context.Background(),
		entity.Checklist{measurement("3shtren"), measurement("1pdeaat")}, testWindow())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if _, ok := result.Violations["3shtren"]; ok {
		t.Errorf("denylisted measurement must be removed from violation map")
	}
	if _, ok := result.Violations["1pdeaat"]; !ok {
		t.Errorf("expected 1pdeaat to remain")
	}
	if len(result.Checked) != 2 {
		t.Errorf("denylist must not hide checked measurements, got %v", result.Checked)
	}
}

func TestBuildViolationMapUseCase_PingFailureAborts(t *testing.T) {
	f := newEngineFixture()
	f.limits.pingErr = errors.New("connection refused")

	_, err := f.buildMap().Execute(context.Background(), entity.Checklist{measurement("1pdeaat")}, testWindow())
	if err == nil || !strings.Contains(err.Error(), "limit store unavailable") {
		t.Fatalf("expected limit store error, got %v", err)
	}
}

func TestBuildViolationMapUseCase_DescriptionFallback(t *testing.T) {
	f := newEngineFixture()
	f.archive.put("1pdeaat", "", 25)
	f.limits.add(highLimit("1pdeaat", 1, at(-24), 20))

	m := measurement("1pdeaat")
	m.Description = "DEA A temp from checklist"

	result, err := f.buildMap().Execute(context.Background(), entity.Checklist{m}, testWindow())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	got := result.Violations["1pdeaat"][valueobject.CautionHigh].Description
	if got != "DEA A temp from checklist" {
		t.Errorf("Description = %q, want checklist fallback", got)
	}
}

func TestBuildViolationMapUseCase_CancelledContext(t *testing.T) {
	f := newEngineFixture()
	f.archive.put("1pdeaat", "PSMC DEA A temperature", 25)
	f.limits.add(highLimit("1pdeaat", 1, at(-24), 20))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.buildMap().Execute(ctx, entity.Checklist{measurement("1pdeaat")}, testWindow())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestBuildViolationMapUseCase_KindMismatchIsFailed(t *testing.T) {
	f := newEngineFixture()
	f.archive.put("3tscmove", "SIM TSC move status", 0, 1, 1)
	f.limits.add(highLimit("3tscmove", 1, at(-24), 20))

	m := measurement("3tscmove")
	m.Kind = valueobject.ExpectedState

	result, err := f.buildMap().Execute(context.Background(), entity.Checklist{m}, testWindow())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	reason, ok := result.Failed["3tscmove"]
	if !ok {
		t.Fatalf("expected 3tscmove in Failed, got violations=%v checked=%v", result.Violations, result.Checked)
	}
	if !strings.Contains(reason, "checklist expects expected_state") {
		t.Errorf("Failed reason = %q", reason)
	}
	if len(result.Checked) != 0 {
		t.Errorf("mismatched measurement must not be reported as checked, got %v", result.Checked)
	}
}
