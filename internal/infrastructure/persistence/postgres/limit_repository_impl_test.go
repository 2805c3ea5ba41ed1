package postgres

import (
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/dreschagin/limit-monitor/internal/domain/repository"
	"github.com/dreschagin/limit-monitor/internal/domain/valueobject"
	"github.com/lib/pq"
)

func TestBuildLatestRevisionQuery(t *testing.T) {
	t1 := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(7 * 24 * time.Hour)

	tests := []struct {
		name      string
		bound     repository.RevisionBound
		wantConds []string
		wantArgs  int
	}{
		{
			name:      "before",
			bound:     repository.EffectiveBefore(t1),
			wantConds: []string{"a.effective_at < $3"},
			wantArgs:  3,
		},
		{
			name:      "at",
			bound:     repository.EffectiveAt(t1),
			wantConds: []string{"a.effective_at <= $3"},
			wantArgs:  3,
		},
		{
			name:      "within",
			bound:     repository.EffectiveWithin(t1, t2),
			wantConds: []string{"a.effective_at >= $3", "a.effective_at <= $4"},
			wantArgs:  4,
		},
		{
			name:     "unbounded",
			bound:    repository.RevisionBound{},
			wantArgs: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := buildLatestRevisionQuery("1pdeaat", "default", tt.bound)

			if len(args) != tt.wantArgs {
				t.Fatalf("got %d args, want %d", len(args), tt.wantArgs)
			}
			for _, cond := range tt.wantConds {
				if !strings.Contains(query, cond) {
					t.Errorf("query missing %q:\n%s", cond, query)
				}
			}
			if !strings.Contains(query, "ORDER BY a.modversion DESC, a.effective_at DESC") {
				t.Errorf("query must order by version then effective time:\n%s", query)
			}
			if !strings.Contains(query, "LIMIT 1") {
				t.Errorf("query must select a single row")
			}
		})
	}
}

func TestToEntity(t *testing.T) {
	effective := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)

	numeric := ToEntity(&LimitDBModel{
		MSID:        "1pdeaat",
		SetKey:      "default",
		ModVersion:  3,
		EffectiveAt: effective,
		CautionHigh: sql.NullFloat64{Float64: 20, Valid: true},
		WarningHigh: sql.NullFloat64{Float64: 30, Valid: true},
		MLMEnable:   sql.NullBool{Bool: false, Valid: true},
	})
	if numeric.Spec.Kind != valueobject.NumericLimit {
		t.Errorf("Kind = %s, want limit", numeric.Spec.Kind)
	}
	if numeric.Spec.WarningLow != nil || numeric.Spec.CautionHigh == nil || *numeric.Spec.CautionHigh != 20 {
		t.Errorf("unexpected bounds: %+v", numeric.Spec)
	}
	if numeric.MonitoringEnabled {
		t.Errorf("MonitoringEnabled should follow mlmenable")
	}

	state := ToEntity(&LimitDBModel{
		MSID:          "3tscmove",
		SetKey:        "default",
		ModVersion:    1,
		EffectiveAt:   effective,
		ExpectedState: sql.NullString{String: "F", Valid: true},
		AllowedStates: pq.StringArray{"T", "F"},
	})
	if state.Spec.Kind != valueobject.ExpectedState || state.Spec.ExpectedState != "F" {
		t.Errorf("unexpected state spec: %+v", state.Spec)
	}
	if !state.MonitoringEnabled {
		t.Errorf("missing mlmenable should default to enabled")
	}
}

func TestSamplesQuery(t *testing.T) {
	tests := []struct {
		cadence valueobject.Cadence
		want    string
		wantErr bool
	}{
		{cadence: valueobject.FullResolution, want: "ORDER BY sampled_at"},
		{cadence: valueobject.FiveMinute, want: "date_bin('5 minutes'"},
		{cadence: valueobject.Daily, want: "date_trunc('day'"},
		{cadence: "hourly", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(string(tt.cadence), func(t *testing.T) {
			query, err := samplesQuery(tt.cadence)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("samplesQuery() error = %v", err)
			}
			if !strings.Contains(query, tt.want) {
				t.Errorf("query missing %q:\n%s", tt.want, query)
			}
		})
	}
}

func TestIOErrorClassification(t *testing.T) {
	err := ioError("ping", sql.ErrConnDone)
	if !repository.IsCollaboratorIO(err) {
		t.Fatalf("expected CollaboratorIOError, got %T", err)
	}
	if repository.IsNotFound(err) {
		t.Fatalf("connection errors must not be classified as not found")
	}
}
