package postgres

import (
	"database/sql"
	"time"

	"github.com/dreschagin/limit-monitor/internal/domain/entity"
	"github.com/dreschagin/limit-monitor/internal/domain/valueobject"
	"github.com/lib/pq"
)

// limitColumns lists the limits table columns in scan order
const limitColumns = `a.msid, a.setkey, a.modversion, a.effective_at, a.default_set,
	a.warning_low, a.caution_low, a.caution_high, a.warning_high,
	a.expected_state, a.allowed_states, a.mlmenable, a.switchstate, a.mlimsw`

// LimitDBModel представляет версию набора лимитов в БД
type LimitDBModel struct {
	MSID          string
	SetKey        string
	ModVersion    int64
	EffectiveAt   time.Time
	DefaultSet    sql.NullString
	WarningLow    sql.NullFloat64
	CautionLow    sql.NullFloat64
	CautionHigh   sql.NullFloat64
	WarningHigh   sql.NullFloat64
	ExpectedState sql.NullString
	AllowedStates pq.StringArray
	MLMEnable     sql.NullBool
	SwitchState   sql.NullString
	MLimSw        sql.NullString
}

// ScanLimitRow сканирует строку БД в LimitDBModel
func ScanLimitRow(row interface {
	Scan(dest ...interface{}) error
}) (*LimitDBModel, error) {
	var model LimitDBModel

	err := row.Scan(
		&model.MSID,
		&model.SetKey,
		&model.ModVersion,
		&model.EffectiveAt,
		&model.DefaultSet,
		&model.WarningLow,
		&model.CautionLow,
		&model.CautionHigh,
		&model.WarningHigh,
		&model.ExpectedState,
		&model.AllowedStates,
		&model.MLMEnable,
		&model.SwitchState,
		&model.MLimSw,
	)
	if err != nil {
		return nil, err
	}

	return &model, nil
}

// ToEntity конвертирует DB Model в версию лимитов
func ToEntity(model *LimitDBModel) entity.LimitRevision {
	spec := entity.LimitSpec{
		Kind:        valueobject.NumericLimit,
		WarningLow:  nullFloat(model.WarningLow),
		CautionLow:  nullFloat(model.CautionLow),
		CautionHigh: nullFloat(model.CautionHigh),
		WarningHigh: nullFloat(model.WarningHigh),
	}

	if model.ExpectedState.Valid && model.ExpectedState.String != "" {
		spec = entity.LimitSpec{
			Kind:          valueobject.ExpectedState,
			ExpectedState: model.ExpectedState.String,
			AllowedStates: []string(model.AllowedStates),
		}
	}

	return entity.LimitRevision{
		MeasurementKey:      model.MSID,
		SetID:               model.SetKey,
		ModificationVersion: model.ModVersion,
		EffectiveAt:         model.EffectiveAt.UTC(),
		Spec:                spec,
		DefaultSet:          model.DefaultSet.String,
		MonitoringEnabled:   !model.MLMEnable.Valid || model.MLMEnable.Bool,
		SwitchState:         model.SwitchState.String,
		LimitSwitchMSID:     model.MLimSw.String,
	}
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
