package entity

// LimitChangeKey идентифицирует пару (измерение, набор лимитов)
type LimitChangeKey struct {
	MeasurementKey string
	SetID          string
}

// LimitChangeRecord: последняя версия лимитов до окна и последняя версия внутри окна
// Before/After равны nil, если версии нет; Error заполняется, если версии не удалось прочитать
type LimitChangeRecord struct {
	MeasurementKey string
	SetID          string
	Before         *LimitRevision
	After          *LimitRevision
	Description    string
	Error          string
}
