package entity

import (
	"errors"
	"sort"
	"strings"

	"github.com/dreschagin/limit-monitor/internal/domain/valueobject"
)

// DefaultSetID имя набора лимитов по умолчанию
const DefaultSetID = "default"

// Measurement представляет элемент чек-листа: одно отслеживаемое измерение (MSID)
// Key: имя в архиве; Alias используется только для поиска лимитов
type Measurement struct {
	Key         string                `yaml:"key" json:"key"`
	Alias       string                `yaml:"alias,omitempty" json:"alias,omitempty"`
	Owner       string                `yaml:"owner,omitempty" json:"owner,omitempty"`
	Description string                `yaml:"description,omitempty" json:"description,omitempty"`
	Kind        valueobject.LimitKind `yaml:"kind" json:"kind"`
	SetID       string                `yaml:"set_id,omitempty" json:"set_id,omitempty"`
}

// NewMeasurement создает измерение чек-листа (Factory Method)
func NewMeasurement(key, alias, owner, description string, kind valueobject.LimitKind) (Measurement, error) {
	m := Measurement{
		Key:         strings.ToLower(strings.TrimSpace(key)),
		Alias:       strings.TrimSpace(alias),
		Owner:       strings.TrimSpace(owner),
		Description: strings.TrimSpace(description),
		Kind:        kind,
		SetID:       DefaultSetID,
	}

	if err := m.Validate(); err != nil {
		return Measurement{}, err
	}

	return m, nil
}

// Validate проверяет обязательные поля
func (m Measurement) Validate() error {
	if m.Key == "" {
		return errors.New("measurement key is required")
	}
	return m.Kind.Validate()
}

// LimitIdentity возвращает имя, под которым ищутся лимиты
func (m Measurement) LimitIdentity() string {
	if m.Alias != "" {
		return m.Alias
	}
	return m.Key
}

// LimitSetID возвращает набор лимитов с учетом значения по умолчанию
func (m Measurement) LimitSetID() string {
	if m.SetID == "" {
		return DefaultSetID
	}
	return m.SetID
}

// Checklist: список измерений, загружаемый один раз на прогон (только чтение)
type Checklist []Measurement

// Keys возвращает отсортированный список ключей
func (c Checklist) Keys() []string {
	keys := make([]string, 0, len(c))
	for _, m := range c {
		keys = append(keys, m.Key)
	}
	sort.Strings(keys)
	return keys
}

// Find ищет измерение по ключу архива
func (c Checklist) Find(key string) (Measurement, bool) {
	for _, m := range c {
		if m.Key == key {
			return m, true
		}
	}
	return Measurement{}, false
}

// ResolveKey возвращает ключ архива по имени измерения или его псевдониму
func (c Checklist) ResolveKey(name string) string {
	lowered := strings.ToLower(name)
	for _, m := range c {
		if m.Key == lowered || strings.EqualFold(m.Alias, name) {
			return m.Key
		}
	}
	return lowered
}
