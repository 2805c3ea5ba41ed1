package repository

import "time"

// RevisionBound ограничивает время вступления в силу при выборе последней версии лимитов
// Нулевые From/To означают отсутствие ограничения с этой стороны
type RevisionBound struct {
	From          time.Time
	FromInclusive bool
	To            time.Time
	ToInclusive   bool
}

// EffectiveBefore: версии, вступившие в силу строго до t
func EffectiveBefore(t time.Time) RevisionBound {
	return RevisionBound{To: t}
}

// EffectiveAt: версии, вступившие в силу не позже t (текущая версия на момент t)
func EffectiveAt(t time.Time) RevisionBound {
	return RevisionBound{To: t, ToInclusive: true}
}

// EffectiveWithin: версии, вступившие в силу внутри [from, to]
func EffectiveWithin(from, to time.Time) RevisionBound {
	return RevisionBound{From: from, FromInclusive: true, To: to, ToInclusive: true}
}

// Admits проверяет, попадает ли время вступления в силу в границы
func (b RevisionBound) Admits(t time.Time) bool {
	if !b.From.IsZero() {
		if t.Before(b.From) || (!b.FromInclusive && t.Equal(b.From)) {
			return false
		}
	}
	if !b.To.IsZero() {
		if t.After(b.To) || (!b.ToInclusive && t.Equal(b.To)) {
			return false
		}
	}
	return true
}
