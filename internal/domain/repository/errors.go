package repository

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dreschagin/limit-monitor/internal/domain/valueobject"
)

// NotFoundError: измерение неизвестно архиву или хранилищу лимитов
type NotFoundError struct {
	Key    string
	Source string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: measurement %q not found", e.Source, e.Key)
}

// NoDataError: измерение известно, но за окно нет ни одного значения
type NoDataError struct {
	Key    string
	Window valueobject.TimeRange
}

func (e *NoDataError) Error() string {
	return fmt.Sprintf("archive: no samples for %q in %s..%s",
		e.Key,
		valueobject.FormatMissionTime(e.Window.Start()),
		valueobject.FormatMissionTime(e.Window.End()),
	)
}

// AmbiguousLimitSetError: в момент At действуют несколько наборов лимитов
type AmbiguousLimitSetError struct {
	Key        string
	At         time.Time
	Identities []string
}

func (e *AmbiguousLimitSetError) Error() string {
	return fmt.Sprintf("ambiguous limit set for %q at %s: %s",
		e.Key,
		valueobject.FormatMissionTime(e.At),
		strings.Join(e.Identities, ", "),
	)
}

// LimitKindMismatchError: вид измерения в чек-листе не совпадает с видом строки лимитов
type LimitKindMismatchError struct {
	Key      string
	Identity string
	Want     valueobject.LimitKind
	Got      valueobject.LimitKind
}

func (e *LimitKindMismatchError) Error() string {
	return fmt.Sprintf("limits for %q (%s) are %s, checklist expects %s", e.Key, e.Identity, e.Got, e.Want)
}

// CollaboratorIOError: внешний источник (архив, хранилище лимитов) недоступен
type CollaboratorIOError struct {
	Collaborator string
	Op           string
	Err          error
}

func (e *CollaboratorIOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Collaborator, e.Op, e.Err)
}

func (e *CollaboratorIOError) Unwrap() error {
	return e.Err
}

// IsNotFound проверяет, является ли ошибка NotFoundError
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsNoData проверяет, является ли ошибка NoDataError
func IsNoData(err error) bool {
	var target *NoDataError
	return errors.As(err, &target)
}

// IsAmbiguous проверяет, является ли ошибка AmbiguousLimitSetError
func IsAmbiguous(err error) bool {
	var target *AmbiguousLimitSetError
	return errors.As(err, &target)
}

// IsCollaboratorIO проверяет, является ли ошибка CollaboratorIOError
func IsCollaboratorIO(err error) bool {
	var target *CollaboratorIOError
	return errors.As(err, &target)
}

// IsKindMismatch проверяет, является ли ошибка LimitKindMismatchError
func IsKindMismatch(err error) bool {
	var target *LimitKindMismatchError
	return errors.As(err, &target)
}
