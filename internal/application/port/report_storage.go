package port

import "context"

// ReportStorage определяет интерфейс для хранения артефактов отчетов.
type ReportStorage interface {
	// PutObject загружает объект и возвращает URL для чтения.
	PutObject(ctx context.Context, key, contentType string, body []byte) (string, error)

	// GetObject читает объект целиком.
	GetObject(ctx context.Context, key string) ([]byte, error)
}
