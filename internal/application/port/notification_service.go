package port

import "github.com/dreschagin/limit-monitor/internal/application/dto"

// NotificationService определяет интерфейс для отправки уведомлений (Port)
// Реализация будет в Infrastructure слое (WebSocket Hub)
type NotificationService interface {
	// BroadcastReport отправляет сводку нового отчета всем подключенным клиентам
	BroadcastReport(summary *dto.ReportSummaryDTO)

	// ClientCount возвращает количество подключенных клиентов
	ClientCount() int
}
