package worker

import (
	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/service"
)

// StartNotificationWorker subscribes the notification service to ticket events
// on the in-process dispatcher.
func StartNotificationWorker(notificationService *service.NotificationService, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notificationService == nil {
		logger.Warn("notification service not configured; ticket events will not notify")
		return
	}
	notificationService.RegisterHandlers()
	logger.Info("notification handlers registered")
}
