package worker

import (
	"go.uber.org/zap"

	"github.com/tooltime-pro/session-guard/internal/service"
)

// StartNotificationWorker subscribes the session notification handlers to the
// dispatcher. Handlers run synchronously on the publishing request.
func StartNotificationWorker(notificationService *service.NotificationService, logger *zap.Logger) {
	if notificationService == nil {
		logger.Warn("session notifications disabled")
		return
	}
	notificationService.RegisterHandlers()
	logger.Info("session notification handlers registered")
}
