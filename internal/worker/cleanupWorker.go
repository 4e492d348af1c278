package worker

import (
	"context"
	"time"

	"github.com/ds124wfegd/confhub/internal/service"

	"github.com/sirupsen/logrus"
)

// RegistrationCleanupWorker - страховочная зачистка зависших регистраций.
// Основной путь истечения - отложенные задачи в очереди; воркер подбирает
// регистрации, чьи задачи были потеряны.
type RegistrationCleanupWorker struct {
	registrationService service.RegistrationService
	interval            time.Duration
	paymentTimeout      time.Duration
}

func NewRegistrationCleanupWorker(registrationService service.RegistrationService, interval, paymentTimeout time.Duration) *RegistrationCleanupWorker {
	return &RegistrationCleanupWorker{
		registrationService: registrationService,
		interval:            interval,
		paymentTimeout:      paymentTimeout,
	}
}

func (w *RegistrationCleanupWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	logrus.Info("Registration cleanup worker started")

	for {
		select {
		case <-ctx.Done():
			logrus.Info("Registration cleanup worker stopped")
			return
		case <-ticker.C:
			w.cleanupStaleRegistrations(ctx)
		}
	}
}

// cleanupStaleRegistrations отменяет регистрации, ожидающие оплаты
// дольше положенного
func (w *RegistrationCleanupWorker) cleanupStaleRegistrations(ctx context.Context) {
	logrus.Debug("Starting stale registrations cleanup")

	cancelled, err := w.registrationService.CancelStaleRegistrations(ctx, w.paymentTimeout)
	if err != nil {
		logrus.Errorf("Failed to cancel stale registrations: %v", err)
		return
	}

	if cancelled > 0 {
		logrus.Infof("Stale registrations cleanup completed: %d cancelled", cancelled)
	}
}

// GetStats возвращает статистику работы воркера
func (w *RegistrationCleanupWorker) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"worker_type":     "registration_cleanup",
		"interval":        w.interval.String(),
		"payment_timeout": w.paymentTimeout.String(),
		"status":          "running",
	}
}
