package scheduling

import (
	"time"

	"go.uber.org/zap"

	redisclient "github.com/Safwan169/emr-backend/internal/redis"
)

// Service wires the scheduling core together: availability templates, slot
// materialization, the booking transactor, the appointment lifecycle and the
// maintenance jobs.
type Service struct {
	repo   Repository
	locker redisclient.Locker
	log    *zap.Logger
	now    func() time.Time
}

func NewService(repo Repository, locker redisclient.Locker, log *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		locker: locker,
		log:    log,
		now:    time.Now,
	}
}
