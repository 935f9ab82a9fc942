package scheduler

import (
	"encoding/json"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"go-meatflow/internal/model"
	"go-meatflow/internal/service"
	"go-meatflow/internal/ws"
)

// Scheduler manages the recurring housekeeping jobs.
type Scheduler struct {
	cron         *cron.Cron
	stockService service.StockService
	db           *gorm.DB
	wsHub        *ws.Hub
	logger       *zap.Logger
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(stockService service.StockService, db *gorm.DB, hub *ws.Hub, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron:         cron.New(),
		stockService: stockService,
		db:           db,
		wsHub:        hub,
		logger:       logger.Named("scheduler"),
	}
}

// Start starts the scheduler.
func (s *Scheduler) Start() {
	s.logger.Info("starting scheduler")

	// Sweep expired stock shortly after midnight
	if _, err := s.cron.AddFunc("15 0 * * *", s.sweepExpiredStock); err != nil {
		s.logger.Error("failed to schedule expiry sweep", zap.Error(err))
	}

	// Remind organizations that have not started their closing by 18:00
	if _, err := s.cron.AddFunc("0 18 * * *", s.remindPendingClosings); err != nil {
		s.logger.Error("failed to schedule closing reminder", zap.Error(err))
	}

	s.cron.Start()
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	s.cron.Stop()
}

func (s *Scheduler) sweepExpiredStock() {
	count, err := s.stockService.SweepExpired(time.Now())
	if err != nil {
		s.logger.Error("expiry sweep failed", zap.Error(err))
		return
	}
	s.logger.Info("expiry sweep finished", zap.Int("lots_expired", count))
}

func (s *Scheduler) remindPendingClosings() {
	today := time.Now().Format("2006-01-02")

	var orgs []model.Organization
	if err := s.db.Find(&orgs).Error; err != nil {
		s.logger.Error("closing reminder query failed", zap.Error(err))
		return
	}

	for _, org := range orgs {
		var count int64
		if err := s.db.Model(&model.DailyClosing{}).
			Where("organization_id = ? AND closing_date = ?", org.ID, today).
			Count(&count).Error; err != nil {
			s.logger.Error("closing reminder count failed", zap.Error(err))
			continue
		}
		if count > 0 {
			continue
		}

		payload := map[string]interface{}{
			"type":    "closing_reminder",
			"message": "No daily closing has been started for " + today,
			"date":    today,
		}
		msg, _ := json.Marshal(payload)
		s.wsHub.Broadcast <- msg
		s.logger.Info("closing reminder sent", zap.String("organization", org.Name))
	}
}
