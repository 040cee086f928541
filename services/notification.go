package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/fitquest-app/fitquest_api/model"

	appContext "github.com/alphabatem/common/context"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// PushProvider delivers a constructed payload to the user's devices.
// Delivery transport is an external collaborator; the default provider
// only logs.
type PushProvider interface {
	SendPush(ctx context.Context, userID, title, body string, data map[string]string) error
}

// NotificationService constructs level-up, streak-milestone and
// badge-earned payloads, persists them and dispatches through a small
// worker pool. Dispatch is best-effort and never blocks reward flows.
type NotificationService struct {
	appContext.DefaultService

	sqlSvc   *PostgresService
	provider PushProvider

	workers int
	jobs    chan *model.Notification
	stop    chan struct{}
	wg      sync.WaitGroup
}

const NOTIFICATION_SVC = "notification_svc"

func (svc NotificationService) Id() string {
	return NOTIFICATION_SVC
}

func (svc *NotificationService) Configure(ctx *appContext.Context) error {
	svc.workers = 3
	svc.jobs = make(chan *model.Notification, 100)
	svc.stop = make(chan struct{})
	svc.provider = &LogPushProvider{}
	return svc.DefaultService.Configure(ctx)
}

func (svc *NotificationService) Start() error {
	svc.sqlSvc = svc.Service(POSTGRES_SVC).(*PostgresService)

	for i := 0; i < svc.workers; i++ {
		svc.wg.Add(1)
		go svc.worker()
	}
	return nil
}

func (svc *NotificationService) Shutdown() {
	close(svc.stop)
	svc.wg.Wait()
}

// SetProvider injects the real push transport from the runtime.
func (svc *NotificationService) SetProvider(provider PushProvider) {
	svc.provider = provider
}

func (svc *NotificationService) worker() {
	defer svc.wg.Done()
	for {
		select {
		case n := <-svc.jobs:
			svc.dispatch(n)
		case <-svc.stop:
			return
		}
	}
}

func (svc *NotificationService) dispatch(n *model.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var data map[string]string
	if len(n.Data) > 0 {
		if err := json.Unmarshal(n.Data, &data); err != nil {
			data = nil
		}
	}

	if err := svc.provider.SendPush(ctx, n.UserID, n.Title, n.Body, data); err != nil {
		log.WithError(err).WithField("notification_id", n.ID).Warn("Push delivery failed")
		if err := svc.sqlSvc.MarkNotificationFailed(n.ID); err != nil {
			log.WithError(err).Warn("Failed to mark notification failed")
		}
		return
	}

	if err := svc.sqlSvc.MarkNotificationSent(n.ID); err != nil {
		log.WithError(err).Warn("Failed to mark notification sent")
	}
}

func (svc *NotificationService) queue(userID string, notifType model.NotificationType, title, body string, data map[string]string) {
	id, _ := uuid.NewV7()

	var raw json.RawMessage
	if data != nil {
		raw, _ = json.Marshal(data)
	}

	n := &model.Notification{
		ID:        id.String(),
		UserID:    userID,
		Type:      notifType,
		Title:     title,
		Body:      body,
		Data:      raw,
		Status:    model.NotificationPending,
		CreatedAt: time.Now(),
	}

	if err := svc.sqlSvc.CreateNotification(n); err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Failed to persist notification")
		return
	}

	select {
	case svc.jobs <- n:
	case <-time.After(2 * time.Second):
		log.WithField("notification_id", n.ID).Warn("Notification queue full, left pending")
	}
}

func (svc *NotificationService) QueueLevelUp(userID string, level int) {
	svc.queue(userID, model.NotificationLevelUp,
		"Level up!",
		fmt.Sprintf("You reached level %d. Keep it going!", level),
		map[string]string{"level": fmt.Sprintf("%d", level)})
}

func (svc *NotificationService) QueueStreakMilestone(userID string, days int) {
	svc.queue(userID, model.NotificationStreakMilestone,
		fmt.Sprintf("%d day streak!", days),
		fmt.Sprintf("You've been active %d days in a row.", days),
		map[string]string{"streak": fmt.Sprintf("%d", days)})
}

func (svc *NotificationService) QueueBadgeEarned(userID string, badge model.Badge) {
	svc.queue(userID, model.NotificationBadgeEarned,
		"New badge earned!",
		fmt.Sprintf("You earned the %q badge: %s", badge.Name, badge.Description),
		map[string]string{"badge_id": badge.ID, "badge_name": badge.Name})
}

// LogPushProvider is the default no-transport provider.
type LogPushProvider struct{}

func (p *LogPushProvider) SendPush(ctx context.Context, userID, title, body string, data map[string]string) error {
	log.WithFields(log.Fields{"user_id": userID, "title": title}).Info("Push (log only)")
	return nil
}
