// Package notify stores notifications, fans them out to live subscribers and
// builds the merged bell listing.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/anonto42/bizgram/backend/internal/models"
	"github.com/anonto42/bizgram/backend/pkg/metrics"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// Store is the persistence the notifier needs.
type Store interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	MutedUserIDs(ctx context.Context, userIDs []uint, contextType, contextID string, now time.Time) (map[uint]bool, error)
}

// Input describes one notification before it is addressed to a recipient.
type Input struct {
	Type        string
	Level       string
	Title       string
	Body        string
	ContextType string
	ContextID   string
	ActorUserID uint
	URL         string
	Data        map[string]interface{}
	AllowSelf   bool
}

type Notifier struct {
	store Store
	bus   Bus
	log   *zap.Logger
	now   func() time.Time
}

func NewNotifier(store Store, bus Bus, log *zap.Logger) *Notifier {
	return &Notifier{store: store, bus: bus, log: log, now: time.Now}
}

// Notify stores a notification for recipient and publishes it. It returns nil
// without error when the notification is skipped as a self notification or
// because the recipient muted the context.
func (n *Notifier) Notify(ctx context.Context, recipient uint, in Input) (*models.Notification, error) {
	if recipient == 0 {
		return nil, nil
	}
	if in.ActorUserID != 0 && in.ActorUserID == recipient && !in.AllowSelf && in.Type != models.NotifSystem {
		metrics.NotificationsSkipped.WithLabelValues("self").Inc()
		return nil, nil
	}
	if in.ContextType != "" && in.ContextID != "" {
		muted, err := n.store.MutedUserIDs(ctx, []uint{recipient}, in.ContextType, in.ContextID, n.now())
		if err != nil {
			return nil, err
		}
		if muted[recipient] {
			metrics.NotificationsSkipped.WithLabelValues("muted").Inc()
			return nil, nil
		}
	}

	row := &models.Notification{
		UserID:      recipient,
		Type:        in.Type,
		Level:       in.Level,
		Title:       in.Title,
		Body:        in.Body,
		ContextType: in.ContextType,
		ContextID:   in.ContextID,
	}
	if row.Level == "" {
		row.Level = models.LevelInfo
	}
	if in.ActorUserID != 0 {
		actor := in.ActorUserID
		row.ActorUserID = &actor
	}
	if data := payload(in); data != nil {
		row.Data = data
	}

	if err := n.store.CreateNotification(ctx, row); err != nil {
		return nil, err
	}
	metrics.NotificationsCreated.WithLabelValues(row.Type).Inc()

	if err := n.bus.Publish(ctx, recipient, Event{Kind: EventNew, Notification: row}); err != nil {
		n.log.Warn("notification publish failed", zap.Uint("user_id", recipient), zap.Error(err))
	}
	return row, nil
}

// payload merges url into data. Explicit data keys win.
func payload(in Input) datatypes.JSON {
	if len(in.Data) == 0 && in.URL == "" {
		return nil
	}
	data := make(map[string]interface{}, len(in.Data)+1)
	if in.URL != "" {
		data["url"] = in.URL
	}
	for k, v := range in.Data {
		data[k] = v
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}

// AllowedRecipients drops recipients that muted the context.
func (n *Notifier) AllowedRecipients(ctx context.Context, userIDs []uint, contextType, contextID string) ([]uint, error) {
	muted, err := n.store.MutedUserIDs(ctx, userIDs, contextType, contextID, n.now())
	if err != nil {
		return nil, err
	}
	out := make([]uint, 0, len(userIDs))
	seen := map[uint]bool{}
	for _, id := range userIDs {
		if id == 0 || muted[id] || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out, nil
}

// NotifyMany notifies each recipient and returns how many rows were stored.
// Failures are logged and do not stop the loop.
func (n *Notifier) NotifyMany(ctx context.Context, recipients []uint, in Input) int {
	stored := 0
	for _, id := range recipients {
		row, err := n.Notify(ctx, id, in)
		if err != nil {
			n.log.Error("notify failed", zap.Uint("user_id", id), zap.String("type", in.Type), zap.Error(err))
			continue
		}
		if row != nil {
			stored++
		}
	}
	return stored
}

// Go runs Notify in the background for fire-and-forget call sites.
func (n *Notifier) Go(recipient uint, in Input) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := n.Notify(ctx, recipient, in); err != nil {
			n.log.Error("notify failed", zap.Uint("user_id", recipient), zap.String("type", in.Type), zap.Error(err))
		}
	}()
}
