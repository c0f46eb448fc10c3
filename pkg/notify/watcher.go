// Package notify polls the tracker for unread notifications and forwards
// new ones to sinks such as the terminal or a Slack webhook.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/takutakahashi/trackerctl/pkg/client"
	"github.com/takutakahashi/trackerctl/pkg/tracker"
	"github.com/takutakahashi/trackerctl/pkg/utils"
)

const (
	// DefaultSchedule polls every 30 seconds
	DefaultSchedule = "@every 30s"
	// DefaultDedupeTTL is how long a delivered notification ID is remembered
	DefaultDedupeTTL = 24 * time.Hour
)

// Source returns the current user's unread notifications
type Source interface {
	Unread(ctx context.Context) ([]tracker.Notification, error)
}

// Marker marks a notification as read on the server
type Marker interface {
	MarkRead(ctx context.Context, id int) error
}

// Sink receives newly seen notifications
type Sink interface {
	Deliver(ctx context.Context, notifications []tracker.Notification) error
}

var _ Source = (*tracker.NotificationService)(nil)
var _ Marker = (*tracker.NotificationService)(nil)

// Config configures a Watcher
type Config struct {
	Schedule  string        `json:"schedule" mapstructure:"schedule"`
	DedupeTTL time.Duration `json:"dedupe_ttl" mapstructure:"dedupe_ttl"`
	// MarkRead marks notifications as read once every sink accepted them
	MarkRead bool `json:"mark_read" mapstructure:"mark_read"`
}

// Watcher polls a Source on a cron schedule
type Watcher struct {
	source   Source
	marker   Marker
	sinks    []Sink
	schedule cron.Schedule
	expr     string
	markRead bool
	seen     *utils.TTLCache[int, struct{}]
	log      logrus.FieldLogger

	pollMutex sync.Mutex
}

// NewParser returns the parser used for watch schedules. It accepts
// standard five-field expressions and descriptors such as "@every 1m".
func NewParser() cron.Parser {
	return cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
}

// NewWatcher creates a Watcher. marker may be nil when cfg.MarkRead is false.
func NewWatcher(source Source, marker Marker, cfg Config, log logrus.FieldLogger, sinks ...Sink) (*Watcher, error) {
	if source == nil {
		return nil, fmt.Errorf("notification source is required")
	}
	if len(sinks) == 0 {
		return nil, fmt.Errorf("at least one sink is required")
	}
	if cfg.MarkRead && marker == nil {
		return nil, fmt.Errorf("mark_read requires a marker")
	}
	expr := cfg.Schedule
	if expr == "" {
		expr = DefaultSchedule
	}
	schedule, err := NewParser().Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid watch schedule %q: %w", expr, err)
	}
	ttl := cfg.DedupeTTL
	if ttl <= 0 {
		ttl = DefaultDedupeTTL
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Watcher{
		source:   source,
		marker:   marker,
		sinks:    sinks,
		schedule: schedule,
		expr:     expr,
		markRead: cfg.MarkRead,
		seen:     utils.NewTTLCache[int, struct{}](ttl),
		log:      log,
	}, nil
}

// Next returns the next poll time after from
func (w *Watcher) Next(from time.Time) time.Time {
	return w.schedule.Next(from)
}

// Poll fetches unread notifications once and delivers the ones not seen
// before. It returns how many notifications were delivered. Notifications
// are only remembered when every sink accepted them, so a failed delivery
// is retried on the next poll.
func (w *Watcher) Poll(ctx context.Context) (int, error) {
	w.pollMutex.Lock()
	defer w.pollMutex.Unlock()

	w.seen.Prune()

	unread, err := w.source.Unread(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch notifications: %w", err)
	}

	fresh := make([]tracker.Notification, 0, len(unread))
	for _, n := range unread {
		if !w.seen.Has(n.ID) {
			fresh = append(fresh, n)
		}
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	var errs []error
	for _, sink := range w.sinks {
		if err := sink.Deliver(ctx, fresh); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return 0, fmt.Errorf("failed to deliver notifications: %w", errors.Join(errs...))
	}

	for _, n := range fresh {
		w.seen.Set(n.ID, struct{}{})
		if w.markRead {
			if err := w.marker.MarkRead(ctx, n.ID); err != nil {
				w.log.Warnf("[NOTIFY] Failed to mark notification %d as read: %v", n.ID, err)
			}
		}
	}
	w.log.Debugf("[NOTIFY] Delivered %d notification(s)", len(fresh))
	return len(fresh), nil
}

// Run polls immediately and then on every tick of the schedule until ctx
// is cancelled. A 401 from the server stops the watcher, since the session
// has already been cleared by the client by then.
func (w *Watcher) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	tick := func() {
		if _, err := w.Poll(ctx); err != nil {
			if client.IsUnauthorized(err) {
				cancel(err)
				return
			}
			if ctx.Err() == nil {
				w.log.Errorf("[NOTIFY] Poll failed: %v", err)
			}
		}
	}

	c := cron.New(cron.WithParser(NewParser()))
	if _, err := c.AddFunc(w.expr, tick); err != nil {
		return fmt.Errorf("failed to schedule watcher: %w", err)
	}

	w.log.Infof("[NOTIFY] Watching notifications (schedule: %s)", w.expr)
	tick()
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()

	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
		return cause
	}
	return nil
}
