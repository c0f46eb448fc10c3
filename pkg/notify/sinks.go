package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/slack-go/slack"

	"github.com/takutakahashi/trackerctl/pkg/tracker"
)

// Format renders a notification as a single line
func Format(n tracker.Notification) string {
	var b strings.Builder
	b.WriteString(n.CreatedAt.Local().Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, " [%s] %s", n.Type, n.Message)
	if n.Actor != nil && n.Actor.Username != "" {
		fmt.Fprintf(&b, " (by %s)", n.Actor.Username)
	}
	return b.String()
}

// WriterSink prints notifications to a writer, one per line
type WriterSink struct {
	w     io.Writer
	mutex sync.Mutex
}

// NewWriterSink creates a WriterSink
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

// Deliver implements Sink
func (s *WriterSink) Deliver(_ context.Context, notifications []tracker.Notification) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, n := range notifications {
		if _, err := fmt.Fprintln(s.w, Format(n)); err != nil {
			return fmt.Errorf("failed to write notification: %w", err)
		}
	}
	return nil
}

// SlackSink posts notifications to a Slack incoming webhook
type SlackSink struct {
	webhookURL string
	channel    string
	httpClient *http.Client
}

// NewSlackSink creates a SlackSink. channel overrides the webhook's
// default channel when set; httpClient may be nil.
func NewSlackSink(webhookURL, channel string, httpClient *http.Client) (*SlackSink, error) {
	if webhookURL == "" {
		return nil, fmt.Errorf("slack webhook URL is required")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &SlackSink{webhookURL: webhookURL, channel: channel, httpClient: httpClient}, nil
}

// Deliver implements Sink. All notifications go out in one message.
func (s *SlackSink) Deliver(ctx context.Context, notifications []tracker.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	msg := &slack.WebhookMessage{
		Channel: s.channel,
		Text:    fmt.Sprintf("%d new tracker notification(s)", len(notifications)),
		Blocks:  &slack.Blocks{BlockSet: buildBlocks(notifications)},
	}
	if err := slack.PostWebhookCustomHTTPContext(ctx, s.webhookURL, s.httpClient, msg); err != nil {
		return fmt.Errorf("failed to post slack webhook: %w", err)
	}
	return nil
}

func buildBlocks(notifications []tracker.Notification) []slack.Block {
	blocks := make([]slack.Block, 0, len(notifications))
	for _, n := range notifications {
		text := fmt.Sprintf("*%s*\n%s", n.Type, n.Message)
		if n.Actor != nil && n.Actor.Username != "" {
			text += fmt.Sprintf("\n_by %s_", n.Actor.Username)
		}
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, text, false, false),
			nil, nil,
		))
	}
	return blocks
}
