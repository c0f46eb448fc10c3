package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/takutakahashi/trackerctl/pkg/notify"
	"github.com/takutakahashi/trackerctl/pkg/output"
	"github.com/takutakahashi/trackerctl/pkg/tracker"
	"github.com/takutakahashi/trackerctl/pkg/utils"
)

func newNotificationsCmd(a *app) *cobra.Command {
	notificationsCmd := &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"notification", "notif"},
		Short:   "Read and manage notifications",
	}

	var unreadOnly bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List notifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				notifications []tracker.Notification
				err           error
			)
			if unreadOnly {
				notifications, err = a.tracker.Notifications.Unread(cmd.Context())
			} else {
				notifications, err = a.tracker.Notifications.List(cmd.Context())
			}
			if err != nil {
				return failed("list notifications", err)
			}
			return a.print(cmd, notifications, func() *output.Table { return notificationTable(notifications) })
		},
	}
	listCmd.Flags().BoolVar(&unreadOnly, "unread", false, "Only show unread notifications")
	notificationsCmd.AddCommand(listCmd)

	notificationsCmd.AddCommand(
		idCommand(a, "notification", "read ID", "Mark a notification as read", "mark notification as read", "Marked notification %d as read\n",
			func(cmd *cobra.Command, id int) error {
				return a.tracker.Notifications.MarkRead(cmd.Context(), id)
			}),
		idCommand(a, "notification", "unread ID", "Mark a notification as unread", "mark notification as unread", "Marked notification %d as unread\n",
			func(cmd *cobra.Command, id int) error {
				return a.tracker.Notifications.MarkUnread(cmd.Context(), id)
			}),
		idCommand(a, "notification", "delete ID", "Delete a notification", "delete notification", "Deleted notification %d\n",
			func(cmd *cobra.Command, id int) error {
				return a.tracker.Notifications.Delete(cmd.Context(), id)
			}),
	)

	notificationsCmd.AddCommand(&cobra.Command{
		Use:   "read-all",
		Short: "Mark every notification as read",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.tracker.Notifications.MarkAllRead(cmd.Context()); err != nil {
				return failed("mark notifications as read", err)
			}
			a.printf(cmd, "Marked all notifications as read\n")
			return nil
		},
	})

	notificationsCmd.AddCommand(newWatchCmd(a))
	return notificationsCmd
}

func newWatchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print new notifications as they arrive",
		Long: `Poll for unread notifications on a cron schedule and print each new one.
With --slack-webhook they are also posted to Slack. Stops on Ctrl-C or when
the session expires.

Examples:
  trackerctl notifications watch
  trackerctl notifications watch --schedule "*/5 * * * *" --slack-webhook https://hooks.slack.com/services/...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			watch := a.cfg.Watch

			sinks := []notify.Sink{notify.NewWriterSink(cmd.OutOrStdout())}
			if watch.SlackWebhook != "" {
				httpClient := utils.NewHTTPClient(utils.HTTPClientConfig{Timeout: a.cfg.Timeout})
				slackSink, err := notify.NewSlackSink(watch.SlackWebhook, watch.SlackChannel, httpClient)
				if err != nil {
					return err
				}
				sinks = append(sinks, slackSink)
			}

			notifications := a.tracker.Notifications
			watcher, err := notify.NewWatcher(notifications, notifications, watch.Config, a.log, sinks...)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := watcher.Run(ctx); err != nil {
				return failed("watch notifications", err)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.String("schedule", notify.DefaultSchedule, "Cron schedule or @every interval")
	flags.String("slack-webhook", "", "Slack incoming webhook URL")
	flags.String("slack-channel", "", "Slack channel override")
	flags.Bool("mark-read", false, "Mark delivered notifications as read")
	a.bindFlags(flags, map[string]string{
		"watch.schedule":      "schedule",
		"watch.slack_webhook": "slack-webhook",
		"watch.slack_channel": "slack-channel",
		"watch.mark_read":     "mark-read",
	})
	return cmd
}
