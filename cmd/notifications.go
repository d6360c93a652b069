package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/hr-portal/internal/core/events"
	"github.com/frahmantamala/hr-portal/internal/notification"
	"github.com/frahmantamala/hr-portal/pkg/logger"
	"github.com/spf13/cobra"
)

var notificationsCmd = &cobra.Command{
	Use:   "notifications",
	Short: "Notification channel commands",
	Long:  `Inspect the real-time notification channel the portal listens to`,
}

var tailNotificationsCmd = &cobra.Command{
	Use:   "tail",
	Short: "Attach to the notification channel and print envelopes",
	Long:  `Connect to the notification channel with an access token and print every consumed envelope until interrupted`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return tailNotifications(cmd)
	},
}

var (
	tailURL   string
	tailToken string
)

func init() {
	tailNotificationsCmd.Flags().StringVar(&tailURL, "url", "", "notification websocket url (defaults to notification.url)")
	tailNotificationsCmd.Flags().StringVar(&tailToken, "token", os.Getenv("HR_PORTAL_TOKEN"), "access token (defaults to $HR_PORTAL_TOKEN)")

	notificationsCmd.AddCommand(tailNotificationsCmd)
}

func tailNotifications(cmd *cobra.Command) error {
	if tailToken == "" {
		return errors.New("an access token is required")
	}

	lc := notification.ListenerConfig{URL: tailURL}
	if cfg, err := loadConfig(configPath); err == nil {
		if lc.URL == "" {
			lc.URL = cfg.Notification.URL
		}
		lc.MaxAttempts = cfg.Notification.MaxAttempts
		lc.BaseDelay = cfg.Notification.BaseDelay
		lc.MaxDelay = cfg.Notification.MaxDelay
	}
	if lc.URL == "" {
		return errors.New("no notification url: pass --url or configure notification.url")
	}

	lg := logger.LoggerWrapper()

	bus := events.NewEventBus(lg)
	out := cmd.OutOrStdout()
	bus.Subscribe(events.EventTypeNotificationReceived, "cli.tail", func(ctx context.Context, event events.Event) error {
		e, ok := event.(*events.NotificationReceivedEvent)
		if !ok {
			return nil
		}
		fmt.Fprintf(out, "%s %-18s %s\n", e.OccurredAt().Format(time.RFC3339), e.MessageType, string(e.Body))
		return nil
	})

	listener := notification.NewListener(lc, bus, lg)
	if err := listener.SetAccessToken(tailToken); err != nil {
		return err
	}
	defer listener.Stop()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case sig := <-sigChan:
			lg.Info("stopping notification tail", "signal", sig)
			return nil
		case <-ticker.C:
			if state, attempts := listener.State(); state == notification.StateGaveUp {
				return fmt.Errorf("notification channel unreachable after %d attempts", attempts)
			}
		}
	}
}
