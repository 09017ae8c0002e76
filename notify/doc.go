// Package notify provides notification services for session events.
//
// Core types:
//   - Notifier: Interface for sending notifications
//   - Event: Notification event with stage, message, and details
//   - Stage: Session phase (routing, executing, review, etc.)
//
// Implementations:
//   - SlackNotifier: Sends notifications to Slack webhooks
//   - WebhookNotifier: Sends notifications to generic webhooks
//   - LogNotifier: Logs notifications (for testing/debugging)
//   - MultiNotifier: Combines multiple notifiers
//   - NopNotifier: No-op notifier (for testing)
//
// Example usage:
//
//	notifier := notify.NewSlackNotifier(webhookURL,
//	    notify.WithSlackChannel("#task-alerts"),
//	)
//	err := notifier.Notify(ctx, notify.Event{
//	    Stage:   notify.StageComplete,
//	    Message: "session finished",
//	})
package notify
