// File: internal/domain/ports/adapter/notifier.go
package adapter

import "context"

// NotificationSender delivers one user-facing notification. Implementations
// talk to mail/push providers; failures are retried by the job queue, not
// here.
type NotificationSender interface {
	Send(ctx context.Context, userID, eventType string, payload []byte) error
}

// Job is a retryable unit of background work. Run is re-invoked with backoff
// until it succeeds or the queue's attempt bound is reached, at which point
// OnDead fires exactly once.
type Job struct {
	Kind   string
	Run    func(ctx context.Context) error
	OnDead func(ctx context.Context, attempts int, lastErr error)
}

// JobQueue accepts background jobs for asynchronous execution with bounded
// retries. Submit never blocks on job execution.
type JobQueue interface {
	Submit(job Job) error
}
