package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/crm/backend/internal/domain/crm"
	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/infrastructure/mail"
	"github.com/crm/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReminderJobName is the scheduler name of the task reminder job
const ReminderJobName = "task-reminders"

// EventTaskReminder is published for every reminder sent
const EventTaskReminder = "task.reminder"

// UserDirectory resolves reminder recipients
type UserDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error)
}

// ReminderConfig controls which tasks are reminded per run
type ReminderConfig struct {
	LeadTime  time.Duration
	BatchSize int
}

// ReminderJob reminds assignees of open tasks that fall due soon. Each task
// is reminded once: reminded_at is stamped after the in-app notification
// was stored.
type ReminderJob struct {
	tasks     crm.TaskRepository
	users     UserDirectory
	notifier  *Dispatcher
	mailer    mail.Mailer
	publisher shared.EventPublisher
	config    ReminderConfig
	logger    *zap.Logger
	now       func() time.Time
}

// NewReminderJob creates a new ReminderJob. The publisher may be nil.
func NewReminderJob(
	tasks crm.TaskRepository,
	users UserDirectory,
	notifier *Dispatcher,
	mailer mail.Mailer,
	publisher shared.EventPublisher,
	config ReminderConfig,
	logger *zap.Logger,
) *ReminderJob {
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	return &ReminderJob{
		tasks:     tasks,
		users:     users,
		notifier:  notifier,
		mailer:    mailer,
		publisher: publisher,
		config:    config,
		logger:    logger.With(zap.String("job", ReminderJobName)),
		now:       time.Now,
	}
}

// Name implements scheduler.Runner
func (j *ReminderJob) Name() string {
	return ReminderJobName
}

// Run sends one batch of reminders. Tasks whose notification could not be
// stored stay unreminded and are picked up by the next run.
func (j *ReminderJob) Run(ctx context.Context) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "ReminderJob", "Run",
		telemetry.AttrJob.String(ReminderJobName))
	defer span.End()

	now := j.now().UTC()
	tasks, err := j.tasks.FindDueForReminder(ctx, now.Add(j.config.LeadTime), j.config.BatchSize)
	if err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("load tasks due for reminder: %w", err)
	}

	sent := 0
	for _, task := range tasks {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !task.NeedsReminder(now, j.config.LeadTime) {
			continue
		}
		if j.remind(ctx, task, now) {
			sent++
		}
	}

	span.SetAttributes(telemetry.AttrItemsCount.Int(sent))
	if sent > 0 {
		j.logger.Info("Task reminders sent", zap.Int("count", sent), zap.Int("candidates", len(tasks)))
	}
	return nil
}

func (j *ReminderJob) remind(ctx context.Context, task *crm.Task, now time.Time) bool {
	log := j.logger.With(zap.String("task_id", task.ID.String()))
	due := task.DueAt.UTC().Format(time.RFC3339)
	title := "Task due soon: " + task.Title
	body := fmt.Sprintf("\"%s\" is due at %s", task.Title, due)

	if err := j.notifier.Notify(ctx, task.AssignedTo, crm.NotificationTaskReminder, title, body); err != nil {
		log.Error("Failed to store reminder notification", zap.Error(err))
		return false
	}

	j.sendMail(ctx, log, task.AssignedTo, title, body)

	if j.publisher != nil {
		event := shared.NewDomainEvent(EventTaskReminder, "task", task.ID, map[string]any{
			"assigned_to": task.AssignedTo.String(),
			"due_at":      due,
		})
		if err := j.publisher.Publish(ctx, event); err != nil {
			log.Warn("Failed to publish reminder event", zap.Error(err))
		}
	}

	stamped, err := j.tasks.MarkReminded(ctx, task.ID, now)
	if err != nil {
		log.Error("Failed to stamp reminder", zap.Error(err))
		return true
	}
	if !stamped {
		log.Debug("Task was already reminded")
	}
	return true
}

func (j *ReminderJob) sendMail(ctx context.Context, log *zap.Logger, userID uuid.UUID, subject, text string) {
	user, err := j.users.FindByID(ctx, userID)
	if err != nil {
		log.Warn("Reminder recipient not found", zap.String("user_id", userID.String()), zap.Error(err))
		return
	}
	if !user.CanLogin() || user.Email == "" {
		return
	}
	if err := j.mailer.Send(ctx, mail.Message{To: user.Email, Subject: subject, Text: text}); err != nil {
		log.Warn("Failed to send reminder e-mail", zap.Error(err))
	}
}
