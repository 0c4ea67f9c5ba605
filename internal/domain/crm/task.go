package crm

import (
	"strings"
	"time"

	"github.com/crm/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// TaskPriority represents how urgent a task is
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
)

// IsValid checks if the priority is a valid TaskPriority
func (p TaskPriority) IsValid() bool {
	return p == TaskPriorityLow || p == TaskPriorityMedium || p == TaskPriorityHigh
}

// TaskStatus represents the progress of a task
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// IsValid checks if the status is a valid TaskStatus
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusCancelled:
		return true
	}
	return false
}

// IsOpen returns true while the task still needs work
func (s TaskStatus) IsOpen() bool {
	return s == TaskStatusPending || s == TaskStatusInProgress
}

// Task is a follow-up activity, optionally attached to a lead or a deal
type Task struct {
	shared.OwnedAggregateRoot
	Title       string
	Description string
	DueAt       *time.Time
	Priority    TaskPriority
	Status      TaskStatus
	LeadID      *uuid.UUID
	DealID      *uuid.UUID
	AssignedTo  uuid.UUID
	CompletedAt *time.Time
	RemindedAt  *time.Time
}

// NewTask creates a new pending task assigned to its creator
func NewTask(createdBy uuid.UUID, title string, priority TaskPriority) (*Task, error) {
	if err := validateRequired("INVALID_TASK_TITLE", "Task title", title, 200); err != nil {
		return nil, err
	}
	if priority == "" {
		priority = TaskPriorityMedium
	}
	if !priority.IsValid() {
		return nil, shared.NewDomainError("INVALID_TASK_PRIORITY", "Invalid task priority")
	}

	return &Task{
		OwnedAggregateRoot: shared.NewOwnedAggregateRoot(createdBy),
		Title:              strings.TrimSpace(title),
		Priority:           priority,
		Status:             TaskStatusPending,
		AssignedTo:         createdBy,
	}, nil
}

// UpdateDetails updates the editable fields of a task.
// Moving the due date re-arms the reminder.
func (t *Task) UpdateDetails(title, description string, priority TaskPriority, dueAt *time.Time) error {
	if err := validateRequired("INVALID_TASK_TITLE", "Task title", title, 200); err != nil {
		return err
	}
	if !priority.IsValid() {
		return shared.NewDomainError("INVALID_TASK_PRIORITY", "Invalid task priority")
	}
	if !sameTime(t.DueAt, dueAt) {
		t.RemindedAt = nil
	}
	t.Title = strings.TrimSpace(title)
	t.Description = strings.TrimSpace(description)
	t.Priority = priority
	t.DueAt = dueAt
	t.IncrementVersion()
	return nil
}

// SetStatus changes the status of an open task
func (t *Task) SetStatus(status TaskStatus) error {
	if !status.IsValid() {
		return shared.NewDomainError("INVALID_TASK_STATUS", "Invalid task status")
	}
	if !t.Status.IsOpen() {
		return shared.NewDomainError("INVALID_STATE", "Task is already "+string(t.Status))
	}
	t.Status = status
	if status == TaskStatusCompleted {
		now := time.Now().UTC()
		t.CompletedAt = &now
	}
	t.IncrementVersion()
	return nil
}

// Complete marks the task as done
func (t *Task) Complete() error {
	return t.SetStatus(TaskStatusCompleted)
}

// Assign hands the task to another user
func (t *Task) Assign(userID uuid.UUID) error {
	if userID == uuid.Nil {
		return shared.NewDomainError("INVALID_ASSIGNEE", "Assignee cannot be empty")
	}
	t.AssignedTo = userID
	t.IncrementVersion()
	return nil
}

// NeedsReminder reports whether a reminder is due at now given the lead time
func (t *Task) NeedsReminder(now time.Time, leadTime time.Duration) bool {
	if !t.Status.IsOpen() || t.DueAt == nil || t.RemindedAt != nil {
		return false
	}
	return !t.DueAt.After(now.Add(leadTime))
}

// MarkReminded stamps the reminder dispatch time
func (t *Task) MarkReminded(at time.Time) {
	t.RemindedAt = &at
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
