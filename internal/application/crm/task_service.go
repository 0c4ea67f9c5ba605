package crm

import (
	"context"
	"time"

	"github.com/crm/backend/internal/domain/crm"
	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TaskService handles task operations within the caller's access scope
type TaskService struct {
	taskRepo crm.TaskRepository
	leadRepo crm.LeadRepository
	dealRepo crm.DealRepository
	deps     Collaborators
	logger   *zap.Logger
}

// NewTaskService creates a new TaskService
func NewTaskService(taskRepo crm.TaskRepository, leadRepo crm.LeadRepository, dealRepo crm.DealRepository, deps Collaborators) *TaskService {
	return &TaskService{
		taskRepo: taskRepo,
		leadRepo: leadRepo,
		dealRepo: dealRepo,
		deps:     deps,
		logger:   deps.Logger,
	}
}

// Create creates a task. Linked leads and deals must be visible to the actor.
func (s *TaskService) Create(ctx context.Context, actor identity.Actor, input CreateTaskInput) (*TaskDTO, error) {
	if err := s.checkLinks(ctx, actor, input.LeadID, input.DealID); err != nil {
		return nil, err
	}

	task, err := crm.NewTask(actor.UserID, input.Title, crm.TaskPriority(input.Priority))
	if err != nil {
		return nil, err
	}
	if err := task.UpdateDetails(input.Title, input.Description, task.Priority, input.DueAt); err != nil {
		return nil, err
	}
	task.LeadID = input.LeadID
	task.DealID = input.DealID
	if input.AssignedTo != nil && *input.AssignedTo != actor.UserID {
		if err := s.deps.checkAssignee(ctx, actor, *input.AssignedTo); err != nil {
			return nil, err
		}
		if err := task.Assign(*input.AssignedTo); err != nil {
			return nil, err
		}
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, internalError(s.logger, err, "create task")
	}

	s.logger.Info("Task created", zap.String("task_id", task.ID.String()))
	return toTaskDTO(task), nil
}

// GetByID returns a visible task
func (s *TaskService) GetByID(ctx context.Context, actor identity.Actor, id uuid.UUID) (*TaskDTO, error) {
	task, err := s.taskRepo.FindByID(ctx, actor.Scope, id)
	if err != nil {
		return nil, lookupError(s.logger, err, "task")
	}
	return toTaskDTO(task), nil
}

// List returns the visible tasks matching the filter
func (s *TaskService) List(ctx context.Context, actor identity.Actor, filter crm.TaskFilter) (*shared.Paginated[TaskDTO], error) {
	filter.Filter = filter.Normalize()
	tasks, total, err := s.taskRepo.FindAll(ctx, actor.Scope, filter)
	if err != nil {
		return nil, internalError(s.logger, err, "list tasks")
	}

	items := make([]TaskDTO, len(tasks))
	for i, task := range tasks {
		items[i] = *toTaskDTO(task)
	}
	page := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &page, nil
}

// Update edits a visible task
func (s *TaskService) Update(ctx context.Context, actor identity.Actor, input UpdateTaskInput) (*TaskDTO, error) {
	task, err := s.taskRepo.FindByID(ctx, actor.Scope, input.ID)
	if err != nil {
		return nil, lookupError(s.logger, err, "task")
	}

	priority := task.Priority
	if input.Priority != "" {
		priority = crm.TaskPriority(input.Priority)
	}
	if err := task.UpdateDetails(input.Title, input.Description, priority, input.DueAt); err != nil {
		return nil, err
	}
	if input.Status != nil && crm.TaskStatus(*input.Status) != task.Status {
		if err := task.SetStatus(crm.TaskStatus(*input.Status)); err != nil {
			return nil, err
		}
	}
	if input.AssignedTo != nil && *input.AssignedTo != task.AssignedTo {
		if err := s.deps.checkAssignee(ctx, actor, *input.AssignedTo); err != nil {
			return nil, err
		}
		if err := task.Assign(*input.AssignedTo); err != nil {
			return nil, err
		}
	}

	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, internalError(s.logger, err, "update task")
	}
	return toTaskDTO(task), nil
}

// Complete marks a visible task as done
func (s *TaskService) Complete(ctx context.Context, actor identity.Actor, id uuid.UUID) (*TaskDTO, error) {
	task, err := s.taskRepo.FindByID(ctx, actor.Scope, id)
	if err != nil {
		return nil, lookupError(s.logger, err, "task")
	}
	if err := task.Complete(); err != nil {
		return nil, err
	}

	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, internalError(s.logger, err, "complete task")
	}

	s.logger.Info("Task completed", zap.String("task_id", task.ID.String()))
	return toTaskDTO(task), nil
}

// Delete soft-deletes a visible task
func (s *TaskService) Delete(ctx context.Context, actor identity.Actor, id uuid.UUID) error {
	if err := s.taskRepo.Delete(ctx, actor.Scope, id); err != nil {
		return lookupError(s.logger, err, "task")
	}
	return nil
}

// ListDueForReminder returns open tasks due within leadTime that were not reminded yet.
// It is not scoped: the reminder job runs on behalf of the system.
func (s *TaskService) ListDueForReminder(ctx context.Context, now time.Time, leadTime time.Duration, limit int) ([]*crm.Task, error) {
	tasks, err := s.taskRepo.FindDueForReminder(ctx, now.Add(leadTime), limit)
	if err != nil {
		return nil, internalError(s.logger, err, "load tasks due for reminder")
	}
	return tasks, nil
}

func (s *TaskService) checkLinks(ctx context.Context, actor identity.Actor, leadID, dealID *uuid.UUID) error {
	if leadID != nil {
		if _, err := s.leadRepo.FindByID(ctx, actor.Scope, *leadID); err != nil {
			return lookupError(s.logger, err, "lead")
		}
	}
	if dealID != nil {
		if _, err := s.dealRepo.FindByID(ctx, actor.Scope, *dealID); err != nil {
			return lookupError(s.logger, err, "deal")
		}
	}
	return nil
}
