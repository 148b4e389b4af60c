package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeTaskCreated     = "task.created"
	EventTypeTaskUpdated     = "task.updated"
	EventTypeTaskApproved    = "task.approved"
	EventTypeTaskArchived    = "task.archived"
	EventTypeCommentAdded    = "comment.added"
	EventTypeReportGenerated = "report.generated"
)

// TaskEvents lists the lifecycle events a task can emit.
var TaskEvents = []string{
	EventTypeTaskCreated,
	EventTypeTaskUpdated,
	EventTypeTaskApproved,
	EventTypeTaskArchived,
}

type TaskEvent struct {
	BaseEvent
	TaskID     string `json:"task_id"`
	ActorID    string `json:"actor_id"`
	Department string `json:"department"`
	FromStatus string `json:"from_status,omitempty"`
	ToStatus   string `json:"to_status"`
}

func NewTaskEvent(eventType, taskID, actorID, department, from, to string) *TaskEvent {
	return &TaskEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      eventType,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"task_id":     taskID,
				"actor_id":    actorID,
				"department":  department,
				"from_status": from,
				"to_status":   to,
			},
		},
		TaskID:     taskID,
		ActorID:    actorID,
		Department: department,
		FromStatus: from,
		ToStatus:   to,
	}
}

type CommentAddedEvent struct {
	BaseEvent
	CommentID string `json:"comment_id"`
	TaskID    string `json:"task_id"`
	AuthorID  string `json:"author_id"`
}

func NewCommentAddedEvent(commentID, taskID, authorID string) *CommentAddedEvent {
	return &CommentAddedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeCommentAdded,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"comment_id": commentID,
				"task_id":    taskID,
				"author_id":  authorID,
			},
		},
		CommentID: commentID,
		TaskID:    taskID,
		AuthorID:  authorID,
	}
}

type ReportGeneratedEvent struct {
	BaseEvent
	ReportID    string `json:"report_id"`
	Template    string `json:"template"`
	GeneratedBy string `json:"generated_by"`
	Department  string `json:"department,omitempty"`
}

func NewReportGeneratedEvent(reportID, template, generatedBy, department string) *ReportGeneratedEvent {
	return &ReportGeneratedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeReportGenerated,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"report_id":    reportID,
				"template":     template,
				"generated_by": generatedBy,
				"department":   department,
			},
		},
		ReportID:    reportID,
		Template:    template,
		GeneratedBy: generatedBy,
		Department:  department,
	}
}
