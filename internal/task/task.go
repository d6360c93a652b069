package task

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	errors "github.com/frahmantamala/hr-portal/internal"
	"github.com/frahmantamala/hr-portal/internal/core/common/validation"
	"github.com/frahmantamala/hr-portal/internal/transport/httpclient"
)

type Status string

const (
	StatusAssigned          Status = "ASSIGNED"
	StatusInProgress        Status = "IN_PROGRESS"
	StatusSubmitted         Status = "SUBMITTED"
	StatusApproved          Status = "APPROVED"
	StatusRevisionRequested Status = "REVISION_REQUESTED"
	StatusRejected          Status = "REJECTED"
)

type Comment struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	AssigneeID  string     `json:"assignee_id"`
	CreatedBy   string     `json:"created_by"`
	Status      Status     `json:"status"`
	Priority    string     `json:"priority,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Submission  string     `json:"submission,omitempty"`
	Feedback    string     `json:"feedback,omitempty"`
	Comments    []Comment  `json:"comments,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type CreateTaskDTO struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	AssigneeID  string     `json:"assignee_id"`
	Priority    string     `json:"priority,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

func (d CreateTaskDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("title", d.Title).Required().MaxLength(200)
	v.Field("description", d.Description).MaxLength(5000)
	v.Field("assignee_id", d.AssigneeID).Required()
	v.Field("priority", d.Priority).OneOf("LOW", "MEDIUM", "HIGH")
	if d.DueDate != nil {
		v.Field("due_date", *d.DueDate).Custom(func(value interface{}) *errors.AppError {
			if due, ok := value.(time.Time); ok && due.Before(time.Now().Add(-24*time.Hour)) {
				return errors.NewValidationFieldError("due_date", "due_date cannot be in the past", errors.ErrCodeInvalidDate)
			}
			return nil
		})
	}
	return v.Validate()
}

type SubmitTaskDTO struct {
	Submission string `json:"submission"`
}

func (d SubmitTaskDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("submission", d.Submission).Required().MaxLength(10000)
	return v.Validate()
}

type ReviewTaskDTO struct {
	Decision Status `json:"decision"`
	Feedback string `json:"feedback,omitempty"`
}

func (d ReviewTaskDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("decision", string(d.Decision)).Required().
		OneOf(string(StatusApproved), string(StatusRevisionRequested), string(StatusRejected))
	v.Field("feedback", d.Feedback).MaxLength(5000)
	return v.Validate()
}

type CommentDTO struct {
	Body string `json:"body"`
}

func (d CommentDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("body", d.Body).Required().MaxLength(2000)
	return v.Validate()
}

// Client talks to the task collaborator.
type Client struct {
	*httpclient.Client
}

func NewClient(base *httpclient.Client) *Client {
	return &Client{Client: base}
}

func taskPath(id string, suffix string) string {
	return "/api/v1/tasks/" + url.PathEscape(id) + suffix
}

func (c *Client) ListAssigned(ctx context.Context) ([]Task, error) {
	var out []Task
	if err := c.DoJSON(ctx, http.MethodGet, "/api/v1/tasks/assigned", nil, &out); err != nil {
		return nil, fmt.Errorf("list assigned tasks: %w", err)
	}
	return out, nil
}

func (c *Client) ListCreated(ctx context.Context) ([]Task, error) {
	var out []Task
	if err := c.DoJSON(ctx, http.MethodGet, "/api/v1/tasks/created", nil, &out); err != nil {
		return nil, fmt.Errorf("list created tasks: %w", err)
	}
	return out, nil
}

func (c *Client) Get(ctx context.Context, id string) (*Task, error) {
	var out Task
	if err := c.DoJSON(ctx, http.MethodGet, taskPath(id, ""), nil, &out); err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	return &out, nil
}

func (c *Client) Create(ctx context.Context, dto CreateTaskDTO) (*Task, error) {
	var out Task
	if err := c.DoJSON(ctx, http.MethodPost, "/api/v1/tasks", dto, &out); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return &out, nil
}

func (c *Client) Submit(ctx context.Context, id string, dto SubmitTaskDTO) (*Task, error) {
	var out Task
	if err := c.DoJSON(ctx, http.MethodPost, taskPath(id, "/submit"), dto, &out); err != nil {
		return nil, fmt.Errorf("submit task %s: %w", id, err)
	}
	return &out, nil
}

func (c *Client) Review(ctx context.Context, id string, dto ReviewTaskDTO) (*Task, error) {
	var out Task
	if err := c.DoJSON(ctx, http.MethodPost, taskPath(id, "/review"), dto, &out); err != nil {
		return nil, fmt.Errorf("review task %s: %w", id, err)
	}
	return &out, nil
}

func (c *Client) AddComment(ctx context.Context, id string, dto CommentDTO) (*Comment, error) {
	var out Comment
	if err := c.DoJSON(ctx, http.MethodPost, taskPath(id, "/comments"), dto, &out); err != nil {
		return nil, fmt.Errorf("comment on task %s: %w", id, err)
	}
	return &out, nil
}
