package department

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/frahmantamala/hr-portal/internal/transport/httpclient"
)

type Department struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Code          string `json:"code,omitempty"`
	Description   string `json:"description,omitempty"`
	ManagerID     string `json:"manager_id,omitempty"`
	EmployeeCount int    `json:"employee_count,omitempty"`
}

// Client talks to the department collaborator.
type Client struct {
	*httpclient.Client
}

func NewClient(base *httpclient.Client) *Client {
	return &Client{Client: base}
}

func (c *Client) List(ctx context.Context) ([]Department, error) {
	var out []Department
	if err := c.DoJSON(ctx, http.MethodGet, "/api/v1/departments", nil, &out); err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	return out, nil
}

func (c *Client) Get(ctx context.Context, id string) (*Department, error) {
	var out Department
	if err := c.DoJSON(ctx, http.MethodGet, "/api/v1/departments/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, fmt.Errorf("get department %s: %w", id, err)
	}
	return &out, nil
}
