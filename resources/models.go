package resources

import (
	"fmt"
	"strings"
	"time"
)

type ClientStatus string

const (
	ClientActive   ClientStatus = "active"
	ClientInactive ClientStatus = "inactive"
	ClientArchived ClientStatus = "archived"
)

type Client struct {
	ID        int64        `json:"id"`
	Name      string       `json:"name"`
	Email     string       `json:"email"`
	Phone     string       `json:"phone"`
	Company   string       `json:"company,omitempty"`
	Address   string       `json:"address"`
	Notes     string       `json:"notes,omitempty"`
	Status    ClientStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func (c *Client) Validate() error {
	if len(strings.TrimSpace(c.Name)) < 2 {
		return fmt.Errorf("name must be at least 2 characters long")
	}
	if c.Email == "" {
		return fmt.Errorf("email is required")
	}
	switch c.Status {
	case "", ClientActive, ClientInactive, ClientArchived:
	default:
		return fmt.Errorf("invalid client status %q", c.Status)
	}
	return nil
}

type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskReview     TaskStatus = "review"
	TaskCompleted  TaskStatus = "completed"
	TaskCancelled  TaskStatus = "cancelled"
)

type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

type Task struct {
	ID             int64        `json:"id"`
	ClientID       int64        `json:"client_id"`
	Title          string       `json:"title"`
	Description    string       `json:"description,omitempty"`
	Status         TaskStatus   `json:"status"`
	Priority       TaskPriority `json:"priority"`
	DueDate        *time.Time   `json:"due_date,omitempty"`
	EstimatedHours float64      `json:"estimated_hours,omitempty"`
	ActualHours    float64      `json:"actual_hours,omitempty"`
	HourlyRate     float64      `json:"hourly_rate,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

func (t *Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("title is required")
	}
	return nil
}

// Total is the billable amount for the hours worked.
func (t *Task) Total() float64 {
	return t.HourlyRate * t.ActualHours
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentOverdue   PaymentStatus = "overdue"
	PaymentCancelled PaymentStatus = "cancelled"
)

type Payment struct {
	ID            int64         `json:"id"`
	ClientID      int64         `json:"client_id"`
	TaskID        *int64        `json:"task_id,omitempty"`
	Amount        float64       `json:"amount"`
	Currency      string        `json:"currency"`
	Status        PaymentStatus `json:"status"`
	Method        string        `json:"method,omitempty"`
	Description   string        `json:"description,omitempty"`
	InvoiceNumber string        `json:"invoice_number,omitempty"`
	DueDate       time.Time     `json:"due_date"`
	PaidDate      *time.Time    `json:"paid_date,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

func (p *Payment) Validate() error {
	if p.ClientID == 0 {
		return fmt.Errorf("client_id is required")
	}
	if p.Amount <= 0 {
		return fmt.Errorf("amount must be positive")
	}
	return nil
}

// Overdue reports whether a pending payment has passed its due date.
func (p *Payment) Overdue(now time.Time) bool {
	return p.Status == PaymentPending && !p.DueDate.IsZero() && now.After(p.DueDate)
}
