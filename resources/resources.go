package resources

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/jrsteele09/go-admin-session/internal/apiclient"
)

// Service groups the collections an admin works with. All calls go through
// the session's intercepting client.
type Service struct {
	api      *apiclient.Client
	Clients  *Collection[Client]
	Tasks    *Collection[Task]
	Payments *Collection[Payment]
}

func New(api *apiclient.Client) *Service {
	return &Service{
		api:      api,
		Clients:  NewCollection[Client](api, "/clients", "clients"),
		Tasks:    NewCollection[Task](api, "/tasks", "tasks"),
		Payments: NewCollection[Payment](api, "/payments", "payments"),
	}
}

// PaymentsByClient lists the payments recorded against one client.
func (s *Service) PaymentsByClient(ctx context.Context, clientID int64) ([]Payment, error) {
	var resp struct {
		Payments []Payment `json:"payments"`
	}
	endpoint := "/payments/client/" + strconv.FormatInt(clientID, 10)
	if err := s.api.Do(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, fmt.Errorf("list payments for client %d: %w", clientID, err)
	}
	if resp.Payments == nil {
		resp.Payments = []Payment{}
	}
	return resp.Payments, nil
}

// Summary counts what the dashboard shows.
type Summary struct {
	Clients         int     `json:"clients"`
	Tasks           int     `json:"tasks"`
	Payments        int     `json:"payments"`
	PendingPayments int     `json:"pending_payments"`
	PendingAmount   float64 `json:"pending_amount"`
}

func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	_, clients, err := s.Clients.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	_, tasks, err := s.Tasks.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	payments, total, err := s.Payments.List(ctx, nil)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Clients: clients, Tasks: tasks, Payments: total}
	for _, p := range payments {
		if p.Status == PaymentPending || p.Status == PaymentOverdue {
			summary.PendingPayments++
			summary.PendingAmount += p.Amount
		}
	}
	return summary, nil
}
