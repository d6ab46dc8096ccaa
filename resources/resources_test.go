package resources_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/go-admin-session/devapi"
	apperrors "github.com/jrsteele09/go-admin-session/internal/errors"
	"github.com/jrsteele09/go-admin-session/resources"
	"github.com/jrsteele09/go-admin-session/session"
	"github.com/jrsteele09/go-admin-session/storage"
	"github.com/jrsteele09/go-admin-session/users"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T, plan users.PlanType) (*resources.Service, *devapi.Server) {
	t.Helper()
	ctx := context.Background()

	api, err := devapi.New(devapi.WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	_, err = api.AddAccount("Ana Admin", "a@b.com", "Secret123", plan)
	require.NoError(t, err)
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	s, err := session.New(srv.URL+"/api", storage.NewMemoryRepo(), session.WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	t.Cleanup(s.Wait)
	require.NoError(t, s.Login(ctx, "a@b.com", "Secret123"))

	return resources.New(s.APIClient()), api
}

func TestCollection(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, users.PlanPro)

	items, total, err := svc.Clients.List(ctx, nil)
	require.NoError(t, err)
	require.Empty(t, items)
	require.NotNil(t, items)
	require.Zero(t, total)

	created, err := svc.Clients.Create(ctx, resources.Client{Name: "Acme", Email: "ops@acme.test"})
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	require.Equal(t, resources.ClientActive, created.Status)

	got, err := svc.Clients.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "Acme", got.Name)

	got.Status = resources.ClientArchived
	updated, err := svc.Clients.Update(ctx, got.ID, *got)
	require.NoError(t, err)
	require.Equal(t, resources.ClientArchived, updated.Status)

	require.NoError(t, svc.Clients.Delete(ctx, created.ID))

	_, err = svc.Clients.Get(ctx, created.ID)
	var apiErr *apperrors.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, 404, apiErr.StatusCode)
	require.Equal(t, "not found", apiErr.Message)

	t.Run("server validation message is kept", func(t *testing.T) {
		_, err := svc.Clients.Create(ctx, resources.Client{Name: "A"})
		require.True(t, apperrors.IsValidation(err))
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, "invalid data", apiErr.Message)
		require.NotEmpty(t, apiErr.Details)
	})
}

func TestPlanLimit(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, users.PlanFree)

	for i := 0; i < 5; i++ {
		_, err := svc.Clients.Create(ctx, resources.Client{Name: "Client", Email: "c@x.test"})
		require.NoError(t, err)
	}
	_, err := svc.Clients.Create(ctx, resources.Client{Name: "Client", Email: "c@x.test"})
	require.True(t, apperrors.IsValidation(err))
	require.Contains(t, err.Error(), "client limit exceeded")
}

func TestPaymentsAndSummary(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, users.PlanPro)

	acme, err := svc.Clients.Create(ctx, resources.Client{Name: "Acme", Email: "ops@acme.test"})
	require.NoError(t, err)
	globex, err := svc.Clients.Create(ctx, resources.Client{Name: "Globex", Email: "ap@globex.test"})
	require.NoError(t, err)

	_, err = svc.Tasks.Create(ctx, resources.Task{ClientID: acme.ID, Title: "Audit"})
	require.NoError(t, err)

	_, err = svc.Payments.Create(ctx, resources.Payment{ClientID: acme.ID, Amount: 100})
	require.NoError(t, err)
	paid, err := svc.Payments.Create(ctx, resources.Payment{ClientID: acme.ID, Amount: 50, Status: resources.PaymentPaid})
	require.NoError(t, err)
	require.NotNil(t, paid.PaidDate)
	_, err = svc.Payments.Create(ctx, resources.Payment{ClientID: globex.ID, Amount: 25, Status: resources.PaymentOverdue})
	require.NoError(t, err)

	payments, err := svc.PaymentsByClient(ctx, acme.ID)
	require.NoError(t, err)
	require.Len(t, payments, 2)
	for _, p := range payments {
		require.Equal(t, acme.ID, p.ClientID)
		require.Equal(t, "USD", p.Currency)
	}

	summary, err := svc.Summary(ctx)
	require.NoError(t, err)
	require.Equal(t, resources.Summary{
		Clients:         2,
		Tasks:           1,
		Payments:        3,
		PendingPayments: 2,
		PendingAmount:   125,
	}, *summary)
}

func TestModels(t *testing.T) {
	t.Run("client", func(t *testing.T) {
		c := resources.Client{Name: "Acme", Email: "ops@acme.test", Status: "gone"}
		require.Error(t, c.Validate())
		c.Status = resources.ClientInactive
		require.NoError(t, c.Validate())
	})

	t.Run("task total", func(t *testing.T) {
		task := resources.Task{Title: "Audit", ActualHours: 3, HourlyRate: 40}
		require.NoError(t, task.Validate())
		require.Equal(t, 120.0, task.Total())
	})

	t.Run("payment overdue", func(t *testing.T) {
		now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
		p := resources.Payment{ClientID: 1, Amount: 10, Status: resources.PaymentPending, DueDate: now.Add(-time.Hour)}
		require.NoError(t, p.Validate())
		require.True(t, p.Overdue(now))

		p.Status = resources.PaymentPaid
		require.False(t, p.Overdue(now))

		require.Error(t, (&resources.Payment{ClientID: 1}).Validate())
	})
}
