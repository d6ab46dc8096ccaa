package devapi

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/jrsteele09/go-admin-session/resources"
	"github.com/jrsteele09/go-admin-session/users"
)

type validator interface {
	Validate() error
}

type row[T any] struct {
	owner int64
	item  T
}

// table is a per-user in-memory collection.
type table[T any] struct {
	mu     sync.RWMutex
	nextID int64
	rows   map[int64]*row[T]
	stamp  func(item *T, id int64, now time.Time)
}

func newTable[T any](stamp func(item *T, id int64, now time.Time)) *table[T] {
	return &table[T]{rows: make(map[int64]*row[T]), stamp: stamp}
}

func (t *table[T]) insert(owner int64, item T, now time.Time) T {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	t.stamp(&item, t.nextID, now)
	t.rows[t.nextID] = &row[T]{owner: owner, item: item}
	return item
}

func (t *table[T]) get(owner, id int64) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.rows[id]
	if !ok || r.owner != owner {
		var zero T
		return zero, false
	}
	return r.item, true
}

func (t *table[T]) replace(owner, id int64, item T, now time.Time) (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.rows[id]
	if !ok || r.owner != owner {
		var zero T
		return zero, false
	}
	t.stamp(&item, id, now)
	r.item = item
	return item, true
}

func (t *table[T]) remove(owner, id int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.rows[id]
	if !ok || r.owner != owner {
		return false
	}
	delete(t.rows, id)
	return true
}

func (t *table[T]) list(owner int64, keep func(T) bool) []T {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := make([]int64, 0, len(t.rows))
	for id, r := range t.rows {
		if r.owner == owner && (keep == nil || keep(r.item)) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	items := make([]T, 0, len(ids))
	for _, id := range ids {
		items = append(items, t.rows[id].item)
	}
	return items
}

func (t *table[T]) count(owner int64) int {
	return len(t.list(owner, nil))
}

type planLimit struct {
	clients int
	tasks   int
}

// planLimits caps clients and tasks per plan; zero means unlimited.
var planLimits = map[users.PlanType]planLimit{
	users.PlanFree:    {clients: 5, tasks: 10},
	users.PlanPro:     {clients: 20, tasks: 50},
	users.PlanPremium: {},
}

func (s *Server) clientLimit(owner int64) string {
	limit := s.planLimit(owner).clients
	if limit > 0 && s.clients.count(owner) >= limit {
		return "client limit exceeded for plan"
	}
	return ""
}

func (s *Server) taskLimit(owner int64) string {
	limit := s.planLimit(owner).tasks
	if limit > 0 && s.tasks.count(owner) >= limit {
		return "task limit exceeded for plan"
	}
	return ""
}

func (s *Server) planLimit(owner int64) planLimit {
	account, err := s.accounts.GetByID(owner)
	if err != nil {
		return planLimit{}
	}
	return planLimits[account.Plan]
}

func createHandler[T any](s *Server, t *table[T], limit func(owner int64) string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := userIDFrom(r.Context())
		var item T
		if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
			writeJSONErrorDetails(w, "invalid data", err.Error(), http.StatusBadRequest)
			return
		}
		if v, ok := any(&item).(validator); ok {
			if err := v.Validate(); err != nil {
				writeJSONErrorDetails(w, "invalid data", err.Error(), http.StatusBadRequest)
				return
			}
		}
		if limit != nil {
			if msg := limit(owner); msg != "" {
				writeJSONError(w, msg, http.StatusForbidden)
				return
			}
		}
		writeJSON(w, http.StatusCreated, t.insert(owner, item, s.nowFunc()))
	}
}

func listHandler[T any](t *table[T], key string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items := t.list(userIDFrom(r.Context()), nil)
		writeJSON(w, http.StatusOK, map[string]any{key: items, "total": len(items)})
	}
}

func getHandler[T any](t *table[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		item, found := t.get(userIDFrom(r.Context()), id)
		if !found {
			writeJSONError(w, "not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, item)
	}
}

func updateHandler[T any](s *Server, t *table[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		var item T
		if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
			writeJSONErrorDetails(w, "invalid data", err.Error(), http.StatusBadRequest)
			return
		}
		if v, ok := any(&item).(validator); ok {
			if err := v.Validate(); err != nil {
				writeJSONErrorDetails(w, "invalid data", err.Error(), http.StatusBadRequest)
				return
			}
		}
		updated, found := t.replace(userIDFrom(r.Context()), id, item, s.nowFunc())
		if !found {
			writeJSONError(w, "not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}
}

func deleteHandler[T any](t *table[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "id")
		if !ok {
			return
		}
		if !t.remove(userIDFrom(r.Context()), id) {
			writeJSONError(w, "not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
	}
}

func (s *Server) PaymentsByClientHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientID, ok := pathID(w, r, "clientID")
		if !ok {
			return
		}
		owner := userIDFrom(r.Context())
		if _, found := s.clients.get(owner, clientID); !found {
			writeJSONError(w, "client not found", http.StatusNotFound)
			return
		}
		payments := s.payments.list(owner, func(p resources.Payment) bool { return p.ClientID == clientID })
		writeJSON(w, http.StatusOK, map[string]any{"payments": payments, "total": len(payments)})
	}
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		writeJSONError(w, "invalid id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
