package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/jrsteele09/go-admin-session/internal/apiclient"
)

// Collection is a REST collection at path whose list replies look like
// {"<key>": [...], "total": n}.
type Collection[T any] struct {
	api  *apiclient.Client
	path string
	key  string
}

func NewCollection[T any](api *apiclient.Client, path, key string) *Collection[T] {
	return &Collection[T]{api: api, path: path, key: key}
}

func (c *Collection[T]) List(ctx context.Context, query url.Values) ([]T, int, error) {
	endpoint := c.path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var raw map[string]json.RawMessage
	if err := c.api.Do(ctx, http.MethodGet, endpoint, nil, &raw); err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", c.key, err)
	}

	items := []T{}
	if data, ok := raw[c.key]; ok && string(data) != "null" {
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, 0, fmt.Errorf("decode %s: %w", c.key, err)
		}
	}

	total := len(items)
	if data, ok := raw["total"]; ok {
		if err := json.Unmarshal(data, &total); err != nil {
			return nil, 0, fmt.Errorf("decode %s total: %w", c.key, err)
		}
	}
	return items, total, nil
}

func (c *Collection[T]) Get(ctx context.Context, id int64) (*T, error) {
	var item T
	if err := c.api.Do(ctx, http.MethodGet, c.itemPath(id), nil, &item); err != nil {
		return nil, fmt.Errorf("get %s %d: %w", c.key, id, err)
	}
	return &item, nil
}

func (c *Collection[T]) Create(ctx context.Context, item T) (*T, error) {
	var created T
	if err := c.api.Do(ctx, http.MethodPost, c.path, item, &created); err != nil {
		return nil, fmt.Errorf("create %s: %w", c.key, err)
	}
	return &created, nil
}

func (c *Collection[T]) Update(ctx context.Context, id int64, item T) (*T, error) {
	var updated T
	if err := c.api.Do(ctx, http.MethodPut, c.itemPath(id), item, &updated); err != nil {
		return nil, fmt.Errorf("update %s %d: %w", c.key, id, err)
	}
	return &updated, nil
}

func (c *Collection[T]) Delete(ctx context.Context, id int64) error {
	if err := c.api.Do(ctx, http.MethodDelete, c.itemPath(id), nil, nil); err != nil {
		return fmt.Errorf("delete %s %d: %w", c.key, id, err)
	}
	return nil
}

func (c *Collection[T]) itemPath(id int64) string {
	return c.path + "/" + strconv.FormatInt(id, 10)
}
