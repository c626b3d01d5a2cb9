package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/tidwall/gjson"

	"github.com/JonMunkholm/registry/internal/table"
)

// Role is an assignable user role.
type Role struct {
	ID   string
	Name string
}

// FetchPage implements table.Fetcher with GET /users.
func (c *Client) FetchPage(ctx context.Context, q table.Query) (table.Page, error) {
	body, _, err := c.do(ctx, request{
		op:       "list users",
		fallback: "Failed to fetch users",
		method:   http.MethodGet,
		path:     "/users",
		query:    q.Params(),
	})
	if err != nil {
		return table.Page{}, err
	}

	data := gjson.GetBytes(body, "data")
	rows := make([]table.Row, 0, len(data.Array()))
	for _, item := range data.Array() {
		if m := decodeObject(item); m != nil {
			rows = append(rows, table.Row(m))
		}
	}
	return table.Page{Rows: rows, Total: int(gjson.GetBytes(body, "total").Int())}, nil
}

// FetchDetail implements table.DetailFetcher with GET /users/{id}.
func (c *Client) FetchDetail(ctx context.Context, id table.RowID) (table.Row, error) {
	body, _, err := c.do(ctx, request{
		op:       "get user",
		fallback: "Failed to fetch user",
		method:   http.MethodGet,
		path:     "/users/" + url.PathEscape(string(id)),
	})
	if err != nil {
		return nil, err
	}
	m := decodeObject(gjson.GetBytes(body, "data"))
	if m == nil {
		return nil, fmt.Errorf("get user: response has no data object")
	}
	return table.Row(m), nil
}

// Delete implements table.Mutator with DELETE /users/{id}.
func (c *Client) Delete(ctx context.Context, id table.RowID) error {
	_, _, err := c.do(ctx, request{
		op:       "delete user",
		fallback: "Failed to delete user",
		method:   http.MethodDelete,
		path:     "/users/" + url.PathEscape(string(id)),
	})
	return err
}

// BulkDelete implements table.Mutator with POST /users-delete-multiple.
func (c *Client) BulkDelete(ctx context.Context, ids []table.RowID) error {
	payload := struct {
		ID []table.RowID `json:"id"`
	}{ID: ids}
	body, err := jsonBody(payload)
	if err != nil {
		return fmt.Errorf("delete users: %w", err)
	}
	_, _, err = c.do(ctx, request{
		op:          "delete users",
		fallback:    "Failed to delete users",
		method:      http.MethodPost,
		path:        "/users-delete-multiple",
		body:        body,
		contentType: "application/json",
	})
	return err
}

// Export implements table.Mutator with GET /users-export. The bytes are returned as sent.
func (c *Client) Export(ctx context.Context) ([]byte, error) {
	body, _, err := c.do(ctx, request{
		op:       "export users",
		fallback: "Failed to export users",
		method:   http.MethodGet,
		path:     "/users-export",
	})
	return body, err
}

// Roles lists the assignable roles with GET /roles.
func (c *Client) Roles(ctx context.Context) ([]Role, error) {
	body, _, err := c.do(ctx, request{
		op:       "list roles",
		fallback: "Failed to fetch roles",
		method:   http.MethodGet,
		path:     "/roles",
	})
	if err != nil {
		return nil, err
	}
	var roles []Role
	gjson.GetBytes(body, "data").ForEach(func(_, v gjson.Result) bool {
		roles = append(roles, Role{ID: v.Get("id").String(), Name: v.Get("name").String()})
		return true
	})
	return roles, nil
}
