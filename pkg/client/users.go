package client

import (
	"context"
	"iter"
	"net/http"

	"github.com/Sternrassler/justcall-client/pkg/batch"
	"github.com/Sternrassler/justcall-client/pkg/pagination"
)

// UsersService reads the agents of the account.
type UsersService struct {
	client *Client
}

// ListUsersParams filters the user list.
type ListUsersParams struct {
	Available *bool // nil does not filter
	GroupID   int64
	Role      string
	Page      int    // 0-based
	PerPage   int    // 1 to 100, default 50
	Order     string // asc or desc, default desc
}

func (p ListUsersParams) query(page, perPage int) (query, error) {
	if err := validatePerPage(perPage, 1, 100); err != nil {
		return nil, err
	}
	if err := validateOrder(p.Order); err != nil {
		return nil, err
	}
	if page < 0 {
		return nil, invalidParam("page must not be negative (got %d)", page)
	}
	if perPage == 0 {
		perPage = 50
	}
	order := p.Order
	if order == "" {
		order = "desc"
	}
	q := query{}
	if p.Available != nil {
		q.setBool("available", *p.Available)
	}
	q.setInt("group_id", p.GroupID)
	q.setString("role", p.Role)
	q.setIntPtr("page", &page)
	q.setInt("per_page", int64(perPage))
	q.setString("order", order)
	return q, nil
}

// List returns one page of users.
func (s *UsersService) List(ctx context.Context, p ListUsersParams) (*ListResult, error) {
	q, err := p.query(p.Page, p.PerPage)
	if err != nil {
		return nil, err
	}
	return s.client.doList(ctx, request{
		method: http.MethodGet,
		path:   "/v2.1/users",
		query:  map[string][]string(q),
	}, "data")
}

// Get returns a single user.
func (s *UsersService) Get(ctx context.Context, id int64) (Record, error) {
	if id <= 0 {
		return nil, missingField("user_id")
	}
	rec, err := s.client.doJSON(ctx, request{
		method: http.MethodGet,
		path:   "/v2.1/users/" + itoa(id),
		route:  "/v2.1/users/{id}",
	})
	if err != nil {
		return nil, err
	}
	return unwrapData(rec), nil
}

// GetMany fetches several users concurrently through the client's rate gate.
func (s *UsersService) GetMany(ctx context.Context, ids []int64, concurrency int) (map[int64]Record, error) {
	cfg := batch.DefaultConfig()
	cfg.Name = "users"
	if concurrency > 0 {
		cfg.MaxConcurrency = concurrency
	}
	return batch.New(s.Get, cfg).FetchAll(ctx, ids)
}

// IterAll iterates over every matching user, 100 per page from page 0.
func (s *UsersService) IterAll(ctx context.Context, filter ListUsersParams, opts ...pagination.Option) iter.Seq2[Record, error] {
	if _, err := filter.query(0, 100); err != nil {
		return func(yield func(Record, error) bool) { yield(nil, err) }
	}
	return s.client.iterate(ctx, pagination.Config[Record]{
		Name:     "users",
		Strategy: pagination.EmptyPage,
	}, func(ctx context.Context, cur pagination.Cursor) (pagination.Page[Record], error) {
		q, err := filter.query(cur.Page, 100)
		if err != nil {
			return pagination.Page[Record]{}, err
		}
		return s.client.listPage(ctx, request{
			method: http.MethodGet,
			path:   "/v2.1/users",
			query:  map[string][]string(q),
		}, "data")
	}, opts)
}
