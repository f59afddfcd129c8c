package client

import (
	"context"
	"iter"
	"strconv"

	"github.com/Sternrassler/justcall-client/pkg/pagination"
)

// MaxItems caps the number of records an Iter method yields.
func MaxItems(n int) pagination.Option {
	return pagination.MaxItems(n)
}

// iterate wires a page fetch into a pagination driver admitted through the client's gate.
func (c *Client) iterate(ctx context.Context, cfg pagination.Config[Record], fetch pagination.FetchFunc[Record], opts []pagination.Option) iter.Seq2[Record, error] {
	cfg.Gate = c.gate
	d, err := pagination.New(cfg, fetch)
	if err != nil {
		return func(yield func(Record, error) bool) {
			yield(nil, err)
		}
	}
	return d.Iterate(ctx, opts...)
}

// listPage adapts a list request to a pagination page.
func (c *Client) listPage(ctx context.Context, r request, itemsKey string) (pagination.Page[Record], error) {
	r.admitted = true
	list, err := c.doList(ctx, r, itemsKey)
	if err != nil {
		return pagination.Page[Record]{}, err
	}
	return pagination.Page[Record]{Items: list.Items, Total: list.Total, TotalKnown: list.HasTotal}, nil
}

func recordID(r Record) (string, bool) {
	return r.ID()
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
