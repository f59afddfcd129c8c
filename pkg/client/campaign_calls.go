package client

import (
	"context"
	"iter"
	"net/http"
	"time"

	"github.com/Sternrassler/justcall-client/pkg/pagination"
)

// Sort orders accepted by ListCampaignCallsParams.Order.
const (
	CampaignCallsAscending  = "0"
	CampaignCallsDescending = "1"
)

// CampaignCallsService lists calls made from the Sales Dialer.
type CampaignCallsService struct {
	client *Client
}

// ListCampaignCallsParams filters Sales Dialer calls. Without a CampaignID,
// calls of every campaign are returned.
type ListCampaignCallsParams struct {
	CampaignID string
	StartDate  time.Time
	EndDate    time.Time
	Order      string // CampaignCallsAscending or CampaignCallsDescending
	Page       int
	PerPage    int // max 100
}

type campaignCallsBody struct {
	CampaignID string `json:"campaign_id,omitempty"`
	StartDate  string `json:"start_date,omitempty"`
	EndDate    string `json:"end_date,omitempty"`
	Order      string `json:"order,omitempty"`
	v1PageBody
}

func (p ListCampaignCallsParams) body(page, perPage int) (campaignCallsBody, error) {
	switch p.Order {
	case "", CampaignCallsAscending, CampaignCallsDescending:
	default:
		return campaignCallsBody{}, invalidParam("order must be 0 (ascending) or 1 (descending) (got %q)", p.Order)
	}
	if err := validatePerPage(perPage, 1, 100); err != nil {
		return campaignCallsBody{}, err
	}
	b := campaignCallsBody{
		CampaignID: p.CampaignID,
		Order:      p.Order,
		v1PageBody: newV1PageBody(page, perPage),
	}
	if !p.StartDate.IsZero() {
		b.StartDate = FormatDate(p.StartDate)
	}
	if !p.EndDate.IsZero() {
		b.EndDate = FormatDate(p.EndDate)
	}
	return b, nil
}

// List returns one page of campaign calls.
func (s *CampaignCallsService) List(ctx context.Context, p ListCampaignCallsParams) (*ListResult, error) {
	body, err := p.body(p.Page, p.PerPage)
	if err != nil {
		return nil, err
	}
	return s.client.doList(ctx, request{
		method: http.MethodPost,
		path:   "/v1/autodialer/calls/list",
		body:   body,
	}, "data")
}

// IterAll iterates over every matching campaign call. The endpoint reports a
// total, so iteration ends once that many calls were read. Page and PerPage
// of filter are ignored.
func (s *CampaignCallsService) IterAll(ctx context.Context, filter ListCampaignCallsParams, opts ...pagination.Option) iter.Seq2[Record, error] {
	if _, err := filter.body(1, 100); err != nil {
		return func(yield func(Record, error) bool) { yield(nil, err) }
	}
	return s.client.iterate(ctx, pagination.Config[Record]{
		Name:      "campaign_calls",
		Strategy:  pagination.TotalCount,
		StartPage: 1,
	}, func(ctx context.Context, cur pagination.Cursor) (pagination.Page[Record], error) {
		body, err := filter.body(cur.Page, 100)
		if err != nil {
			return pagination.Page[Record]{}, err
		}
		return s.client.listPage(ctx, request{
			method: http.MethodPost,
			path:   "/v1/autodialer/calls/list",
			body:   body,
		}, "data")
	}, opts)
}
