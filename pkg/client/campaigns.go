package client

import (
	"context"
	"iter"
	"net/http"
	"strconv"

	"github.com/Sternrassler/justcall-client/pkg/pagination"
)

// Campaign types accepted by CreateCampaignParams.Type.
const (
	CampaignAutodial   = "autodial"
	CampaignPredictive = "predictive"
	CampaignDynamic    = "dynamic"
)

// CampaignsService manages Sales Dialer campaigns.
type CampaignsService struct {
	client *Client
}

// ListCampaignsParams selects a page of campaigns. Zero values use the API defaults.
type ListCampaignsParams struct {
	Page    int
	PerPage int // max 100
}

type v1PageBody struct {
	Page    string `json:"page,omitempty"`
	PerPage string `json:"per_page,omitempty"`
}

func newV1PageBody(page, perPage int) v1PageBody {
	var b v1PageBody
	if page > 0 {
		b.Page = strconv.Itoa(page)
	}
	if perPage > 0 {
		b.PerPage = strconv.Itoa(perPage)
	}
	return b
}

func validatePerPage(perPage, lo, hi int) error {
	if perPage != 0 && (perPage < lo || perPage > hi) {
		return invalidParam("per_page must be between %d and %d (got %d)", lo, hi, perPage)
	}
	return nil
}

// List returns one page of campaigns.
func (s *CampaignsService) List(ctx context.Context, p ListCampaignsParams) (*ListResult, error) {
	if err := validatePerPage(p.PerPage, 1, 100); err != nil {
		return nil, err
	}
	return s.client.doList(ctx, request{
		method: http.MethodPost,
		path:   "/v1/autodialer/campaigns/list",
		body:   newV1PageBody(p.Page, p.PerPage),
	}, "data")
}

// CreateCampaignParams describes a new campaign.
type CreateCampaignParams struct {
	Name          string `json:"name"`
	Type          string `json:"type"`
	DefaultNumber string `json:"default_number,omitempty"`
	CountryCode   string `json:"country_code,omitempty"` // ISO 3166-1 alpha-2
}

func (p CreateCampaignParams) validate() error {
	if p.Name == "" {
		return missingField("name")
	}
	switch p.Type {
	case CampaignAutodial, CampaignPredictive, CampaignDynamic:
	case "":
		return missingField("type")
	default:
		return invalidParam("campaign type must be autodial, predictive or dynamic (got %q)", p.Type)
	}
	if p.CountryCode != "" && len(p.CountryCode) != 2 {
		return invalidParam("country_code must be ISO-2 (got %q)", p.CountryCode)
	}
	return nil
}

// Create creates a campaign and returns the response holding its campaign_id.
func (s *CampaignsService) Create(ctx context.Context, p CreateCampaignParams) (Record, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	return s.client.doJSON(ctx, request{
		method: http.MethodPost,
		once:   true,
		path:   "/v1/autodialer/campaigns/create",
		body:   p,
	})
}

// IterAll iterates over every campaign, 100 per page, until an empty page.
func (s *CampaignsService) IterAll(ctx context.Context, opts ...pagination.Option) iter.Seq2[Record, error] {
	return s.client.iterate(ctx, pagination.Config[Record]{
		Name:      "campaigns",
		Strategy:  pagination.EmptyPage,
		StartPage: 1,
	}, func(ctx context.Context, cur pagination.Cursor) (pagination.Page[Record], error) {
		return s.client.listPage(ctx, request{
			method: http.MethodPost,
			path:   "/v1/autodialer/campaigns/list",
			body:   newV1PageBody(cur.Page, 100),
		}, "data")
	}, opts)
}
