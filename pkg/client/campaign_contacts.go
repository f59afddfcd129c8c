package client

import (
	"context"
	"iter"
	"net/http"

	"github.com/Sternrassler/justcall-client/pkg/pagination"
)

// CampaignContactsService manages the contacts of Sales Dialer campaigns.
type CampaignContactsService struct {
	client *Client
}

// CustomFields returns the custom contact fields with their labels, keys and types.
func (s *CampaignContactsService) CustomFields(ctx context.Context) (*ListResult, error) {
	return s.client.doList(ctx, request{
		method: http.MethodPost,
		path:   "/v1/autodialer/contacts/customfields",
		body:   struct{}{},
	}, "data")
}

type campaignIDBody struct {
	CampaignID string `json:"campaign_id"`
}

// List returns every contact of a campaign. The endpoint is not paginated.
func (s *CampaignContactsService) List(ctx context.Context, campaignID string) (*ListResult, error) {
	if campaignID == "" {
		return nil, missingField("campaign_id")
	}
	return s.list(ctx, campaignID, false)
}

func (s *CampaignContactsService) list(ctx context.Context, campaignID string, admitted bool) (*ListResult, error) {
	return s.client.doList(ctx, request{
		method:   http.MethodPost,
		path:     "/v1/autodialer/campaigns/campaign-contacts",
		body:     campaignIDBody{CampaignID: campaignID},
		admitted: admitted,
	}, "data")
}

// AddCampaignContactParams describes a contact to add to a campaign.
type AddCampaignContactParams struct {
	CampaignID  string         `json:"campaign_id"`
	Phone       string         `json:"phone"` // with country code
	FirstName   string         `json:"first_name,omitempty"`
	LastName    string         `json:"last_name,omitempty"`
	CustomProps map[string]any `json:"custom_props,omitempty"`
}

// Add adds a contact to a campaign.
func (s *CampaignContactsService) Add(ctx context.Context, p AddCampaignContactParams) (Record, error) {
	if p.CampaignID == "" {
		return nil, missingField("campaign_id")
	}
	if p.Phone == "" {
		return nil, missingField("phone")
	}
	return s.client.doJSON(ctx, request{
		method: http.MethodPost,
		once:   true,
		path:   "/v1/autodialer/campaigns/add",
		body:   p,
	})
}

// RemoveCampaignContactParams selects contacts to remove. A Phone without a
// CampaignID removes the number from every campaign; All empties CampaignID.
type RemoveCampaignContactParams struct {
	CampaignID string `json:"campaign_id,omitempty"`
	Phone      string `json:"phone,omitempty"`
	All        bool   `json:"all,omitempty"`
}

// Remove removes contacts from campaigns.
func (s *CampaignContactsService) Remove(ctx context.Context, p RemoveCampaignContactParams) (Record, error) {
	if p.All && p.CampaignID == "" {
		return nil, missingField("campaign_id")
	}
	if !p.All && p.Phone == "" {
		return nil, missingField("phone")
	}
	return s.client.doJSON(ctx, request{
		method: http.MethodPost,
		once:   true,
		path:   "/v1/autodialer/contacts/remove",
		body:   p,
	})
}

// IterAll iterates over the contacts of a campaign. The endpoint returns all
// contacts at once, so this is a single fetch.
func (s *CampaignContactsService) IterAll(ctx context.Context, campaignID string, opts ...pagination.Option) iter.Seq2[Record, error] {
	if campaignID == "" {
		return func(yield func(Record, error) bool) { yield(nil, missingField("campaign_id")) }
	}
	return s.client.iterate(ctx, pagination.Config[Record]{
		Name:     "campaign_contacts",
		Strategy: pagination.TotalCount,
	}, func(ctx context.Context, _ pagination.Cursor) (pagination.Page[Record], error) {
		list, err := s.list(ctx, campaignID, true)
		if err != nil {
			return pagination.Page[Record]{}, err
		}
		return pagination.Page[Record]{Items: list.Items, Total: len(list.Items), TotalKnown: true}, nil
	}, opts)
}
