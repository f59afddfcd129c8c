package client

import (
	"context"
	"iter"
	"net/http"

	"github.com/Sternrassler/justcall-client/pkg/pagination"
)

// PhoneNumbersService lists the JustCall numbers of the account.
type PhoneNumbersService struct {
	client *Client
}

// ListPhoneNumbersParams filters the phone number list.
type ListPhoneNumbersParams struct {
	LineName            string // justcall_line_name
	AvailabilitySetting string // Always Open, Always Closed or Custom Hours
	NumberType          string // local, mobile or toll_free
	NumberOwnerID       int64
	SharedAgentID       int64
	SharedGroupID       int64
	Capabilities        string // call, sms or mms
	Page                int    // 0-based
	PerPage             int    // 1 to 100, default 30
	Order               string
}

func (p ListPhoneNumbersParams) query(page, perPage int) (query, error) {
	if err := validatePerPage(perPage, 1, 100); err != nil {
		return nil, err
	}
	if page < 0 {
		return nil, invalidParam("page must not be negative (got %d)", page)
	}
	if perPage == 0 {
		perPage = 30
	}
	q := query{}
	q.setString("justcall_line_name", p.LineName)
	q.setString("availability_setting", p.AvailabilitySetting)
	q.setString("number_type", p.NumberType)
	q.setInt("number_owner_id", p.NumberOwnerID)
	q.setInt("shared_agent_id", p.SharedAgentID)
	q.setInt("shared_group_id", p.SharedGroupID)
	q.setString("capabilities", p.Capabilities)
	q.setIntPtr("page", &page)
	q.setInt("per_page", int64(perPage))
	q.setString("order", p.Order)
	return q, nil
}

// List returns one page of phone numbers.
func (s *PhoneNumbersService) List(ctx context.Context, p ListPhoneNumbersParams) (*ListResult, error) {
	q, err := p.query(p.Page, p.PerPage)
	if err != nil {
		return nil, err
	}
	return s.client.doList(ctx, request{
		method: http.MethodGet,
		path:   "/v2.1/phone-numbers",
		query:  map[string][]string(q),
	}, "data")
}

// IterAll iterates over every matching phone number, 100 per page from page 0.
func (s *PhoneNumbersService) IterAll(ctx context.Context, filter ListPhoneNumbersParams, opts ...pagination.Option) iter.Seq2[Record, error] {
	if _, err := filter.query(0, 100); err != nil {
		return func(yield func(Record, error) bool) { yield(nil, err) }
	}
	return s.client.iterate(ctx, pagination.Config[Record]{
		Name:     "phone_numbers",
		Strategy: pagination.EmptyPage,
	}, func(ctx context.Context, cur pagination.Cursor) (pagination.Page[Record], error) {
		q, err := filter.query(cur.Page, 100)
		if err != nil {
			return pagination.Page[Record]{}, err
		}
		return s.client.listPage(ctx, request{
			method: http.MethodGet,
			path:   "/v2.1/phone-numbers",
			query:  map[string][]string(q),
		}, "data")
	}, opts)
}
