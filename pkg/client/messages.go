package client

import (
	"context"
	"iter"
	"net/http"
	"time"

	"github.com/Sternrassler/justcall-client/pkg/pagination"
)

const messagesPageSize = 100

// MessagesService sends and reads SMS.
type MessagesService struct {
	client *Client
}

// ListMessagesParams filters the SMS list.
type ListMessagesParams struct {
	From time.Time
	To   time.Time

	LastSMSIDFetched int64
	ContactNumber    string // E.164
	JustCallNumber   string // E.164
	Direction        string // Incoming or Outgoing
	Content          string // keywords in the SMS body

	Page    int    // 0-based
	PerPage int    // 1 to 100, default 20
	Sort    string // default "id"
	Order   string // asc or desc, default desc
}

func (p ListMessagesParams) validate() error {
	if err := validatePerPage(p.PerPage, 1, 100); err != nil {
		return err
	}
	switch p.Direction {
	case "", CallIncoming, CallOutgoing:
	default:
		return invalidParam("sms_direction must be Incoming or Outgoing (got %q)", p.Direction)
	}
	if p.Page < 0 {
		return invalidParam("page must not be negative (got %d)", p.Page)
	}
	return validateOrder(p.Order)
}

func (p ListMessagesParams) query() query {
	perPage := p.PerPage
	if perPage == 0 {
		perPage = 20
	}
	sort, order := p.Sort, p.Order
	if sort == "" {
		sort = "id"
	}
	if order == "" {
		order = "desc"
	}
	page := p.Page

	q := query{}
	q.setTime("from_datetime", p.From, DateTimeLayout)
	q.setTime("to_datetime", p.To, DateTimeLayout)
	q.setInt("last_sms_id_fetched", p.LastSMSIDFetched)
	q.setString("contact_number", p.ContactNumber)
	q.setString("justcall_number", p.JustCallNumber)
	q.setString("sms_direction", p.Direction)
	q.setString("sms_content", p.Content)
	q.setIntPtr("page", &page)
	q.setInt("per_page", int64(perPage))
	q.setString("sort", sort)
	q.setString("order", order)
	return q
}

// List returns one page of SMS.
func (s *MessagesService) List(ctx context.Context, p ListMessagesParams) (*ListResult, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	return s.client.doList(ctx, request{
		method: http.MethodGet,
		path:   "/v2.1/texts",
		query:  map[string][]string(p.query()),
	}, "data")
}

// Get returns a single SMS.
func (s *MessagesService) Get(ctx context.Context, id int64) (Record, error) {
	if id <= 0 {
		return nil, missingField("message_id")
	}
	rec, err := s.client.doJSON(ctx, request{
		method: http.MethodGet,
		path:   "/v2.1/texts/" + itoa(id),
		route:  "/v2.1/texts/{id}",
	})
	if err != nil {
		return nil, err
	}
	return unwrapData(rec), nil
}

// SendMessageParams describes an SMS to send.
type SendMessageParams struct {
	To       string `json:"to"`          // E.164
	From     string `json:"from_number"` // JustCall number, E.164
	Body     string `json:"body"`
	MediaURL string `json:"media_url,omitempty"`
}

// Send sends an SMS.
func (s *MessagesService) Send(ctx context.Context, p SendMessageParams) (Record, error) {
	switch {
	case p.To == "":
		return nil, missingField("to")
	case p.From == "":
		return nil, missingField("from_number")
	case p.Body == "":
		return nil, missingField("body")
	}
	return s.client.doJSON(ctx, request{
		method: http.MethodPost,
		once:   true,
		path:   "/v2.1/texts",
		body:   p,
	})
}

// CheckReplyParams selects the conversation to check for a reply.
type CheckReplyParams struct {
	ContactNumber  string `json:"contact_number"`
	JustCallNumber string `json:"justcall_number,omitempty"`
}

// CheckReply reports whether a contact replied to the last SMS.
func (s *MessagesService) CheckReply(ctx context.Context, p CheckReplyParams) (Record, error) {
	if p.ContactNumber == "" {
		return nil, missingField("contact_number")
	}
	return s.client.doJSON(ctx, request{
		method: http.MethodPost,
		path:   "/v2.1/texts/checkreply",
		body:   p,
	})
}

// MaxSMSLength is the longest body SendNew accepts.
const MaxSMSLength = 1600

// SendNewMessageParams describes an SMS sent through the v2.1 new-message endpoint.
type SendNewMessageParams struct {
	JustCallNumber string `json:"justcall_number"`
	ContactNumber  string `json:"contact_number"`
	Body           string `json:"body"`
	MediaURL       string `json:"media_url,omitempty"` // comma separated, max 5
	RestrictOnce   bool   `json:"-"`                   // skip if the same SMS went out in the last 24h
}

func (p SendNewMessageParams) payload() map[string]string {
	m := map[string]string{
		"justcall_number": p.JustCallNumber,
		"contact_number":  p.ContactNumber,
		"body":            p.Body,
	}
	if p.MediaURL != "" {
		m["media_url"] = p.MediaURL
	}
	if p.RestrictOnce {
		m["restrict_once"] = "Yes"
	}
	return m
}

// SendNew sends an SMS.
func (s *MessagesService) SendNew(ctx context.Context, p SendNewMessageParams) (Record, error) {
	switch {
	case p.JustCallNumber == "":
		return nil, missingField("justcall_number")
	case p.ContactNumber == "":
		return nil, missingField("contact_number")
	case p.Body == "":
		return nil, missingField("body")
	}
	if n := len([]rune(p.Body)); n > MaxSMSLength {
		return nil, invalidParam("body is %d characters, max %d", n, MaxSMSLength)
	}
	return s.client.doJSON(ctx, request{
		method: http.MethodPost,
		once:   true,
		path:   "/v2.1/texts/new",
		body:   p.payload(),
	})
}

// IterAll iterates over every matching SMS, 100 per page, following
// last_sms_id_fetched. Page, PerPage and LastSMSIDFetched of filter are ignored.
func (s *MessagesService) IterAll(ctx context.Context, filter ListMessagesParams, opts ...pagination.Option) iter.Seq2[Record, error] {
	filter.Page = 0
	filter.PerPage = messagesPageSize
	filter.LastSMSIDFetched = 0
	if err := filter.validate(); err != nil {
		return func(yield func(Record, error) bool) { yield(nil, err) }
	}
	return s.client.iterate(ctx, pagination.Config[Record]{
		Name:     "messages",
		Strategy: pagination.EmptyPage,
		Cursor:   pagination.LastSeenID,
		PageSize: messagesPageSize,
		ID:       recordID,
	}, func(ctx context.Context, cur pagination.Cursor) (pagination.Page[Record], error) {
		q := filter.query()
		q.setString("last_sms_id_fetched", cur.LastID)
		return s.client.listPage(ctx, request{
			method: http.MethodGet,
			path:   "/v2.1/texts",
			query:  map[string][]string(q),
		}, "data")
	}, opts)
}
