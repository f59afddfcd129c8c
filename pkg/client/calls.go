package client

import (
	"context"
	"iter"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/Sternrassler/justcall-client/pkg/batch"
	"github.com/Sternrassler/justcall-client/pkg/pagination"
)

// Call directions. The API matches them case-sensitively.
const (
	CallIncoming = "Incoming"
	CallOutgoing = "Outgoing"
)

var callTypes = map[string]bool{
	"answered":   true,
	"unanswered": true,
	"missed":     true,
	"voicemail":  true,
	"abandoned":  true,
}

const callsPageSize = 100

// CallsService reads and annotates calls.
type CallsService struct {
	client *Client
}

// ListCallsParams filters the call list.
type ListCallsParams struct {
	FetchQueueData bool
	FetchAIData    bool

	From time.Time
	To   time.Time

	ContactNumber  string
	JustCallNumber string
	AgentID        int64
	IVRDigit       *int
	CallDirection  string // CallIncoming or CallOutgoing
	CallType       string // answered, unanswered, missed, voicemail or abandoned
	CallTraits     []string

	Page    *int
	PerPage int    // 20 to 100, default 20
	Sort    string // default "id"
	Order   string // asc or desc, default desc

	LastCallIDFetched int64
}

func (p ListCallsParams) validate() error {
	if err := validatePerPage(p.PerPage, 20, 100); err != nil {
		return err
	}
	switch p.CallDirection {
	case "", CallIncoming, CallOutgoing:
	default:
		return invalidParam("call_direction must be Incoming or Outgoing (got %q)", p.CallDirection)
	}
	if p.CallType != "" && !callTypes[p.CallType] {
		return invalidParam("call_type %q is not supported", p.CallType)
	}
	return validateOrder(p.Order)
}

func validateOrder(order string) error {
	switch order {
	case "", "asc", "desc":
		return nil
	default:
		return invalidParam("order must be asc or desc (got %q)", order)
	}
}

func (p ListCallsParams) query() query {
	q := query{}
	q.setBool("fetch_queue_data", p.FetchQueueData)
	q.setBool("fetch_ai_data", p.FetchAIData)
	q.setTime("from_datetime", p.From, DateTimeLayout)
	q.setTime("to_datetime", p.To, DateTimeLayout)
	q.setString("contact_number", p.ContactNumber)
	q.setString("justcall_number", p.JustCallNumber)
	q.setInt("agent_id", p.AgentID)
	q.setIntPtr("ivr_digit", p.IVRDigit)
	q.setString("call_direction", p.CallDirection)
	q.setString("call_type", p.CallType)
	q.setString("call_traits", strings.Join(p.CallTraits, ","))
	q.setIntPtr("page", p.Page)

	perPage := p.PerPage
	if perPage == 0 {
		perPage = 20
	}
	q.setInt("per_page", int64(perPage))

	sort, order := p.Sort, p.Order
	if sort == "" {
		sort = "id"
	}
	if order == "" {
		order = "desc"
	}
	q.setString("sort", sort)
	q.setString("order", order)
	q.setInt("last_call_id_fetched", p.LastCallIDFetched)
	return q
}

// List returns one page of calls.
func (s *CallsService) List(ctx context.Context, p ListCallsParams) (*ListResult, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	return s.client.doList(ctx, request{
		method: http.MethodGet,
		path:   "/v2.1/calls",
		query:  map[string][]string(p.query()),
	}, "data")
}

// GetCallParams selects optional call data.
type GetCallParams struct {
	FetchQueueData bool
	FetchAIData    bool
}

// Get returns a single call.
func (s *CallsService) Get(ctx context.Context, id int64, p GetCallParams) (Record, error) {
	return s.get(ctx, id, p)
}

func (s *CallsService) get(ctx context.Context, id int64, p GetCallParams) (Record, error) {
	if id <= 0 {
		return nil, missingField("id")
	}
	q := query{}
	q.setBool("fetch_queue_data", p.FetchQueueData)
	q.setBool("fetch_ai_data", p.FetchAIData)
	rec, err := s.client.doJSON(ctx, request{
		method: http.MethodGet,
		path:   "/v2.1/calls/" + itoa(id),
		route:  "/v2.1/calls/{id}",
		query:  map[string][]string(q),
	})
	if err != nil {
		return nil, err
	}
	return unwrapData(rec), nil
}

// GetMany fetches several calls concurrently. Every fetch passes the client's
// rate gate. On failure the calls fetched so far are returned with the error.
func (s *CallsService) GetMany(ctx context.Context, ids []int64, concurrency int) (map[int64]Record, error) {
	cfg := batch.DefaultConfig()
	cfg.Name = "calls"
	if concurrency > 0 {
		cfg.MaxConcurrency = concurrency
	}
	f := batch.New(func(ctx context.Context, id int64) (Record, error) {
		return s.get(ctx, id, GetCallParams{})
	}, cfg)
	return f.FetchAll(ctx, ids)
}

// UpdateCallParams holds the call fields that can be changed.
type UpdateCallParams struct {
	Notes           string   `json:"notes,omitempty"` // replaces existing notes
	DispositionCode string   `json:"disposition_code,omitempty"`
	Rating          *float64 `json:"rating,omitempty"` // 0 to 5 in steps of 0.5
}

func (p UpdateCallParams) validate() error {
	if p.Rating == nil {
		return nil
	}
	r := *p.Rating
	if r < 0 || r > 5 {
		return invalidParam("rating must be between 0 and 5 (got %v)", r)
	}
	if _, frac := math.Modf(r); frac != 0 && frac != 0.5 {
		return invalidParam("rating must be a whole number or end in .5 (got %v)", r)
	}
	return nil
}

// Update changes the notes, disposition code or rating of a call.
func (s *CallsService) Update(ctx context.Context, id int64, p UpdateCallParams) (Record, error) {
	if id <= 0 {
		return nil, missingField("id")
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return s.client.doJSON(ctx, request{
		method: http.MethodPut,
		once:   true,
		path:   "/v2.1/calls/" + itoa(id),
		route:  "/v2.1/calls/{id}",
		body:   p,
	})
}

// Journey returns the routing journey of a call.
func (s *CallsService) Journey(ctx context.Context, id int64) (Record, error) {
	return s.sub(ctx, id, "journey")
}

// VoiceAgentData returns the AI voice agent data of a call.
func (s *CallsService) VoiceAgentData(ctx context.Context, id int64) (Record, error) {
	return s.sub(ctx, id, "voice-agent")
}

func (s *CallsService) sub(ctx context.Context, id int64, name string) (Record, error) {
	if id <= 0 {
		return nil, missingField("id")
	}
	return s.client.doJSON(ctx, request{
		method: http.MethodGet,
		path:   "/v2.1/calls/" + itoa(id) + "/" + name,
		route:  "/v2.1/calls/{id}/" + name,
	})
}

// DownloadRecording returns the raw recording bytes of a call.
func (s *CallsService) DownloadRecording(ctx context.Context, id int64) ([]byte, error) {
	if id <= 0 {
		return nil, missingField("id")
	}
	return s.client.doRaw(ctx, request{
		method: http.MethodGet,
		path:   "/v2.1/calls/" + itoa(id) + "/recording/download",
		route:  "/v2.1/calls/{id}/recording/download",
	})
}

// IterAll iterates over every matching call, 100 per page, following
// last_call_id_fetched. Page, PerPage and LastCallIDFetched of filter are ignored.
func (s *CallsService) IterAll(ctx context.Context, filter ListCallsParams, opts ...pagination.Option) iter.Seq2[Record, error] {
	filter.Page = nil
	filter.PerPage = callsPageSize
	filter.LastCallIDFetched = 0
	if err := filter.validate(); err != nil {
		return func(yield func(Record, error) bool) { yield(nil, err) }
	}
	return s.client.iterate(ctx, pagination.Config[Record]{
		Name:     "calls",
		Strategy: pagination.EmptyPage,
		Cursor:   pagination.LastSeenID,
		PageSize: callsPageSize,
		ID:       recordID,
	}, func(ctx context.Context, cur pagination.Cursor) (pagination.Page[Record], error) {
		q := filter.query()
		q.setString("last_call_id_fetched", cur.LastID)
		return s.client.listPage(ctx, request{
			method: http.MethodGet,
			path:   "/v2.1/calls",
			query:  map[string][]string(q),
		}, "data")
	}, opts)
}

// unwrapData returns the object under "data" for single-resource responses
// that wrap it, and rec itself otherwise.
func unwrapData(rec Record) Record {
	switch v := rec["data"].(type) {
	case map[string]any:
		return Record(v)
	case []any:
		if len(v) == 1 {
			if obj, ok := v[0].(map[string]any); ok {
				return Record(obj)
			}
		}
	}
	return rec
}
