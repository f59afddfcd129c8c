package client

import (
	"context"
	"iter"
	"net/http"
	"strconv"

	"github.com/Sternrassler/justcall-client/pkg/pagination"
)

// ContactsService manages the contact book.
type ContactsService struct {
	client *Client
}

// List returns one page of contacts. Zero page and perPage use 1 and 50.
func (s *ContactsService) List(ctx context.Context, page, perPage int) (*ListResult, error) {
	if err := validatePerPage(perPage, 1, 100); err != nil {
		return nil, err
	}
	if page == 0 {
		page = 1
	}
	if perPage == 0 {
		perPage = 50
	}
	return s.client.doList(ctx, request{
		method: http.MethodPost,
		path:   "/v1/contacts/list",
		body:   newV1PageBody(page, perPage),
	}, "data")
}

// IterAll iterates over every contact, 100 per page.
func (s *ContactsService) IterAll(ctx context.Context, opts ...pagination.Option) iter.Seq2[Record, error] {
	return s.client.iterate(ctx, pagination.Config[Record]{
		Name:      "contacts",
		Strategy:  pagination.EmptyPage,
		StartPage: 1,
	}, func(ctx context.Context, cur pagination.Cursor) (pagination.Page[Record], error) {
		return s.client.listPage(ctx, request{
			method: http.MethodPost,
			path:   "/v1/contacts/list",
			body:   newV1PageBody(cur.Page, 100),
		}, "data")
	}, opts)
}

// QueryContactsParams searches contacts. At least one search field must be set.
type QueryContactsParams struct {
	ID        int64
	FirstName string
	LastName  string
	Phone     string
	Email     string
	Company   string
	Notes     string

	Page    int // default 1
	PerPage int // default 100, max 100
}

type queryContactsBody struct {
	ID        string `json:"id,omitempty"`
	FirstName string `json:"firstname,omitempty"`
	LastName  string `json:"lastname,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Email     string `json:"email,omitempty"`
	Company   string `json:"company,omitempty"`
	Notes     string `json:"notes,omitempty"`
	v1PageBody
}

func (p QueryContactsParams) hasSearch() bool {
	return p.ID != 0 || p.FirstName != "" || p.LastName != "" || p.Phone != "" ||
		p.Email != "" || p.Company != "" || p.Notes != ""
}

func (p QueryContactsParams) body(page, perPage int) (queryContactsBody, error) {
	if !p.hasSearch() {
		return queryContactsBody{}, ErrMissingSearchParam
	}
	if err := validatePerPage(perPage, 1, 100); err != nil {
		return queryContactsBody{}, err
	}
	if page == 0 {
		page = 1
	}
	if perPage == 0 {
		perPage = 100
	}
	b := queryContactsBody{
		FirstName:  p.FirstName,
		LastName:   p.LastName,
		Phone:      p.Phone,
		Email:      p.Email,
		Company:    p.Company,
		Notes:      p.Notes,
		v1PageBody: newV1PageBody(page, perPage),
	}
	if p.ID != 0 {
		b.ID = itoa(p.ID)
	}
	return b, nil
}

// Query returns one page of contacts matching p. ErrMissingSearchParam is
// returned, without sending a request, when no search field is set.
func (s *ContactsService) Query(ctx context.Context, p QueryContactsParams) (*ListResult, error) {
	body, err := p.body(p.Page, p.PerPage)
	if err != nil {
		return nil, err
	}
	return s.client.doList(ctx, request{
		method: http.MethodPost,
		path:   "/v1/contacts/query",
		body:   body,
	}, "contacts")
}

// IterQuery iterates over every contact matching p, 100 per page.
func (s *ContactsService) IterQuery(ctx context.Context, p QueryContactsParams, opts ...pagination.Option) iter.Seq2[Record, error] {
	if _, err := p.body(1, 100); err != nil {
		return func(yield func(Record, error) bool) { yield(nil, err) }
	}
	return s.client.iterate(ctx, pagination.Config[Record]{
		Name:      "contacts_query",
		Strategy:  pagination.EmptyPage,
		StartPage: 1,
	}, func(ctx context.Context, cur pagination.Cursor) (pagination.Page[Record], error) {
		body, err := p.body(cur.Page, 100)
		if err != nil {
			return pagination.Page[Record]{}, err
		}
		return s.client.listPage(ctx, request{
			method: http.MethodPost,
			path:   "/v1/contacts/query",
			body:   body,
		}, "contacts")
	}, opts)
}

// CreateContactParams describes a new contact.
type CreateContactParams struct {
	FirstName  string `json:"firstname"`
	Phone      string `json:"phone"`
	LastName   string `json:"lastname,omitempty"`
	Email      string `json:"email,omitempty"`
	Company    string `json:"company,omitempty"`
	Notes      string `json:"notes,omitempty"`
	AcrossTeam *int   `json:"acrossteam,omitempty"` // 1 for every team member, 0 for the owner only
	AgentID    int64  `json:"agentid,omitempty"`
}

// Create creates a contact.
func (s *ContactsService) Create(ctx context.Context, p CreateContactParams) (Record, error) {
	if p.FirstName == "" {
		return nil, missingField("firstname")
	}
	if p.Phone == "" {
		return nil, missingField("phone")
	}
	if p.AcrossTeam != nil && *p.AcrossTeam != 0 && *p.AcrossTeam != 1 {
		return nil, invalidParam("acrossteam must be 0 or 1 (got %d)", *p.AcrossTeam)
	}
	return s.client.doJSON(ctx, request{
		method: http.MethodPost,
		once:   true,
		path:   "/v1/contacts/new",
		body:   p,
	})
}

// OtherPhone is an additional labelled number of a contact.
type OtherPhone struct {
	Label  string `json:"label"`
	Number string `json:"number"`
}

// UpdateContactParams replaces the fields of an existing contact.
type UpdateContactParams struct {
	ID          int64       `json:"id"`
	FirstName   string      `json:"firstname"`
	Phone       string      `json:"phone"`
	LastName    string      `json:"lastname,omitempty"`
	Email       string      `json:"email,omitempty"`
	Company     string      `json:"company,omitempty"`
	Notes       string      `json:"notes,omitempty"`
	OtherPhones *OtherPhone `json:"other_phones,omitempty"`
}

// Update updates a contact. The API accepts at most one other phone, so
// OtherPhones holds a single entry.
func (s *ContactsService) Update(ctx context.Context, p UpdateContactParams) (Record, error) {
	switch {
	case p.ID <= 0:
		return nil, missingField("id")
	case p.FirstName == "":
		return nil, missingField("firstname")
	case p.Phone == "":
		return nil, missingField("phone")
	}
	if p.OtherPhones != nil && (p.OtherPhones.Label == "" || p.OtherPhones.Number == "") {
		return nil, invalidParam("other_phones needs both label and number")
	}
	return s.client.doJSON(ctx, request{
		method: http.MethodPost,
		once:   true,
		path:   "/v1/contacts/update",
		body:   p,
	})
}

// OtherPhonesFromMap converts a {label: number} map to an OtherPhone. The map
// must hold exactly one entry.
func OtherPhonesFromMap(m map[string]string) (*OtherPhone, error) {
	if len(m) != 1 {
		return nil, invalidParam("other_phones should contain exactly one phone number (got %d)", len(m))
	}
	for label, number := range m {
		return &OtherPhone{Label: label, Number: number}, nil
	}
	return nil, nil
}

// Delete deletes a contact.
func (s *ContactsService) Delete(ctx context.Context, id int64) (Record, error) {
	if id <= 0 {
		return nil, missingField("id")
	}
	return s.client.doJSON(ctx, request{
		method: http.MethodPost,
		once:   true,
		path:   "/v1/contacts/delete",
		body:   map[string]int64{"id": id},
	})
}

// ContactListType selects the list a contact action applies to.
type ContactListType int

const (
	ContactBlacklist ContactListType = 0
	ContactDND       ContactListType = 1 // do not disturb
	ContactDNM       ContactListType = 2 // do not message
)

// ContactActionParams adds a number to, or removes it from, a blocking list.
type ContactActionParams struct {
	Number     string
	Type       ContactListType
	Add        bool // false removes
	AcrossTeam *bool
}

// Action adds a number to or removes it from the blacklist, DND or DNM list.
// The action applies across the team unless AcrossTeam is false.
func (s *ContactsService) Action(ctx context.Context, p ContactActionParams) (Record, error) {
	if p.Number == "" {
		return nil, missingField("number")
	}
	if p.Type < ContactBlacklist || p.Type > ContactDNM {
		return nil, invalidParam("contact action type must be 0, 1 or 2 (got %d)", p.Type)
	}
	action := "0"
	if p.Add {
		action = "1"
	}
	acrossTeam := "1"
	if p.AcrossTeam != nil && !*p.AcrossTeam {
		acrossTeam = "0"
	}
	return s.client.doJSON(ctx, request{
		method: http.MethodPost,
		once:   true,
		path:   "/v1/contacts/action",
		body: map[string]string{
			"number":     p.Number,
			"type":       strconv.Itoa(int(p.Type)),
			"action":     action,
			"acrossteam": acrossTeam,
		},
	})
}
