package client

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/Sternrassler/justcall-client/internal/testutil"
	"github.com/Sternrassler/justcall-client/pkg/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pages(sizes ...int) [][]map[string]any {
	out := make([][]map[string]any, len(sizes))
	next := 1
	for i, n := range sizes {
		out[i] = testutil.Items(next, n)
		next += n
	}
	return out
}

func descendingIDs(n int) []int {
	ids := make([]int, n)
	for i := range ids {
		ids[i] = n - i
	}
	return ids
}

func TestCampaigns_IterAll_StopsOnEmptyPage(t *testing.T) {
	mock := testutil.NewMockJustCall()
	defer mock.Close()
	mock.SetHandler("/v1/autodialer/campaigns/list", testutil.NewPagedHandler(pages(2, 2), 1, "data", 999))

	c := newTestClient(t, mock)
	items, err := pagination.Collect(c.Campaigns().IterAll(context.Background()))
	require.NoError(t, err)

	assert.Len(t, items, 4)
	assert.Equal(t, 3, mock.RequestCount(), "two full pages plus the terminating empty page")

	reqs := mock.Requests()
	for i, want := range []string{"1", "2", "3"} {
		body := reqs[i].JSONBody()
		assert.Equal(t, want, body["page"])
		assert.Equal(t, "100", body["per_page"])
	}
}

func TestCampaigns_Create_Validation(t *testing.T) {
	mock := testutil.NewMockJustCall()
	defer mock.Close()
	c := newTestClient(t, mock)

	tests := []struct {
		name    string
		params  CreateCampaignParams
		wantErr error
	}{
		{"missing name", CreateCampaignParams{Type: CampaignAutodial}, ErrMissingField},
		{"missing type", CreateCampaignParams{Name: "Q3"}, ErrMissingField},
		{"unknown type", CreateCampaignParams{Name: "Q3", Type: "robocall"}, ErrInvalidParam},
		{"bad country", CreateCampaignParams{Name: "Q3", Type: CampaignDynamic, CountryCode: "USA"}, ErrInvalidParam},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Campaigns().Create(context.Background(), tt.params)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Zero(t, mock.RequestCount())
}

func TestCampaigns_Create(t *testing.T) {
	mock := testutil.NewMockJustCall()
	defer mock.Close()
	mock.SetResponse("/v1/autodialer/campaigns/create", testutil.NewJSONResponse(`{"status":"success","campaign_id":"c-77"}`))

	c := newTestClient(t, mock)
	rec, err := c.Campaigns().Create(context.Background(), CreateCampaignParams{
		Name:        "Renewals",
		Type:        CampaignPredictive,
		CountryCode: "US",
	})
	require.NoError(t, err)
	assert.Equal(t, "c-77", rec.String("campaign_id"))

	req, _ := mock.LastRequest()
	assert.Equal(t, map[string]any{"name": "Renewals", "type": "predictive", "country_code": "US"}, req.JSONBody())
}

func TestCampaignCalls_IterAll_TotalCount(t *testing.T) {
	mock := testutil.NewMockJustCall()
	defer mock.Close()
	mock.SetHandler("/v1/autodialer/calls/list", testutil.NewPagedHandler(pages(10, 10, 5, 5), 1, "data", 25))

	c := newTestClient(t, mock)
	items, err := pagination.Collect(c.CampaignCalls().IterAll(context.Background(), ListCampaignCallsParams{
		CampaignID: "c-1",
		StartDate:  time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, err)

	assert.Len(t, items, 25)
	assert.Equal(t, 3, mock.RequestCount(), "no fetch once the reported total is reached")

	body := mock.Requests()[0].JSONBody()
	assert.Equal(t, "c-1", body["campaign_id"])
	assert.Equal(t, "2024-01-02", body["start_date"])
	assert.NotContains(t, body, "end_date")
}

func TestCampaignCalls_IterAll_WithoutTotal(t *testing.T) {
	mock := testutil.NewMockJustCall()
	defer mock.Close()
	mock.SetHandler("/v1/autodialer/calls/list", testutil.NewPagedHandler(pages(2, 2), 1, "data", -1))

	c := newTestClient(t, mock)
	items, err := pagination.Collect(c.CampaignCalls().IterAll(context.Background(), ListCampaignCallsParams{}))
	require.NoError(t, err)

	assert.Len(t, items, 4)
	assert.Equal(t, 3, mock.RequestCount(), "a response without total pages on until an empty page")
}

func TestCampaignCalls_InvalidOrder(t *testing.T) {
	mock := testutil.NewMockJustCall()
	defer mock.Close()
	c := newTestClient(t, mock)

	_, err := c.CampaignCalls().List(context.Background(), ListCampaignCallsParams{Order: "desc"})
	assert.ErrorIs(t, err, ErrInvalidParam)

	_, err = pagination.Collect(c.CampaignCalls().IterAll(context.Background(), ListCampaignCallsParams{Order: "up"}))
	assert.ErrorIs(t, err, ErrInvalidParam)
	assert.Zero(t, mock.RequestCount())
}

func TestCampaignContacts_IterAll_SingleFetch(t *testing.T) {
	mock := testutil.NewMockJustCall()
	defer mock.Close()
	mock.SetHandler("/v1/autodialer/campaigns/campaign-contacts", testutil.NewPagedHandler(pages(7), 0, "data", -1))

	c := newTestClient(t, mock)
	items, err := pagination.Collect(c.CampaignContacts().IterAll(context.Background(), "c-9"))
	require.NoError(t, err)

	assert.Len(t, items, 7)
	assert.Equal(t, 1, mock.RequestCount())
	assert.Equal(t, "c-9", mock.Requests()[0].JSONBody()["campaign_id"])
}

func TestCampaignContacts_Validation(t *testing.T) {
	mock := testutil.NewMockJustCall()
	defer mock.Close()
	c := newTestClient(t, mock)
	ctx := context.Background()

	_, err := c.CampaignContacts().List(ctx, "")
	assert.ErrorIs(t, err, ErrMissingField)

	_, err = c.CampaignContacts().Add(ctx, AddCampaignContactParams{CampaignID: "c-1"})
	assert.ErrorIs(t, err, ErrMissingField)

	_, err = c.CampaignContacts().Remove(ctx, RemoveCampaignContactParams{All: true})
	assert.ErrorIs(t, err, ErrMissingField)

	_, err = c.CampaignContacts().Remove(ctx, RemoveCampaignContactParams{CampaignID: "c-1"})
	assert.ErrorIs(t, err, ErrMissingField)

	_, err = pagination.Collect(c.CampaignContacts().IterAll(ctx, ""))
	assert.ErrorIs(t, err, ErrMissingField)

	assert.Zero(t, mock.RequestCount())
}

func TestCampaignContacts_AddAndRemove(t *testing.T) {
	mock := testutil.NewMockJustCall()
	defer mock.Close()
	c := newTestClient(t, mock)
	ctx := context.Background()

	_, err := c.CampaignContacts().Add(ctx, AddCampaignContactParams{
		CampaignID:  "c-1",
		Phone:       "+14155550100",
		FirstName:   "Ada",
		CustomProps: map[string]any{"tier": "gold"},
	})
	require.NoError(t, err)
	req, _ := mock.LastRequest()
	assert.Equal(t, "/v1/autodialer/campaigns/add", req.Path)
	assert.Equal(t, map[string]any{"tier": "gold"}, req.JSONBody()["custom_props"])

	_, err = c.CampaignContacts().Remove(ctx, RemoveCampaignContactParams{Phone: "+14155550100"})
	require.NoError(t, err)
	req, _ = mock.LastRequest()
	assert.Equal(t, map[string]any{"phone": "+14155550100"}, req.JSONBody())
}

func TestCalls_List_QueryEncoding(t *testing.T) {
	mock := testutil.NewMockJustCall()
	defer mock.Close()
	c := newTestClient(t, mock)

	digit := 2
	_, err := c.Calls().List(context.Background(), ListCallsParams{
		FetchQueueData: true,
		From:           time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC),
		AgentID:        42,
		IVRDigit:       &digit,
		CallDirection:  CallIncoming,
		CallType:       "missed",
		CallTraits:     []string{"voicemail", "transferred"},
	})
	require.NoError(t, err)

	req, _ := mock.LastRequest()
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "/v2.1/calls", req.Path)

	q := req.Query
	assert.Equal(t, []string{"1"}, q["fetch_queue_data"])
	assert.Equal(t, []string{"0"}, q["fetch_ai_data"])
	assert.Equal(t, []string{"2024-05-01 08:00:00"}, q["from_datetime"])
	assert.Equal(t, []string{"42"}, q["agent_id"])
	assert.Equal(t, []string{"2"}, q["ivr_digit"])
	assert.Equal(t, []string{"Incoming"}, q["call_direction"])
	assert.Equal(t, []string{"voicemail,transferred"}, q["call_traits"])
	assert.Equal(t, []string{"20"}, q["per_page"])
	assert.Equal(t, []string{"id"}, q["sort"])
	assert.Equal(t, []string{"desc"}, q["order"])
	assert.NotContains(t, q, "page")
	assert.NotContains(t, q, "to_datetime")
}

func TestCalls_List_Validation(t *testing.T) {
	mock := testutil.NewMockJustCall()
	defer mock.Close()
	c := newTestClient(t, mock)

	tests := []struct {
		name   string
		params ListCallsParams
	}{
		{"per_page below 20", ListCallsParams{PerPage: 10}},
		{"per_page above 100", ListCallsParams{PerPage: 101}},
		{"lowercase direction", ListCallsParams{CallDirection: "incoming"}},
		{"unknown call type", ListCallsParams{CallType: "dropped"}},
		{"unknown order", ListCallsParams{Order: "newest"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Calls().List(context.Background(), tt.params)
			assert.ErrorIs(t, err, ErrInvalidParam)
		})
	}
	assert.Zero(t, mock.RequestCount())
}

func TestCalls_IterAll_LastSeenID(t *testing.T) {
	mock := testutil.NewMockJustCall()
	defer mock.Close()
	mock.SetHandler("/v2.1/calls", testutil.NewLastIDHandler(descendingIDs(250), "last_call_id_fetched"))

	c := newTestClient(t, mock)
	items, err := pagination.Collect(c.Calls().IterAll(context.Background(), ListCallsParams{PerPage: 20}))
	require.NoError(t, err)

	assert.Len(t, items, 250)
	assert.Equal(t, 3, mock.RequestCount(), "the short third page ends iteration")

	reqs := mock.Requests()
	assert.NotContains(t, reqs[0].Query, "last_call_id_fetched")
	assert.Equal(t, []string{"151"}, reqs[1].Query["last_call_id_fetched"])
	assert.Equal(t, []string{"51"}, reqs[2].Query["last_call_id_fetched"])
	assert.Equal(t, []string{"100"}, reqs[0].Query["per_page"])

	first, _ := items[0].Int("id")
	last, _ := items[249].Int("id")
	assert.Equal(t, int64(250), first)
	assert.Equal(t, int64(1), last)
}

func TestCalls_IterAll_EmptyAfterFullPage(t *testing.T) {
	mock := testutil.NewMockJustCall()
	defer mock.Close()
	mock.SetHandler("/v2.1/calls", testutil.NewLastIDHandler(descendingIDs(200), "last_call_id_fetched"))

	c := newTestClient(t, mock)
	items, err := pagination.Collect(c.Calls().IterAll(context.Background(), ListCallsParams{}))
	require.NoError(t, err)

	assert.Len(t, items, 200)
	assert.Equal(t, 3, mock.RequestCount(), "two full pages and one empty page")
}

func TestCalls_IterAll_MaxItems(t *testing.T) {
	mock := testutil.NewMockJustCall()
	defer mock.Close()
	mock.SetHandler("/v2.1/calls", testutil.NewLastIDHandler(descendingIDs(250), "last_call_id_fetched"))

	c := newTestClient(t, mock)
	items, err := pagination.Collect(c.Calls().IterAll(context.Background(), ListCallsParams{}, MaxItems(150)))
	require.NoError(t, err)

	assert.Len(t, items, 150)
	assert.Equal(t, 2, mock.RequestCount())
}

func TestCalls_GetUnwrapsData(t *testing.T) {
	mock := testutil.NewMockJustCall()
	defer mock.Close()
	mock.SetResponse("/v2.1/calls/12", testutil.NewJSONResponse(`{"status":"success","data":[{"id":12,"call_duration":{"total_duration":40}}]}`))

	c := newTestClient(t, mock)
	rec, err := c.Calls().Get(context.Background(), 12, GetCallParams{FetchAIData: true})
	require.NoError(t, err)

	id, ok := rec.ID()
	assert.True(t, ok)
	assert.Equal(t, "12", id)

	req, _ := mock.LastRequest()
	assert.Equal(t, []string{"1"}, req.Query["fetch_ai_data"])
	assert.Equal(t, []string{"0"}, req.Query["fetch_queue_data"])

	_, err = c.Calls().Get(context.Background(), 0, GetCallParams{})
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestCalls_GetMany(t *testing.T) {
	mock := testutil.NewMockJustCall()
	defer mock.Close()
	for _, id := range []string{"1", "2", "3"} {
		mock.SetResponse("/v2.1/calls/"+id, testutil.NewJSONResponse(`{"status":"success","data":{"id":`+id+`}}`))
	}

	gate := &countingGate{}
	c := newTestClient(t, mock, func(cfg *Config) { cfg.Gate = gate })
	got, err := c.Calls().GetMany(context.Background(), []int64{1, 2, 3, 2}, 2)
	require.NoError(t, err)

	require.Len(t, got, 3)
	for _, id := range []int64{1, 2, 3} {
		n, _ := got[id].Int("id")
		assert.Equal(t, id, n)
	}
	assert.Equal(t, int64(3), gate.n.Load(), "every fetch passes the gate once")
}

func TestCalls_GetMany_NotFound(t *testing.T) {
	mock := testutil.NewMockJustCall()
	defer mock.Close()
	mock.SetResponse("/v2.1/calls/1", testutil.NewJSONResponse(`{"data":{"id":1}}`))
	mock.SetResponse("/v2.1/calls/2", testutil.NewErrorResponse(http.StatusNotFound, "Call not found"))

	c := newTestClient(t, mock)
	_, err := c.Calls().GetMany(context.Background(), []int64{1, 2}, 1)
	assert.True(t, IsNotFound(err), "got %v", err)
}

func TestCalls_Update(t *testing.T) {
	mock := testutil.NewMockJustCall()
	defer mock.Close()
	c := newTestClient(t, mock)
	ctx := context.Background()

	rating := func(v float64) *float64 { return &v }

	for _, bad := range []float64{-0.5, 5.5, 2.3} {
		_, err := c.Calls().Update(ctx, 9, UpdateCallParams{Rating: rating(bad)})
		assert.ErrorIs(t, err, ErrInvalidParam, "rating %v", bad)
	}
	assert.Zero(t, mock.RequestCount())

	_, err := c.Calls().Update(ctx, 9, UpdateCallParams{Notes: "called back", Rating: rating(4.5)})
	require.NoError(t, err)

	req, _ := mock.LastRequest()
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "/v2.1/calls/9", req.Path)
	assert.Equal(t, map[string]any{"notes": "called back", "rating": 4.5}, req.JSONBody())
}

func TestCalls_SubResources(t *testing.T) {
	mock := testutil.NewMockJustCall()
	defer mock.Close()
	mock.SetResponse("/v2.1/calls/5/journey", testutil.NewJSONResponse(`{"status":"success","data":[{"type":"ivr"}]}`))
	mock.SetResponse("/v2.1/calls/5/voice-agent", testutil.NewJSONResponse(`{"status":"success","data":{"summary":"ok"}}`))
	mock.SetResponse("/v2.1/calls/5/recording/download", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       "RIFF....WAVE",
		Headers:    map[string]string{"Content-Type": "audio/wav"},
	})

	c := newTestClient(t, mock)
	ctx := context.Background()

	journey, err := c.Calls().Journey(ctx, 5)
	require.NoError(t, err)
	steps, err := journey.Records("data")
	require.NoError(t, err)
	assert.Equal(t, "ivr", steps[0].String("type"))

	agent, err := c.Calls().VoiceAgentData(ctx, 5)
	require.NoError(t, err)
	assert.Contains(t, agent, "data")

	audio, err := c.Calls().DownloadRecording(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, []byte("RIFF....WAVE"), audio)
}

func TestContacts_IterAll_MaxItemsAndAbandon(t *testing.T) {
	mock := testutil.NewMockJustCall()
	defer mock.Close()
	mock.SetHandler("/v1/contacts/list", testutil.NewPagedHandler(pages(2, 2, 2), 1, "data", -1))

	c := newTestClient(t, mock)
	ctx := context.Background()

	items, err := pagination.Collect(c.Contacts().IterAll(ctx, MaxItems(3)))
	require.NoError(t, err)
	assert.Len(t, items, 3)
	assert.Equal(t, 2, mock.RequestCount())

	mock.Reset()
	items, err = pagination.Collect(c.Contacts().IterAll(ctx, MaxItems(0)))
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Zero(t, mock.RequestCount())

	mock.Reset()
	for range c.Contacts().IterAll(ctx) {
		break
	}
	assert.Equal(t, 1, mock.RequestCount(), "abandoning the loop stops fetching")
}

func TestContacts_List_Defaults(t *testing.T) {
	mock := testutil.NewMockJustCall()
	defer mock.Close()
	c := newTestClient(t, mock)

	_, err := c.Contacts().List(context.Background(), 0, 0)
	require.NoError(t, err)
	req, _ := mock.LastRequest()
	assert.Equal(t, map[string]any{"page": "1", "per_page": "50"}, req.JSONBody())

	_, err = c.Contacts().List(context.Background(), 1, 500)
	assert.ErrorIs(t, err, ErrInvalidParam)
}

func TestContacts_Query_RequiresSearchParam(t *testing.T) {
	mock := testutil.NewMockJustCall()
	defer mock.Close()
	c := newTestClient(t, mock)

	_, err := c.Contacts().Query(context.Background(), QueryContactsParams{Page: 2})
	assert.ErrorIs(t, err, ErrMissingSearchParam)

	_, err = pagination.Collect(c.Contacts().IterQuery(context.Background(), QueryContactsParams{}))
	assert.ErrorIs(t, err, ErrMissingSearchParam)

	assert.Zero(t, mock.RequestCount(), "no request without a search parameter")
}

func TestContacts_IterQuery(t *testing.T) {
	mock := testutil.NewMockJustCall()
	defer mock.Close()
	mock.SetHandler("/v1/contacts/query", testutil.NewPagedHandler(pages(3, 1), 1, "contacts", -1))

	c := newTestClient(t, mock)
	items, err := pagination.Collect(c.Contacts().IterQuery(context.Background(), QueryContactsParams{ID: 5, Company: "Acme"}))
	require.NoError(t, err)

	assert.Len(t, items, 4)
	assert.Equal(t, 3, mock.RequestCount())

	body := mock.Requests()[0].JSONBody()
	assert.Equal(t, "5", body["id"])
	assert.Equal(t, "Acme", body["company"])
	assert.Equal(t, "100", body["per_page"])
}

func TestContacts_CreateUpdateDelete(t *testing.T) {
	mock := testutil.NewMockJustCall()
	defer mock.Close()
	c := newTestClient(t, mock)
	ctx := context.Background()

	_, err := c.Contacts().Create(ctx, CreateContactParams{Phone: "+1"})
	assert.ErrorIs(t, err, ErrMissingField)

	three := 3
	_, err = c.Contacts().Create(ctx, CreateContactParams{FirstName: "Ada", Phone: "+1", AcrossTeam: &three})
	assert.ErrorIs(t, err, ErrInvalidParam)

	_, err = c.Contacts().Update(ctx, UpdateContactParams{FirstName: "Ada", Phone: "+1"})
	assert.ErrorIs(t, err, ErrMissingField)
	assert.Zero(t, mock.RequestCount())

	other, err := OtherPhonesFromMap(map[string]string{"work": "+2"})
	require.NoError(t, err)
	_, err = c.Contacts().Update(ctx, UpdateContactParams{ID: 8, FirstName: "Ada", Phone: "+1", OtherPhones: other})
	require.NoError(t, err)
	req, _ := mock.LastRequest()
	assert.Equal(t, "/v1/contacts/update", req.Path)
	assert.Equal(t, map[string]any{"label": "work", "number": "+2"}, req.JSONBody()["other_phones"])

	_, err = c.Contacts().Delete(ctx, 8)
	require.NoError(t, err)
	req, _ = mock.LastRequest()
	assert.Equal(t, "/v1/contacts/delete", req.Path)
	assert.Equal(t, float64(8), req.JSONBody()["id"])
}

func TestOtherPhonesFromMap(t *testing.T) {
	_, err := OtherPhonesFromMap(map[string]string{})
	assert.ErrorIs(t, err, ErrInvalidParam)

	_, err = OtherPhonesFromMap(map[string]string{"a": "1", "b": "2"})
	assert.ErrorIs(t, err, ErrInvalidParam)
}

func TestContacts_Action(t *testing.T) {
	mock := testutil.NewMockJustCall()
	defer mock.Close()
	c := newTestClient(t, mock)
	ctx := context.Background()

	_, err := c.Contacts().Action(ctx, ContactActionParams{Number: "+1", Type: 3})
	assert.ErrorIs(t, err, ErrInvalidParam)

	_, err = c.Contacts().Action(ctx, ContactActionParams{Number: "+14155550100", Type: ContactDND, Add: true})
	require.NoError(t, err)
	req, _ := mock.LastRequest()
	assert.Equal(t, map[string]any{
		"number":     "+14155550100",
		"type":       "1",
		"action":     "1",
		"acrossteam": "1",
	}, req.JSONBody())

	no := false
	_, err = c.Contacts().Action(ctx, ContactActionParams{Number: "+1", Type: ContactBlacklist, AcrossTeam: &no})
	require.NoError(t, err)
	req, _ = mock.LastRequest()
	assert.Equal(t, "0", req.JSONBody()["action"])
	assert.Equal(t, "0", req.JSONBody()["acrossteam"])
}

func TestUsers_IterAll_StartsAtPageZero(t *testing.T) {
	mock := testutil.NewMockJustCall()
	defer mock.Close()
	mock.SetHandler("/v2.1/users", testutil.NewPagedHandler(pages(3), 0, "data", -1))

	c := newTestClient(t, mock)
	available := true
	items, err := pagination.Collect(c.Users().IterAll(context.Background(), ListUsersParams{Available: &available}))
	require.NoError(t, err)

	assert.Len(t, items, 3)
	reqs := mock.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, []string{"0"}, reqs[0].Query["page"])
	assert.Equal(t, []string{"1"}, reqs[1].Query["page"])
	assert.Equal(t, []string{"1"}, reqs[0].Query["available"])
	assert.Equal(t, []string{"100"}, reqs[0].Query["per_page"])
}

func TestUsers_List_Defaults(t *testing.T) {
	mock := testutil.NewMockJustCall()
	defer mock.Close()
	c := newTestClient(t, mock)

	_, err := c.Users().List(context.Background(), ListUsersParams{})
	require.NoError(t, err)
	req, _ := mock.LastRequest()
	assert.Equal(t, []string{"50"}, req.Query["per_page"])
	assert.Equal(t, []string{"desc"}, req.Query["order"])
	assert.NotContains(t, req.Query, "available")

	_, err = c.Users().List(context.Background(), ListUsersParams{PerPage: 101})
	assert.ErrorIs(t, err, ErrInvalidParam)
}

func TestUsers_GetMany(t *testing.T) {
	mock := testutil.NewMockJustCall()
	defer mock.Close()
	mock.SetResponse("/v2.1/users/4", testutil.NewJSONResponse(`{"status":"success","data":{"id":4,"name":"Ada"}}`))
	mock.SetResponse("/v2.1/users/5", testutil.NewJSONResponse(`{"status":"success","data":{"id":5,"name":"Lin"}}`))

	c := newTestClient(t, mock)
	got, err := c.Users().GetMany(context.Background(), []int64{4, 5}, 0)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got[4].String("name"))
	assert.Equal(t, "Lin", got[5].String("name"))
}

func TestMessages_IterAll_LastSeenID(t *testing.T) {
	mock := testutil.NewMockJustCall()
	defer mock.Close()
	mock.SetHandler("/v2.1/texts", testutil.NewLastIDHandler(descendingIDs(130), "last_sms_id_fetched"))

	c := newTestClient(t, mock)
	items, err := pagination.Collect(c.Messages().IterAll(context.Background(), ListMessagesParams{Direction: CallOutgoing}))
	require.NoError(t, err)

	assert.Len(t, items, 130)
	reqs := mock.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, []string{"31"}, reqs[1].Query["last_sms_id_fetched"])
	assert.Equal(t, []string{"Outgoing"}, reqs[1].Query["sms_direction"])
}

func TestMessages_Send(t *testing.T) {
	mock := testutil.NewMockJustCall()
	defer mock.Close()
	c := newTestClient(t, mock)
	ctx := context.Background()

	_, err := c.Messages().Send(ctx, SendMessageParams{To: "+1", Body: "hi"})
	assert.ErrorIs(t, err, ErrMissingField)

	_, err = c.Messages().Send(ctx, SendMessageParams{To: "+1", From: "+2", Body: "hi"})
	require.NoError(t, err)
	req, _ := mock.LastRequest()
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/v2.1/texts", req.Path)
	assert.Equal(t, map[string]any{"to": "+1", "from_number": "+2", "body": "hi"}, req.JSONBody())
}

func TestMessages_SendNewAndCheckReply(t *testing.T) {
	mock := testutil.NewMockJustCall()
	defer mock.Close()
	c := newTestClient(t, mock)
	ctx := context.Background()

	long := make([]rune, MaxSMSLength+1)
	for i := range long {
		long[i] = 'x'
	}
	_, err := c.Messages().SendNew(ctx, SendNewMessageParams{JustCallNumber: "+2", ContactNumber: "+1", Body: string(long)})
	assert.ErrorIs(t, err, ErrInvalidParam)

	_, err = c.Messages().SendNew(ctx, SendNewMessageParams{JustCallNumber: "+2", ContactNumber: "+1", Body: "hello", RestrictOnce: true})
	require.NoError(t, err)
	req, _ := mock.LastRequest()
	assert.Equal(t, "/v2.1/texts/new", req.Path)
	assert.Equal(t, "Yes", req.JSONBody()["restrict_once"])

	_, err = c.Messages().CheckReply(ctx, CheckReplyParams{})
	assert.ErrorIs(t, err, ErrMissingField)

	_, err = c.Messages().CheckReply(ctx, CheckReplyParams{ContactNumber: "+1"})
	require.NoError(t, err)
	req, _ = mock.LastRequest()
	assert.Equal(t, "/v2.1/texts/checkreply", req.Path)
}

func TestMessages_List_Query(t *testing.T) {
	mock := testutil.NewMockJustCall()
	defer mock.Close()
	c := newTestClient(t, mock)

	_, err := c.Messages().List(context.Background(), ListMessagesParams{
		To:      time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC),
		Content: "invoice",
	})
	require.NoError(t, err)
	req, _ := mock.LastRequest()
	assert.Equal(t, []string{"2024-02-29 23:59:59"}, req.Query["to_datetime"])
	assert.Equal(t, []string{"invoice"}, req.Query["sms_content"])
	assert.Equal(t, []string{"0"}, req.Query["page"])
	assert.Equal(t, []string{"20"}, req.Query["per_page"])

	_, err = c.Messages().List(context.Background(), ListMessagesParams{Direction: "sideways"})
	assert.ErrorIs(t, err, ErrInvalidParam)
}

func TestPhoneNumbers_IterAll(t *testing.T) {
	mock := testutil.NewMockJustCall()
	defer mock.Close()
	mock.SetHandler("/v2.1/phone-numbers", testutil.NewPagedHandler(pages(100, 4), 0, "data", -1))

	c := newTestClient(t, mock)
	items, err := pagination.Collect(c.PhoneNumbers().IterAll(context.Background(), ListPhoneNumbersParams{Capabilities: "sms"}))
	require.NoError(t, err)

	assert.Len(t, items, 104)
	assert.Equal(t, 3, mock.RequestCount())
	assert.Equal(t, []string{"sms"}, mock.Requests()[0].Query["capabilities"])
}

func TestPhoneNumbers_List_Defaults(t *testing.T) {
	mock := testutil.NewMockJustCall()
	defer mock.Close()
	c := newTestClient(t, mock)

	_, err := c.PhoneNumbers().List(context.Background(), ListPhoneNumbersParams{})
	require.NoError(t, err)
	req, _ := mock.LastRequest()
	assert.Equal(t, []string{"30"}, req.Query["per_page"])
	assert.Equal(t, []string{"0"}, req.Query["page"])
	assert.NotContains(t, req.Query, "order")
}

func TestIterate_SharesGateWithoutDoubleAdmission(t *testing.T) {
	mock := testutil.NewMockJustCall()
	defer mock.Close()
	mock.SetHandler("/v1/contacts/list", testutil.NewPagedHandler(pages(5, 5), 1, "data", -1))

	gate := &countingGate{}
	c := newTestClient(t, mock, func(cfg *Config) { cfg.Gate = gate })

	_, err := pagination.Collect(c.Contacts().IterAll(context.Background()))
	require.NoError(t, err)

	assert.Equal(t, 3, mock.RequestCount())
	assert.Equal(t, int64(3), gate.n.Load(), "one admission per page fetch")
}

func TestIterate_ErrorEndsSequence(t *testing.T) {
	mock := testutil.NewMockJustCall()
	defer mock.Close()
	mock.SetSequence("/v1/contacts/list",
		testutil.NewJSONResponse(`{"status":"success","data":[{"id":1},{"id":2}]}`),
		testutil.NewErrorResponse(http.StatusBadRequest, "bad page"),
	)

	c := newTestClient(t, mock)
	var ids []string
	var gotErr error
	for rec, err := range c.Contacts().IterAll(context.Background()) {
		if err != nil {
			gotErr = err
			continue
		}
		id, _ := rec.ID()
		ids = append(ids, id)
	}

	assert.Equal(t, []string{"1", "2"}, ids)
	var apiErr *APIError
	require.ErrorAs(t, gotErr, &apiErr)
	assert.Equal(t, "bad page", apiErr.Message)
	assert.Equal(t, 2, mock.RequestCount())
}
