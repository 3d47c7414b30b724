package nationbuilder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const personJSON = `{
	"id": 42,
	"external_id": "crm-7",
	"first_name": "Ada",
	"last_name": "Lovelace",
	"email": "ada@example.com",
	"email_opt_in": false,
	"birthdate": "1815-12-10",
	"support_level": 1,
	"tags": ["volunteer", "donor"],
	"primary_address": {"address1": "12 St James's Square", "city": "London", "country_code": "GB", "lat": "51.5074", "lng": "-0.1341"},
	"created_at": "2013-02-21T14:15:45-05:00",
	"updated_at": "2013-02-21 14:15:45 -0500",
	"donations_raised_count": 3,
	"recruiter": {"id": 7, "first_name": "Charles"},
	"favorite_engine": "analytical"
}`

func TestClient_People(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/people", r.URL.Path)
		assert.Equal(t, "25", r.URL.Query().Get("limit"))

		fmt.Fprintf(w, `{"results":[%s],"next":"/api/v1/people?__nonce=n&__token=t&limit=25","prev":null}`, personJSON)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	page, err := c.People(context.Background(), LimitParams{Limit: 25})
	require.NoError(t, err)
	require.Len(t, page.Results, 1)
	assert.True(t, page.HasNext())

	p := page.Results[0]
	assert.Equal(t, ID(42), p.ID)
	assert.Equal(t, "Ada", p.FirstName)
	require.NotNil(t, p.EmailOptIn)
	assert.False(t, *p.EmailOptIn)
	assert.Equal(t, "1815-12-10", p.Birthdate.String())
	assert.Equal(t, []string{"volunteer", "donor"}, p.Tags)
	assert.Equal(t, "51.5074,-0.1341", p.PrimaryAddress.Location())
	assert.True(t, p.CreatedAt.Equal(p.UpdatedAt.Time))
}

func TestClient_PeopleIter(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) {
		case 1:
			assert.Equal(t, "100", r.URL.Query().Get("limit"))
			_, _ = io.WriteString(w, `{"results":[{"id":1},{"id":2}],"next":"/api/v1/people?__nonce=a&__token=b&limit=100"}`)
		case 2:
			assert.Equal(t, "b", r.URL.Query().Get("__token"))
			_, _ = io.WriteString(w, `{"results":[{"id":3}],"next":null}`)
		default:
			t.Errorf("unexpected request %s", r.URL)
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	var ids []ID
	for p, err := range c.PeopleIter(context.Background()) {
		require.NoError(t, err)
		ids = append(ids, p.ID)
	}

	assert.Equal(t, []ID{1, 2, 3}, ids)
}

func TestClient_ShowPerson(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/people/42":
			assert.Empty(t, r.URL.RawQuery)
			fmt.Fprintf(w, `{"person":%s,"precinct":{"id":9,"name":"Ward 9","code":"W9"}}`, personJSON)
		case "/api/v1/people/crm-7":
			assert.Equal(t, "external", r.URL.Query().Get("id_type"))
			fmt.Fprintf(w, `{"person":%s}`, personJSON)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"code":"not_found","message":"Record not found"}`)
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	resp, err := c.ShowPerson(context.Background(), 42, ShowPersonParams{})
	require.NoError(t, err)
	assert.Equal(t, "Lovelace", resp.Person.LastName)
	assert.Equal(t, 3, resp.Person.DonationsRaisedCount)
	require.NotNil(t, resp.Person.Recruiter)
	assert.Equal(t, "Charles", resp.Person.Recruiter.FirstName)
	require.NotNil(t, resp.Precinct)
	assert.Equal(t, "W9", resp.Precinct.Code)

	var engine string
	require.NoError(t, resp.Person.CustomField("favorite_engine", &engine))
	assert.Equal(t, "analytical", engine)

	resp, err = c.ShowPersonWithExternalID(context.Background(), "crm-7")
	require.NoError(t, err)
	assert.Equal(t, ID(42), resp.Person.ID)
	assert.Nil(t, resp.Precinct)

	_, err = c.ShowPerson(context.Background(), 1, ShowPersonParams{})
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.True(t, HasCode(err, CodeNotFound))
}

func TestClient_ShowPeople(t *testing.T) {
	var inFlight, peak atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)

		id := strings.TrimPrefix(r.URL.Path, "/api/v1/people/")
		fmt.Fprintf(w, `{"person":{"id":%s,"first_name":"P%s"}}`, id, id)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, WithConcurrency(2))

	ids := []ID{5, 4, 3, 2, 1}
	people, err := c.ShowPeople(context.Background(), ids)
	require.NoError(t, err)
	require.Len(t, people, len(ids))

	for i, id := range ids {
		assert.Equal(t, id, people[i].Person.ID)
		assert.Equal(t, "P"+id.String(), people[i].Person.FirstName)
	}
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestClient_ShowPeople_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/people/2" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"code":"not_found","message":"Record not found"}`)
			return
		}
		_, _ = io.WriteString(w, `{"person":{"id":1}}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	_, err := c.ShowPeople(context.Background(), []ID{1, 2, 3})
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "show person 2")
}

func TestClient_MatchPerson(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/people/match", r.URL.Path)

		q := r.URL.Query()
		if q.Get("email") == "ada@example.com" {
			assert.Equal(t, "Ada", q.Get("first_name"))
			assert.False(t, q.Has("phone"))
			_, _ = io.WriteString(w, `{"person":{"id":42,"email":"ada@example.com"}}`)
			return
		}

		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"code":"multiple_matches","message":"Multiple people matched"}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	resp, err := c.MatchPerson(context.Background(), MatchParams{Email: "ada@example.com", FirstName: "Ada"})
	require.NoError(t, err)
	assert.Equal(t, ID(42), resp.Person.ID)

	_, err = c.MatchPerson(context.Background(), MatchParams{LastName: "Smith"})
	assert.True(t, HasCode(err, CodeMultipleMatches))
	assert.False(t, IsNotFound(err))
}

func TestClient_SearchPeople(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/people/search", r.URL.Path)

		q := r.URL.Query()
		assert.Equal(t, "Springfield", q.Get("city"))
		assert.Equal(t, "F", q.Get("sex"))
		assert.Equal(t, "1980-04-01", q.Get("birthdate"))
		assert.Equal(t, "2024-01-01T00:00:00Z", q.Get("updated_since"))
		assert.Equal(t, "true", q.Get("with_mobile"))
		assert.Equal(t, "gold", q.Get("custom_values[tier]"))
		assert.Equal(t, "yes", q.Get("custom_values[volunteer]"))
		assert.False(t, q.Has("first_name"))
		assert.False(t, q.Has("dw_id"))

		_, _ = io.WriteString(w, `{"results":[{"id":8,"city_district":"5"}],"next":null}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	params := SearchParams{
		City:         "Springfield",
		Sex:          SexFemale,
		Birthdate:    NewDate(1980, time.April, 1),
		UpdatedSince: NewTime(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		WithMobile:   true,
		CustomValues: CustomValues{"tier": "gold", "volunteer": "yes"},
	}

	page, err := c.SearchPeople(context.Background(), params)
	require.NoError(t, err)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "5", page.Results[0].CityDistrict)
	assert.False(t, page.HasNext())

	var n int
	for _, err := range c.SearchPeopleIter(context.Background(), params) {
		require.NoError(t, err)
		n++
	}
	assert.Equal(t, 1, n)
}

func TestClient_NearbyPeople(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/people/nearby", r.URL.Path)
		assert.Equal(t, "34.049031,-118.251399", r.URL.Query().Get("location"))
		assert.Equal(t, "100", r.URL.Query().Get("limit"))

		_, _ = io.WriteString(w, `{"results":[{"id":3,"bio":"near","primary_address":{"distance":0.4}}],"next":null}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	_, err := c.NearbyPeople(context.Background(), NearbyParams{})
	require.Error(t, err)

	var people []Person
	for p, err := range c.NearbyPeopleIter(context.Background(), NearbyParams{Location: "34.049031,-118.251399", Distance: 2}) {
		require.NoError(t, err)
		people = append(people, p)
	}

	require.Len(t, people, 1)
	assert.Equal(t, "near", people[0].Bio)
	assert.InDelta(t, 0.4, people[0].PrimaryAddress.Distance, 0.0001)
}

func TestClient_CreatePerson(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/people", r.URL.Path)

		var body map[string]map[string]json.RawMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		sent := body["person"]
		assert.JSONEq(t, `"Grace"`, string(sent["first_name"]))
		assert.JSONEq(t, `false`, string(sent["email_opt_in"]))
		assert.JSONEq(t, `"navy"`, string(sent["branch"]))
		assert.NotContains(t, sent, "id")
		assert.NotContains(t, sent, "created_at")

		if sent["email"] == nil {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"code":"validation_failed","message":"Validation Failed.","validation_errors":["email can't be blank"]}`)
			return
		}

		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"person":{"id":99,"first_name":"Grace","branch":"navy"}}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	optIn := false
	p := Person{AbbreviatedPerson: AbbreviatedPerson{FirstName: "Grace", Email: "grace@example.com", EmailOptIn: &optIn}}
	require.NoError(t, p.SetCustomField("branch", "navy"))

	resp, err := c.CreatePerson(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, ID(99), resp.Person.ID)

	p.Email = ""
	_, err = c.CreatePerson(context.Background(), p)
	require.Error(t, err)

	var rerr *RemoteError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, CodeValidationFailed, rerr.Code)
	assert.EqualError(t, rerr.Validation(), "email can't be blank")
}

func TestClient_CreatePerson_RequiresCreated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"person":{"id":1}}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	_, err := c.CreatePerson(context.Background(), Person{})
	assert.ErrorIs(t, err, ErrStatus)
}

func TestClient_UpdateAndPushPerson(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)

		body, _ := io.ReadAll(r.Body)
		switch r.URL.Path {
		case "/api/v1/people/42":
			assert.JSONEq(t, `{"person":{"phone":"555-0100"}}`, string(body))
			_, _ = io.WriteString(w, `{"person":{"id":42,"phone":"555-0100"}}`)
		case "/api/v1/people/push":
			assert.JSONEq(t, `{"person":{"email":"new@example.com"}}`, string(body))
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, `{"person":{"id":43,"email":"new@example.com"}}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	resp, err := c.UpdatePerson(context.Background(), 42, Person{AbbreviatedPerson: AbbreviatedPerson{Phone: "555-0100"}})
	require.NoError(t, err)
	assert.Equal(t, "555-0100", resp.Person.Phone)

	resp, err = c.PushPerson(context.Background(), Person{AbbreviatedPerson: AbbreviatedPerson{Email: "new@example.com"}})
	require.NoError(t, err)
	assert.Equal(t, ID(43), resp.Person.ID)
}

func TestClient_DestroyRegisterMe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodDelete && r.URL.Path == "/api/v1/people/42":
			w.WriteHeader(http.StatusNoContent)
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/people/42/register":
			_, _ = io.WriteString(w, `{"status":"success"}`)
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/people/me":
			_, _ = io.WriteString(w, `{"person":{"id":1,"email":"admin@example.com"}}`)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	require.NoError(t, c.DestroyPerson(context.Background(), 42))

	reg, err := c.RegisterPerson(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "success", reg.Status)

	me, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", me.Person.Email)
}
