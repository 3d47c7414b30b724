package nationbuilder

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"sort"

	"github.com/google/go-querystring/query"
	"golang.org/x/sync/errgroup"
)

// IDTypeExternal selects people by their external id in [ShowPersonParams].
const IDTypeExternal = "external"

// ShowPersonParams are the optional parameters of [Client.ShowPerson].
type ShowPersonParams struct {
	// IDType is empty for NationBuilder ids or [IDTypeExternal].
	IDType string `url:"id_type,omitempty"`
}

// MatchParams are the criteria of [Client.MatchPerson].
type MatchParams struct {
	Email     string `url:"email,omitempty"`
	FirstName string `url:"first_name,omitempty"`
	LastName  string `url:"last_name,omitempty"`
	Phone     string `url:"phone,omitempty"`
	Mobile    string `url:"mobile,omitempty"`
}

// CustomValues matches custom field values by slug.
// They are encoded as custom_values[slug]=value.
type CustomValues map[string]string

// EncodeValues implements the query.Encoder interface.
func (cv CustomValues) EncodeValues(key string, v *url.Values) error {
	slugs := make([]string, 0, len(cv))
	for slug := range cv {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)

	for _, slug := range slugs {
		v.Set(fmt.Sprintf("%s[%s]", key, slug), cv[slug])
	}

	return nil
}

// SearchParams are the criteria of [Client.SearchPeople].
type SearchParams struct {
	FirstName string `url:"first_name,omitempty"`
	LastName  string `url:"last_name,omitempty"`
	// City and State of the primary address.
	City  string `url:"city,omitempty"`
	State string `url:"state,omitempty"`
	// Sex is one of [SexMale], [SexFemale] or [SexOther].
	Sex       string `url:"sex,omitempty"`
	Birthdate Date   `url:"birthdate,omitempty"`
	// UpdatedSince limits results to people updated after the given time.
	UpdatedSince Time `url:"updated_since,omitempty"`
	// WithMobile only returns people with a mobile number.
	WithMobile   bool         `url:"with_mobile,omitempty"`
	CustomValues CustomValues `url:"custom_values,omitempty"`

	CivicrmID         string `url:"civicrm_id,omitempty"`
	CountyFileID      string `url:"county_file_id,omitempty"`
	StateFileID       string `url:"state_file_id,omitempty"`
	DatatrustID       string `url:"datatrust_id,omitempty"`
	DwID              int    `url:"dw_id,omitempty"`
	MediaMarketID     string `url:"media_market_id,omitempty"`
	MembershipLevelID string `url:"membership_level_id,omitempty"`
	NgpID             string `url:"ngp_id,omitempty"`
	PfStratID         string `url:"pf_strat_id,omitempty"`
	VanID             string `url:"van_id,omitempty"`
	SalesforceID      string `url:"salesforce_id,omitempty"`
	RncID             string `url:"rnc_id,omitempty"`
	RncRegid          string `url:"rnc_regid,omitempty"`
	ExternalID        string `url:"external_id,omitempty"`

	// Limit is the number of results per page. Default 10, max 100.
	Limit int `url:"limit,omitempty"`
}

// NearbyParams are the parameters of [Client.NearbyPeople].
type NearbyParams struct {
	// Location is the origin of the search as "latitude,longitude". Required.
	Location string `url:"location"`
	// Distance is the search radius in miles. Default 1.
	Distance float64 `url:"distance,omitempty"`
	// Limit is the number of results per page. Default 10, max 100.
	Limit int `url:"limit,omitempty"`
}

// People retrieves a page of abbreviated people in the nation.
// Use [Client.ShowPerson] for the full representation.
func (c *Client) People(ctx context.Context, params LimitParams) (*Page[AbbreviatedPerson], error) {
	return getPage[AbbreviatedPerson](ctx, c, apiPath("people"), params)
}

// PeopleIter returns an iterator over all people in the nation.
func (c *Client) PeopleIter(ctx context.Context) iter.Seq2[AbbreviatedPerson, error] {
	return iterate(ctx, pages(c, func(ctx context.Context) (*Page[AbbreviatedPerson], error) {
		return c.People(ctx, LimitParams{Limit: iterLimit})
	}))
}

// ShowPerson retrieves the full representation of the person with the given id.
// A missing person results in a [RemoteError] with code [CodeNotFound].
func (c *Client) ShowPerson(ctx context.Context, id ID, params ShowPersonParams) (*PersonResponse, error) {
	return c.showPerson(ctx, id.String(), params)
}

// ShowPersonWithExternalID retrieves the full representation of the person with the given external id.
func (c *Client) ShowPersonWithExternalID(ctx context.Context, externalID string) (*PersonResponse, error) {
	return c.showPerson(ctx, externalID, ShowPersonParams{IDType: IDTypeExternal})
}

func (c *Client) showPerson(ctx context.Context, id string, params ShowPersonParams) (*PersonResponse, error) {
	v, err := query.Values(params)
	if err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodGet, apiPath("people", id), v, nil)
	if err != nil {
		return nil, err
	}

	var result PersonResponse
	if _, err := c.doJSON(req, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// ShowPeople retrieves the full representation of several people in parallel.
// The results are in the order of ids. The first failure cancels the remaining requests.
func (c *Client) ShowPeople(ctx context.Context, ids []ID) ([]*PersonResponse, error) {
	results := make([]*PersonResponse, len(ids))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for i, id := range ids {
		g.Go(func() error {
			resp, err := c.ShowPerson(ctx, id, ShowPersonParams{})
			if err != nil {
				return fmt.Errorf("show person %d: %w", id, err)
			}

			results[i] = resp
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// MatchPerson finds the single person matching all given criteria.
// If none or several people match, the API answers with a [RemoteError]
// with code [CodeNoMatches] or [CodeMultipleMatches].
func (c *Client) MatchPerson(ctx context.Context, params MatchParams) (*AbbreviatedPersonResponse, error) {
	v, err := query.Values(params)
	if err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodGet, apiPath("people", "match"), v, nil)
	if err != nil {
		return nil, err
	}

	var result AbbreviatedPersonResponse
	if _, err := c.doJSON(req, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// SearchPeople retrieves a page of people matching the given criteria.
func (c *Client) SearchPeople(ctx context.Context, params SearchParams) (*Page[AbbreviatedPerson], error) {
	return getPage[AbbreviatedPerson](ctx, c, apiPath("people", "search"), params)
}

// SearchPeopleIter returns an iterator over all people matching the given criteria.
// params.Limit is the page size and defaults to 100.
func (c *Client) SearchPeopleIter(ctx context.Context, params SearchParams) iter.Seq2[AbbreviatedPerson, error] {
	if params.Limit == 0 {
		params.Limit = iterLimit
	}

	return iterate(ctx, pages(c, func(ctx context.Context) (*Page[AbbreviatedPerson], error) {
		return c.SearchPeople(ctx, params)
	}))
}

// NearbyPeople retrieves a page of people near a location.
func (c *Client) NearbyPeople(ctx context.Context, params NearbyParams) (*Page[Person], error) {
	if params.Location == "" {
		return nil, errors.New("nearby people: location is required")
	}

	return getPage[Person](ctx, c, apiPath("people", "nearby"), params)
}

// NearbyPeopleIter returns an iterator over all people near a location.
// params.Limit is the page size and defaults to 100.
func (c *Client) NearbyPeopleIter(ctx context.Context, params NearbyParams) iter.Seq2[Person, error] {
	if params.Limit == 0 {
		params.Limit = iterLimit
	}

	return iterate(ctx, pages(c, func(ctx context.Context) (*Page[Person], error) {
		return c.NearbyPeople(ctx, params)
	}))
}

// CreatePerson creates a person and returns its full representation.
// A person needs a name, a phone number or an email, otherwise the API
// reports a validation error for the field identity.
func (c *Client) CreatePerson(ctx context.Context, p Person) (*PersonResponse, error) {
	return c.sendPerson(ctx, http.MethodPost, apiPath("people"), p, http.StatusCreated)
}

// UpdatePerson changes the fields set in p of the person with the given id.
func (c *Client) UpdatePerson(ctx context.Context, id ID, p Person) (*PersonResponse, error) {
	return c.sendPerson(ctx, http.MethodPut, apiPath("people", id.String()), p)
}

// PushPerson updates the person matching p by email or external id, or creates it.
func (c *Client) PushPerson(ctx context.Context, p Person) (*PersonResponse, error) {
	return c.sendPerson(ctx, http.MethodPut, apiPath("people", "push"), p, http.StatusOK, http.StatusCreated)
}

func (c *Client) sendPerson(
	ctx context.Context,
	method, path string,
	p Person,
	expect ...int,
) (*PersonResponse, error) {
	req, err := c.newRequest(ctx, method, path, nil, personRequest{Person: p})
	if err != nil {
		return nil, err
	}

	var result PersonResponse
	if _, err := c.doJSON(req, &result, expect...); err != nil {
		return nil, err
	}

	return &result, nil
}

// DestroyPerson removes the person with the given id from the nation.
func (c *Client) DestroyPerson(ctx context.Context, id ID) error {
	return c.destroy(ctx, apiPath("people", id.String()))
}

// RegisterPerson starts the user registration of a person by sending an account confirmation email.
func (c *Client) RegisterPerson(ctx context.Context, id ID) (*RegisterResponse, error) {
	req, err := c.newRequest(ctx, http.MethodGet, apiPath("people", id.String(), "register"), nil, nil)
	if err != nil {
		return nil, err
	}

	var result RegisterResponse
	if _, err := c.doJSON(req, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// Me retrieves the person owning the access token.
func (c *Client) Me(ctx context.Context) (*PersonResponse, error) {
	return c.showPerson(ctx, "me", ShowPersonParams{})
}

// getPage fetches the first page of an index endpoint.
func getPage[T any](ctx context.Context, c *Client, path string, params any) (*Page[T], error) {
	v, err := query.Values(params)
	if err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodGet, path, v, nil)
	if err != nil {
		return nil, err
	}

	var page Page[T]
	if _, err := c.doJSON(req, &page); err != nil {
		return nil, err
	}

	return &page, nil
}

// destroy issues a DELETE request.
func (c *Client) destroy(ctx context.Context, path string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, path, nil, nil)
	if err != nil {
		return err
	}

	_, err = c.doJSON(req, nil)
	return err
}
