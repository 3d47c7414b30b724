package nationbuilder

import (
	"context"
	"iter"
	"net/http"
)

// Election types of a donation.
const (
	ElectionTypePrimary = "primary"
	ElectionTypeGeneral = "general"
	ElectionTypeRunoff  = "runoff"
	ElectionTypeOther   = "other"
)

// Election identifies the election a donation is designated to.
type Election struct {
	ElectionType  string `json:"election_type,omitempty"`
	ElectionCycle string `json:"election_cycle,omitempty"`
}

// Donation represents a donation resource.
type Donation struct {
	// ID is assigned by NationBuilder.
	ID ID `json:"id,omitempty"`
	// AmountInCents is required on create.
	AmountInCents int `json:"amount_in_cents,omitempty"`
	// Amount is the formatted amount, e.g. "$10.00".
	Amount string `json:"amount,omitempty"`

	// DonorID should be set on create. If omitted, Email or FirstName and
	// LastName are required and a new person may be created.
	DonorID ID                 `json:"donor_id,omitempty"`
	Donor   *AbbreviatedPerson `json:"donor,omitempty"`
	// AuthorID defaults to the owner of the access token on create.
	AuthorID ID `json:"author_id,omitempty"`

	// Donor overrides. Setting them changes the field of the donor.
	Email                string   `json:"email,omitempty"`
	FirstName            string   `json:"first_name,omitempty"`
	LastName             string   `json:"last_name,omitempty"`
	Employer             string   `json:"employer,omitempty"`
	Occupation           string   `json:"occupation,omitempty"`
	RecruiterNameOrEmail string   `json:"recruiter_name_or_email,omitempty"`
	BillingAddress       *Address `json:"billing_address,omitempty"`
	WorkAddress          *Address `json:"work_address,omitempty"`

	CheckNumber           string `json:"check_number,omitempty"`
	CorporateContribution bool   `json:"corporate_contribution,omitempty"`
	// IsPrivate hides the donation from the public site.
	IsPrivate bool   `json:"is_private,omitempty"`
	ImportID  string `json:"import_id,omitempty"`
	Note      string `json:"note,omitempty"`
	NgpID     string `json:"ngp_id,omitempty"`

	// PaymentTypeName or PaymentTypeNgpCode should be set, the default is cash.
	PaymentTypeName    string `json:"payment_type_name,omitempty"`
	PaymentTypeNgpCode string `json:"payment_type_ngp_code,omitempty"`

	// FecType or FecTypeNgpCode should be set, the default is contribution.
	FecType         string    `json:"fec_type,omitempty"`
	FecTypeNgpCode  string    `json:"fec_type_ngp_code,omitempty"`
	Election        *Election `json:"election,omitempty"`
	ActblueOrderNum string    `json:"actblue_order_number,omitempty"`

	MailingSlug         string `json:"mailing_slug,omitempty"`
	PageSlug            string `json:"page_slug,omitempty"`
	TrackingCodeSlug    string `json:"tracking_code_slug,omitempty"`
	MerchantAccountID   ID     `json:"merchant_account_id,omitempty"`
	PledgeID            ID     `json:"pledge_id,omitempty"`
	RecurringDonationID ID     `json:"recurring_donation_id,omitempty"`

	// SucceededAt must be set for the donation to count as successful.
	SucceededAt Time `json:"succeeded_at,omitzero"`
	FailedAt    Time `json:"failed_at,omitzero"`
	CanceledAt  Time `json:"canceled_at,omitzero"`
	CreatedAt   Time `json:"created_at,omitzero"`
	UpdatedAt   Time `json:"updated_at,omitzero"`
}

// DonationResponse wraps a single donation.
type DonationResponse struct {
	Donation Donation `json:"donation"`
}

// DonationSearchParams are the criteria of [Client.SearchDonations].
type DonationSearchParams struct {
	SucceededSince Time `url:"succeeded_since,omitempty"`
	SucceededUntil Time `url:"succeeded_until,omitempty"`
	FailedSince    Time `url:"failed_since,omitempty"`
	FailedUntil    Time `url:"failed_until,omitempty"`
	CreatedSince   Time `url:"created_since,omitempty"`
	CreatedUntil   Time `url:"created_until,omitempty"`
	DonorID        ID   `url:"donor_id,omitempty"`

	// Limit is the number of results per page. Default 10, max 100.
	Limit int `url:"limit,omitempty"`
}

// Donations retrieves a page of donations.
func (c *Client) Donations(ctx context.Context, params LimitParams) (*Page[Donation], error) {
	return getPage[Donation](ctx, c, apiPath("donations"), params)
}

// DonationsIter returns an iterator over all donations.
func (c *Client) DonationsIter(ctx context.Context) iter.Seq2[Donation, error] {
	return iterate(ctx, pages(c, func(ctx context.Context) (*Page[Donation], error) {
		return c.Donations(ctx, LimitParams{Limit: iterLimit})
	}))
}

// SearchDonations retrieves a page of donations matching the given criteria.
func (c *Client) SearchDonations(ctx context.Context, params DonationSearchParams) (*Page[Donation], error) {
	return getPage[Donation](ctx, c, apiPath("donations", "search"), params)
}

// SearchDonationsIter returns an iterator over all donations matching the given criteria.
func (c *Client) SearchDonationsIter(ctx context.Context, params DonationSearchParams) iter.Seq2[Donation, error] {
	if params.Limit == 0 {
		params.Limit = iterLimit
	}

	return iterate(ctx, pages(c, func(ctx context.Context) (*Page[Donation], error) {
		return c.SearchDonations(ctx, params)
	}))
}

// CreateDonation records a donation.
func (c *Client) CreateDonation(ctx context.Context, d Donation) (*DonationResponse, error) {
	return c.sendDonation(ctx, http.MethodPost, apiPath("donations"), d)
}

// UpdateDonation changes the fields set in d of the donation with the given id.
func (c *Client) UpdateDonation(ctx context.Context, id ID, d Donation) (*DonationResponse, error) {
	return c.sendDonation(ctx, http.MethodPut, apiPath("donations", id.String()), d)
}

func (c *Client) sendDonation(ctx context.Context, method, path string, d Donation) (*DonationResponse, error) {
	req, err := c.newRequest(ctx, method, path, nil, DonationResponse{Donation: d})
	if err != nil {
		return nil, err
	}

	var result DonationResponse
	if _, err := c.doJSON(req, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// DestroyDonation removes the donation with the given id.
func (c *Client) DestroyDonation(ctx context.Context, id ID) error {
	return c.destroy(ctx, apiPath("donations", id.String()))
}
