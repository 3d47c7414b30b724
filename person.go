package nationbuilder

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sync"
)

// Sex values used by NationBuilder.
const (
	SexMale   = "M"
	SexFemale = "F"
	SexOther  = "O"
)

// SignupType distinguishes people from organizations.
type SignupType int

const (
	SignupTypePerson       SignupType = 0
	SignupTypeOrganization SignupType = 1
)

// AbbreviatedPerson is the reduced person resource returned by index and search endpoints.
type AbbreviatedPerson struct {
	// ID is the NationBuilder id of the person.
	ID ID `json:"id,omitempty"`
	// ExternalID is an id assigned by an external system.
	ExternalID string `json:"external_id,omitempty"`

	FirstName  string `json:"first_name,omitempty"`
	MiddleName string `json:"middle_name,omitempty"`
	LastName   string `json:"last_name,omitempty"`
	// Email is the primary email address.
	Email        string     `json:"email,omitempty"`
	EmailOptIn   *bool      `json:"email_opt_in,omitempty"`
	Phone        string     `json:"phone,omitempty"`
	Mobile       string     `json:"mobile,omitempty"`
	MobileOptIn  *bool      `json:"mobile_opt_in,omitempty"`
	DoNotCall    *bool      `json:"do_not_call,omitempty"`
	DoNotContact *bool      `json:"do_not_contact,omitempty"`
	Birthdate    Date       `json:"birthdate,omitzero"`
	Sex          string     `json:"sex,omitempty"`
	SignupType   SignupType `json:"signup_type,omitempty"`
	Employer     string     `json:"employer,omitempty"`
	Occupation   string     `json:"occupation,omitempty"`
	Note         string     `json:"note,omitempty"`
	Party        string     `json:"party,omitempty"`
	// SupportLevel ranges from 1 (strong support) to 5 (strong opposition).
	SupportLevel *int     `json:"support_level,omitempty"`
	IsVolunteer  *bool    `json:"is_volunteer,omitempty"`
	Tags         []string `json:"tags,omitempty"`

	PrimaryAddress     *Address `json:"primary_address,omitempty"`
	ProfileImageURLSSL string   `json:"profile_image_url_ssl,omitempty"`
	RecruiterID        ID       `json:"recruiter_id,omitempty"`
	PrecinctID         ID       `json:"precinct_id,omitempty"`

	HasFacebook       bool   `json:"has_facebook,omitempty"`
	IsTwitterFollower bool   `json:"is_twitter_follower,omitempty"`
	TwitterID         string `json:"twitter_id,omitempty"`
	TwitterName       string `json:"twitter_name,omitempty"`
	LinkedinID        string `json:"linkedin_id,omitempty"`

	// Ids of the person in voter files and external CRMs.
	CivicrmID    string `json:"civicrm_id,omitempty"`
	CountyFileID string `json:"county_file_id,omitempty"`
	StateFileID  string `json:"state_file_id,omitempty"`
	DatatrustID  string `json:"datatrust_id,omitempty"`
	DwID         string `json:"dw_id,omitempty"`
	NbecGUID     string `json:"nbec_guid,omitempty"`
	NgpID        string `json:"ngp_id,omitempty"`
	PfStratID    string `json:"pf_strat_id,omitempty"`
	RncID        string `json:"rnc_id,omitempty"`
	RncRegid     string `json:"rnc_regid,omitempty"`
	SalesforceID string `json:"salesforce_id,omitempty"`
	VanID        string `json:"van_id,omitempty"`

	// Districts of the primary address.
	CityDistrict          string `json:"city_district,omitempty"`
	CountyDistrict        string `json:"county_district,omitempty"`
	FederalDistrict       string `json:"federal_district,omitempty"`
	FireDistrict          string `json:"fire_district,omitempty"`
	JudicialDistrict      string `json:"judicial_district,omitempty"`
	LabourRegion          string `json:"labour_region,omitempty"`
	SchoolDistrict        string `json:"school_district,omitempty"`
	SchoolSubDistrict     string `json:"school_sub_district,omitempty"`
	StateLowerDistrict    string `json:"state_lower_district,omitempty"`
	StateUpperDistrict    string `json:"state_upper_district,omitempty"`
	SupranationalDistrict string `json:"supranational_district,omitempty"`
	VillageDistrict       string `json:"village_district,omitempty"`
	Ward                  string `json:"ward,omitempty"`

	CreatedAt Time `json:"created_at,omitzero"`
	UpdatedAt Time `json:"updated_at,omitzero"`
}

// Person is the full person resource.
//
// Keys the API sends that are not declared as fields, like the custom fields
// of a nation, are kept in Extra and sent back on create and update.
type Person struct {
	AbbreviatedPerson

	ActiveCustomerExpiresAt Time               `json:"active_customer_expires_at,omitzero"`
	ActiveCustomerStartedAt Time               `json:"active_customer_started_at,omitzero"`
	AuthorID                ID                 `json:"author_id,omitempty"`
	Author                  *AbbreviatedPerson `json:"author,omitempty"`
	AutoImportID            string             `json:"auto_import_id,omitempty"`
	Availability            string             `json:"availability,omitempty"`
	BannedAt                Time               `json:"banned_at,omitzero"`
	Bio                     string             `json:"bio,omitempty"`
	CallStatusID            string             `json:"call_status_id,omitempty"`
	CallStatusName          string             `json:"call_status_name,omitempty"`
	Church                  string             `json:"church,omitempty"`
	CitySubDistrict         string             `json:"city_sub_district,omitempty"`
	ContactStatusID         string             `json:"contact_status_id,omitempty"`
	ContactStatusName       string             `json:"contact_status_name,omitempty"`
	CouldVoteStatus         *int               `json:"could_vote_status,omitempty"`
	Demo                    string             `json:"demo,omitempty"`
	Ethnicity               string             `json:"ethnicity,omitempty"`
	FaxNumber               string             `json:"fax_number,omitempty"`
	FederalDonotcall        bool               `json:"federal_donotcall,omitempty"`
	FullName                string             `json:"full_name,omitempty"`
	ImportID                string             `json:"import_id,omitempty"`
	InferredParty           string             `json:"inferred_party,omitempty"`
	InferredSupportLevel    string             `json:"inferred_support_level,omitempty"`
	Language                string             `json:"language,omitempty"`
	LegalName               string             `json:"legal_name,omitempty"`
	Locale                  string             `json:"locale,omitempty"`
	MaritalStatus           string             `json:"marital_status,omitempty"`
	MediaMarketName         string             `json:"media_market_name,omitempty"`
	MobileNormalized        string             `json:"mobile_normalized,omitempty"`
	NbecPrecinctCode        string             `json:"nbec_precinct_code,omitempty"`
	NoteUpdatedAt           Time               `json:"note_updated_at,omitzero"`
	PageSlug                string             `json:"page_slug,omitempty"`
	ParentID                ID                 `json:"parent_id,omitempty"`
	Parent                  *AbbreviatedPerson `json:"parent,omitempty"`
	PartyMember             *bool              `json:"party_member,omitempty"`
	PhoneNormalized         string             `json:"phone_normalized,omitempty"`
	PhoneTime               string             `json:"phone_time,omitempty"`
	PrecinctCode            string             `json:"precinct_code,omitempty"`
	PrecinctName            string             `json:"precinct_name,omitempty"`
	Prefix                  string             `json:"prefix,omitempty"`
	Suffix                  string             `json:"suffix,omitempty"`
	PreviousParty           string             `json:"previous_party,omitempty"`
	PrimaryEmailID          string             `json:"primary_email_id,omitempty"`
	PriorityLevel           string             `json:"priority_level,omitempty"`
	PriorityLevelChangedAt  Time               `json:"priority_level_changed_at,omitzero"`
	Religion                string             `json:"religion,omitempty"`
	Subnations              []string           `json:"subnations,omitempty"`
	SupportLevelChangedAt   Time               `json:"support_level_changed_at,omitzero"`
	SupportProbabilityScore *float64           `json:"support_probability_score,omitempty"`
	TurnoutProbabilityScore *float64           `json:"turnout_probability_score,omitempty"`
	UnsubscribedAt          Time               `json:"unsubscribed_at,omitzero"`
	Username                string             `json:"username,omitempty"`
	Website                 string             `json:"website,omitempty"`
	WorkPhoneNumber         string             `json:"work_phone_number,omitempty"`
	WarningsCount           int                `json:"warnings_count,omitempty"`

	// Additional email addresses and whether they bounced.
	Email1      string `json:"email1,omitempty"`
	Email1IsBad bool   `json:"email1_is_bad,omitempty"`
	Email2      string `json:"email2,omitempty"`
	Email2IsBad bool   `json:"email2_is_bad,omitempty"`
	Email3      string `json:"email3,omitempty"`
	Email3IsBad bool   `json:"email3_is_bad,omitempty"`
	Email4      string `json:"email4,omitempty"`
	Email4IsBad bool   `json:"email4_is_bad,omitempty"`

	// Addresses.
	BillingAddress       *Address `json:"billing_address,omitempty"`
	HomeAddress          *Address `json:"home_address,omitempty"`
	MailingAddress       *Address `json:"mailing_address,omitempty"`
	MeetupAddress        *Address `json:"meetup_address,omitempty"`
	RegisteredAddress    *Address `json:"registered_address,omitempty"`
	SubmittedAddress     *Address `json:"submitted_address,omitempty"`
	TwitterAddress       *Address `json:"twitter_address,omitempty"`
	TwitterLocation      *Address `json:"twitter_location,omitempty"`
	UserSubmittedAddress *Address `json:"user_submitted_address,omitempty"`
	WorkAddress          *Address `json:"work_address,omitempty"`

	// Donation and fundraising totals, in cents.
	CapitalAmountInCents                  int `json:"capital_amount_in_cents,omitempty"`
	ReceivedCapitalAmountInCents          int `json:"received_capital_amount_in_cents,omitempty"`
	SpentCapitalAmountInCents             int `json:"spent_capital_amount_in_cents,omitempty"`
	DonationsAmountInCents                int `json:"donations_amount_in_cents,omitempty"`
	DonationsAmountThisCycleInCents       int `json:"donations_amount_this_cycle_in_cents,omitempty"`
	DonationsCount                        int `json:"donations_count,omitempty"`
	DonationsCountThisCycle               int `json:"donations_count_this_cycle,omitempty"`
	DonationsPledgedAmountInCents         int `json:"donations_pledged_amount_in_cents,omitempty"`
	DonationsRaisedAmountInCents          int `json:"donations_raised_amount_in_cents,omitempty"`
	DonationsRaisedAmountThisCycleInCents int `json:"donations_raised_amount_this_cycle_in_cents,omitempty"`
	DonationsRaisedCount                  int `json:"donations_raised_count,omitempty"`
	DonationsRaisedCountThisCycle         int `json:"donations_raised_count_this_cycle,omitempty"`
	DonationsToRaiseAmountInCents         int `json:"donations_to_raise_amount_in_cents,omitempty"`

	// Invoice totals, in cents.
	ClosedInvoicesAmountInCents          *int `json:"closed_invoices_amount_in_cents,omitempty"`
	ClosedInvoicesCount                  *int `json:"closed_invoices_count,omitempty"`
	InvoicePaymentsAmountInCents         *int `json:"invoice_payments_amount_in_cents,omitempty"`
	InvoicePaymentsReferredAmountInCents *int `json:"invoice_payments_referred_amount_in_cents,omitempty"`
	InvoicesAmountInCents                *int `json:"invoices_amount_in_cents,omitempty"`
	InvoicesCount                        *int `json:"invoices_count,omitempty"`
	OutstandingInvoicesAmountInCents     *int `json:"outstanding_invoices_amount_in_cents,omitempty"`
	OutstandingInvoicesCount             *int `json:"outstanding_invoices_count,omitempty"`
	OverdueInvoicesCount                 *int `json:"overdue_invoices_count,omitempty"`

	ChildrenCount       int `json:"children_count,omitempty"`
	RecruitsCount       int `json:"recruits_count,omitempty"`
	RuleViolationsCount int `json:"rule_violations_count,omitempty"`

	// Flags.
	IsDeceased              bool `json:"is_deceased,omitempty"`
	IsDonor                 bool `json:"is_donor,omitempty"`
	IsFundraiser            bool `json:"is_fundraiser,omitempty"`
	IsIgnoreDonationLimits  bool `json:"is_ignore_donation_limits,omitempty"`
	IsLeaderboardable       bool `json:"is_leaderboardable,omitempty"`
	IsMobileBad             bool `json:"is_mobile_bad,omitempty"`
	IsPossibleDuplicate     bool `json:"is_possible_duplicate,omitempty"`
	IsProfilePrivate        bool `json:"is_profile_private,omitempty"`
	IsProfileSearchable     bool `json:"is_profile_searchable,omitempty"`
	IsProspect              bool `json:"is_prospect,omitempty"`
	IsSupporter             bool `json:"is_supporter,omitempty"`
	IsSurveyQuestionPrivate bool `json:"is_survey_question_private,omitempty"`

	// Milestones.
	FirstDonatedAt      Time `json:"first_donated_at,omitzero"`
	FirstFundraisedAt   Time `json:"first_fundraised_at,omitzero"`
	FirstInvoiceAt      Time `json:"first_invoice_at,omitzero"`
	FirstProspectAt     Time `json:"first_prospect_at,omitzero"`
	FirstRecruitedAt    Time `json:"first_recruited_at,omitzero"`
	FirstSupporterAt    Time `json:"first_supporter_at,omitzero"`
	FirstVolunteerAt    Time `json:"first_volunteer_at,omitzero"`
	LastDonatedAt       Time `json:"last_donated_at,omitzero"`
	LastFundraisedAt    Time `json:"last_fundraised_at,omitzero"`
	LastInvoiceAt       Time `json:"last_invoice_at,omitzero"`
	LastRuleViolationAt Time `json:"last_rule_violation_at,omitzero"`
	RegisteredAt        Time `json:"registered_at,omitzero"`

	LastCallID      ID                 `json:"last_call_id,omitempty"`
	LastContactedAt Time               `json:"last_contacted_at,omitzero"`
	LastContactedBy *AbbreviatedPerson `json:"last_contacted_by,omitempty"`
	Recruiter       *AbbreviatedPerson `json:"recruiter,omitempty"`

	MembershipLevelName string `json:"membership_level_name,omitempty"`
	MembershipStartedAt Time   `json:"membership_started_at,omitzero"`
	MembershipExpiresAt Time   `json:"membership_expires_at,omitzero"`

	// Social profiles.
	FacebookAddress       string `json:"facebook_address,omitempty"`
	FacebookProfileURL    string `json:"facebook_profile_url,omitempty"`
	FacebookUpdatedAt     Time   `json:"facebook_updated_at,omitzero"`
	FacebookUsername      string `json:"facebook_username,omitempty"`
	TwitterDescription    string `json:"twitter_description,omitempty"`
	TwitterFollowersCount *int   `json:"twitter_followers_count,omitempty"`
	TwitterFriendsCount   *int   `json:"twitter_friends_count,omitempty"`
	TwitterLogin          string `json:"twitter_login,omitempty"`
	TwitterUpdatedAt      Time   `json:"twitter_updated_at,omitzero"`
	TwitterWebsite        string `json:"twitter_website,omitempty"`

	// Public profile.
	ProfileContent     string `json:"profile_content,omitempty"`
	ProfileContentHTML string `json:"profile_content_html,omitempty"`
	ProfileHeadline    string `json:"profile_headline,omitempty"`

	// Extra holds keys without a matching field, e.g. custom fields.
	Extra map[string]json.RawMessage `json:"-"`
}

// person has the fields of Person without its JSON methods.
type person Person

// personKeys are the JSON keys declared by the fields of Person.
var personKeys = sync.OnceValue(func() map[string]struct{} {
	keys := make(map[string]struct{})
	collectJSONKeys(reflect.TypeFor[Person](), keys)
	return keys
})

// UnmarshalJSON implements the [json.Unmarshaler] interface.
func (p *Person) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}

	if err := json.Unmarshal(data, (*person)(p)); err != nil {
		return err
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}

	known := personKeys()
	p.Extra = nil
	for key, value := range all {
		if _, ok := known[key]; ok {
			continue
		}
		if p.Extra == nil {
			p.Extra = make(map[string]json.RawMessage)
		}
		p.Extra[key] = value
	}

	return nil
}

// MarshalJSON implements the [json.Marshaler] interface.
// Declared fields take precedence over Extra keys of the same name.
func (p Person) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(person(p))
	if err != nil || len(p.Extra) == 0 {
		return data, err
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}

	for key, value := range p.Extra {
		if _, ok := all[key]; !ok {
			all[key] = value
		}
	}

	return json.Marshal(all)
}

// CustomField decodes the value of an undeclared key, e.g. a custom field, into v.
// It returns [ErrFieldNotFound] if the person has no such key.
func (p *Person) CustomField(name string, v any) error {
	raw, ok := p.Extra[name]
	if !ok {
		return fmt.Errorf("%q: %w", name, ErrFieldNotFound)
	}

	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode field %q: %w", name, err)
	}

	return nil
}

// SetCustomField sets the value of an undeclared key, e.g. a custom field.
func (p *Person) SetCustomField(name string, v any) error {
	if _, ok := personKeys()[name]; ok {
		return fmt.Errorf("%q is a declared field", name)
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode field %q: %w", name, err)
	}

	if p.Extra == nil {
		p.Extra = make(map[string]json.RawMessage)
	}
	p.Extra[name] = raw

	return nil
}

// Precinct represents the voting precinct of a person.
type Precinct struct {
	ID   ID     `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
	Code string `json:"code,omitempty"`
}

// PersonResponse is returned by endpoints showing a single, full person.
type PersonResponse struct {
	Person   Person    `json:"person"`
	Precinct *Precinct `json:"precinct,omitempty"`
}

// AbbreviatedPersonResponse is returned by [Client.MatchPerson].
type AbbreviatedPersonResponse struct {
	Person AbbreviatedPerson `json:"person"`
}

// personRequest is the body of create, update and push requests.
type personRequest struct {
	Person Person `json:"person"`
}
