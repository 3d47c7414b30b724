package nationbuilder

// Address represents an address resource.
type Address struct {
	// Address1 is the first street line.
	Address1 string `json:"address1,omitempty"`
	// Address2 is the second street line.
	Address2 string `json:"address2,omitempty"`
	// Address3 is the third street line.
	Address3 string `json:"address3,omitempty"`
	City     string `json:"city,omitempty"`
	County   string `json:"county,omitempty"`
	State    string `json:"state,omitempty"`
	// CountryCode follows ISO 3166-1 alpha-2.
	CountryCode string `json:"country_code,omitempty"`
	Zip         string `json:"zip,omitempty"`
	Zip4        string `json:"zip4,omitempty"`

	// Lat and Lng are decimal degrees, sent as strings by the API.
	Lat string `json:"lat,omitempty"`
	Lng string `json:"lng,omitempty"`

	Fips                    string `json:"fips,omitempty"`
	StreetNumber            string `json:"street_number,omitempty"`
	StreetPrefix            string `json:"street_prefix,omitempty"`
	StreetName              string `json:"street_name,omitempty"`
	StreetType              string `json:"street_type,omitempty"`
	StreetSuffix            string `json:"street_suffix,omitempty"`
	UnitNumber              string `json:"unit_number,omitempty"`
	DeliveryPoint           string `json:"delivery_point,omitempty"`
	DeliveryPointCheckDigit string `json:"delivery_point_check_digit,omitempty"`
	CarrierRoute            string `json:"carrier_route,omitempty"`
	// Distance in miles from the origin of a nearby search.
	Distance float64 `json:"distance,omitempty"`
}

// Location returns the coordinates in the "lat,lng" format used by nearby searches.
// It returns an empty string if the address is not geocoded.
func (a *Address) Location() string {
	if a == nil || a.Lat == "" || a.Lng == "" {
		return ""
	}

	return a.Lat + "," + a.Lng
}
