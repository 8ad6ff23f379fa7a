package maps

import "context"

// Geocoder turns coordinates into a human readable address.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) (*GeocodeResponse, error)
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type GeocodeResult struct {
	PlaceID     string   `json:"place_id"`
	Address     string   `json:"address"`
	Coordinates Location `json:"coordinates"`
	Types       []string `json:"types"`
}

type GeocodeResponse struct {
	Results []GeocodeResult `json:"results"`
}

// FormattedAddress returns the first result's address or "".
func (r *GeocodeResponse) FormattedAddress() string {
	if r == nil || len(r.Results) == 0 {
		return ""
	}
	return r.Results[0].Address
}
