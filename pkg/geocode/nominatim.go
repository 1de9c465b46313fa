package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rotisserie/eris"
)

// nominatimPlace is one candidate in a Nominatim search response. The
// service returns coordinates as numeric strings.
type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// query issues a single-result, country-restricted search for the city and
// returns the first candidate's coordinates. Any transport, status or
// parse problem is an error; the caller decides the fallback.
func (c *Client) query(ctx context.Context, city string) (lat, lng float64, err error) {
	if err := c.pacer.Wait(ctx); err != nil {
		return 0, 0, eris.Wrap(err, "geocode: pacing")
	}

	params := url.Values{
		"q":            {fmt.Sprintf("%s, %s, %s", city, c.region.State, c.country)},
		"format":       {"json"},
		"limit":        {"1"},
		"countrycodes": {c.countryCode},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return 0, 0, eris.Wrap(err, "geocode: build request")
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, 0, eris.Wrapf(err, "geocode: query %s", city)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return 0, 0, eris.Errorf("geocode: service returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, 0, eris.Wrap(err, "geocode: read body")
	}

	var places []nominatimPlace
	if err := json.Unmarshal(body, &places); err != nil {
		return 0, 0, eris.Wrap(err, "geocode: parse response")
	}
	if len(places) == 0 {
		return 0, 0, eris.Errorf("geocode: no candidates for %q", city)
	}

	first := places[0]
	lat, err = strconv.ParseFloat(first.Lat, 64)
	if err != nil {
		return 0, 0, eris.Wrapf(err, "geocode: parse lat %q", first.Lat)
	}
	lng, err = strconv.ParseFloat(first.Lon, 64)
	if err != nil {
		return 0, 0, eris.Wrapf(err, "geocode: parse lon %q", first.Lon)
	}
	return lat, lng, nil
}
