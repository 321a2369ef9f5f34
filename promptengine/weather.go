package promptengine

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"wallgen/webclient"
)

// DefaultWeatherURL is the open-meteo forecast endpoint.
const DefaultWeatherURL = "https://api.open-meteo.com/v1/forecast"

// weatherCacheTTL is how long a weather description stays fresh. Prompt
// validation fires on every keystroke, so a short cache keeps that from
// hammering the upstream API.
const weatherCacheTTL = 60 * time.Second

// weatherDescriptions maps open-meteo WMO weather codes to prompt wording.
var weatherDescriptions = map[int]string{
	0:  "clear skies",
	1:  "mainly clear skies",
	2:  "partly cloudy skies",
	3:  "overcast skies",
	45: "a blanket of fog",
	48: "depositing rime fog",
	51: "light drizzle",
	53: "moderate drizzle",
	55: "dense drizzle",
	56: "light freezing drizzle",
	57: "dense freezing drizzle",
	61: "slight rain",
	63: "moderate rain",
	65: "heavy rain",
	66: "light freezing rain",
	67: "heavy freezing rain",
	71: "slight snowfall",
	73: "moderate snowfall",
	75: "heavy snowfall",
	77: "a flurry of snow grains",
	80: "slight rain showers",
	81: "moderate rain showers",
	82: "violent rain showers",
	85: "slight snow showers",
	86: "heavy snow showers",
	95: "a slight thunderstorm",
	96: "a thunderstorm with slight hail",
	99: "a thunderstorm with heavy hail",
}

// WeatherClient fetches the current weather description for a location,
// caching it per location for weatherCacheTTL.
type WeatherClient struct {
	http    *webclient.Client
	baseURL string
	now     func() time.Time

	mu         sync.Mutex
	locationID int64
	cached     string
	cachedAt   time.Time
}

// NewWeatherClient creates a WeatherClient. An empty baseURL selects the
// production endpoint; a nil clock means time.Now.
func NewWeatherClient(httpClient *webclient.Client, baseURL string, clock func() time.Time) *WeatherClient {
	if baseURL == "" {
		baseURL = DefaultWeatherURL
	}
	if clock == nil {
		clock = time.Now
	}
	return &WeatherClient{
		http:    httpClient,
		baseURL: baseURL,
		now:     clock,
	}
}

// Current returns the weather description for the location, serving from
// cache when the location is unchanged and the entry is still fresh.
func (w *WeatherClient) Current(ctx context.Context, location *Location) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cached != "" && w.locationID == location.ID && w.now().Sub(w.cachedAt) < weatherCacheTTL {
		return w.cached, nil
	}

	query := url.Values{}
	query.Set("latitude", strconv.FormatFloat(location.Latitude, 'f', -1, 64))
	query.Set("longitude", strconv.FormatFloat(location.Longitude, 'f', -1, 64))
	query.Set("current", "weather_code")

	resp, err := w.http.Do(ctx, &webclient.Request{
		URL:         w.baseURL + "?" + query.Encode(),
		ThrowOnFail: true,
	})
	if err != nil {
		return "", fmt.Errorf("promptengine: weather lookup failed: %w", err)
	}

	var forecast struct {
		Current struct {
			WeatherCode int `json:"weather_code"`
		} `json:"current"`
	}
	if err := json.Unmarshal(resp.Body, &forecast); err != nil {
		return "", fmt.Errorf("promptengine: failed to decode forecast: %w", err)
	}

	description, ok := weatherDescriptions[forecast.Current.WeatherCode]
	if !ok {
		return "", &MissingValueError{Name: "weather"}
	}

	w.locationID = location.ID
	w.cached = description
	w.cachedAt = w.now()
	return description, nil
}
