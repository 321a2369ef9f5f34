package promptengine

import (
	"context"
	"time"
)

// Location is the configured place wallpapers are generated for.
type Location struct {
	ID        int64
	Name      string
	Country   string
	Timezone  string
	Latitude  float64
	Longitude float64
}

// LocationSource supplies the currently configured location. A nil
// location with a nil error means none is configured.
type LocationSource interface {
	Location(ctx context.Context) (*Location, error)
}

// dayTimeBucket maps a local-hour range to its prompt wording. Buckets are
// half-open: hour in [Start, End).
type dayTimeBucket struct {
	Name  string
	Start int
	End   int
}

var dayTimeBuckets = []dayTimeBucket{
	{"Midnight", 0, 6},
	{"Sunrise", 6, 8},
	{"Early Morning", 8, 11},
	{"Midday", 11, 14},
	{"Afternoon", 14, 16},
	{"Sunset", 16, 18},
	{"Evening", 18, 20},
	{"Night", 20, 24},
}

// dayTimeFor returns the bucket name for an hour in [0, 24).
func dayTimeFor(hour int) string {
	for _, bucket := range dayTimeBuckets {
		if hour >= bucket.Start && hour < bucket.End {
			return bucket.Name
		}
	}
	return "Night"
}

// RegisterStandardVariables wires the built-in handlers: LOCATION_NAME,
// COUNTRY, DAY_TIME, and WEATHER. The clock is injectable for tests; nil
// means time.Now.
func RegisterStandardVariables(engine *Engine, locations LocationSource, weather *WeatherClient, clock func() time.Time) {
	if clock == nil {
		clock = time.Now
	}

	requireLocation := func(ctx context.Context, variable string) (*Location, error) {
		location, err := locations.Location(ctx)
		if err != nil {
			return nil, err
		}
		if location == nil {
			return nil, &MissingValueError{Name: variable}
		}
		return location, nil
	}

	engine.AddVariable("LOCATION_NAME", func(ctx context.Context) (string, error) {
		location, err := requireLocation(ctx, "location_name")
		if err != nil {
			return "", err
		}
		return location.Name, nil
	})

	engine.AddVariable("COUNTRY", func(ctx context.Context) (string, error) {
		location, err := requireLocation(ctx, "country")
		if err != nil {
			return "", err
		}
		return location.Country, nil
	})

	engine.AddVariable("DAY_TIME", func(ctx context.Context) (string, error) {
		location, err := requireLocation(ctx, "day_time")
		if err != nil {
			return "", err
		}
		zone, err := time.LoadLocation(location.Timezone)
		if err != nil {
			zone = time.Local
		}
		return dayTimeFor(clock().In(zone).Hour()), nil
	})

	engine.AddVariable("WEATHER", func(ctx context.Context) (string, error) {
		location, err := requireLocation(ctx, "weather")
		if err != nil {
			return "", err
		}
		return weather.Current(ctx, location)
	})
}
