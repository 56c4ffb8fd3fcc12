package analytics

import (
	"UTM-Backend/internal/domain"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sp(s string) *string { return &s }

type ev struct {
	at time.Time

	ip, country, city   string
	device, browser, os string
	referer             string
}

func build(list []ev) []*domain.TrackingEvent {
	opt := func(s string) *string {
		if s == "" {
			return nil
		}
		return sp(s)
	}
	out := make([]*domain.TrackingEvent, 0, len(list))
	for i, e := range list {
		out = append(out, &domain.TrackingEvent{
			ID:         int64(i + 1),
			IPAddress:  opt(e.ip),
			Country:    opt(e.country),
			City:       opt(e.city),
			DeviceType: opt(e.device),
			Browser:    opt(e.browser),
			OS:         opt(e.os),
			Referer:    opt(e.referer),
			ClickedAt:  e.at,
		})
	}
	return out
}

var testLink = &domain.Link{ID: 9, Code: "Abc12345", DestinationURL: "https://example.com", UTMSource: "newsletter", UTMMedium: "email", IsActive: false}

func TestAggregate_Empty(t *testing.T) {
	r := NewAggregator(time.UTC).Aggregate(testLink, nil)

	assert.Equal(t, Overview{}, r.Overview)
	assert.Empty(t, r.TimeSeries)
	assert.Empty(t, r.CountryDistribution)
	assert.Empty(t, r.RefererDistribution)

	require.Len(t, r.HourlyDistribution, 24)
	for h, hc := range r.HourlyDistribution {
		assert.Equal(t, HourCount{Hour: h, Count: 0}, hc)
	}
	require.Len(t, r.WeeklyDistribution, 7)
	assert.Equal(t, "Sunday", r.WeeklyDistribution[0].Day)
	assert.Equal(t, "Saturday", r.WeeklyDistribution[6].Day)

	assert.Equal(t, "Abc12345", r.Link.Code)
	assert.False(t, r.Link.IsActive)

	// пустые распределения кодируются как [], а не null
	b, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"countryDistribution":[]`)
	assert.Contains(t, string(b), `"timeSeries":[]`)
}

func TestAggregate_SingleEvent(t *testing.T) {
	// 2024-06-02 is a Sunday
	at := time.Date(2024, 6, 2, 23, 15, 0, 0, time.UTC)
	r := NewAggregator(time.UTC).Aggregate(testLink, build([]ev{{at: at}}))

	assert.Equal(t, Overview{TotalClicks: 1}, r.Overview)
	assert.Equal(t, []DateClicks{{Date: "2024-06-02", Clicks: 1}}, r.TimeSeries)
	assert.Equal(t, []CountryCount{{Country: "Unknown", Count: 1}}, r.CountryDistribution)
	assert.Equal(t, []CityCount{{City: "Unknown", Count: 1}}, r.CityDistribution)
	assert.Equal(t, []DeviceCount{{Device: "Unknown", Count: 1}}, r.DeviceDistribution)
	assert.Equal(t, []RefererCount{{Referer: "Direct", Count: 1}}, r.RefererDistribution)
	assert.Equal(t, 1, r.HourlyDistribution[23].Count)
	assert.Equal(t, 1, r.WeeklyDistribution[0].Count)
}

func TestAggregate_Distributions(t *testing.T) {
	base := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC) // Monday
	events := build([]ev{
		{at: base, ip: "203.0.113.1", country: "DE", city: "Berlin", device: "desktop", browser: "Chrome", os: "macOS", referer: "https://google.com"},
		{at: base.Add(time.Hour), ip: "203.0.113.1", country: "US", city: "Austin", device: "mobile", browser: "Safari", os: "iOS"},
		{at: base.Add(2 * time.Hour), ip: "203.0.113.2", country: "DE", city: "Berlin", device: "mobile", browser: "Chrome", os: "Android", referer: "https://google.com"},
		{at: base.Add(26 * time.Hour), ip: "203.0.113.3", country: "US", device: "desktop", browser: "Firefox", os: "Linux"},
		{at: base.Add(27 * time.Hour), city: "Paris"},
		{at: base.Add(-48 * time.Hour), ip: "203.0.113.4", country: "FR", city: "Paris", device: "tablet", browser: "Safari", os: "iOS", referer: "https://t.co"},
	})

	r := NewAggregator(time.UTC).Aggregate(testLink, events)

	assert.Equal(t, Overview{TotalClicks: 6, UniqueIPs: 4, UniqueCountries: 3}, r.Overview)
	assert.Equal(t, []DateClicks{
		{Date: "2024-06-01", Clicks: 1},
		{Date: "2024-06-03", Clicks: 3},
		{Date: "2024-06-04", Clicks: 2},
	}, r.TimeSeries)

	// равные счетчики сохраняют порядок первого появления
	assert.Equal(t, []CountryCount{
		{Country: "DE", Count: 2},
		{Country: "US", Count: 2},
		{Country: "Unknown", Count: 1},
		{Country: "FR", Count: 1},
	}, r.CountryDistribution)

	assert.Equal(t, []CityCount{
		{City: "Berlin, DE", Count: 2},
		{City: "Austin, US", Count: 1},
		{City: "Unknown, US", Count: 1},
		{City: "Paris", Count: 1},
		{City: "Paris, FR", Count: 1},
	}, r.CityDistribution)

	assert.Equal(t, []DeviceCount{
		{Device: "desktop", Count: 2},
		{Device: "mobile", Count: 2},
		{Device: "Unknown", Count: 1},
		{Device: "tablet", Count: 1},
	}, r.DeviceDistribution)

	assert.Equal(t, "Chrome", r.BrowserDistribution[0].Browser)
	assert.Equal(t, "Safari", r.BrowserDistribution[1].Browser)
	assert.Equal(t, OSCount{OS: "iOS", Count: 2}, r.OSDistribution[0])

	assert.Equal(t, []RefererCount{
		{Referer: "Direct", Count: 3},
		{Referer: "https://google.com", Count: 2},
		{Referer: "https://t.co", Count: 1},
	}, r.RefererDistribution)

	assert.Equal(t, 2, r.HourlyDistribution[9].Count)
	assert.Equal(t, 2, r.HourlyDistribution[11].Count)
	assert.Equal(t, 3, r.WeeklyDistribution[time.Monday].Count)
	assert.Equal(t, 2, r.WeeklyDistribution[time.Tuesday].Count)
	assert.Equal(t, 1, r.WeeklyDistribution[time.Saturday].Count)
}

func TestAggregate_TopTen(t *testing.T) {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	var list []ev
	for i := 0; i < 15; i++ {
		// город i встречается i+1 раз
		for j := 0; j <= i; j++ {
			list = append(list, ev{
				at:      base,
				country: "DE",
				city:    fmt.Sprintf("city-%02d", i),
				referer: fmt.Sprintf("https://ref-%02d.example", i),
				browser: fmt.Sprintf("b-%02d", i),
			})
		}
	}

	r := NewAggregator(time.UTC).Aggregate(testLink, build(list))

	require.Len(t, r.CityDistribution, 10)
	require.Len(t, r.RefererDistribution, 10)
	assert.Len(t, r.BrowserDistribution, 15)
	assert.Equal(t, CityCount{City: "city-14, DE", Count: 15}, r.CityDistribution[0])
	assert.Equal(t, CityCount{City: "city-05, DE", Count: 6}, r.CityDistribution[9])
	assert.Equal(t, "https://ref-05.example", r.RefererDistribution[9].Referer)
}

func TestAggregate_EmptyStringsAsMissing(t *testing.T) {
	events := []*domain.TrackingEvent{{
		IPAddress: sp(""),
		Country:   sp(""),
		City:      sp(""),
		Referer:   sp(""),
		ClickedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}}

	r := NewAggregator(time.UTC).Aggregate(testLink, events)

	assert.Equal(t, Overview{TotalClicks: 1}, r.Overview)
	assert.Equal(t, "Unknown", r.CountryDistribution[0].Country)
	assert.Equal(t, "Unknown", r.CityDistribution[0].City)
	assert.Equal(t, "Direct", r.RefererDistribution[0].Referer)
}

func TestAggregate_Timezone(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	// суббота 22:30 UTC -> воскресенье 01:30 по UTC+3
	at := time.Date(2024, 6, 1, 22, 30, 0, 0, time.UTC)

	r := NewAggregator(loc).Aggregate(testLink, build([]ev{{at: at}}))

	assert.Equal(t, 1, r.HourlyDistribution[1].Count)
	assert.Equal(t, 0, r.HourlyDistribution[22].Count)
	assert.Equal(t, 1, r.WeeklyDistribution[time.Sunday].Count)
	// дата считается по UTC
	assert.Equal(t, []DateClicks{{Date: "2024-06-01", Clicks: 1}}, r.TimeSeries)
}

func TestNewAggregator_NilLocation(t *testing.T) {
	assert.Equal(t, time.Local, NewAggregator(nil).loc)
}
