// Package analytics aggregates tracking events into per-link reports.
package analytics

import (
	"UTM-Backend/internal/domain"
	"sort"
	"time"
)

const (
	topCities   = 10
	topReferers = 10

	unknownLabel = "Unknown"
	directLabel  = "Direct"
)

var weekdays = [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// LinkSummary is the link part of a report.
type LinkSummary struct {
	ID             int64     `json:"id"`
	Code           string    `json:"code"`
	DestinationURL string    `json:"destinationUrl"`
	UTMSource      string    `json:"utmSource"`
	UTMMedium      string    `json:"utmMedium"`
	UTMCampaign    *string   `json:"utmCampaign"`
	UTMContent     *string   `json:"utmContent"`
	IsActive       bool      `json:"isActive"`
	CreatedAt      time.Time `json:"createdAt"`
}

type Overview struct {
	TotalClicks     int `json:"totalClicks"`
	UniqueIPs       int `json:"uniqueIPs"`
	UniqueCountries int `json:"uniqueCountries"`
}

type DateClicks struct {
	Date   string `json:"date"`
	Clicks int    `json:"clicks"`
}

type CountryCount struct {
	Country string `json:"country"`
	Count   int    `json:"count"`
}

type CityCount struct {
	City  string `json:"city"`
	Count int    `json:"count"`
}

type DeviceCount struct {
	Device string `json:"device"`
	Count  int    `json:"count"`
}

type BrowserCount struct {
	Browser string `json:"browser"`
	Count   int    `json:"count"`
}

type OSCount struct {
	OS    string `json:"os"`
	Count int    `json:"count"`
}

type RefererCount struct {
	Referer string `json:"referer"`
	Count   int    `json:"count"`
}

type HourCount struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

type DayCount struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

// Report holds all nine aggregates for one link.
type Report struct {
	Link                LinkSummary    `json:"link"`
	Overview            Overview       `json:"overview"`
	TimeSeries          []DateClicks   `json:"timeSeries"`
	CountryDistribution []CountryCount `json:"countryDistribution"`
	CityDistribution    []CityCount    `json:"cityDistribution"`
	DeviceDistribution  []DeviceCount  `json:"deviceDistribution"`
	BrowserDistribution []BrowserCount `json:"browserDistribution"`
	OSDistribution      []OSCount      `json:"osDistribution"`
	RefererDistribution []RefererCount `json:"refererDistribution"`
	HourlyDistribution  []HourCount    `json:"hourlyDistribution"`
	WeeklyDistribution  []DayCount     `json:"weeklyDistribution"`
}

// Aggregator computes reports. Hour and weekday buckets use loc; dates use UTC.
type Aggregator struct {
	loc *time.Location
}

// NewAggregator returns an aggregator for the given location (nil means time.Local).
func NewAggregator(loc *time.Location) *Aggregator {
	if loc == nil {
		loc = time.Local
	}
	return &Aggregator{loc: loc}
}

// counter counts keys and remembers first appearance for tie-breaks.
type counter struct {
	index  map[string]int
	keys   []string
	counts []int
}

func newCounter() *counter {
	return &counter{index: make(map[string]int)}
}

func (c *counter) add(key string) {
	i, ok := c.index[key]
	if !ok {
		i = len(c.keys)
		c.index[key] = i
		c.keys = append(c.keys, key)
		c.counts = append(c.counts, 0)
	}
	c.counts[i]++
}

type keyCount struct {
	key   string
	count int
}

// sorted returns entries by descending count, ties in first-seen order, cut to limit (0 = all).
func (c *counter) sorted(limit int) []keyCount {
	out := make([]keyCount, len(c.keys))
	for i, k := range c.keys {
		out[i] = keyCount{key: k, count: c.counts[i]}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].count > out[j].count })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func orLabel(s *string, label string) string {
	if s == nil || *s == "" {
		return label
	}
	return *s
}

// Aggregate builds the report from events ordered by clicked_at.
func (a *Aggregator) Aggregate(link *domain.Link, events []*domain.TrackingEvent) *Report {
	var (
		ips       = make(map[string]struct{})
		countries = make(map[string]struct{})
		dates     = newCounter()
		country   = newCounter()
		city      = newCounter()
		device    = newCounter()
		browser   = newCounter()
		osys      = newCounter()
		referer   = newCounter()
		hourly    [24]int
		weekly    [7]int
	)

	for _, e := range events {
		if e.IPAddress != nil && *e.IPAddress != "" {
			ips[*e.IPAddress] = struct{}{}
		}
		if e.Country != nil && *e.Country != "" {
			countries[*e.Country] = struct{}{}
		}

		dates.add(e.ClickedAt.UTC().Format(time.DateOnly))
		country.add(orLabel(e.Country, unknownLabel))

		cityKey := orLabel(e.City, unknownLabel)
		if e.Country != nil && *e.Country != "" {
			cityKey += ", " + *e.Country
		}
		city.add(cityKey)

		device.add(orLabel(e.DeviceType, unknownLabel))
		browser.add(orLabel(e.Browser, unknownLabel))
		osys.add(orLabel(e.OS, unknownLabel))
		referer.add(orLabel(e.Referer, directLabel))

		local := e.ClickedAt.In(a.loc)
		hourly[local.Hour()]++
		weekly[local.Weekday()]++
	}

	r := &Report{
		Link: summarize(link),
		Overview: Overview{
			TotalClicks:     len(events),
			UniqueIPs:       len(ips),
			UniqueCountries: len(countries),
		},
		TimeSeries:          make([]DateClicks, 0, len(dates.keys)),
		CountryDistribution: []CountryCount{},
		CityDistribution:    []CityCount{},
		DeviceDistribution:  []DeviceCount{},
		BrowserDistribution: []BrowserCount{},
		OSDistribution:      []OSCount{},
		RefererDistribution: []RefererCount{},
		HourlyDistribution:  make([]HourCount, 24),
		WeeklyDistribution:  make([]DayCount, 7),
	}

	for i, d := range dates.keys {
		r.TimeSeries = append(r.TimeSeries, DateClicks{Date: d, Clicks: dates.counts[i]})
	}
	// YYYY-MM-DD сортируется лексикографически
	sort.SliceStable(r.TimeSeries, func(i, j int) bool { return r.TimeSeries[i].Date < r.TimeSeries[j].Date })

	for _, kc := range country.sorted(0) {
		r.CountryDistribution = append(r.CountryDistribution, CountryCount{Country: kc.key, Count: kc.count})
	}
	for _, kc := range city.sorted(topCities) {
		r.CityDistribution = append(r.CityDistribution, CityCount{City: kc.key, Count: kc.count})
	}
	for _, kc := range device.sorted(0) {
		r.DeviceDistribution = append(r.DeviceDistribution, DeviceCount{Device: kc.key, Count: kc.count})
	}
	for _, kc := range browser.sorted(0) {
		r.BrowserDistribution = append(r.BrowserDistribution, BrowserCount{Browser: kc.key, Count: kc.count})
	}
	for _, kc := range osys.sorted(0) {
		r.OSDistribution = append(r.OSDistribution, OSCount{OS: kc.key, Count: kc.count})
	}
	for _, kc := range referer.sorted(topReferers) {
		r.RefererDistribution = append(r.RefererDistribution, RefererCount{Referer: kc.key, Count: kc.count})
	}

	for h := range hourly {
		r.HourlyDistribution[h] = HourCount{Hour: h, Count: hourly[h]}
	}
	for d := range weekly {
		r.WeeklyDistribution[d] = DayCount{Day: weekdays[d], Count: weekly[d]}
	}

	return r
}

func summarize(link *domain.Link) LinkSummary {
	if link == nil {
		return LinkSummary{}
	}
	return LinkSummary{
		ID:             link.ID,
		Code:           link.Code,
		DestinationURL: link.DestinationURL,
		UTMSource:      link.UTMSource,
		UTMMedium:      link.UTMMedium,
		UTMCampaign:    link.UTMCampaign,
		UTMContent:     link.UTMContent,
		IsActive:       link.IsActive,
		CreatedAt:      link.CreatedAt,
	}
}
