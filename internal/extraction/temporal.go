package extraction

import (
	"regexp"
	"strings"
	"time"
)

// TemporalGranularity is the resolution at which an event_time was
// recovered (spec §4.3).
type TemporalGranularity string

const (
	GranularityExact       TemporalGranularity = "exact"
	GranularityDay         TemporalGranularity = "day"
	GranularityWeek        TemporalGranularity = "week"
	GranularityMonth       TemporalGranularity = "month"
	GranularityYear        TemporalGranularity = "year"
	GranularityApproximate TemporalGranularity = "approximate"
	GranularityUnknown     TemporalGranularity = "unknown"
)

// TemporalType classifies the statement's relation to the moment it was
// recorded (spec §4.3).
type TemporalType string

const (
	TemporalPast     TemporalType = "past"
	TemporalPresent  TemporalType = "present"
	TemporalFuture   TemporalType = "future"
	TemporalHabitual TemporalType = "habitual"
	TemporalSpecific TemporalType = "specific"
)

// TemporalInfo is the extraction pipeline's temporal-signal output.
// EffectiveTime is EventTime if present, else the storage time supplied
// by the caller (spec §4.3: `effective_time = event_time ?? storage_time`).
type TemporalInfo struct {
	EventTime     *time.Time
	EffectiveTime time.Time
	Granularity   TemporalGranularity
	IsOngoing     bool
	Type          TemporalType
	Markers       []string
}

var relativeDayMarkers = map[string]int{
	"today":     0,
	"yesterday": -1,
	"tomorrow":  1,
}

var ongoingMarkers = []string{"currently", "right now", "these days", "still", "these past few weeks", "lately"}
var habitualMarkerWords = []string{"usually", "always", "often", "every day", "every week", "regularly", "typically"}
var futureMarkerWords = []string{"will", "going to", "plan to", "next week", "next month", "next year", "tomorrow", "soon"}
var pastMarkerWords = []string{"used to", "ago", "yesterday", "last week", "last month", "last year", "previously", "before"}

var lastNPattern = regexp.MustCompile(`(?i)\blast\s+(week|month|year)\b`)
var nextNPattern = regexp.MustCompile(`(?i)\bnext\s+(week|month|year)\b`)
var nDaysAgoPattern = regexp.MustCompile(`(?i)\b(\d+)\s+days?\s+ago\b`)
var explicitDatePattern = regexp.MustCompile(`(?i)\b(January|February|March|April|May|June|July|August|September|October|November|December)\s+(\d{1,2})(?:st|nd|rd|th)?(?:,?\s*(\d{4}))?\b`)

var monthNames = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June, "july": time.July,
	"august": time.August, "september": time.September, "october": time.October,
	"november": time.November, "december": time.December,
}

// extractTemporal derives event_time/granularity/is_ongoing/type/markers
// relative to storageTime, the moment the memory was recorded (spec
// §4.3). storageTime is passed in rather than read from time.Now so
// extraction stays deterministic and testable.
func extractTemporal(text string, storageTime time.Time) TemporalInfo {
	lower := strings.ToLower(text)
	info := TemporalInfo{Granularity: GranularityUnknown, EffectiveTime: storageTime}

	for _, marker := range []string{"today", "yesterday", "tomorrow"} {
		offsetDays := relativeDayMarkers[marker]
		if strings.Contains(lower, marker) {
			t := storageTime.AddDate(0, 0, offsetDays).Truncate(24 * time.Hour)
			info.EventTime = &t
			info.Granularity = GranularityDay
			info.Markers = append(info.Markers, marker)
		}
	}

	if m := lastNPattern.FindStringSubmatch(lower); m != nil {
		t := shiftByUnit(storageTime, m[1], -1)
		info.EventTime = &t
		info.Granularity = unitGranularity(m[1])
		info.Markers = append(info.Markers, "last "+m[1])
	}
	if m := nextNPattern.FindStringSubmatch(lower); m != nil {
		t := shiftByUnit(storageTime, m[1], 1)
		info.EventTime = &t
		info.Granularity = unitGranularity(m[1])
		info.Markers = append(info.Markers, "next "+m[1])
	}
	if m := nDaysAgoPattern.FindStringSubmatch(lower); m != nil {
		n := atoiSafe(m[1])
		t := storageTime.AddDate(0, 0, -n).Truncate(24 * time.Hour)
		info.EventTime = &t
		info.Granularity = GranularityDay
		info.Markers = append(info.Markers, m[0])
	}
	if m := explicitDatePattern.FindStringSubmatch(text); m != nil {
		month := monthNames[strings.ToLower(m[1])]
		day := atoiSafe(m[2])
		year := storageTime.Year()
		granularity := GranularityApproximate
		if m[3] != "" {
			year = atoiSafe(m[3])
			granularity = GranularityExact
		}
		t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
		info.EventTime = &t
		info.Granularity = granularity
		info.Markers = append(info.Markers, m[0])
	}

	for _, marker := range ongoingMarkers {
		if strings.Contains(lower, marker) {
			info.IsOngoing = true
			info.Markers = append(info.Markers, marker)
		}
	}

	if info.EventTime != nil {
		info.EffectiveTime = *info.EventTime
	}
	info.Type = classifyTemporalType(lower, info)
	return info
}

func classifyTemporalType(lower string, info TemporalInfo) TemporalType {
	for _, w := range habitualMarkerWords {
		if strings.Contains(lower, w) {
			return TemporalHabitual
		}
	}
	if info.IsOngoing {
		return TemporalPresent
	}
	for _, w := range futureMarkerWords {
		if strings.Contains(lower, w) {
			return TemporalFuture
		}
	}
	for _, w := range pastMarkerWords {
		if strings.Contains(lower, w) {
			return TemporalPast
		}
	}
	if info.Granularity == GranularityExact || info.Granularity == GranularityApproximate {
		return TemporalSpecific
	}
	if info.EventTime != nil {
		return TemporalPast
	}
	return TemporalPresent
}

func shiftByUnit(now time.Time, unit string, sign int) time.Time {
	switch unit {
	case "week":
		return now.AddDate(0, 0, sign*7)
	case "month":
		return now.AddDate(0, sign, 0)
	case "year":
		return now.AddDate(sign, 0, 0)
	default:
		return now
	}
}

func unitGranularity(unit string) TemporalGranularity {
	switch unit {
	case "week":
		return GranularityWeek
	case "month":
		return GranularityMonth
	case "year":
		return GranularityYear
	default:
		return GranularityDay
	}
}

func atoiSafe(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return n
		}
		n = n*10 + int(r-'0')
	}
	return n
}
