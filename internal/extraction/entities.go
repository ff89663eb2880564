package extraction

import (
	"regexp"
	"strings"

	"github.com/coregx/ahocorasick"
	"github.com/orsinium-labs/stopwords"

	"github.com/mycelicmemory/core/internal/storage"
)

var en = stopwords.MustGet("en")

// closedCities and closedCompanies are small gazetteers scanned with a
// single Aho-Corasick automaton each (grounded on the implicit-matcher
// dictionary's one-automaton-per-list approach), alongside the "in
// <Capitalized>" / "(at|for|with) <Capitalized>" patterns that carry most
// of the recall for places and organizations not in either list.
var closedCities = []string{
	"new york", "san francisco", "los angeles", "chicago", "boston", "seattle",
	"austin", "denver", "miami", "atlanta", "portland", "london", "paris",
	"berlin", "tokyo", "toronto", "vancouver", "sydney",
}

var closedCompanies = []string{
	"google", "microsoft", "amazon", "apple", "meta", "netflix", "anthropic",
	"openai", "tesla", "ibm", "oracle", "salesforce", "stripe",
}

var cityAutomaton = mustBuildAutomaton(closedCities)
var companyAutomaton = mustBuildAutomaton(closedCompanies)

func mustBuildAutomaton(words []string) *ahocorasick.Automaton {
	a, err := ahocorasick.NewBuilder().
		AddStrings(words).
		SetMatchKind(ahocorasick.LeftmostLongest).
		SetPrefilter(true).
		Build()
	if err != nil {
		panic(err)
	}
	return a
}

// gazetteerMatches returns the canonical (title-cased) forms of every
// word from the list that appears in text.
func gazetteerMatches(automaton *ahocorasick.Automaton, words []string, text string) []string {
	lower := strings.ToLower(text)
	var out []string
	for _, m := range automaton.FindAllOverlapping([]byte(lower)) {
		out = append(out, titleCase(words[m.PatternID]))
	}
	return out
}

var personStopList = map[string]bool{
	"I": true, "The": true, "A": true, "My": true, "Me": true,
}

var capitalizedRun = regexp.MustCompile(`\b([A-Z][a-z]+(?:\s+[A-Z][a-z]+){0,2})\b`)
var inPlacePattern = regexp.MustCompile(`\bin\s+([A-Z][a-zA-Z]+(?:\s+[A-Z][a-zA-Z]+)?)\b`)
var atOrgPattern = regexp.MustCompile(`\b(?:at|for|with)\s+([A-Z][a-zA-Z]+(?:\s+[A-Z][a-zA-Z]+)?)\b`)
var myNamePattern = regexp.MustCompile(`\bmy\s+\w+\s+([A-Z][a-z]+)\b`)
var goalPhrasePattern = regexp.MustCompile(`(?i)\b(?:want to|goal is to|trying to|working on)\s+([A-Za-z][A-Za-z0-9 .,'-]{1,80})`)
var monthDayPattern = regexp.MustCompile(`(?i)\b(January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2}(?:st|nd|rd|th)?\b`)

// EntityCandidate is an extracted mention before storage.Entity creation.
type EntityCandidate struct {
	Name string
	Type storage.EntityType
}

// extractEntities runs the separate per-type passes described in spec
// §4.3: people, places, organizations, dates, goals.
func extractEntities(text string) []EntityCandidate {
	var out []EntityCandidate
	seen := map[string]bool{}
	add := func(name string, typ storage.EntityType) {
		key := strings.ToLower(name) + "|" + string(typ)
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, EntityCandidate{Name: name, Type: typ})
	}

	for _, m := range myNamePattern.FindAllStringSubmatch(text, -1) {
		add(m[1], storage.EntityPerson)
	}
	for _, m := range capitalizedRun.FindAllStringSubmatch(text, -1) {
		name := m[1]
		if personStopList[name] || en.Contains(strings.ToLower(name)) {
			continue
		}
		if strings.Contains(name, " ") {
			add(name, storage.EntityPerson)
		}
	}

	for _, city := range gazetteerMatches(cityAutomaton, closedCities, text) {
		add(city, storage.EntityPlace)
	}
	for _, m := range inPlacePattern.FindAllStringSubmatch(text, -1) {
		add(m[1], storage.EntityPlace)
	}

	for _, company := range gazetteerMatches(companyAutomaton, closedCompanies, text) {
		add(company, storage.EntityOrganization)
	}
	for _, m := range atOrgPattern.FindAllStringSubmatch(text, -1) {
		add(m[1], storage.EntityOrganization)
	}

	for _, m := range monthDayPattern.FindAllString(text, -1) {
		add(m, storage.EntityDate)
	}

	for _, m := range goalPhrasePattern.FindAllStringSubmatch(text, -1) {
		add(strings.TrimSpace(m[1]), storage.EntityGoal)
	}

	return out
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
