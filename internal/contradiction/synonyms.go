package contradiction

// synonymGroups is the closed table of predicate synonym sets used to
// decide whether two predicates are "related" (spec §4.4 step 2): a new
// predicate matches an existing one if they are identical or members of
// the same group here.
var synonymGroups = [][]string{
	{"lives_in", "resides_in", "location"},
	{"works_at", "employer", "employed_at"},
	{"job_title", "profession", "title", "role"},
	{"likes", "favorite_food", "favorite_music", "favorite_color", "favorite_movie", "favorite_book", "favorite_sport"},
	{"dislikes", "hates", "avoids"},
	{"birthday", "date_of_birth", "born_on"},
	{"age"},
	{"mom_name", "mother_name"},
	{"dad_name", "father_name"},
	{"wife_name", "husband_name", "partner_name", "spouse_name"},
}

var predicateGroup = buildPredicateGroupIndex()

func buildPredicateGroupIndex() map[string]int {
	idx := make(map[string]int)
	for i, group := range synonymGroups {
		for _, p := range group {
			idx[p] = i
		}
	}
	return idx
}

// related reports whether two predicates are identical or belong to the
// same synonym group (spec §4.4 step 2).
func related(a, b string) bool {
	if a == b {
		return true
	}
	ga, okA := predicateGroup[a]
	gb, okB := predicateGroup[b]
	return okA && okB && ga == gb
}
