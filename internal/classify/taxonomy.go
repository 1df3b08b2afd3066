package classify

// Taxonomy is the closed list of category names the classifier may assign.
var Taxonomy = []string{
	"Politics",
	"Business",
	"Technology",
	"Science",
	"Health",
	"Sports",
	"Entertainment",
	"World",
}

// categoryKeywords drives the deterministic fallback: a category applies when
// any of its keywords appears anywhere in the lower-cased article text.
var categoryKeywords = map[string][]string{
	"Politics": {
		"election", "senate", "congress", "parliament", "government",
		"minister", "president", "law", "bill", "policy", "vote", "campaign",
	},
	"Business": {
		"market", "stock", "economy", "company", "revenue", "profit",
		"trade", "inflation", "bank", "merger", "investor",
	},
	"Technology": {
		"software", "internet", "smartphone", "computer", "artificial intelligence",
		" ai ", "cyber", "startup", "chip", "robot", "app ",
	},
	"Science": {
		"research", "study", "scientist", "space", "nasa", "physics",
		"climate", "discovery", "experiment", "telescope",
	},
	"Health": {
		"health", "hospital", "doctor", "disease", "virus", "vaccine",
		"medicine", "cancer", "mental", "outbreak",
	},
	"Sports": {
		"match", "tournament", "championship", "league", "olympic",
		"player", "coach", "goal", "season", "team",
	},
	"Entertainment": {
		"film", "movie", "music", "celebrity", "series", "festival",
		"album", "actor", "premiere", "box office",
	},
	"World": {
		"war", "united nations", "border", "refugee", "diplomat",
		"treaty", "summit", "sanction", "conflict",
	},
}

var canonicalNames = buildCanonicalNames()

func buildCanonicalNames() map[string]string {
	names := make(map[string]string, len(Taxonomy))
	for _, name := range Taxonomy {
		names[lower(name)] = name
	}
	return names
}
