package domain

// IntentKind is the classified purpose of a query.
type IntentKind string

const (
	IntentFoodEntity IntentKind = "FOOD_ENTITY"
	IntentActivity   IntentKind = "ACTIVITY"
	IntentPlaceVibe  IntentKind = "PLACE_VIBE"
	IntentGeneral    IntentKind = "GENERAL"
)

// HardFilter names a keyword that must appear, word-bounded and
// case-insensitive, in at least one of a venue's textual fields
// (name, address, description, category, any tag list). Always a
// disjunction across fields, never a conjunction.
type HardFilter struct {
	Keyword string
}

// QueryIntent is the transient classification result for one query.
// Classification is total: Kind is never empty, GENERAL is the default.
type QueryIntent struct {
	Kind       IntentKind
	Keyword    string
	Tags       []string
	HardFilter *HardFilter
	// IsDating marks romance-oriented vibe queries; retrieval excludes
	// lodging and street-food venues for these.
	IsDating bool
	// LowConfidence marks long compound queries (itineraries and the like)
	// whose hard filter likely references more than one venue.
	LowConfidence bool
}

// RetrievalFilter is composed once per query from QueryIntent plus district
// and near-me detection, then passed by value to every strategy.
type RetrievalFilter struct {
	District string
	NearMe   *Coordinates
	Tags     []string
	Keyword  string
	IsDating bool
}
