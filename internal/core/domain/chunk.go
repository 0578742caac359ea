package domain

// VenueDocument is the ingestion input: one venue's indexable text.
type VenueDocument struct {
	VenueID  string
	Name     string
	District string
	Category string
	Text     string
}

// Chunk is one indexed unit produced by the proposition splitter. Short
// documents pass through as a single non-proposition chunk.
type Chunk struct {
	VenueID       string
	VenueName     string
	District      string
	Category      string
	Text          string
	IsProposition bool
	PropIndex     int
}
