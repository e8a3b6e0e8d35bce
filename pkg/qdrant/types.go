package qdrant

// Point is a vector with its payload, addressed by a UUID string.
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

// ScoredPoint is a search hit with its payload decoded into plain Go values.
type ScoredPoint struct {
	ID      string
	Score   float32
	Payload map[string]any
}

// Collection summarises collection state, as reported after seeding.
type Collection struct {
	Name       string
	Status     string
	Points     uint64
	VectorSize int
	Distance   string
}
