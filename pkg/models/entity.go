package models

// EntityMatch kind discriminator values.
const (
	EntityMatchFound     = "found"
	EntityMatchAmbiguous = "ambiguous"
	EntityMatchUnknown   = "unknown"
	EntityMatchDelisted  = "delisted"
)

// Entity is a resolved financial instrument.
type Entity struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Market string `json:"market,omitempty"`
}

// EntityMatch is the verdict of the entity resolver for one mention.
type EntityMatch struct {
	Kind       string  `json:"kind"`
	Matched    bool    `json:"matched"`
	Entity     *Entity `json:"entity,omitempty"`
	Confidence float64 `json:"confidence"`
	// Suggestions holds up to three "name(code)" candidates for ambiguous
	// mentions.
	Suggestions []string `json:"suggestions,omitempty"`
	Message     string   `json:"message,omitempty"`
}
