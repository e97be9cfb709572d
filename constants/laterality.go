package constants

// Laterality records which eye a procedure was performed on.
type Laterality string

const (
	LateralityLeft      Laterality = "Left"
	LateralityRight     Laterality = "Right"
	LateralityBilateral Laterality = "Bilateral"
	LateralityUnknown   Laterality = "Unknown"
)

// lateralityTokens is the exact token vocabulary used by the upstream export.
var lateralityTokens = map[string]Laterality{
	"L":   LateralityLeft,
	"R":   LateralityRight,
	"B/L": LateralityBilateral,
}

// LateralityFromToken matches a token against the laterality vocabulary.
// Exact match only.
func LateralityFromToken(token string) (Laterality, bool) {
	lat, ok := lateralityTokens[token]
	return lat, ok
}
