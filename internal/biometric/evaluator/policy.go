package evaluator

// AIPolicy decides what an AI-generation suspicion does to a submission.
type AIPolicy string

const (
	AIPolicyReview AIPolicy = "review"
	AIPolicyFail   AIPolicy = "fail"
)

// Policy holds every threshold the evaluator applies. All of it is configuration.
type Policy struct {
	LivenessThreshold  float64
	MinAge             float64
	MatchLow           float64
	MatchHigh          float64
	AIBound            float64
	AIPolicy           AIPolicy
	MaxAgeSpread       float64
	PairwiseFloor      float64
	MinConfidence      float64
	EvasionThreshold   float64
	DuplicateThreshold float64
}

func DefaultPolicy() Policy {
	return Policy{
		LivenessThreshold:  0.85,
		MinAge:             18.0,
		MatchLow:           0.75,
		MatchHigh:          0.90,
		AIBound:            0.5,
		AIPolicy:           AIPolicyReview,
		MaxAgeSpread:       15,
		PairwiseFloor:      0.5,
		MinConfidence:      0.6,
		EvasionThreshold:   0.92,
		DuplicateThreshold: 0.995,
	}
}

// ParseAIPolicy accepts "review" or "fail"; anything else means review.
func ParseAIPolicy(s string) AIPolicy {
	if AIPolicy(s) == AIPolicyFail {
		return AIPolicyFail
	}
	return AIPolicyReview
}
