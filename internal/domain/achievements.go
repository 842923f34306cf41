package domain

// AchievementDef describes a one-time milestone and the bonus it grants.
type AchievementDef struct {
	Type        AchievementType
	Name        string
	Description string
	Points      int64
}

var achievementDefs = map[AchievementType]AchievementDef{
	AchievementFirstConnection: {
		Type:        AchievementFirstConnection,
		Name:        "First Connection",
		Description: "Made your first connection on MetaBento",
		Points:      25,
	},
	AchievementNetworker: {
		Type:        AchievementNetworker,
		Name:        "Networker",
		Description: "Made 10 connections",
		Points:      50,
	},
	AchievementInfluencer: {
		Type:        AchievementInfluencer,
		Name:        "Influencer",
		Description: "Reached level 20",
		Points:      100,
	},
}

// Achievement returns the definition for t. The bool is false for unknown types.
func Achievement(t AchievementType) (AchievementDef, bool) {
	d, ok := achievementDefs[t]
	return d, ok
}

const (
	networkerConnections = 10
	influencerLevel      = 20
)

// ProgressSnapshot is what achievement rules look at.
type ProgressSnapshot struct {
	PrevConnections int64
	Connections     int64
	Level           int
}

// EligibleAchievements lists the achievements whose condition holds for s,
// in a fixed order. Callers still dedupe against stored unlocks.
func EligibleAchievements(s ProgressSnapshot) []AchievementType {
	var out []AchievementType
	if s.PrevConnections == 0 && s.Connections >= 1 {
		out = append(out, AchievementFirstConnection)
	}
	if s.PrevConnections < networkerConnections && s.Connections == networkerConnections {
		out = append(out, AchievementNetworker)
	}
	if s.Level >= influencerLevel {
		out = append(out, AchievementInfluencer)
	}
	return out
}
