package extract

import "strings"

// PredictionSelectors lists the CSS selector alternatives tried for each field
// of a prediction row. Alternatives are joined into one comma selector.
type PredictionSelectors struct {
	Rows        []string `yaml:"rows"`
	Teams       []string `yaml:"teams"`
	Date        []string `yaml:"date"`
	League      []string `yaml:"league"`
	Odds        []string `yaml:"odds"`
	Probability []string `yaml:"probability"`
	Stake       []string `yaml:"stake"`
	Market      []string `yaml:"market"`
}

// Merge returns s with every empty field taken from defaults.
func (s PredictionSelectors) Merge(defaults PredictionSelectors) PredictionSelectors {
	s.Rows = orDefault(s.Rows, defaults.Rows)
	s.Teams = orDefault(s.Teams, defaults.Teams)
	s.Date = orDefault(s.Date, defaults.Date)
	s.League = orDefault(s.League, defaults.League)
	s.Odds = orDefault(s.Odds, defaults.Odds)
	s.Probability = orDefault(s.Probability, defaults.Probability)
	s.Stake = orDefault(s.Stake, defaults.Stake)
	s.Market = orDefault(s.Market, defaults.Market)
	return s
}

// ResultSelectors lists the CSS selector alternatives used on a results page.
// ScoreBlocks and TeamNames drive the score-pattern fallback.
type ResultSelectors struct {
	Containers  []string `yaml:"containers"`
	HomeTeam    []string `yaml:"home_team"`
	AwayTeam    []string `yaml:"away_team"`
	HomeScore   []string `yaml:"home_score"`
	AwayScore   []string `yaml:"away_score"`
	Status      []string `yaml:"status"`
	ScoreBlocks []string `yaml:"score_blocks"`
	TeamNames   []string `yaml:"team_names"`
}

// Merge returns s with every empty field taken from defaults.
func (s ResultSelectors) Merge(defaults ResultSelectors) ResultSelectors {
	s.Containers = orDefault(s.Containers, defaults.Containers)
	s.HomeTeam = orDefault(s.HomeTeam, defaults.HomeTeam)
	s.AwayTeam = orDefault(s.AwayTeam, defaults.AwayTeam)
	s.HomeScore = orDefault(s.HomeScore, defaults.HomeScore)
	s.AwayScore = orDefault(s.AwayScore, defaults.AwayScore)
	s.Status = orDefault(s.Status, defaults.Status)
	s.ScoreBlocks = orDefault(s.ScoreBlocks, defaults.ScoreBlocks)
	s.TeamNames = orDefault(s.TeamNames, defaults.TeamNames)
	return s
}

func orDefault(v, def []string) []string {
	if len(v) == 0 {
		return def
	}
	return v
}

func join(alternatives []string) string {
	return strings.Join(alternatives, ", ")
}
