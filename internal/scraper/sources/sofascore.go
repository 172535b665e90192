package sources

import "github.com/Vodeneev/smartbet/internal/scraper/extract"

func init() {
	Register(Profile{
		Key:   "sofascore",
		Label: "SofaScore",
		URL:   "https://www.sofascore.com/es-la/",
		Results: extract.ResultSelectors{
			Containers:  []string{`[class*="match"]`, `[class*="event"]`, `[class*="game"]`, ".Event", ".match-row", `[data-testid*="match"]`},
			HomeTeam:    []string{`[class*="home"]`, `[class*="team-home"]`, `[class*="homeTeam"]`},
			AwayTeam:    []string{`[class*="away"]`, `[class*="team-away"]`, `[class*="awayTeam"]`},
			HomeScore:   []string{`[class*="score-home"]`, `[class*="home-score"]`, ".homeScore"},
			AwayScore:   []string{`[class*="score-away"]`, `[class*="away-score"]`, ".awayScore"},
			Status:      []string{`[class*="status"]`, `[class*="time"]`, `[class*="state"]`},
			ScoreBlocks: []string{`[class*="score"]`, `[class*="result"]`},
			TeamNames:   []string{`[class*="team"]`, `[class*="name"]`},
		},
	})
}
