package sources

import "github.com/Vodeneev/smartbet/internal/scraper/extract"

func init() {
	Register(Profile{
		Key:   "footystats",
		Label: "FootyStats",
		URL:   "https://footystats.org/predictions/mathematical",
		Predictions: extract.PredictionSelectors{
			Rows:        []string{"tr.match-row", "tr.prediction-row", ".prediction-row", `[class*="prediction"]`},
			Teams:       []string{`[class*="team"]`, `[class*="versus"]`},
			Date:        []string{`[class*="date"]`, `[class*="time"]`},
			League:      []string{`[class*="league"]`, `[class*="country"]`},
			Odds:        []string{`[class*="odd"]`, `[class*="odds"]`},
			Probability: []string{`[class*="prob"]`, `[class*="percentage"]`},
			Stake:       []string{`[class*="stake"]`, `[class*="rating"]`},
			Market:      []string{`[class*="market"]`, `[class*="tip"]`, `[class*="prediction"]`},
		},
	})
}
