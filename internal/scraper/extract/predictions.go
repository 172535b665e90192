package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const (
	unknownTeam   = "Unknown"
	unknownLeague = "Unknown League"
	minTeamLen    = 3
)

var (
	versusSplit   = regexp.MustCompile(`(?i)\bvs\b\.?`)
	versusPattern = regexp.MustCompile(`([A-Za-z][A-Za-z ]*?)\s+vs\.?\s+([A-Za-z][A-Za-z ]*)`)
	digitsPattern = regexp.MustCompile(`\d+`)
	numberPattern = regexp.MustCompile(`\d+(?:[.,]\d+)?`)
)

// structuredPredictions reads prediction rows through configured selectors.
type structuredPredictions struct {
	sel  PredictionSelectors
	opts options
}

func (s *structuredPredictions) Name() string { return "structured" }

func (s *structuredPredictions) Extract(doc *goquery.Document) ([]PredictionRecord, []error) {
	var (
		records []PredictionRecord
		skipped []error
	)
	if len(s.sel.Rows) == 0 {
		return nil, nil
	}

	doc.Find(join(s.sel.Rows)).Each(func(i int, row *goquery.Selection) {
		rec, err := s.row(row)
		if err != nil {
			skipped = append(skipped, &RowError{Strategy: s.Name(), Index: i, Err: err})
			return
		}
		records = append(records, rec)
	})

	return records, skipped
}

func (s *structuredPredictions) row(row *goquery.Selection) (PredictionRecord, error) {
	teamsText, _ := firstText(row, s.sel.Teams)
	home, away := splitTeams(teamsText)
	if home == "" && away == "" {
		return PredictionRecord{}, errMissingTeams
	}
	if home == "" {
		home = unknownTeam
	}
	if away == "" {
		away = unknownTeam
	}

	dateText, _ := firstText(row, s.sel.Date)
	matchDate, matchTime := parseMatchDate(dateText, s.opts.now(), s.opts.loc)

	league, _ := firstText(row, s.sel.League)
	if league == "" {
		league = unknownLeague
	}

	var odds []float64
	if len(s.sel.Odds) > 0 {
		oddsSel := join(s.sel.Odds)
		row.Find(oddsSel).Each(func(_ int, el *goquery.Selection) {
			// A wrapper such as td.odds around span.odd matches too; read only the innermost cells.
			if el.Find(oddsSel).Length() > 0 {
				return
			}
			if v, ok := parseOdds(el.Text()); ok {
				odds = append(odds, v)
			}
		})
	}

	probText, _ := firstText(row, s.sel.Probability)
	probability := parseProbability(probText)

	stake := StakeFromProbability(probability)
	if hint, ok := firstText(row, s.sel.Stake); ok {
		if digits := digitsPattern.FindString(hint); digits != "" {
			if v, err := strconv.Atoi(digits); err == nil {
				stake = clampStake(v)
			}
		}
	}

	market := GenericMarket
	if text, ok := firstText(row, s.sel.Market); ok {
		market = NormalizeMarket(text)
	}

	rec := PredictionRecord{
		ExternalID:      ExternalID(teamsText, dateText),
		HomeTeam:        home,
		AwayTeam:        away,
		League:          league,
		MatchDate:       matchDate,
		MatchTime:       matchTime,
		Market:          market,
		Probability:     probability,
		Stake:           stake,
		ConfidenceLevel: ConfidenceFromProbability(probability),
	}
	if len(odds) > 0 {
		rec.Odds = odds[0]
	}
	if len(odds) >= 3 {
		rec.HomeOdds, rec.DrawOdds, rec.AwayOdds = &odds[0], &odds[1], &odds[2]
	}
	return rec, nil
}

// patternPredictions scans the visible page text for "<Team> vs <Team>" lines
// and emits minimal stub records.
type patternPredictions struct {
	opts options
}

func (p *patternPredictions) Name() string { return "text-pattern" }

func (p *patternPredictions) Extract(doc *goquery.Document) ([]PredictionRecord, []error) {
	var text strings.Builder
	for _, n := range doc.Selection.Nodes {
		visibleText(n, &text)
	}

	now := p.opts.now().In(p.opts.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, p.opts.loc)

	var records []PredictionRecord
	seen := make(map[string]struct{})
	for _, line := range strings.Split(text.String(), "\n") {
		for _, sm := range versusPattern.FindAllStringSubmatch(line, -1) {
			home, away := strings.TrimSpace(sm[1]), strings.TrimSpace(sm[2])
			if len(home) < minTeamLen || len(away) < minTeamLen {
				continue
			}
			key := home + "|" + away
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}

			records = append(records, PredictionRecord{
				ExternalID:      ExternalID(home, away),
				HomeTeam:        home,
				AwayTeam:        away,
				MatchDate:       today,
				Market:          GenericMarket,
				Stake:           StubStake,
				ConfidenceLevel: ConfidenceFromProbability(0),
			})
		}
	}
	return records, nil
}

var lineBreakTags = map[string]bool{
	"br": true, "p": true, "div": true, "li": true, "tr": true, "td": true, "th": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"section": true, "article": true, "header": true, "footer": true, "table": true,
}

// visibleText renders the text of n roughly the way a browser lays it out:
// script-like elements are dropped and block elements end a line.
func visibleText(n *html.Node, b *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "noscript", "template":
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		visibleText(c, b)
	}
	if n.Type == html.ElementNode && lineBreakTags[n.Data] {
		b.WriteByte('\n')
	}
}

func splitTeams(text string) (string, string) {
	if text == "" {
		return "", ""
	}
	parts := versusSplit.Split(text, 2)
	home := strings.TrimSpace(parts[0])
	if len(parts) < 2 {
		return home, ""
	}
	return home, strings.TrimSpace(parts[1])
}

func parseOdds(text string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(text), ",", "."), 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

func parseProbability(text string) float64 {
	num := numberPattern.FindString(text)
	if num == "" {
		return 0
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(num, ",", "."), 64)
	if err != nil {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
