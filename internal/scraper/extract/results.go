package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var scorePattern = regexp.MustCompile(`(\d+)\s*-\s*(\d+)`)

var fullTimePattern = regexp.MustCompile(`\bft\b`)

// IsFinishedStatus reports whether a scraped status label denotes a completed match.
func IsFinishedStatus(status string) bool {
	s := strings.ToLower(strings.TrimSpace(status))
	return fullTimePattern.MatchString(s) || strings.Contains(s, "finished") || strings.Contains(s, "final")
}

// structuredResults reads result containers through configured selectors.
type structuredResults struct {
	sel ResultSelectors
}

func (s *structuredResults) Name() string { return "structured" }

func (s *structuredResults) Extract(doc *goquery.Document) ([]ResultRecord, []error) {
	var (
		records []ResultRecord
		skipped []error
	)
	if len(s.sel.Containers) == 0 {
		return nil, nil
	}

	doc.Find(join(s.sel.Containers)).Each(func(i int, c *goquery.Selection) {
		home, _ := firstText(c, s.sel.HomeTeam)
		away, _ := firstText(c, s.sel.AwayTeam)
		if home == "" || away == "" {
			skipped = append(skipped, &RowError{Strategy: s.Name(), Index: i, Err: errMissingTeams})
			return
		}

		homeText, _ := firstText(c, s.sel.HomeScore)
		awayText, _ := firstText(c, s.sel.AwayScore)
		status, _ := firstText(c, s.sel.Status)

		records = append(records, ResultRecord{
			ExternalID: ResultID(home, away),
			HomeTeam:   home,
			AwayTeam:   away,
			HomeScore:  parseScore(homeText),
			AwayScore:  parseScore(awayText),
			Status:     status,
			Finished:   IsFinishedStatus(status),
		})
	})

	return records, skipped
}

// scoreBlockResults finds "<n> - <n>" score blocks and takes the first two team
// names next to each as home and away. Anything with a final score is finished.
type scoreBlockResults struct {
	sel ResultSelectors
}

func (s *scoreBlockResults) Name() string { return "score-pattern" }

func (s *scoreBlockResults) Extract(doc *goquery.Document) ([]ResultRecord, []error) {
	var (
		records []ResultRecord
		skipped []error
	)
	if len(s.sel.ScoreBlocks) == 0 || len(s.sel.TeamNames) == 0 {
		return nil, nil
	}

	doc.Find(join(s.sel.ScoreBlocks)).Each(func(i int, block *goquery.Selection) {
		sm := scorePattern.FindStringSubmatch(block.Text())
		if sm == nil {
			skipped = append(skipped, &RowError{Strategy: s.Name(), Index: i, Err: errNoScore})
			return
		}

		teams := block.Parent().Find(join(s.sel.TeamNames))
		if teams.Length() < 2 {
			skipped = append(skipped, &RowError{Strategy: s.Name(), Index: i, Err: errMissingTeams})
			return
		}
		home := strings.TrimSpace(teams.Eq(0).Text())
		away := strings.TrimSpace(teams.Eq(1).Text())
		if home == "" || away == "" {
			skipped = append(skipped, &RowError{Strategy: s.Name(), Index: i, Err: errMissingTeams})
			return
		}

		records = append(records, ResultRecord{
			ExternalID: ResultID(home, away),
			HomeTeam:   home,
			AwayTeam:   away,
			HomeScore:  parseScore(sm[1]),
			AwayScore:  parseScore(sm[2]),
			Status:     "FT",
			Finished:   true,
		})
	})

	return records, skipped
}

func parseScore(text string) int {
	digits := digitsPattern.FindString(text)
	if digits == "" {
		return 0
	}
	v, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return v
}
