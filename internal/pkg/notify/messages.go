package notify

import (
	"fmt"
	"strings"
)

// AcquisitionFailed formats the alert for a failed prediction run.
func AcquisitionFailed(source string, jobID int64, reason string) string {
	return fmt.Sprintf("⚠️ Prediction scrape failed\nSource: %s\nJob: %d\nError: %s", source, jobID, reason)
}

// VerificationFailed formats the alert for a failed result reconciliation.
func VerificationFailed(reason string, pending int) string {
	return fmt.Sprintf("⚠️ Result verification failed\nPending matches: %d\nError: %s", pending, reason)
}

// MatchesSettled formats the summary sent after bets were settled.
func MatchesSettled(verified, pending, won, lost int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ Settled %d of %d matches\n", verified, pending)
	fmt.Fprintf(&b, "Bets won: %d\nBets lost: %d", won, lost)
	return b.String()
}
