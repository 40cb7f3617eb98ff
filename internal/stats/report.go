package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/tmparker/opendrill/internal/model"
)

const sparkChars = " .:-=+*#%@"

const fallbackWidth = 80

// RenderSummary prints the all-time aggregate and the current due count.
func RenderSummary(w io.Writer, stats model.GlobalStats, dueCount int) error {
	total := stats.TotalCorrect + stats.TotalWrong
	lines := []string{
		"Summary",
		fmt.Sprintf("Sessions: %d", stats.TotalSessions),
		fmt.Sprintf("Reviews: %d", total),
		fmt.Sprintf("Accuracy: %d%%", Accuracy(stats.TotalCorrect, total)),
		fmt.Sprintf("Best streak: %d", stats.StreakRecord),
		fmt.Sprintf("High score: %d", stats.HighScore),
		fmt.Sprintf("Due now: %d", dueCount),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderOpeningTable prints per-opening accuracy and mastery.
func RenderOpeningTable(w io.Writer, openings []OpeningStat) error {
	if len(openings) == 0 {
		_, err := fmt.Fprintln(w, "No opening stats yet.")
		return err
	}
	if _, err := fmt.Fprintln(w, "Per-Opening"); err != nil {
		return err
	}
	headers := []string{"Opening", "Accuracy", "Reviews", "Mastered", "Avg Stability"}
	rows := make([][]string, 0, len(openings))
	for _, stat := range openings {
		rows = append(rows, []string{
			stat.Opening,
			fmt.Sprintf("%d%%", stat.Accuracy),
			fmt.Sprintf("%d", stat.Total),
			fmt.Sprintf("%d/%d", stat.MasteredCards, stat.TotalCards),
			fmt.Sprintf("%.1f", stat.AvgStability),
		})
	}
	rightAlign := map[int]bool{1: true, 2: true, 3: true, 4: true}
	for _, line := range formatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderWeakSpots prints the positions most in need of work, worst first.
func RenderWeakSpots(w io.Writer, spots []WeakSpot) error {
	if len(spots) == 0 {
		_, err := fmt.Fprintln(w, "No weak spots yet; positions need at least two reviews.")
		return err
	}
	if _, err := fmt.Fprintln(w, "Weak Spots"); err != nil {
		return err
	}
	headers := []string{"Position", "Move", "Opening", "Accuracy", "Reviews"}
	rows := make([][]string, 0, len(spots))
	for _, spot := range spots {
		rows = append(rows, []string{
			spot.PositionID,
			spot.SAN,
			spot.Opening,
			fmt.Sprintf("%d%%", spot.Accuracy),
			fmt.Sprintf("%d", spot.Total),
		})
	}
	rightAlign := map[int]bool{3: true, 4: true}
	for _, line := range formatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderHistory prints recent sessions, newest first, with an accuracy
// sparkline in chronological order.
func RenderHistory(w io.Writer, sessions []model.SessionRecord) error {
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(w, "No sessions yet.")
		return err
	}
	if _, err := fmt.Fprintln(w, "Recent Sessions"); err != nil {
		return err
	}
	headers := []string{"Date", "Mode", "Opening", "Rounds", "Accuracy", "Score"}
	rows := make([][]string, 0, len(sessions))
	for _, rec := range sessions {
		score := "-"
		if rec.Mode == model.ModeTimed {
			score = fmt.Sprintf("%d", rec.Score)
		}
		rows = append(rows, []string{
			rec.At.Format("2006-01-02 15:04"),
			string(rec.Mode),
			rec.Opening,
			fmt.Sprintf("%d", rec.Rounds),
			fmt.Sprintf("%d%%", Accuracy(rec.Correct, rec.Correct+rec.Wrong)),
			score,
		})
	}
	rightAlign := map[int]bool{3: true, 4: true, 5: true}
	for _, line := range formatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}

	accuracies := make([]float64, 0, len(sessions))
	for i := len(sessions) - 1; i >= 0; i-- {
		rec := sessions[i]
		accuracies = append(accuracies, float64(Accuracy(rec.Correct, rec.Correct+rec.Wrong)))
	}
	if limit := TerminalWidth(fallbackWidth) - len("Accuracy trend: "); len(accuracies) > limit && limit > 0 {
		accuracies = accuracies[len(accuracies)-limit:]
	}
	if _, err := fmt.Fprintf(w, "Accuracy trend: %s\n", Sparkline(accuracies, 0, 100)); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// TerminalWidth returns the stdout terminal width, or fallback when
// stdout is not a terminal.
func TerminalWidth(fallback int) int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return fallback
	}
	return width
}

// Sparkline renders a single-line ASCII sparkline of values scaled to
// the [lo, hi] range.
func Sparkline(values []float64, lo, hi float64) string {
	if len(values) == 0 || hi <= lo {
		return ""
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - lo) / (hi - lo)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}
