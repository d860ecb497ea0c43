package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/analog-home/analog/internal/api"
)

var (
	headerColor = color.New(color.Bold)
	dimColor    = color.New(color.FgHiBlack)
	leadColor   = color.New(color.FgHiGreen)
)

// renderState prints a snapshot the way an operator wants to glance at it.
func renderState(w io.Writer, st *api.State) {
	c := st.Controls

	headerColor.Fprintln(w, "Controls")
	fmt.Fprintf(w, "  temperature  %s %s\n", tempColor(c.Temperature).Sprintf("%.4f", c.Temperature),
		dimColor.Sprintf("(default %.2f)", c.DefaultTemperature))
	if c.TrajectoryReason != "" {
		fmt.Fprintf(w, "  trajectory   %s\n", c.TrajectoryReason)
	}

	votes := [3]int{c.Vote1, c.Vote2, c.Vote3}
	labels := [3]string{c.VoteLabel1, c.VoteLabel2, c.VoteLabel3}
	lead := leader(votes)
	for i := range votes {
		line := fmt.Sprintf("  %d. %-14s %d", i+1, labels[i], votes[i])
		if i == lead {
			line = leadColor.Sprint(line + " ←")
		}
		fmt.Fprintln(w, line)
	}

	fmt.Fprintln(w)
	headerColor.Fprintf(w, "Seeds (%d)\n", len(st.Seeds))
	if len(st.Seeds) == 0 {
		dimColor.Fprintln(w, "  inbox empty")
	}
	for _, s := range st.Seeds {
		fmt.Fprintf(w, "  %s %s\n", dimColor.Sprintf("#%d", s.ID), s.Text)
	}

	fmt.Fprintln(w)
	headerColor.Fprintln(w, "Latest artifact")
	if st.Artifact == nil {
		dimColor.Fprintln(w, "  none yet")
		return
	}
	a := st.Artifact
	fmt.Fprintf(w, "  %s %s\n", dimColor.Sprintf("#%d", a.ID), a.Title)
	if first, _, _ := strings.Cut(strings.TrimSpace(a.BodyMarkdown), "\n"); first != "" {
		fmt.Fprintf(w, "  %s\n", first)
	}
}

// leader returns the index of the slot with the most votes, or -1 when
// nobody has voted or the top is tied.
func leader(votes [3]int) int {
	best, idx, tied := 0, -1, false
	for i, v := range votes {
		switch {
		case v > best:
			best, idx, tied = v, i, false
		case v == best && v > 0:
			tied = true
		}
	}
	if tied {
		return -1
	}
	return idx
}

func tempColor(t float64) *color.Color {
	switch {
	case t >= 1.2:
		return color.New(color.FgRed)
	case t <= 0.4:
		return color.New(color.FgCyan)
	default:
		return color.New(color.FgYellow)
	}
}
