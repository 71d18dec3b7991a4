package overlay

import (
	"HawkVision/internal/entity"
	"fmt"
)

type SummaryLine struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

func (l SummaryLine) String() string {
	return fmt.Sprintf("%d %s(s)", l.Count, l.Label)
}

type Summary struct {
	Total int           `json:"total"`
	Lines []SummaryLine `json:"lines"`
}

func (s Summary) Heading() string {
	return fmt.Sprintf("Detected %d object(s)", s.Total)
}

// Summarize counts detections per label, keeping labels in order of first
// appearance.
func Summarize(predictions []entity.Detection) Summary {
	index := make(map[string]int)
	lines := make([]SummaryLine, 0)

	for _, p := range predictions {
		i, seen := index[p.Label]
		if !seen {
			i = len(lines)
			index[p.Label] = i
			lines = append(lines, SummaryLine{Label: p.Label})
		}
		lines[i].Count++
	}

	return Summary{
		Total: len(predictions),
		Lines: lines,
	}
}
