package metadata

import (
	"fmt"

	"github.com/hbomb79/ffmeta/internal/timestamp"
)

type ChapterIssueKind int

const (
	// Inverted chapters end before they start.
	Inverted ChapterIssueKind = iota
	// Overlap means a chapter starts before the previous one ends.
	Overlap
	// Gap means a chapter starts after the previous one ends.
	Gap
)

func (k ChapterIssueKind) String() string {
	switch k {
	case Inverted:
		return "inverted"
	case Overlap:
		return "overlap"
	case Gap:
		return "gap"
	default:
		return fmt.Sprintf("ChapterIssueKind(%d)", int(k))
	}
}

// ChapterIssue describes a suspicious chapter layout. Issues are warnings
// for the user; the chapters are still valid to write.
type ChapterIssue struct {
	Kind  ChapterIssueKind
	Index int
	// Amount is the size of the gap or overlap, or how far the end
	// precedes the start for inverted chapters.
	Amount timestamp.Timestamp
}

func (i ChapterIssue) String() string {
	switch i.Kind {
	case Inverted:
		return fmt.Sprintf("chapter #%d ends %s before it starts", i.Index, i.Amount)
	case Overlap:
		return fmt.Sprintf("chapter #%d overlaps the previous chapter by %s", i.Index, i.Amount)
	default:
		return fmt.Sprintf("chapter #%d leaves a gap of %s after the previous chapter", i.Index, i.Amount)
	}
}

// ChapterIssues compares each chapter with the one before it, in list
// order, and reports inverted ranges, overlaps and gaps.
func (m *MediaMetadata) ChapterIssues() []ChapterIssue {
	var issues []ChapterIssue
	for i, chapter := range m.Chapters {
		if chapter.EndTime < chapter.StartTime {
			issues = append(issues, ChapterIssue{Kind: Inverted, Index: i, Amount: chapter.StartTime - chapter.EndTime})
		}

		if i == 0 {
			continue
		}

		previousEnd := m.Chapters[i-1].EndTime
		switch {
		case chapter.StartTime < previousEnd:
			issues = append(issues, ChapterIssue{Kind: Overlap, Index: i, Amount: previousEnd - chapter.StartTime})
		case chapter.StartTime > previousEnd:
			issues = append(issues, ChapterIssue{Kind: Gap, Index: i, Amount: chapter.StartTime - previousEnd})
		}
	}

	return issues
}
