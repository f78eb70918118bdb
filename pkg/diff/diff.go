// Package diff renders the unified diff shown to an operator during a
// request_review pause: what the instance last submitted (empty, the
// first time) against what it is about to submit now.
package diff

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"
)

const (
	maxDiffLines    = 10000
	truncateMessage = "... (diff truncated, exceeds 10,000 lines) ..."
)

// GenerateUnifiedDiff renders a unified diff of prior against proposed,
// labeling each side with priorLabel/proposedLabel. Returns an empty
// string when the two are identical. Diffs longer than 10,000 lines are
// cut short with a truncation marker.
func GenerateUnifiedDiff(prior, proposed []byte, priorLabel, proposedLabel string) string {
	if bytes.Equal(prior, proposed) {
		return ""
	}

	dmp := diffmatchpatch.New()

	priorStr := string(prior)
	proposedStr := string(proposed)

	diffs := dmp.DiffMain(priorStr, proposedStr, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var buf bytes.Buffer

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(&buf, "--- %s\t%s\n", priorLabel, timestamp)
	fmt.Fprintf(&buf, "+++ %s\t%s\n", proposedLabel, timestamp)

	priorLines := strings.Split(priorStr, "\n")
	proposedLines := strings.Split(proposedStr, "\n")
	fmt.Fprintf(&buf, "@@ -1,%d +1,%d @@\n", len(priorLines), len(proposedLines))

	for _, d := range diffs {
		text := d.Text
		lines := strings.Split(text, "\n")
		if len(lines) > 0 && lines[len(lines)-1] == "" && text[len(text)-1] == '\n' {
			lines = lines[:len(lines)-1]
		}

		var prefix string
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			prefix = " "
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		default:
			continue
		}
		for _, line := range lines {
			buf.WriteString(prefix)
			buf.WriteString(line)
			buf.WriteString("\n")
		}
	}

	result := buf.String()
	lines := strings.Split(result, "\n")
	if len(lines) > maxDiffLines {
		return strings.Join(lines[:maxDiffLines], "\n") + "\n" + truncateMessage + "\n"
	}
	return result
}
