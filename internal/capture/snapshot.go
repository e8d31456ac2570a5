package capture

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// EditFromSnapshots derives an edit notification from two whole-document
// snapshots, for sources that only observe saved content. The changed region
// is the span between the common prefix and common suffix; its line range is
// measured in prior. Identical snapshots produce an edit with no changes.
func EditFromSnapshots(document, prior, current string) Edit {
	e := Edit{Document: document, Text: current}
	if prior == current {
		return e
	}

	dmp := diffmatchpatch.New()
	pr, cr := []rune(prior), []rune(current)

	prefix := dmp.DiffCommonPrefix(prior, current)
	suffix := dmp.DiffCommonSuffix(string(pr[prefix:]), string(cr[prefix:]))

	replaced := string(pr[prefix : len(pr)-suffix])
	startLine := strings.Count(string(pr[:prefix]), "\n")

	e.Changes = []Change{{
		Text:      string(cr[prefix : len(cr)-suffix]),
		StartLine: startLine,
		EndLine:   startLine + strings.Count(replaced, "\n"),
	}}
	return e
}
