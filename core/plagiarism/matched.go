package plagiarism

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/plagcheck/core"
	"github.com/trezcool/plagcheck/core/submission"
)

const passageSep = " ... "

// matchedContent returns the passages a and b have in common, in the order they appear in a,
// truncated to what a result row can hold.
func matchedContent(a, b string) string {
	wa, wb := strings.Fields(a), strings.Fields(b)
	if len(wa) == 0 || len(wb) == 0 {
		return ""
	}

	blocks := difflib.NewMatcher(wa, wb).GetMatchingBlocks()
	passages := make([]string, 0, len(blocks))
	for _, blk := range blocks {
		if blk.Size == 0 {
			continue
		}
		passages = append(passages, strings.Join(wa[blk.A:blk.A+blk.Size], " "))
	}
	return core.TruncateRunes(strings.Join(passages, passageSep), submission.MaxMatchedContentLen)
}
