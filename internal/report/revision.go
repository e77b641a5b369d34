package report

import (
	"github.com/go-git/go-git/v6"
)

// Revision returns the HEAD commit hash of the repository containing dir, so
// a report can be tied to the manuscript state it was generated from.
// Returns empty when dir is not inside a work tree or HEAD cannot be
// resolved; the stamp is best effort and never fails a run.
func Revision(dir string) string {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return ""
	}
	head, err := repo.Head()
	if err != nil {
		return ""
	}
	return head.Hash().String()
}
