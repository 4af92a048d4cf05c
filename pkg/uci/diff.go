package uci

import (
	"bytes"

	"github.com/pmezard/go-difflib/difflib"
)

// DiffText renders a unified diff between the package's parsed baseline
// and its current edited state. The baseline is reconstructed by undoing
// the history log on a detached clone, so the live graph is untouched.
func DiffText(p *Package) (string, error) {
	baseline := p.Clone()
	if err := baseline.Revert(); err != nil {
		return "", err
	}

	var before, after bytes.Buffer
	if err := baseline.Serialize(&before, false); err != nil {
		return "", err
	}
	if err := p.Serialize(&after, false); err != nil {
		return "", err
	}

	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(before.String()),
		B:        difflib.SplitLines(after.String()),
		FromFile: p.name + " (parsed)",
		ToFile:   p.name + " (edited)",
		Context:  3,
	}
	return difflib.GetUnifiedDiffString(diff)
}
