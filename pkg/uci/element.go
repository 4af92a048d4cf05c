// Package uci implements the runtime for the Unified Configuration
// Interface: a line-oriented, keyword-based configuration format organised
// as packages → sections → options. A Context owns loaded packages, the
// parser builds them from a character stream, mutations are tracked in a
// per-package history log, and the exporter serialises the graph (or the
// history delta) back to text.
//
// A Context and everything it owns is not safe for concurrent use; callers
// needing concurrency must serialise access externally.
package uci

// ElementType tags the three concrete entity types of the configuration
// graph. Polymorphic code paths (lookup results, history snapshots)
// switch over it instead of performing unchecked casts.
type ElementType int

const (
	TypePackage ElementType = iota
	TypeSection
	TypeOption
)

// String returns the lowercase element type name.
func (t ElementType) String() string {
	switch t {
	case TypePackage:
		return "package"
	case TypeSection:
		return "section"
	case TypeOption:
		return "option"
	}
	return "unknown"
}

// Element is the common identity shared by Package, Section and Option.
// Concrete types are recovered with an ordinary type switch or assertion;
// the interface is sealed to the three types in this package.
type Element interface {
	// ElementType reports which concrete type the element is.
	ElementType() ElementType
	// Name returns the element's name within its parent scope.
	// For anonymous sections this is the synthesized internal name.
	Name() string

	sealed()
}
