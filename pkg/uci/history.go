package uci

import (
	"fmt"
	"io"
	"strings"

	"github.com/honeybbq/uci/pkg/ucierrors"
)

// Command tags the kind of change captured by a history record.
type Command int

const (
	CommandAdd Command = iota
	CommandRemove
	CommandChange
	CommandRename
)

// String returns the lowercase command name.
func (c Command) String() string {
	switch c {
	case CommandAdd:
		return "add"
	case CommandRemove:
		return "remove"
	case CommandChange:
		return "change"
	case CommandRename:
		return "rename"
	}
	return "unknown"
}

// Change is one history record: a structural or value edit applied to a
// loaded package after parsing. Records carry enough of the prior state to
// undo the edit without consulting the live graph. The log is append-only
// and chronological; it is cleared by Commit or Revert.
type Change struct {
	Cmd     Command
	Section string // section name at the time of the change
	Option  string // empty for section-level changes

	// Values holds the resulting state: the new value(s) for add/change,
	// the section type for a section add.
	Values []string
	// List marks the resulting option as a list.
	List bool
	// Append marks a change that appended one value to a list.
	Append bool

	// Prior state, populated per command:
	OldName      string   // rename: previous name
	OldAnonymous bool     // rename: section was anonymous before
	OldValues    []string // change, option remove: previous values
	OldList      bool     // change, option remove: previous list flag

	// OldSection snapshots a removed section (detached deep copy).
	OldSection *Section
	// Index records the position a removed element occupied, so an undo
	// restores insertion order.
	Index int
}

// record appends a history record. Nothing is recorded while the parser is
// populating the package or while the package is detached from a context.
func (p *Package) record(c *Change) {
	if p.loading || p.ctx == nil {
		return
	}
	p.history = append(p.history, c)
}

// Changes returns the package's history records in chronological order.
// The returned slice must not be modified.
func (p *Package) Changes() []*Change { return p.history }

// fail stores err as the owning context's last error, if any, and returns
// it unchanged.
func (p *Package) fail(err error) error {
	if p.ctx != nil {
		p.ctx.lastErr = err
	}
	return err
}

// Revert undoes every recorded change in reverse chronological order,
// restoring the package to its state as parsed, and clears the history
// log.
func (p *Package) Revert() error {
	for i := len(p.history) - 1; i >= 0; i-- {
		if err := p.undo(p.history[i]); err != nil {
			return p.fail(err)
		}
	}
	p.history = nil
	return nil
}

// undo rolls back a single record. The history log is only ever replayed
// from the tail, so the names recorded in later entries are in effect when
// an earlier entry is undone.
func (p *Package) undo(c *Change) error {
	switch c.Cmd {
	case CommandAdd:
		if c.Option == "" {
			s := p.Section(c.Section)
			if s == nil {
				return ucierrors.Newf(ucierrors.KindInternal, "history undo: missing section %q", c.Section)
			}
			p.removeSection(s)
			return nil
		}
		s := p.Section(c.Section)
		if s == nil {
			return ucierrors.Newf(ucierrors.KindInternal, "history undo: missing section %q", c.Section)
		}
		o := s.Option(c.Option)
		if o == nil {
			return ucierrors.Newf(ucierrors.KindInternal, "history undo: missing option %q", c.Option)
		}
		s.removeOption(o)
		return nil

	case CommandChange:
		s := p.Section(c.Section)
		if s == nil {
			return ucierrors.Newf(ucierrors.KindInternal, "history undo: missing section %q", c.Section)
		}
		o := s.Option(c.Option)
		if o == nil {
			return ucierrors.Newf(ucierrors.KindInternal, "history undo: missing option %q", c.Option)
		}
		o.values = append([]string(nil), c.OldValues...)
		o.list = c.OldList
		return nil

	case CommandRename:
		s := p.Section(c.Section)
		if s == nil {
			return ucierrors.Newf(ucierrors.KindInternal, "history undo: missing section %q", c.Section)
		}
		if c.Option == "" {
			s.name = c.OldName
			s.anonymous = c.OldAnonymous
			return nil
		}
		o := s.Option(c.Option)
		if o == nil {
			return ucierrors.Newf(ucierrors.KindInternal, "history undo: missing option %q", c.Option)
		}
		o.name = c.OldName
		return nil

	case CommandRemove:
		if c.Option == "" {
			if c.OldSection == nil {
				return ucierrors.Newf(ucierrors.KindInternal, "history undo: remove record without snapshot")
			}
			restored := c.OldSection.cloneInto(p)
			p.insertSectionAt(restored, c.Index)
			return nil
		}
		s := p.Section(c.Section)
		if s == nil {
			return ucierrors.Newf(ucierrors.KindInternal, "history undo: missing section %q", c.Section)
		}
		o := &Option{
			name:    c.Option,
			values:  append([]string(nil), c.OldValues...),
			list:    c.OldList,
			section: s,
		}
		s.insertOptionAt(o, c.Index)
		return nil
	}
	return ucierrors.Newf(ucierrors.KindInternal, "history undo: unknown command %d", c.Cmd)
}

// ExportChanges writes the history log of one package (or of every loaded
// package when pkg is nil) as one change per line:
//
//	<package>.<section>=<type>            section added
//	<package>.<section>.<option>=<value>  option added or changed
//	<package>.<section>.<option>+=<value> value appended to a list
//	-<package>.<section>[.<option>]       element removed
//	@<package>.<section>[.<option>]=<new> element renamed
//
// This is the delta view of the configuration; Export is the full view.
// The two are never mixed in one stream.
func (c *Context) ExportChanges(w io.Writer, pkg *Package) error {
	if c == nil || w == nil {
		return errInvalidContext(c)
	}
	packages := c.packages
	if pkg != nil {
		packages = []*Package{pkg}
	}
	for _, p := range packages {
		for _, ch := range p.history {
			if err := writeChange(w, p.name, ch); err != nil {
				return c.fail(ucierrors.New(ucierrors.KindIO, err))
			}
		}
	}
	return nil
}

func writeChange(w io.Writer, pkg string, c *Change) error {
	path := pkg + "." + c.Section
	if c.Option != "" {
		path += "." + c.Option
	}
	var err error
	switch c.Cmd {
	case CommandRemove:
		_, err = fmt.Fprintf(w, "-%s\n", path)
	case CommandRename:
		if c.Option != "" {
			_, err = fmt.Fprintf(w, "@%s.%s.%s=%s\n", pkg, c.Section, c.OldName, c.Option)
		} else {
			_, err = fmt.Fprintf(w, "@%s.%s=%s\n", pkg, c.OldName, c.Section)
		}
	case CommandAdd, CommandChange:
		if c.Append {
			_, err = fmt.Fprintf(w, "%s+=%s\n", path, lastValue(c.Values))
		} else {
			_, err = fmt.Fprintf(w, "%s=%s\n", path, strings.Join(c.Values, " "))
		}
	default:
		err = fmt.Errorf("unknown command %d", c.Cmd)
	}
	return err
}

func lastValue(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[len(values)-1]
}
