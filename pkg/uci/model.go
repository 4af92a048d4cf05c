package uci

import (
	"fmt"

	"github.com/honeybbq/uci/pkg/ucierrors"
)

// Package is one configuration file's in-memory representation: an ordered
// collection of sections plus the history log of edits applied since it
// was parsed.
type Package struct {
	name string
	ctx  *Context // navigational back-reference, nil while detached

	sections []*Section
	history  []*Change

	nAnon   int  // counter feeding synthesized section names
	loading bool // true while the parser populates the package
}

// NewPackage creates a detached package that is not owned by any context.
// Detached packages record no history; they are used by code that builds
// configuration programmatically (e.g. the NetJSON bridge) and serialises
// it directly.
func NewPackage(name string) *Package {
	return &Package{name: name}
}

// Name returns the package name (the configuration's identifier).
func (p *Package) Name() string { return p.name }

// ElementType implements Element.
func (p *Package) ElementType() ElementType { return TypePackage }

func (p *Package) sealed() {}

// Context returns the owning context, or nil for detached packages.
func (p *Package) Context() *Context { return p.ctx }

// Sections returns the package's sections in insertion order.
// The returned slice must not be modified.
func (p *Package) Sections() []*Section { return p.sections }

// Section returns the section with the given name, or nil.
func (p *Package) Section(name string) *Section {
	for _, s := range p.sections {
		if s.name == name {
			return s
		}
	}
	return nil
}

// Section is a typed grouping of options within a package. Sections
// declared without an explicit name are anonymous and carry a synthesized
// internal name.
type Section struct {
	name      string
	typ       string
	anonymous bool
	pkg       *Package

	options []*Option
}

// Name returns the section name; for anonymous sections this is the
// synthesized name.
func (s *Section) Name() string { return s.name }

// Type returns the section's type string (e.g. "interface", "wifi-device").
func (s *Section) Type() string { return s.typ }

// Anonymous reports whether the section was declared without a name.
func (s *Section) Anonymous() bool { return s.anonymous }

// ElementType implements Element.
func (s *Section) ElementType() ElementType { return TypeSection }

func (s *Section) sealed() {}

// Package returns the owning package.
func (s *Section) Package() *Package { return s.pkg }

// Options returns the section's options in insertion order.
// The returned slice must not be modified.
func (s *Section) Options() []*Option { return s.options }

// Option returns the option with the given name, or nil.
func (s *Section) Option(name string) *Option {
	for _, o := range s.options {
		if o.name == name {
			return o
		}
	}
	return nil
}

// Value returns the value of the named option, or "" if it is absent.
func (s *Section) Value(name string) string {
	if o := s.Option(name); o != nil {
		return o.Value()
	}
	return ""
}

// Option is a single named value (or list of values) within a section.
type Option struct {
	name    string
	values  []string
	list    bool
	section *Section
}

// Name returns the option name.
func (o *Option) Name() string { return o.name }

// ElementType implements Element.
func (o *Option) ElementType() ElementType { return TypeOption }

func (o *Option) sealed() {}

// Section returns the owning section.
func (o *Option) Section() *Section { return o.section }

// IsList reports whether the option holds repeated values ("list" lines).
func (o *Option) IsList() bool { return o.list }

// Value returns the option's value. For list options it returns the first
// value; use Values for the full set.
func (o *Option) Value() string {
	if len(o.values) == 0 {
		return ""
	}
	return o.values[0]
}

// Values returns all values of the option in insertion order.
// The returned slice must not be modified.
func (o *Option) Values() []string { return o.values }

// AddSection appends a new section of the given type. An empty name
// creates an anonymous section with a synthesized unique name. The call
// fails with an invalid kind if the type or name is malformed or the name
// already exists in the package.
func (p *Package) AddSection(typ, name string) (*Section, error) {
	if !validType(typ) {
		return nil, p.fail(ucierrors.Newf(ucierrors.KindInvalid, "invalid section type %q", typ))
	}
	anonymous := name == ""
	if anonymous {
		name = p.nextAnonymousName()
	} else {
		if !validName(name) {
			return nil, p.fail(ucierrors.Newf(ucierrors.KindInvalid, "invalid section name %q", name))
		}
		if p.Section(name) != nil {
			return nil, p.fail(ucierrors.Newf(ucierrors.KindInvalid, "duplicate section %q in package %q", name, p.name))
		}
	}
	s := &Section{name: name, typ: typ, anonymous: anonymous, pkg: p}
	p.sections = append(p.sections, s)
	p.record(&Change{Cmd: CommandAdd, Section: s.name, Values: []string{typ}})
	return s, nil
}

// nextAnonymousName synthesizes a per-package unique name for an anonymous
// section. The "cfg" prefix plus counter keeps the form examinable; the
// Anonymous flag remains the authoritative marker.
func (p *Package) nextAnonymousName() string {
	for {
		p.nAnon++
		name := fmt.Sprintf("cfg%06x", p.nAnon)
		if p.Section(name) == nil {
			return name
		}
	}
}

// AddOption appends a single-value option. It fails with an invalid kind
// if the name is malformed or already present in the section.
func (s *Section) AddOption(name, value string) (*Option, error) {
	if !validName(name) {
		return nil, s.pkg.fail(ucierrors.Newf(ucierrors.KindInvalid, "invalid option name %q", name))
	}
	if s.Option(name) != nil {
		return nil, s.pkg.fail(ucierrors.Newf(ucierrors.KindInvalid, "duplicate option %q in section %q", name, s.name))
	}
	o := &Option{name: name, values: []string{value}, section: s}
	s.options = append(s.options, o)
	s.pkg.record(&Change{Cmd: CommandAdd, Section: s.name, Option: name, Values: []string{value}})
	return o, nil
}

// AddList appends a value to the named list option, creating the option if
// it does not exist. An existing single-value option of the same name is
// converted to a list, mirroring how the parser treats a "list" line after
// an "option" line.
func (s *Section) AddList(name, value string) (*Option, error) {
	if !validName(name) {
		return nil, s.pkg.fail(ucierrors.Newf(ucierrors.KindInvalid, "invalid option name %q", name))
	}
	o := s.Option(name)
	if o == nil {
		o = &Option{name: name, values: []string{value}, list: true, section: s}
		s.options = append(s.options, o)
		s.pkg.record(&Change{Cmd: CommandAdd, Section: s.name, Option: name, Values: []string{value}, List: true})
		return o, nil
	}
	prior := append([]string(nil), o.values...)
	priorList := o.list
	o.values = append(o.values, value)
	o.list = true
	s.pkg.record(&Change{
		Cmd: CommandChange, Section: s.name, Option: name,
		Values: append([]string(nil), o.values...), List: true, Append: true,
		OldValues: prior, OldList: priorList,
	})
	return o, nil
}

// Set stores a single-value option, creating it if absent and replacing
// its value otherwise.
func (s *Section) Set(name, value string) (*Option, error) {
	o := s.Option(name)
	if o == nil {
		return s.AddOption(name, value)
	}
	if err := o.SetValue(value); err != nil {
		return nil, err
	}
	return o, nil
}

// SetValue replaces the value of a single-value option. Calling it on a
// list option fails with an invalid kind; use SetList.
func (o *Option) SetValue(value string) error {
	if o.list {
		return o.section.pkg.fail(ucierrors.Newf(ucierrors.KindInvalid, "option %q is a list", o.name))
	}
	prior := append([]string(nil), o.values...)
	o.values = []string{value}
	o.section.pkg.record(&Change{
		Cmd: CommandChange, Section: o.section.name, Option: o.name,
		Values: []string{value}, OldValues: prior,
	})
	return nil
}

// SetList replaces all values of a list option.
func (o *Option) SetList(values ...string) error {
	if !o.list {
		return o.section.pkg.fail(ucierrors.Newf(ucierrors.KindInvalid, "option %q is not a list", o.name))
	}
	if len(values) == 0 {
		return o.section.pkg.fail(ucierrors.Newf(ucierrors.KindInvalid, "list option %q requires at least one value", o.name))
	}
	prior := append([]string(nil), o.values...)
	o.values = append([]string(nil), values...)
	o.section.pkg.record(&Change{
		Cmd: CommandChange, Section: o.section.name, Option: o.name,
		Values: append([]string(nil), values...), List: true,
		OldValues: prior, OldList: true,
	})
	return nil
}

// Rename gives the section a new explicit name. Renaming clears the
// anonymous flag.
func (s *Section) Rename(name string) error {
	if !validName(name) {
		return s.pkg.fail(ucierrors.Newf(ucierrors.KindInvalid, "invalid section name %q", name))
	}
	if other := s.pkg.Section(name); other != nil && other != s {
		return s.pkg.fail(ucierrors.Newf(ucierrors.KindInvalid, "duplicate section %q in package %q", name, s.pkg.name))
	}
	old := s.name
	wasAnonymous := s.anonymous
	s.name = name
	s.anonymous = false
	s.pkg.record(&Change{Cmd: CommandRename, Section: name, OldName: old, OldAnonymous: wasAnonymous})
	return nil
}

// Rename gives the option a new name unique within its section.
func (o *Option) Rename(name string) error {
	if !validName(name) {
		return o.section.pkg.fail(ucierrors.Newf(ucierrors.KindInvalid, "invalid option name %q", name))
	}
	if other := o.section.Option(name); other != nil && other != o {
		return o.section.pkg.fail(ucierrors.Newf(ucierrors.KindInvalid, "duplicate option %q in section %q", name, o.section.name))
	}
	old := o.name
	o.name = name
	o.section.pkg.record(&Change{Cmd: CommandRename, Section: o.section.name, Option: name, OldName: old})
	return nil
}

// Clone returns a deep copy of the package, detached from any context.
// The history log is copied so the clone can be reverted independently.
func (p *Package) Clone() *Package {
	clone := &Package{name: p.name, nAnon: p.nAnon}
	for _, s := range p.sections {
		clone.sections = append(clone.sections, s.cloneInto(clone))
	}
	clone.history = append([]*Change(nil), p.history...)
	return clone
}

func (s *Section) cloneInto(pkg *Package) *Section {
	cs := &Section{name: s.name, typ: s.typ, anonymous: s.anonymous, pkg: pkg}
	for _, o := range s.options {
		cs.options = append(cs.options, &Option{
			name:    o.name,
			values:  append([]string(nil), o.values...),
			list:    o.list,
			section: cs,
		})
	}
	return cs
}

// removeSection detaches the section, preserving the order of the rest.
func (p *Package) removeSection(target *Section) int {
	for i, s := range p.sections {
		if s == target {
			p.sections = append(p.sections[:i], p.sections[i+1:]...)
			return i
		}
	}
	return -1
}

func (s *Section) removeOption(target *Option) int {
	for i, o := range s.options {
		if o == target {
			s.options = append(s.options[:i], s.options[i+1:]...)
			return i
		}
	}
	return -1
}

func (s *Section) insertOptionAt(o *Option, idx int) {
	if idx < 0 || idx >= len(s.options) {
		s.options = append(s.options, o)
		return
	}
	s.options = append(s.options[:idx], append([]*Option{o}, s.options[idx:]...)...)
}

func (p *Package) insertSectionAt(s *Section, idx int) {
	if idx < 0 || idx >= len(p.sections) {
		p.sections = append(p.sections, s)
		return
	}
	p.sections = append(p.sections[:idx], append([]*Section{s}, p.sections[idx:]...)...)
}

// ValidName reports whether s is a legal package/section/option name:
// letters, digits, '_' and '-'.
func ValidName(s string) bool {
	return validName(s)
}

func validName(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_', c == '-':
		default:
			return false
		}
	}
	return true
}

// validType accepts the same character set as names; section types like
// "wifi-device" rely on '-' being legal.
func validType(s string) bool {
	return validName(s)
}
