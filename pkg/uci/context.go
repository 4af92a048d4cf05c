package uci

import (
	"errors"
	"fmt"
	"io"

	"github.com/honeybbq/uci/pkg/ucierrors"
)

// Store resolves configuration names to streams. It is the injected
// boundary between the runtime and whatever holds the configuration files
// (a directory, an overlay, a test fixture); the core never assumes a
// transport. See pkg/confdir for the directory-backed implementation.
type Store interface {
	// ListConfigs enumerates the available configuration names.
	ListConfigs() ([]string, error)
	// Open returns a character stream for the named configuration.
	Open(name string) (io.ReadCloser, error)
	// Write persists serialized configuration text under the given name.
	Write(name string, data []byte) error
}

// Context is the root handle owning all loaded packages. Contexts are
// independent of each other and hold no process-wide state. A context must
// only be used from one goroutine at a time.
type Context struct {
	packages []*Package
	store    Store

	lastErr error
	pctx    *parseContext // diagnostics from the most recent import
}

// ContextOption configures a Context at construction time.
type ContextOption func(*Context)

// WithStore injects the store during construction, equivalent to calling
// SetStore afterwards.
func WithStore(store Store) ContextOption {
	return func(c *Context) { c.store = store }
}

// NewContext creates a fresh, empty context.
func NewContext(opts ...ContextOption) *Context {
	c := &Context{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetStore injects the name→stream resolver used by Load, Unload, Commit
// and ListConfigs.
func (c *Context) SetStore(store Store) {
	c.store = store
}

// Packages returns the loaded packages in load order.
// The returned slice must not be modified.
func (c *Context) Packages() []*Package { return c.packages }

// Package returns the loaded package with the given name, or nil.
func (c *Context) Package(name string) *Package {
	for _, p := range c.packages {
		if p.name == name {
			return p
		}
	}
	return nil
}

// Close releases the context: every package, its sections, options and
// history log are discarded. The context must not be used afterwards.
func (c *Context) Close() {
	for _, p := range c.packages {
		p.ctx = nil
	}
	c.packages = nil
	c.store = nil
	c.pctx = nil
	c.lastErr = nil
}

// Cleanup discards the parse diagnostics and any partially-built state
// left over from a failed import, and clears the last error.
func (c *Context) Cleanup() {
	c.pctx = nil
	c.lastErr = nil
}

// LastError returns the error recorded by the most recent failed
// operation, or nil.
func (c *Context) LastError() error { return c.lastErr }

// ErrorString renders the last error prefixed by the given string, in the
// classic perror style. Parse errors include the line number and byte
// offset of the failure.
func (c *Context) ErrorString(prefix string) string {
	if c.lastErr == nil {
		return fmt.Sprintf("%s: success", prefix)
	}
	var pe *ucierrors.ParseError
	if errors.As(c.lastErr, &pe) {
		return fmt.Sprintf("%s: %s", prefix, pe.Error())
	}
	return fmt.Sprintf("%s: %v", prefix, c.lastErr)
}

// fail records err as the context's last error and returns it unchanged.
func (c *Context) fail(err error) error {
	c.lastErr = err
	return err
}

func errInvalidContext(c *Context) error {
	err := ucierrors.Newf(ucierrors.KindInvalid, "nil context or stream")
	if c != nil {
		c.lastErr = err
	}
	return err
}

// insertPackage adds p to the context's package list, tearing down any
// previously loaded package of the same name first.
func (c *Context) insertPackage(p *Package) {
	for i, old := range c.packages {
		if old.name == p.name {
			old.ctx = nil
			p.ctx = c
			c.packages[i] = p
			return
		}
	}
	p.ctx = c
	c.packages = append(c.packages, p)
}

// Load resolves a configuration name through the injected store and
// imports it. The resulting package replaces any loaded package of the
// same name.
func (c *Context) Load(name string) (*Package, error) {
	if c == nil {
		return nil, errInvalidContext(c)
	}
	if !validName(name) {
		return nil, c.fail(ucierrors.Newf(ucierrors.KindInvalid, "invalid config name %q", name))
	}
	if c.store == nil {
		return nil, c.fail(ucierrors.Newf(ucierrors.KindInvalid, "no store configured"))
	}
	r, err := c.store.Open(name)
	if err != nil {
		return nil, c.fail(ucierrors.Newf(ucierrors.KindNotFound, "open config %q: %v", name, err))
	}
	defer r.Close()
	return c.Import(r, name)
}

// Unload removes the named package and everything it owns from the
// context.
func (c *Context) Unload(name string) error {
	if c == nil {
		return errInvalidContext(c)
	}
	for i, p := range c.packages {
		if p.name == name {
			p.ctx = nil
			c.packages = append(c.packages[:i], c.packages[i+1:]...)
			return nil
		}
	}
	return c.fail(ucierrors.Newf(ucierrors.KindNotFound, "package %q not loaded", name))
}

// ListConfigs enumerates the configuration names available through the
// injected store.
func (c *Context) ListConfigs() ([]string, error) {
	if c == nil {
		return nil, errInvalidContext(c)
	}
	if c.store == nil {
		return nil, c.fail(ucierrors.Newf(ucierrors.KindInvalid, "no store configured"))
	}
	names, err := c.store.ListConfigs()
	if err != nil {
		return nil, c.fail(ucierrors.New(ucierrors.KindIO, err))
	}
	return names, nil
}

// Commit persists the package through the injected store and clears its
// history log. The serialized form has no "package" header line, matching
// the on-disk layout of one file per package.
func (c *Context) Commit(p *Package) error {
	if c == nil || p == nil {
		return errInvalidContext(c)
	}
	if p.ctx != c {
		return c.fail(ucierrors.Newf(ucierrors.KindNotFound, "package %q not owned by this context", p.name))
	}
	if c.store == nil {
		return c.fail(ucierrors.Newf(ucierrors.KindInvalid, "no store configured"))
	}
	buf, err := serializePackage(p, false)
	if err != nil {
		return c.fail(err)
	}
	if err := c.store.Write(p.name, buf); err != nil {
		return c.fail(ucierrors.Newf(ucierrors.KindIO, "write config %q: %v", p.name, err))
	}
	p.history = nil
	return nil
}

// Delete removes an element from the graph. Removing a section cascades to
// its options; removing a package removes all of its sections and its
// history log. Section and option removals append a history record with a
// snapshot sufficient to undo.
func (c *Context) Delete(el Element) error {
	if c == nil || el == nil {
		return errInvalidContext(c)
	}
	switch v := el.(type) {
	case *Package:
		if v.ctx != c {
			return c.fail(ucierrors.Newf(ucierrors.KindNotFound, "package %q not owned by this context", v.name))
		}
		return c.Unload(v.name)

	case *Section:
		p := v.pkg
		if p == nil || p.ctx != c {
			return c.fail(ucierrors.Newf(ucierrors.KindNotFound, "section %q not owned by this context", v.name))
		}
		idx := p.removeSection(v)
		if idx < 0 {
			return c.fail(ucierrors.Newf(ucierrors.KindNotFound, "section %q not found", v.name))
		}
		snapshot := v.cloneInto(nil)
		p.record(&Change{Cmd: CommandRemove, Section: v.name, OldSection: snapshot, Index: idx})
		v.pkg = nil
		return nil

	case *Option:
		s := v.section
		if s == nil || s.pkg == nil || s.pkg.ctx != c {
			return c.fail(ucierrors.Newf(ucierrors.KindNotFound, "option %q not owned by this context", v.name))
		}
		idx := s.removeOption(v)
		if idx < 0 {
			return c.fail(ucierrors.Newf(ucierrors.KindNotFound, "option %q not found", v.name))
		}
		s.pkg.record(&Change{
			Cmd: CommandRemove, Section: s.name, Option: v.name,
			OldValues: append([]string(nil), v.values...), OldList: v.list,
			Index: idx,
		})
		v.section = nil
		return nil
	}
	return c.fail(ucierrors.Newf(ucierrors.KindInternal, "unknown element type"))
}
