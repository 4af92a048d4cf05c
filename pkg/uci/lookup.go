package uci

import "github.com/honeybbq/uci/pkg/ucierrors"

// Lookup resolves a package/section/option path to an element. Matching is
// by exact, case-sensitive name at each level; there is no globbing.
// An empty section name returns the package; an empty option name returns
// the section. Naming an option without a section is an invalid-argument
// error; any missing level is not-found.
func (c *Context) Lookup(pkg, section, option string) (Element, error) {
	if c == nil {
		return nil, errInvalidContext(c)
	}
	if pkg == "" {
		return nil, c.fail(ucierrors.Newf(ucierrors.KindInvalid, "package name required"))
	}
	if section == "" && option != "" {
		return nil, c.fail(ucierrors.Newf(ucierrors.KindInvalid, "option lookup requires a section"))
	}

	p := c.Package(pkg)
	if p == nil {
		return nil, c.fail(ucierrors.Newf(ucierrors.KindNotFound, "package %q not loaded", pkg))
	}
	if section == "" {
		return p, nil
	}
	s := p.Section(section)
	if s == nil {
		return nil, c.fail(ucierrors.Newf(ucierrors.KindNotFound, "section %q not found in package %q", section, pkg))
	}
	if option == "" {
		return s, nil
	}
	o := s.Option(option)
	if o == nil {
		return nil, c.fail(ucierrors.Newf(ucierrors.KindNotFound, "option %q not found in %s.%s", option, pkg, section))
	}
	return o, nil
}
