package uci

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/honeybbq/uci/pkg/ucierrors"
)

// Export serializes one package (or, when pkg is nil, every loaded package
// in load order) back to configuration text, including the "package"
// header line. The output reflects the current graph; history records play
// no part here (see ExportChanges for the delta view).
func (c *Context) Export(w io.Writer, pkg *Package) error {
	if c == nil || w == nil {
		return errInvalidContext(c)
	}
	packages := c.packages
	if pkg != nil {
		if pkg.ctx != c {
			return c.fail(ucierrors.Newf(ucierrors.KindNotFound, "package %q not owned by this context", pkg.name))
		}
		packages = []*Package{pkg}
	}
	for i, p := range packages {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return c.fail(ucierrors.New(ucierrors.KindIO, err))
			}
		}
		if err := p.Serialize(w, true); err != nil {
			return c.fail(err)
		}
	}
	return nil
}

// Serialize writes the package as configuration text. The header flag
// controls the leading "package <name>" line: on for multi-package
// streams, off for the one-file-per-package on-disk layout.
func (p *Package) Serialize(w io.Writer, header bool) error {
	data, err := serializePackage(p, header)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return ucierrors.New(ucierrors.KindIO, err)
	}
	return nil
}

func serializePackage(p *Package, header bool) ([]byte, error) {
	if p == nil {
		return nil, ucierrors.Newf(ucierrors.KindInvalid, "nil package")
	}
	var b bytes.Buffer
	if header {
		fmt.Fprintf(&b, "package %s\n\n", p.name)
	}
	for i, s := range p.sections {
		if i > 0 {
			b.WriteByte('\n')
		}
		if s.anonymous {
			fmt.Fprintf(&b, "config %s\n", s.typ)
		} else {
			fmt.Fprintf(&b, "config %s '%s'\n", s.typ, s.name)
		}
		for _, o := range s.options {
			if o.list {
				for _, v := range o.values {
					fmt.Fprintf(&b, "\tlist %s '%s'\n", o.name, escapeValue(v))
				}
			} else {
				fmt.Fprintf(&b, "\toption %s '%s'\n", o.name, escapeValue(o.Value()))
			}
		}
	}
	return b.Bytes(), nil
}

// escapeValue makes a value safe inside a single-quoted token. The parser
// treats backslash as an escape inside quotes, so escaping backslash and
// the quote character is sufficient for round-tripping.
func escapeValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	return strings.ReplaceAll(v, "'", `\'`)
}
