package uci

import (
	"bufio"
	"io"

	"github.com/honeybbq/uci/pkg/ucierrors"
)

// parseContext is the transient state of one import call. It tracks the
// current position for diagnostics and the package/section being built.
// It lives only for the duration of the call; the context keeps it around
// afterwards purely so ErrorString can report where a failed parse
// stopped.
type parseContext struct {
	reason string
	line   int // 1-based line of the most recent input line
	byte   int // 0-based offset within that line

	name    string // assumed package name for headerless streams
	pkg     *Package
	section *Section
	done    []*Package // packages finalized by "package" lines
}

// parseErr 记录失败位置并构造 ParseError。
func (pc *parseContext) parseErr(reason string, at int) error {
	pc.reason = reason
	pc.byte = at
	name := pc.name
	if pc.pkg != nil {
		name = pc.pkg.name
	}
	return &ucierrors.ParseError{Package: name, Line: pc.line, Byte: at, Reason: reason}
}

// Import parses configuration text from r and stores the result in the
// context. The optional name is assumed for streams that lack a
// self-describing "package" line. A stream may declare several packages;
// the last one parsed is returned, and each replaces any loaded package of
// the same name. On failure nothing is inserted into the context and the
// parse position is available through ErrorString.
func (c *Context) Import(r io.Reader, name string) (*Package, error) {
	if c == nil || r == nil {
		return nil, errInvalidContext(c)
	}
	if name != "" && !validName(name) {
		return nil, c.fail(ucierrors.Newf(ucierrors.KindInvalid, "invalid package name %q", name))
	}

	pc := &parseContext{name: name}
	c.pctx = pc

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		pc.line++
		if err := c.parseLine(pc, scanner.Text()); err != nil {
			return nil, c.fail(err)
		}
	}
	if err := scanner.Err(); err != nil {
		pc.line++
		return nil, c.fail(ucierrors.Newf(ucierrors.KindIO, "read config: %v", err))
	}

	if pc.pkg == nil && len(pc.done) == 0 {
		pc.line++
		return nil, c.fail(pc.parseErr("no data", 0))
	}
	last := c.finalizePackage(pc)
	for _, p := range pc.done {
		c.insertPackage(p)
	}
	if last != nil {
		c.insertPackage(last)
	} else {
		last = pc.done[len(pc.done)-1]
	}
	c.pctx = nil
	return last, nil
}

// finalizePackage closes the section and package currently being built and
// returns the package, or nil if none was open.
func (c *Context) finalizePackage(pc *parseContext) *Package {
	pc.section = nil
	p := pc.pkg
	pc.pkg = nil
	if p != nil {
		p.loading = false
	}
	return p
}

// parseLine tokenizes one line and dispatches on its leading keyword.
func (c *Context) parseLine(pc *parseContext, line string) error {
	lx := lexer{src: line}
	tok, ok, err := lx.next(pc)
	if err != nil {
		return err
	}
	if !ok {
		return nil // blank line or comment
	}
	switch tok.text {
	case "package":
		return c.parsePackage(pc, &lx)
	case "config":
		return c.parseConfig(pc, &lx)
	case "option":
		return c.parseOption(pc, &lx, false)
	case "list":
		return c.parseOption(pc, &lx, true)
	}
	return pc.parseErr("unrecognized command", tok.start)
}

// assertEOL fails if any token remains on the line.
func assertEOL(pc *parseContext, lx *lexer) error {
	tok, ok, err := lx.next(pc)
	if err != nil {
		return err
	}
	if ok {
		return pc.parseErr("too many arguments", tok.start)
	}
	return nil
}

func (c *Context) parsePackage(pc *parseContext, lx *lexer) error {
	tok, ok, err := lx.next(pc)
	if err != nil {
		return err
	}
	if !ok {
		return pc.parseErr("missing package name", lx.pos)
	}
	if !validName(tok.text) {
		return pc.parseErr("invalid package name", tok.start)
	}
	if err := assertEOL(pc, lx); err != nil {
		return err
	}
	if p := c.finalizePackage(pc); p != nil {
		pc.done = append(pc.done, p)
	}
	pc.pkg = NewPackage(tok.text)
	pc.pkg.loading = true
	return nil
}

func (c *Context) parseConfig(pc *parseContext, lx *lexer) error {
	typTok, ok, err := lx.next(pc)
	if err != nil {
		return err
	}
	if !ok {
		return pc.parseErr("missing section type", lx.pos)
	}
	if !validType(typTok.text) {
		return pc.parseErr("invalid section type", typTok.start)
	}
	var name string
	nameTok, ok, err := lx.next(pc)
	if err != nil {
		return err
	}
	if ok {
		if !validName(nameTok.text) {
			return pc.parseErr("invalid section name", nameTok.start)
		}
		name = nameTok.text
		if err := assertEOL(pc, lx); err != nil {
			return err
		}
	}

	if pc.pkg == nil {
		if pc.name == "" {
			return pc.parseErr("attempting to import a file without a package name", typTok.start)
		}
		pc.pkg = NewPackage(pc.name)
		pc.pkg.loading = true
	}

	section, err := pc.pkg.AddSection(typTok.text, name)
	if err != nil {
		// Duplicate explicit section names are a parse error at this line.
		return pc.parseErr("duplicate section name", typTok.start)
	}
	pc.section = section
	return nil
}

func (c *Context) parseOption(pc *parseContext, lx *lexer, list bool) error {
	nameTok, ok, err := lx.next(pc)
	if err != nil {
		return err
	}
	if !ok {
		return pc.parseErr("missing option name", lx.pos)
	}
	if !validName(nameTok.text) {
		return pc.parseErr("invalid option name", nameTok.start)
	}
	valTok, ok, err := lx.next(pc)
	if err != nil {
		return err
	}
	if !ok {
		return pc.parseErr("missing option value", lx.pos)
	}
	if err := assertEOL(pc, lx); err != nil {
		return err
	}
	if pc.section == nil {
		return pc.parseErr("option/list command found before the first section", nameTok.start)
	}

	s := pc.section
	if list {
		_, err = s.AddList(nameTok.text, valTok.text)
		return err
	}
	// A repeated option name during parse replaces the previous value,
	// matching `uci set` semantics for re-read files.
	if existing := s.Option(nameTok.text); existing != nil {
		existing.values = []string{valTok.text}
		existing.list = false
		return nil
	}
	_, err = s.AddOption(nameTok.text, valTok.text)
	return err
}
