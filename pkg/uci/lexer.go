package uci

// token is one shell-like word extracted from a line, with the byte offset
// it started at (for diagnostics).
type token struct {
	text  string
	start int
}

// lexer splits a single line into shell-like tokens: unquoted runs of
// non-whitespace, or single/double-quoted strings with backslash escaping.
// The position is maintained continuously so parse errors carry the exact
// byte offset, even inside quoted multi-word values.
type lexer struct {
	src string
	pos int
}

// next returns the next token on the line. ok is false at end of line or
// when the remainder is a comment.
func (lx *lexer) next(pc *parseContext) (tok token, ok bool, err error) {
	for lx.pos < len(lx.src) && isSpace(lx.src[lx.pos]) {
		lx.pos++
	}
	if lx.pos >= len(lx.src) {
		return token{}, false, nil
	}
	if lx.src[lx.pos] == '#' {
		lx.pos = len(lx.src)
		return token{}, false, nil
	}

	start := lx.pos
	var out []byte
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		switch {
		case isSpace(c):
			return token{text: string(out), start: start}, true, nil
		case c == '\'' || c == '"':
			quote := c
			lx.pos++
			closed := false
			for lx.pos < len(lx.src) {
				q := lx.src[lx.pos]
				if q == '\\' {
					lx.pos++
					if lx.pos >= len(lx.src) {
						return token{}, false, pc.parseErr("invalid escape sequence", lx.pos)
					}
					out = append(out, lx.src[lx.pos])
					lx.pos++
					continue
				}
				if q == quote {
					closed = true
					lx.pos++
					break
				}
				out = append(out, q)
				lx.pos++
			}
			if !closed {
				return token{}, false, pc.parseErr("unterminated quote", lx.pos)
			}
		case c == '\\':
			lx.pos++
			if lx.pos >= len(lx.src) {
				return token{}, false, pc.parseErr("invalid escape sequence", lx.pos)
			}
			out = append(out, lx.src[lx.pos])
			lx.pos++
		default:
			out = append(out, c)
			lx.pos++
		}
	}
	return token{text: string(out), start: start}, true, nil
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r'
}
