package ucierrors

import (
	"errors"
	"fmt"
)

// Kind identifies the high level class of an error surfaced by the uci runtime.
type Kind string

const (
	// KindInvalid indicates a contract-violating argument (nil input,
	// duplicate name, wrong lookup arity).
	KindInvalid Kind = "invalid"
	// KindNotFound indicates an unknown package/section/option name.
	KindNotFound Kind = "notfound"
	// KindIO indicates a stream read/write failure.
	KindIO Kind = "io"
	// KindParse indicates malformed configuration text.
	KindParse Kind = "parse"
	// KindInternal 表示未知或内部错误。
	KindInternal Kind = "internal"
)

// Error 包装底层错误并附加 Kind，方便调用方根据类型处理。
type Error struct {
	Kind Kind
	Err  error
}

// Error 实现 error 接口。
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

// Unwrap 允许 errors.Is/As 访问底层错误。
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New 创建指定 Kind 的错误。
func New(kind Kind, err error) error {
	if err == nil {
		err = errors.New(string(kind))
	}
	return &Error{Kind: kind, Err: err}
}

// Newf is shorthand for New(kind, fmt.Errorf(...)).
func Newf(kind Kind, format string, args ...any) error {
	return New(kind, fmt.Errorf(format, args...))
}

// KindOf extracts the Kind from an error chain.
// Returns KindInternal for errors that did not originate here.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var pe *ParseError
	if errors.As(err, &pe) {
		return KindParse
	}
	return KindInternal
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// ParseError describes malformed configuration text. It always carries the
// line number and the byte offset within that line where parsing stopped.
type ParseError struct {
	Package string // package being parsed, may be empty
	Line    int    // 1-based line number
	Byte    int    // 0-based byte offset within the line
	Reason  string
}

// Error 实现 error 接口。
func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}
	if e.Package != "" {
		return fmt.Sprintf("%s: %s at line %d, byte %d", e.Package, e.Reason, e.Line, e.Byte)
	}
	return fmt.Sprintf("%s at line %d, byte %d", e.Reason, e.Line, e.Byte)
}
