package errors

import (
	"fmt"
	"strings"
)

// ErrorKind separates structural problems in the text from chemical problems
// in the graph the text describes.
type ErrorKind int

const (
	// KindSyntax covers unmatched brackets, unexpected characters, malformed
	// charge or ring-digit tokens and incomplete reactions.
	KindSyntax ErrorKind = iota
	// KindSemantic covers duplicate bonds, unclosed rings, rings spanning
	// molecules and valence violations.
	KindSemantic
)

func (k ErrorKind) String() string {
	if k == KindSemantic {
		return "Semantic Error"
	}
	return "Syntax Error"
}

// ParseError is a fatal notation error. Offset is a byte offset into Text,
// the full top-level input, and Span is the minimal offending substring.
type ParseError struct {
	Kind    ErrorKind
	Message string
	Offset  int
	Span    string
	Text    string
	// Context holds the enclosing parse frames, outermost first.
	Context []string
}

// NewSyntaxError builds a KindSyntax ParseError.
func NewSyntaxError(offset int, span string, format string, args ...interface{}) *ParseError {
	return &ParseError{Kind: KindSyntax, Offset: offset, Span: span, Message: fmt.Sprintf(format, args...)}
}

// NewSemanticError builds a KindSemantic ParseError.
func NewSemanticError(offset int, span string, format string, args ...interface{}) *ParseError {
	return &ParseError{Kind: KindSemantic, Offset: offset, Span: span, Message: fmt.Sprintf(format, args...)}
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	var sb strings.Builder
	for _, c := range e.Context {
		sb.WriteString(c)
		sb.WriteString(": ")
	}
	fmt.Fprintf(&sb, "%s: %s (offset %d)", e.Kind, e.Message, e.Offset)
	return sb.String()
}

// Code maps the kind onto the notation error codes.
func (e *ParseError) Code() ErrorCode {
	if e.Kind == KindSemantic {
		return ErrCodeNotationSemantic
	}
	return ErrCodeNotationSyntax
}

// WithContext prepends an enclosing frame description and returns e.
func (e *ParseError) WithContext(frame string) *ParseError {
	e.Context = append([]string{frame}, e.Context...)
	return e
}

// Underline renders Text with a caret under Offset and tildes under the rest
// of Span:
//
//	CC(C
//	  ^~~
func (e *ParseError) Underline() string {
	if e.Text == "" {
		return ""
	}
	off := e.Offset
	if off < 0 {
		off = 0
	}
	if off > len(e.Text) {
		off = len(e.Text)
	}
	width := len(e.Span)
	if width < 1 {
		width = 1
	}
	return e.Text + "\n" + strings.Repeat(" ", off) + "^" + strings.Repeat("~", width-1)
}
