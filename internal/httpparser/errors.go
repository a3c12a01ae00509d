package httpparser

import (
	"errors"
	"fmt"
)

// ErrParserBad names the MessageBad condition. Parse itself returns no
// error: once the parser is bad it returns false and IsBad reports true
// until Reset is called (spec.md §4.I).
var ErrParserBad = errors.New("httpparser: parser is in the bad state")

// ParseError carries the full diagnostic spec.md §4.I requires:
// {char, pos, line, col, msg}.
type ParseError struct {
	Char byte
	Pos  int
	Line int
	Col  int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("httpparser: %s (char=%q pos=%d line=%d col=%d)", e.Msg, e.Char, e.Pos, e.Line, e.Col)
}
