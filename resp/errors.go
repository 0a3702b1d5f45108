package resp

import (
	"errors"
	"strings"
)

// ErrIncomplete is returned from Decoder.Reply when the bytes fed so far don't
// yet make up a whole reply. It is not a failure; Reply should be called again
// once more bytes have been fed.
var ErrIncomplete = errors.New("resp: incomplete reply")

// ProtocolError is the error the Decoder returns by default when it encounters
// malformed framing. Once one is returned everything the Decoder had buffered
// has been discarded, and the stream it was reading should be considered
// unusable.
type ProtocolError struct {
	Msg string
}

func (e *ProtocolError) Error() string {
	return e.Msg
}

func newProtocolError(msg string) error {
	return &ProtocolError{Msg: msg}
}

// ReplyError is the value the Decoder builds by default for every error reply
// ("-...") it decodes. Code is the leading upper-case word of the reply (e.g.
// "ERR", "WRONGTYPE", "NOSCRIPT"), if there is one, and Msg is the rest.
type ReplyError struct {
	Code string
	Msg  string
}

func (e ReplyError) Error() string {
	switch {
	case e.Code == "":
		return e.Msg
	case e.Msg == "":
		return e.Code
	}
	return e.Code + " " + e.Msg
}

// ParseReplyError builds a ReplyError from the body of an error reply. It is
// the Decoder's default reply error function.
func ParseReplyError(line string) error {
	code, msg := line, ""
	if i := strings.IndexByte(line, ' '); i >= 0 {
		code, msg = line[:i], line[i+1:]
	}
	if !isErrCode(code) {
		return ReplyError{Msg: line}
	}
	return ReplyError{Code: code, Msg: msg}
}

func isErrCode(s string) bool {
	var letter bool
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c >= 'A' && c <= 'Z':
			letter = true
		case c == '_' || (c >= '0' && c <= '9'):
		default:
			return false
		}
	}
	return letter
}
