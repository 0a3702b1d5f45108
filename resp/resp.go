// Package resp implements an incremental codec for the REdis Serialization
// Protocol (RESP).
//
// Decoder turns an arbitrarily fragmented stream of bytes, fed to it as they
// arrive, into a sequence of Replies. It never performs I/O itself and never
// blocks: when the bytes it holds don't yet make up a whole reply it returns
// ErrIncomplete and picks up where it left off on the next call. Arrays may be
// nested to any depth without the Decoder recursing.
//
// Encoder goes the other way, packing a command and its arguments into the
// multi-bulk request format redis expects.
package resp

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/mediocregopher/respfeed/internal/bytesutil"
)

var (
	delim    = []byte{'\r', '\n'}
	delimLen = len(delim)
)

var (
	simpleStrPrefix = []byte{'+'}
	errPrefix       = []byte{'-'}
	intPrefix       = []byte{':'}
	bulkStrPrefix   = []byte{'$'}
	arrayPrefix     = []byte{'*'}
	nilBulkStr      = []byte("$-1\r\n")
	nilArray        = []byte("*-1\r\n")
)

// Marshaler is the interface implemented by types that can marshal themselves
// into valid RESP.
type Marshaler interface {
	MarshalRESP(io.Writer) error
}

// LenReader adds an additional method to io.Reader, returning how many bytes
// are left till be read until an io.EOF is reached.
type LenReader interface {
	io.Reader
	Len() int64
}

type lenReader struct {
	r io.Reader
	l int64
}

// NewLenReader wraps an existing io.Reader whose length is known so that it
// implements LenReader
func NewLenReader(r io.Reader, l int64) LenReader {
	return &lenReader{r: r, l: l}
}

func (lr *lenReader) Read(b []byte) (int, error) {
	n, err := lr.r.Read(b)
	lr.l -= int64(n)
	return n, err
}

func (lr *lenReader) Len() int64 {
	return lr.l
}

// ErrConnUsable is used to wrap an error which was decoded off of a
// connection, as opposed to one which happened while decoding. It declares
// that the connection is still healthy and that there are no partially read
// messages on the stream.
type ErrConnUsable struct {
	Err error
}

// ErrConnUnusable takes an existing error and, if it is wrapped in an
// ErrConnUsable, unwraps the ErrConnUsable from around it.
func ErrConnUnusable(err error) error {
	if err == nil {
		return nil
	} else if errConnUsable := (ErrConnUsable{}); errors.As(err, &errConnUsable) {
		return errConnUsable.Err
	}
	return err
}

func (ed ErrConnUsable) Error() string {
	return ed.Err.Error()
}

// Unwrap implements the errors.Wrapper interface.
func (ed ErrConnUsable) Unwrap() error {
	return ed.Err
}

// Type enumerates the kinds of reply which can be found on the wire.
type Type int

// All possible values of Type.
const (
	TypeSimpleStr Type = iota
	TypeErr
	TypeInt
	TypeBulkStr
	TypeArray
)

var typeNames = [...]string{
	TypeSimpleStr: "simple-string",
	TypeErr:       "error",
	TypeInt:       "int",
	TypeBulkStr:   "bulk-string",
	TypeArray:     "array",
}

func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return "Type(" + strconv.Itoa(int(t)) + ")"
	}
	return typeNames[t]
}

// Reply is a single decoded RESP value. Which of its fields are meaningful
// depends on its Type.
type Reply struct {
	Type Type

	// Str holds the body of TypeSimpleStr and TypeBulkStr replies. It is
	// never nil for a non-Nil reply of either type.
	Str []byte

	// Int holds the value of a TypeInt reply.
	Int int64

	// Err holds the value of a TypeErr reply, as built by the Decoder's reply
	// error function.
	Err error

	// Arr holds the elements of a TypeArray reply. It is never nil for a
	// non-Nil array.
	Arr []Reply

	// Nil is set for nil bulk strings ("$-1") and nil arrays ("*-1"), which
	// are distinct from empty ones.
	Nil bool

	// Text is set on TypeBulkStr replies whose Str was transcoded to UTF-8
	// from the Decoder's text encoding.
	Text bool
}

var _ Marshaler = Reply{}

// MarshalRESP writes the Reply to w using the wire form of its own Type.
func (r Reply) MarshalRESP(w io.Writer) error {
	scratch := bytesutil.GetBytes()
	defer bytesutil.PutBytes(scratch)
	*scratch = appendReply(*scratch, r)
	_, err := w.Write(*scratch)
	return err
}

func appendReply(b []byte, r Reply) []byte {
	switch r.Type {
	case TypeSimpleStr:
		b = append(b, simpleStrPrefix...)
		b = append(b, r.Str...)
		return append(b, delim...)
	case TypeErr:
		b = append(b, errPrefix...)
		if r.Err != nil {
			b = append(b, r.Err.Error()...)
		}
		return append(b, delim...)
	case TypeInt:
		b = append(b, intPrefix...)
		b = strconv.AppendInt(b, r.Int, 10)
		return append(b, delim...)
	case TypeBulkStr:
		if r.Nil {
			return append(b, nilBulkStr...)
		}
		return appendBulk(b, r.Str)
	case TypeArray:
		if r.Nil {
			return append(b, nilArray...)
		}
		b = appendArrayHeader(b, len(r.Arr))
		for i := range r.Arr {
			b = appendReply(b, r.Arr[i])
		}
		return b
	}
	panic("resp: unknown reply type " + r.Type.String())
}

// AsError returns the Reply's Err wrapped in an ErrConnUsable if the Reply is
// of TypeErr, and nil otherwise.
func (r Reply) AsError() error {
	if r.Type != TypeErr || r.Err == nil {
		return nil
	}
	return ErrConnUsable{Err: r.Err}
}

// String renders the Reply in a form similar to redis-cli's, on a single
// line.
func (r Reply) String() string {
	sb := new(strings.Builder)
	r.writeString(sb)
	return sb.String()
}

func (r Reply) writeString(sb *strings.Builder) {
	switch {
	case r.Nil:
		sb.WriteString("(nil)")
	case r.Type == TypeSimpleStr:
		sb.Write(r.Str)
	case r.Type == TypeErr:
		sb.WriteString("(error) ")
		if r.Err != nil {
			sb.WriteString(r.Err.Error())
		}
	case r.Type == TypeInt:
		sb.WriteString("(integer) ")
		sb.WriteString(strconv.FormatInt(r.Int, 10))
	case r.Type == TypeBulkStr:
		sb.WriteString(strconv.Quote(string(r.Str)))
	case r.Type == TypeArray:
		sb.WriteByte('[')
		for i := range r.Arr {
			if i > 0 {
				sb.WriteString(", ")
			}
			r.Arr[i].writeString(sb)
		}
		sb.WriteByte(']')
	default:
		sb.WriteString(r.Type.String())
	}
}
