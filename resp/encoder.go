package resp

import (
	"encoding"
	"fmt"
	"io"
	"reflect"
	"strconv"

	errors "golang.org/x/xerrors"

	"github.com/mediocregopher/respfeed/internal/bytesutil"
)

type encoderOpts struct {
	stringify func(interface{}) ([]byte, error)
}

// EncoderOpt is an optional behavior which can be applied to the NewEncoder
// function to effect the behavior of the Encoder it creates.
type EncoderOpt func(*encoderOpts)

// EncoderStringify sets the function used to turn values which aren't nil,
// bytes, strings, slices, arrays or maps into the bytes of a bulk string.
//
// The default is Stringify.
func EncoderStringify(fn func(interface{}) ([]byte, error)) EncoderOpt {
	return func(eo *encoderOpts) {
		eo.stringify = fn
	}
}

// Encoder packs commands into the RESP multi-bulk request format. An Encoder
// holds no state besides its options and is safe for concurrent use.
type Encoder struct {
	opts encoderOpts
}

// NewEncoder initializes and returns an Encoder.
func NewEncoder(opts ...EncoderOpt) *Encoder {
	e := new(Encoder)
	for _, opt := range opts {
		opt(&e.opts)
	}
	return e
}

var defaultEncoder = NewEncoder()

// Pack calls Pack on an Encoder with default options.
func Pack(args ...interface{}) ([]byte, error) {
	return defaultEncoder.Pack(args...)
}

// PackPipeline calls PackPipeline on an Encoder with default options.
func PackPipeline(cmds ...[]interface{}) ([]byte, error) {
	return defaultEncoder.PackPipeline(cmds...)
}

// Pack serializes a command and its arguments as a multi-bulk request, an
// array with one element per argument. Arguments are encoded as follows:
//
//	nil, nil pointers -> "$-1\r\n"
//	[]byte, string    -> a bulk string of the bytes
//	slices, arrays    -> a nested array of the elements, each encoded by
//	                     these same rules
//	maps              -> a nested array of the values found at the integer
//	                     keys 1, 2, 3... up to the first missing key. Maps
//	                     whose keys aren't integers produce an empty array.
//	everything else   -> a bulk string of the bytes returned by the
//	                     EncoderStringify function
//
// Values implementing encoding.TextMarshaler, encoding.BinaryMarshaler,
// fmt.Stringer, error or io.Reader are always stringified, regardless of their
// underlying kind.
//
//	Pack("SET", "key", "value") -> "*3\r\n$3\r\nSET\r\n$3\r\nkey\r\n$5\r\nvalue\r\n"
//
func (e *Encoder) Pack(args ...interface{}) ([]byte, error) {
	return e.AppendPack(nil, args...)
}

// AppendPack is like Pack but appends to and returns b. If an error is
// returned b is returned unchanged.
func (e *Encoder) AppendPack(b []byte, args ...interface{}) ([]byte, error) {
	orig := len(b)
	b, err := e.appendSlice(b, reflect.ValueOf(args))
	if err != nil {
		return b[:orig], err
	}
	return b, nil
}

// PackPipeline packs each of the given commands, as with Pack, one after the
// other.
func (e *Encoder) PackPipeline(cmds ...[]interface{}) ([]byte, error) {
	var b []byte
	for i, cmd := range cmds {
		var err error
		if b, err = e.AppendPack(b, cmd...); err != nil {
			return nil, errors.Errorf("packing pipeline command %d: %w", i, err)
		}
	}
	return b, nil
}

// Write packs the command and its arguments, as with Pack, and writes the
// result to w in a single Write call.
func (e *Encoder) Write(w io.Writer, args ...interface{}) error {
	scratch := bytesutil.GetBytes()
	defer bytesutil.PutBytes(scratch)

	var err error
	if *scratch, err = e.AppendPack(*scratch, args...); err != nil {
		return err
	}
	_, err = w.Write(*scratch)
	return err
}

func (e *Encoder) appendElem(b []byte, v interface{}) ([]byte, error) {
	switch vt := v.(type) {
	case nil:
		return append(b, nilBulkStr...), nil
	case []byte:
		if vt == nil {
			return append(b, nilBulkStr...), nil
		}
		return appendBulk(b, vt), nil
	case string:
		return appendBulkStr(b, vt), nil
	case []rune:
		return appendBulkStr(b, string(vt)), nil
	case []interface{}:
		// this is a very common case, so we handle it without getting
		// reflection involved.
		b = appendArrayHeader(b, len(vt))
		var err error
		for i := range vt {
			if b, err = e.appendElem(b, vt[i]); err != nil {
				return b, err
			}
		}
		return b, nil
	}

	vv := reflect.ValueOf(v)
	if vv.Kind() == reflect.Ptr && vv.IsNil() {
		return append(b, nilBulkStr...), nil
	} else if stringifiesItself(v) {
		return e.appendStringified(b, v)
	}

	switch vv.Kind() {
	case reflect.Ptr:
		return e.appendElem(b, vv.Elem().Interface())

	case reflect.String:
		return appendBulkStr(b, vv.String()), nil

	case reflect.Slice:
		if vv.Type().Elem().Kind() == reflect.Uint8 {
			if vv.IsNil() {
				return append(b, nilBulkStr...), nil
			}
			return appendBulk(b, vv.Bytes()), nil
		}
		return e.appendSlice(b, vv)

	case reflect.Array:
		return e.appendSlice(b, vv)

	case reflect.Map:
		return e.appendMap(b, vv)
	}

	return e.appendStringified(b, v)
}

func (e *Encoder) appendSlice(b []byte, vv reflect.Value) ([]byte, error) {
	l := vv.Len()
	b = appendArrayHeader(b, l)
	var err error
	for i := 0; i < l; i++ {
		if b, err = e.appendElem(b, vv.Index(i).Interface()); err != nil {
			return b, err
		}
	}
	return b, nil
}

// appendMap encodes the values of the map found at the keys 1, 2, 3..., up
// until the first key which isn't found.
func (e *Encoder) appendMap(b []byte, vv reflect.Value) ([]byte, error) {
	keyT := vv.Type().Key()

	var vals []reflect.Value
	for i := 1; i <= vv.Len(); i++ {
		k, ok := ordinalKey(keyT, i)
		if !ok {
			break
		}
		mv := vv.MapIndex(k)
		if !mv.IsValid() {
			break
		}
		vals = append(vals, mv)
	}

	b = appendArrayHeader(b, len(vals))
	var err error
	for _, mv := range vals {
		if b, err = e.appendElem(b, mv.Interface()); err != nil {
			return b, err
		}
	}
	return b, nil
}

var intT = reflect.TypeOf(0)

// ordinalKey returns i as a value of the given map key type, if it can be
// represented as one.
func ordinalKey(keyT reflect.Type, i int) (reflect.Value, bool) {
	k := reflect.New(keyT).Elem()
	switch keyT.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if k.OverflowInt(int64(i)) {
			return k, false
		}
		k.SetInt(int64(i))
		return k, true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if k.OverflowUint(uint64(i)) {
			return k, false
		}
		k.SetUint(uint64(i))
		return k, true
	case reflect.Interface:
		if !intT.AssignableTo(keyT) {
			return k, false
		}
		return reflect.ValueOf(i), true
	}
	return k, false
}

func (e *Encoder) appendStringified(b []byte, v interface{}) ([]byte, error) {
	if e.opts.stringify != nil {
		sb, err := e.opts.stringify(v)
		if err != nil {
			return b, err
		}
		return appendBulk(b, sb), nil
	}

	scratch := bytesutil.GetBytes()
	defer bytesutil.PutBytes(scratch)

	var err error
	if *scratch, err = appendStringify(*scratch, v); err != nil {
		return b, err
	}
	return appendBulk(b, *scratch), nil
}

// stringifiesItself returns true for values which know how to turn themselves
// into bytes, and so shouldn't be treated according to their underlying kind.
func stringifiesItself(v interface{}) bool {
	switch v.(type) {
	case encoding.TextMarshaler, encoding.BinaryMarshaler, fmt.Stringer, error, io.Reader:
		return true
	}
	return false
}

func appendArrayHeader(b []byte, l int) []byte {
	b = append(b, arrayPrefix...)
	b = strconv.AppendInt(b, int64(l), 10)
	return append(b, delim...)
}

func appendBulk(b, body []byte) []byte {
	b = append(b, bulkStrPrefix...)
	b = strconv.AppendInt(b, int64(len(body)), 10)
	b = append(b, delim...)
	b = append(b, body...)
	return append(b, delim...)
}

func appendBulkStr(b []byte, body string) []byte {
	b = append(b, bulkStrPrefix...)
	b = strconv.AppendInt(b, int64(len(body)), 10)
	b = append(b, delim...)
	b = append(b, body...)
	return append(b, delim...)
}
