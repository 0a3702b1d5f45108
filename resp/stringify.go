package resp

import (
	"bytes"
	"encoding"
	"fmt"
	"io"
	"io/ioutil"
	"math/big"
	"reflect"
	"strconv"

	errors "golang.org/x/xerrors"

	"github.com/mediocregopher/respfeed/internal/bytesutil"
)

var boolStrs = [][]byte{
	{'0'},
	{'1'},
}

// cleanFloatStr is needed because go likes to marshal infinity values as
// "+Inf" and "-Inf", but we need "inf" and "-inf".
func cleanFloatStr(b []byte) []byte {
	b = bytes.ToLower(b)
	if b[0] == '+' { // "+inf"
		b = b[1:]
	}
	return b
}

// Stringify returns the textual representation of a scalar value, as used for
// the body of a bulk string. It is the Encoder's default stringify function.
//
//	Stringify(true)              -> "1"
//	Stringify(5)                 -> "5"
//	Stringify(5.5)               -> "5.5"
//	Stringify(math.Inf(-1))      -> "-inf"
//	Stringify(errors.New("foo")) -> "foo"
//
// Values implementing encoding.TextMarshaler, encoding.BinaryMarshaler or
// fmt.Stringer are asked for their own representation, and io.Readers are
// read in full. Any other kind of value results in an error.
func Stringify(v interface{}) ([]byte, error) {
	return appendStringify(nil, v)
}

func appendStringify(b []byte, v interface{}) ([]byte, error) {
	switch vt := v.(type) {
	case []byte:
		return append(b, vt...), nil
	case string:
		return append(b, vt...), nil
	case bool:
		if vt {
			return append(b, boolStrs[1]...), nil
		}
		return append(b, boolStrs[0]...), nil
	case uint:
		return strconv.AppendUint(b, uint64(vt), 10), nil
	case uint64:
		return strconv.AppendUint(b, vt, 10), nil
	case int, int8, int16, int32, int64, uint8, uint16, uint32:
		return strconv.AppendInt(b, bytesutil.AnyIntToInt64(vt), 10), nil
	case float32:
		return appendFloat(b, float64(vt), 32), nil
	case float64:
		return appendFloat(b, vt, 64), nil
	case *big.Int:
		return vt.Append(b, 10), nil
	case *big.Float:
		start := len(b)
		b = vt.Append(b, 'f', -1)
		return append(b[:start], cleanFloatStr(b[start:])...), nil
	case error:
		return append(b, vt.Error()...), nil
	case encoding.TextMarshaler:
		tb, err := vt.MarshalText()
		if err != nil {
			return b, err
		}
		return append(b, tb...), nil
	case encoding.BinaryMarshaler:
		bb, err := vt.MarshalBinary()
		if err != nil {
			return b, err
		}
		return append(b, bb...), nil
	case fmt.Stringer:
		return append(b, vt.String()...), nil
	case LenReader:
		return bytesutil.ReadNAppend(vt, b, int(vt.Len()))
	case io.Reader:
		rb, err := ioutil.ReadAll(vt)
		if err != nil {
			return b, err
		}
		return append(b, rb...), nil
	}

	// named types whose underlying kind is a scalar
	vv := reflect.ValueOf(v)
	switch vv.Kind() {
	case reflect.Bool:
		return appendStringify(b, vv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.AppendInt(b, vv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.AppendUint(b, vv.Uint(), 10), nil
	case reflect.Float32:
		return appendFloat(b, vv.Float(), 32), nil
	case reflect.Float64:
		return appendFloat(b, vv.Float(), 64), nil
	case reflect.String:
		return append(b, vv.String()...), nil
	case reflect.Ptr:
		if !vv.IsNil() {
			return appendStringify(b, vv.Elem().Interface())
		}
	}

	return b, errors.Errorf("cannot stringify %T", v)
}

func appendFloat(b []byte, f float64, bits int) []byte {
	start := len(b)
	b = strconv.AppendFloat(b, f, 'f', -1, bits)
	return append(b[:start], cleanFloatStr(b[start:])...)
}
