package resp

import (
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	errors "golang.org/x/xerrors"
)

// LookupTextEncoding returns the encoding registered under the given name or
// alias, e.g. "utf-8", "latin1" or "shift_jis". Names are resolved as the
// WHATWG encoding standard does.
func LookupTextEncoding(name string) (encoding.Encoding, error) {
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, errors.Errorf("looking up text encoding %q: %w", name, err)
	}
	return enc, nil
}

// transcode converts b from enc to UTF-8. If b can't be transcoded it is
// returned as-is, with ok set to false.
func transcode(enc encoding.Encoding, b []byte) ([]byte, bool) {
	out, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return b, false
	}
	if out == nil {
		out = []byte{}
	}
	return out, true
}
