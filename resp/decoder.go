package resp

import (
	"bytes"
	"fmt"
	"math"

	"golang.org/x/text/encoding"

	"github.com/mediocregopher/respfeed/internal/bytesutil"
	"github.com/mediocregopher/respfeed/trace"
)

type decoderOpts struct {
	protocolErrFn func(string) error
	replyErrFn    func(string) error
	textEnc       encoding.Encoding
	lenient       bool
	trace         trace.DecoderTrace
}

// DecoderOpt is an optional behavior which can be applied to the NewDecoder
// function to effect the behavior of the Decoder it creates.
type DecoderOpt func(*decoderOpts)

// DecoderProtocolErrorFunc sets the function used to build the error Reply
// returns when it encounters malformed framing. The function is given a
// description of what was wrong.
//
// The default is to return a *ProtocolError.
func DecoderProtocolErrorFunc(fn func(msg string) error) DecoderOpt {
	return func(do *decoderOpts) {
		do.protocolErrFn = fn
	}
}

// DecoderReplyErrorFunc sets the function used to build the Err field of every
// TypeErr Reply. The function is given the reply's line, without its leading
// '-'.
//
// The default is ParseReplyError.
func DecoderReplyErrorFunc(fn func(line string) error) DecoderOpt {
	return func(do *decoderOpts) {
		do.replyErrFn = fn
	}
}

// DecoderTextEncoding causes the Decoder to transcode the bodies of all bulk
// strings from the given encoding to UTF-8, marking the resulting Replies as
// Text. See also Decoder.SetTextEncoding.
func DecoderTextEncoding(enc encoding.Encoding) DecoderOpt {
	return func(do *decoderOpts) {
		do.textEnc = enc
	}
}

// DecoderLenientNumbers causes the Decoder to accept malformed numbers in
// integer replies and in bulk string and array headers, rather than treating
// them as a protocol error. Such numbers are parsed the way C's atoi does,
// meaning text which doesn't start with a number is taken as 0, and any
// negative length is taken to mean a nil reply.
func DecoderLenientNumbers() DecoderOpt {
	return func(do *decoderOpts) {
		do.lenient = true
	}
}

// DecoderWithTrace sets the trace callbacks the Decoder will invoke.
func DecoderWithTrace(dt trace.DecoderTrace) DecoderOpt {
	return func(do *decoderOpts) {
		do.trace = dt
	}
}

// Decoder incrementally decodes RESP replies out of the bytes fed into it.
//
// A Decoder holds all bytes fed to it until they have been decoded, along with
// the progress made on any reply which is only partially available. It
// performs no I/O and is not safe for concurrent use; one Decoder should be
// used per connection.
type Decoder struct {
	opts decoderOpts

	// buf[off:] holds the unconsumed bytes
	buf []byte
	off int

	stack frameStack

	// stats for the reply currently being decoded, for tracing
	replySize, replySuspensions int
}

// NewDecoder initializes and returns a Decoder.
func NewDecoder(opts ...DecoderOpt) *Decoder {
	d := &Decoder{
		opts: decoderOpts{
			protocolErrFn: newProtocolError,
			replyErrFn:    ParseReplyError,
		},
	}
	for _, opt := range opts {
		opt(&d.opts)
	}
	return d
}

// Feed appends b to the Decoder's buffer. It does not decode anything, and b
// may be reused as soon as Feed returns.
func (d *Decoder) Feed(b []byte) {
	if len(b) == 0 {
		return
	}

	// reclaim space taken up by consumed bytes before growing the buffer
	if d.off > 0 && (d.off == len(d.buf) || len(d.buf)+len(b) > cap(d.buf)) {
		n := copy(d.buf, d.buf[d.off:])
		d.buf = d.buf[:n]
		d.off = 0
	}
	d.buf = append(d.buf, b...)
}

// SetTextEncoding causes all bulk strings decoded from this point on to be
// transcoded from the named encoding to UTF-8, marking their Replies as Text.
// An empty name turns transcoding back off. See LookupTextEncoding for how
// names are resolved.
func (d *Decoder) SetTextEncoding(name string) error {
	if name == "" {
		d.opts.textEnc = nil
		return nil
	}
	enc, err := LookupTextEncoding(name)
	if err != nil {
		return err
	}
	d.opts.textEnc = enc
	return nil
}

// PeekBuffer returns a copy of the bytes which have been fed into the Decoder
// but not yet consumed.
func (d *Decoder) PeekBuffer() []byte {
	return append([]byte{}, d.buf[d.off:]...)
}

// Buffered returns the number of bytes which have been fed into the Decoder
// but not yet consumed.
func (d *Decoder) Buffered() int {
	return len(d.buf) - d.off
}

// Pending returns true if a reply has been partially decoded and the Decoder
// is waiting on more bytes to finish it.
func (d *Decoder) Pending() bool {
	return len(d.stack) > 0
}

// Reset discards all buffered bytes and any partially decoded reply.
func (d *Decoder) Reset() {
	d.buf = d.buf[:0]
	d.off = 0
	for len(d.stack) > 0 {
		d.stack.pop()
	}
	d.replySize, d.replySuspensions = 0, 0
}

// Reply decodes and returns the next reply from the buffered bytes.
//
// If the buffer doesn't yet hold the whole reply ErrIncomplete is returned,
// and whatever progress was made is kept so that the next call can pick up
// where this one left off once more bytes have been fed. If the framing is
// malformed all buffered bytes, and any partially decoded reply, are discarded
// and the error built by the DecoderProtocolErrorFunc is returned.
//
// An error reply from the server is not an error here: it is returned as a
// Reply of TypeErr.
func (d *Decoder) Reply() (Reply, error) {
	if len(d.stack) > 0 && d.opts.trace.Resumed != nil {
		d.opts.trace.Resumed(trace.DecoderResumed{DecoderCommon: d.traceCommon()})
	}

	for {
		var r Reply
		if t := d.stack.top(); t != nil && t.kind == frameBulk {
			var ok bool
			var err error
			if r, ok, err = d.readBulk(t.n); err != nil {
				return Reply{}, err
			} else if !ok {
				return Reply{}, d.suspend(t.n + delimLen)
			}
			d.stack.pop()

		} else {
			var res dispatchResult
			var err error
			if r, res, err = d.dispatch(); err != nil {
				return Reply{}, err
			}

			switch res {
			case dispatchNeedMore:
				if len(d.stack) == 0 {
					return Reply{}, ErrIncomplete
				}
				return Reply{}, d.suspend(0)
			case dispatchPushed:
				continue
			}
		}

		if r, ok := d.stack.complete(r); ok {
			return d.done(r), nil
		}
	}
}

type dispatchResult int

const (
	// dispatchValue means a whole value was decoded.
	dispatchValue dispatchResult = iota

	// dispatchPushed means a header was consumed and a frame pushed onto the
	// stack to track the value's body.
	dispatchPushed

	// dispatchNeedMore means there isn't a whole header line buffered yet.
	dispatchNeedMore
)

// maxLen is the largest bulk string length or array size accepted in a header.
// It leaves room for a bulk string's trailing delimiter within an int32.
const maxLen = math.MaxInt32 - 2

// dispatch consumes the header line at the front of the buffer and acts on it
// according to its type prefix.
func (d *Decoder) dispatch() (Reply, dispatchResult, error) {
	unread := d.buf[d.off:]
	i := bytes.Index(unread, delim)
	if i < 0 {
		return Reply{}, dispatchNeedMore, nil
	}
	line := unread[:i]
	d.consume(i + delimLen)

	if len(line) == 0 {
		return Reply{}, 0, d.protocolErr("Protocol Error: empty reply line")
	}

	body := line[1:]
	switch line[0] {
	case simpleStrPrefix[0]:
		return Reply{Type: TypeSimpleStr, Str: append([]byte{}, body...)}, dispatchValue, nil

	case errPrefix[0]:
		return Reply{Type: TypeErr, Err: d.opts.replyErrFn(string(body))}, dispatchValue, nil

	case intPrefix[0]:
		if d.opts.lenient {
			return Reply{Type: TypeInt, Int: bytesutil.ParseIntLenient(body)}, dispatchValue, nil
		}
		i, err := bytesutil.ParseInt(body)
		if err != nil {
			return Reply{}, 0, d.protocolErr(fmt.Sprintf("Protocol Error: invalid integer reply %q", body))
		}
		return Reply{Type: TypeInt, Int: i}, dispatchValue, nil

	case bulkStrPrefix[0]:
		n, isNil, err := d.parseLen(body, "bulk string length")
		if err != nil {
			return Reply{}, 0, err
		} else if isNil {
			return Reply{Type: TypeBulkStr, Nil: true}, dispatchValue, nil
		}
		d.stack.push(bulkFrame(n))
		return Reply{}, dispatchPushed, nil

	case arrayPrefix[0]:
		n, isNil, err := d.parseLen(body, "array size")
		if err != nil {
			return Reply{}, 0, err
		} else if isNil {
			return Reply{Type: TypeArray, Nil: true}, dispatchValue, nil
		} else if n == 0 {
			return Reply{Type: TypeArray, Arr: []Reply{}}, dispatchValue, nil
		}
		d.stack.push(arrayFrame(n, d.Buffered()))
		return Reply{}, dispatchPushed, nil
	}

	return Reply{}, 0, d.protocolErr(fmt.Sprintf("Protocol Error: unknown reply type %q", line[0]))
}

// parseLen parses the body of a bulk string or array header. A nil reply is
// indicated by isNil.
func (d *Decoder) parseLen(body []byte, what string) (int, bool, error) {
	var n int64
	if d.opts.lenient {
		if n = bytesutil.ParseIntLenient(body); n < 0 {
			return 0, true, nil
		}
	} else {
		var err error
		if n, err = bytesutil.ParseInt(body); err != nil || n < -1 {
			return 0, false, d.protocolErr(fmt.Sprintf("Protocol Error: invalid %s %q", what, body))
		} else if n == -1 {
			return 0, true, nil
		}
	}

	if n > maxLen {
		return 0, false, d.protocolErr(fmt.Sprintf("Protocol Error: %s %d too large", what, n))
	}
	return int(n), false, nil
}

// readBulk reads a bulk string body of length n off the front of the buffer,
// if the buffer holds all of it and its trailing delimiter. Otherwise ok is
// false and nothing is consumed.
func (d *Decoder) readBulk(n int) (Reply, bool, error) {
	unread := d.buf[d.off:]
	if len(unread)-delimLen < n {
		return Reply{}, false, nil
	} else if !d.opts.lenient && !bytes.Equal(unread[n:n+delimLen], delim) {
		return Reply{}, false, d.protocolErr(fmt.Sprintf(
			"Protocol Error: bulk string of length %d not followed by %q", n, delim,
		))
	}

	r := Reply{Type: TypeBulkStr}
	body := unread[:n]
	if enc := d.opts.textEnc; enc != nil {
		r.Str, r.Text = transcode(enc, body)
	}
	if !r.Text {
		r.Str = append([]byte{}, body...)
	}
	d.consume(n + delimLen)
	return r, true, nil
}

func (d *Decoder) consume(n int) {
	d.off += n
	d.replySize += n
	if d.off == len(d.buf) {
		d.buf = d.buf[:0]
		d.off = 0
	}
}

// protocolErr discards all decoder state and returns the error built by the
// protocol error function.
func (d *Decoder) protocolErr(msg string) error {
	common, discarded := d.traceCommon(), d.Buffered()
	err := d.opts.protocolErrFn(msg)
	d.Reset()
	if d.opts.trace.ProtocolError != nil {
		d.opts.trace.ProtocolError(trace.DecoderProtocolError{
			DecoderCommon: common,
			Discarded:     discarded,
			Err:           err,
		})
	}
	return err
}

func (d *Decoder) suspend(need int) error {
	d.replySuspensions++
	if d.opts.trace.Suspended != nil {
		d.opts.trace.Suspended(trace.DecoderSuspended{
			DecoderCommon: d.traceCommon(),
			Need:          need,
		})
	}
	return ErrIncomplete
}

func (d *Decoder) done(r Reply) Reply {
	if d.opts.trace.Completed != nil {
		d.opts.trace.Completed(trace.DecoderCompleted{
			DecoderCommon: d.traceCommon(),
			Type:          r.Type.String(),
			Nil:           r.Nil,
			Size:          d.replySize,
			Suspensions:   d.replySuspensions,
		})
	}
	d.replySize, d.replySuspensions = 0, 0
	return r
}

func (d *Decoder) traceCommon() trace.DecoderCommon {
	return trace.DecoderCommon{
		Buffered: d.Buffered(),
		Depth:    d.stack.depth(),
	}
}

func (d *Decoder) String() string {
	return fmt.Sprintf("resp.Decoder{buffered:%d depth:%d}", d.Buffered(), d.stack.depth())
}
