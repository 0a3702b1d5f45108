package trace

// DecoderTrace is passed into resp.NewDecoder via resp.DecoderWithTrace, and
// contains callbacks which can be triggered for specific events during a
// Decoder's runtime.
//
// Any callback may be left nil.
type DecoderTrace struct {
	// Suspended is called when a call to Reply stops part way through a reply
	// because the buffer has run dry, leaving decode progress pending.
	Suspended func(DecoderSuspended)

	// Resumed is called at the start of a call to Reply when decode progress
	// from a previous call is pending.
	Resumed func(DecoderResumed)

	// Completed is called whenever Reply produces a top-level reply.
	Completed func(DecoderCompleted)

	// ProtocolError is called when Reply encounters malformed framing and
	// discards its buffer.
	ProtocolError func(DecoderProtocolError)
}

// DecoderCommon contains information which is passed into all
// Decoder-related callbacks.
type DecoderCommon struct {
	// Buffered is the number of bytes fed into the Decoder which have not yet
	// been consumed, at the moment the trace occurs.
	Buffered int

	// Depth is the number of aggregate replies (arrays) whose decoding is
	// pending, at the moment the trace occurs.
	Depth int
}

// DecoderSuspended is passed into the DecoderTrace.Suspended callback.
type DecoderSuspended struct {
	DecoderCommon

	// Need is the number of buffered bytes the innermost pending bulk string
	// requires before it can complete, or 0 if the Decoder is waiting on a
	// header line.
	Need int
}

// DecoderResumed is passed into the DecoderTrace.Resumed callback.
type DecoderResumed struct {
	DecoderCommon
}

// DecoderCompleted is passed into the DecoderTrace.Completed callback.
type DecoderCompleted struct {
	DecoderCommon

	// Type is the name of the top-level reply's type, e.g. "bulk-string".
	Type string

	// Nil is true if the reply was a nil bulk string or nil array.
	Nil bool

	// Size is the number of wire bytes the reply took up, including all of
	// its header lines and delimiters.
	Size int

	// Suspensions is the number of times decoding the reply was suspended.
	Suspensions int
}

// DecoderProtocolError is passed into the DecoderTrace.ProtocolError
// callback.
type DecoderProtocolError struct {
	DecoderCommon

	// Discarded is the number of buffered bytes which were thrown away.
	Discarded int

	// Err is the error which was returned from Reply.
	Err error
}

// MergeDecoderTraces returns a DecoderTrace which calls the callbacks of each
// of the given DecoderTraces in order.
func MergeDecoderTraces(tt ...DecoderTrace) DecoderTrace {
	var out DecoderTrace
	for i := range tt {
		t := tt[i]
		if t.Suspended != nil {
			prev := out.Suspended
			out.Suspended = func(e DecoderSuspended) {
				if prev != nil {
					prev(e)
				}
				t.Suspended(e)
			}
		}
		if t.Resumed != nil {
			prev := out.Resumed
			out.Resumed = func(e DecoderResumed) {
				if prev != nil {
					prev(e)
				}
				t.Resumed(e)
			}
		}
		if t.Completed != nil {
			prev := out.Completed
			out.Completed = func(e DecoderCompleted) {
				if prev != nil {
					prev(e)
				}
				t.Completed(e)
			}
		}
		if t.ProtocolError != nil {
			prev := out.ProtocolError
			out.ProtocolError = func(e DecoderProtocolError) {
				if prev != nil {
					prev(e)
				}
				t.ProtocolError(e)
			}
		}
	}
	return out
}
