package resp

// frameKind distinguishes the two kinds of suspended decode progress.
type frameKind uint8

const (
	// frameBulk is a bulk string whose header has been consumed but whose
	// body hasn't fully arrived. It only ever sits on top of the stack.
	frameBulk frameKind = iota

	// frameArray is an array whose header has been consumed and which is
	// still waiting on n more elements.
	frameArray
)

// maxPrealloc caps how many elements are allocated up front for an array.
// Beyond that the elements slice only grows as elements actually arrive, so
// a header can't make the Decoder allocate more than a small constant amount.
const maxPrealloc = 16

type frame struct {
	kind frameKind

	// n is the body length of a frameBulk, and the number of elements still
	// outstanding for a frameArray.
	n int

	// arr accumulates the elements of a frameArray.
	arr []Reply
}

func bulkFrame(n int) frame {
	return frame{kind: frameBulk, n: n}
}

// arrayFrame returns the frame for an array of n elements. avail is the
// number of bytes buffered after the array's header; since every element
// takes at least 3 bytes no more than avail/3 elements are preallocated.
func arrayFrame(n, avail int) frame {
	c := n
	if c > maxPrealloc {
		c = maxPrealloc
	}
	if c > avail/3 {
		c = avail / 3
	}
	return frame{kind: frameArray, n: n, arr: make([]Reply, 0, c)}
}

// frameStack is the chain of pending decode progress, innermost on top. Every
// frame but the top one is a frameArray.
type frameStack []frame

func (s *frameStack) push(f frame) {
	*s = append(*s, f)
}

func (s frameStack) top() *frame {
	if len(s) == 0 {
		return nil
	}
	return &s[len(s)-1]
}

func (s *frameStack) pop() frame {
	f := (*s)[len(*s)-1]
	(*s)[len(*s)-1] = frame{}
	*s = (*s)[:len(*s)-1]
	return f
}

// depth returns the number of arrays still pending.
func (s frameStack) depth() int {
	d := len(s)
	if t := s.top(); t != nil && t.kind == frameBulk {
		d--
	}
	return d
}

// complete hands a finished value to the innermost pending array. Every array
// this finishes is in turn handed to the one enclosing it, until either an
// array is found which needs more elements, in which case ok is false, or
// the stack is exhausted, in which case the top-level Reply is returned.
func (s *frameStack) complete(r Reply) (Reply, bool) {
	for len(*s) > 0 {
		t := s.top()
		t.arr = append(t.arr, r)
		if t.n--; t.n > 0 {
			return Reply{}, false
		}
		r = Reply{Type: TypeArray, Arr: s.pop().arr}
	}
	return r, true
}
