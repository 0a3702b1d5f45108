package resp

import (
	. "testing"

	"github.com/stretchr/testify/assert"
)

func TestFrameStack(t *T) {
	var s frameStack
	assert.Nil(t, s.top())
	assert.Equal(t, 0, s.depth())

	s.push(arrayFrame(2, 100))
	s.push(arrayFrame(1, 100))
	s.push(bulkFrame(3))
	assert.Equal(t, 2, s.depth())
	assert.Equal(t, frameBulk, s.top().kind)
	s.pop()

	// completing the inner array cascades into the outer one, which still
	// needs another element
	r, ok := s.complete(integer(1))
	assert.False(t, ok)
	assert.Equal(t, Reply{}, r)
	assert.Equal(t, 1, s.depth())
	assert.Equal(t, 1, s.top().n)

	r, ok = s.complete(integer(2))
	assert.True(t, ok)
	assert.Equal(t, array(array(integer(1)), integer(2)), r)
	assert.Equal(t, 0, s.depth())

	// with nothing pending a value is returned as-is
	r, ok = s.complete(status("OK"))
	assert.True(t, ok)
	assert.Equal(t, status("OK"), r)
}

func TestArrayFramePrealloc(t *T) {
	type test struct {
		n, avail, expCap int
	}

	tests := []test{
		{n: 3, avail: 100, expCap: 3},
		{n: maxLen, avail: 1 << 20, expCap: maxPrealloc},
		{n: 1024, avail: 0, expCap: 0},
		{n: 1024, avail: 8, expCap: 2},
	}

	for _, test := range tests {
		f := arrayFrame(test.n, test.avail)
		assert.Equal(t, test.n, f.n)
		assert.Equal(t, test.expCap, cap(f.arr), "n:%d avail:%d", test.n, test.avail)
	}
}
