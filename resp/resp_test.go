package resp

import (
	"bytes"
	"errors"
	"fmt"
	. "testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrConnUsable(t *T) {
	err := errors.New("foo")
	assert.False(t, errors.As(err, new(ErrConnUsable)))
	assert.True(t, errors.As(ErrConnUsable{Err: err}, new(ErrConnUsable)))
	assert.True(t, errors.Is(ErrConnUsable{Err: err}, err))

	assert.Nil(t, ErrConnUnusable(nil))
	assert.Equal(t, err, ErrConnUnusable(err))
	assert.Equal(t, err, ErrConnUnusable(ErrConnUsable{Err: err}))
	wrapped := fmt.Errorf("doing thing: %w", ErrConnUsable{Err: err})
	assert.Equal(t, err, ErrConnUnusable(wrapped))
}

func TestReplyMarshalRESP(t *T) {
	type test struct {
		r   Reply
		exp string
	}

	tests := []test{
		{status("OK"), "+OK\r\n"},
		{Reply{Type: TypeErr, Err: ReplyError{Code: "ERR", Msg: "bad"}}, "-ERR bad\r\n"},
		{Reply{Type: TypeErr}, "-\r\n"},
		{integer(-12), ":-12\r\n"},
		{bulk("foo"), "$3\r\nfoo\r\n"},
		{bulk(""), "$0\r\n\r\n"},
		{nilBulk, "$-1\r\n"},
		{nilArr, "*-1\r\n"},
		{emptyArr, "*0\r\n"},
		{
			array(bulk("a"), array(integer(1), nilBulk), status("b")),
			"*3\r\n$1\r\na\r\n*2\r\n:1\r\n$-1\r\n+b\r\n",
		},
	}

	for i, test := range tests {
		t.Run(fmt.Sprint(i), func(t *T) {
			buf := new(bytes.Buffer)
			require.NoError(t, test.r.MarshalRESP(buf))
			assert.Equal(t, test.exp, buf.String())

			if test.r.Type == TypeErr && test.r.Err == nil {
				return
			}
			d := NewDecoder()
			d.Feed(buf.Bytes())
			r, err := d.Reply()
			require.NoError(t, err)
			assert.Equal(t, test.r, r)
		})
	}
}

func TestReplyAsError(t *T) {
	assert.Nil(t, status("OK").AsError())
	assert.Nil(t, nilBulk.AsError())

	replyErr := ReplyError{Code: "NOAUTH", Msg: "Authentication required."}
	err := Reply{Type: TypeErr, Err: replyErr}.AsError()
	require.Error(t, err)
	assert.True(t, errors.As(err, new(ErrConnUsable)))
	assert.Equal(t, replyErr, ErrConnUnusable(err))

	var target ReplyError
	assert.True(t, errors.As(err, &target))
	assert.Equal(t, "NOAUTH", target.Code)
}

func TestReplyString(t *T) {
	type test struct {
		r   Reply
		exp string
	}

	tests := []test{
		{status("OK"), "OK"},
		{Reply{Type: TypeErr, Err: ReplyError{Code: "ERR", Msg: "bad"}}, "(error) ERR bad"},
		{integer(5), "(integer) 5"},
		{bulk("foo\r\n"), `"foo\r\n"`},
		{nilBulk, "(nil)"},
		{nilArr, "(nil)"},
		{emptyArr, "[]"},
		{array(bulk("a"), array(integer(1), nilBulk)), `["a", [(integer) 1, (nil)]]`},
	}

	for _, test := range tests {
		assert.Equal(t, test.exp, test.r.String())
	}
}

func TestTypeString(t *T) {
	assert.Equal(t, "simple-string", TypeSimpleStr.String())
	assert.Equal(t, "array", TypeArray.String())
	assert.Equal(t, "Type(9)", Type(9).String())
}

func TestLenReader(t *T) {
	lr := NewLenReader(bytes.NewBufferString("hello"), 5)
	b := make([]byte, 2)
	n, err := lr.Read(b)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, int64(3), lr.Len())
}
