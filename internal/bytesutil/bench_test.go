package bytesutil

import (
	"fmt"
	"strconv"
	"testing"
)

var bint int64

func BenchmarkParseInt(b *testing.B) {
	tests := []struct {
		In string
	}{
		{"1"},
		{"123"},
		{"-1"},
		{"-123"},
		{"+1"},
		{"+123"},
	}

	for _, test := range tests {
		input := []byte(test.In)

		b.Run(fmt.Sprint(test.In), func(b *testing.B) {
			b.Run("strconv", func(b *testing.B) {
				for i := 0; i < b.N; i++ {
					bint, _ = strconv.ParseInt(string(input), 10, 64)
				}
			})

			b.Run("bytesutil", func(b *testing.B) {
				for i := 0; i < b.N; i++ {
					bint, _ = ParseInt(input)
				}
			})

			b.Run("lenient", func(b *testing.B) {
				for i := 0; i < b.N; i++ {
					bint = ParseIntLenient(input)
				}
			})
		})
	}
}
