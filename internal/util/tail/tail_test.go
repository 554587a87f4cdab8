package tail

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuffer_KeepsLastLines(t *testing.T) {
	t.Parallel()
	b := New(3)
	for i := 1; i <= 10; i++ {
		_, _ = fmt.Fprintf(b, "line %d\n", i)
	}

	assert.Equal(t, []string{"line 8", "line 9", "line 10"}, b.Lines())
	assert.Equal(t, 7, b.Dropped())
	assert.Equal(t, "line 8\nline 9\nline 10", b.String())
}

func TestBuffer_PartialWrites(t *testing.T) {
	t.Parallel()
	b := New(5)
	_, _ = b.Write([]byte("hel"))
	_, _ = b.Write([]byte("lo\nwor"))
	_, _ = b.Write([]byte("ld"))

	assert.Equal(t, []string{"hello", "world"}, b.Lines())
}

func TestBuffer_PartialCountsTowardLimit(t *testing.T) {
	t.Parallel()
	b := New(2)
	_, _ = b.Write([]byte("a\nb\nc"))

	assert.Equal(t, []string{"b", "c"}, b.Lines())
}

func TestBuffer_LongLineIsCapped(t *testing.T) {
	t.Parallel()
	b := New(2)
	_, _ = b.Write([]byte(strings.Repeat("x", maxLineBytes*2)))

	lines := b.Lines()
	assert.Len(t, lines, 1)
	assert.Len(t, lines[0], maxLineBytes)
	assert.Equal(t, int64(maxLineBytes*2), b.Total())
}

func TestNew_NonPositiveLimit(t *testing.T) {
	t.Parallel()
	b := New(0)
	_, _ = b.Write([]byte("one\ntwo\n"))

	assert.Equal(t, []string{"two"}, b.Lines())
}

func TestBuffer_Empty(t *testing.T) {
	t.Parallel()
	b := New(3)
	assert.Empty(t, b.Lines())
	assert.Equal(t, "", b.String())
}
