package bgzf

import (
	"bytes"
	"io"
	"io/ioutil"
	"math/rand"
	"testing"

	htsbgzf "github.com/grailbio/hts/bgzf"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter(t *testing.T) {
	// Create random bytes.
	for _, length := range []int{0, 1, 100, 65279, 65280, 65281, 500000} {
		t.Logf("length: %d", length)
		for _, blockSize := range []int{DefaultUncompressedBlockSize, 0x0ff05, 1000} {
			input := make([]byte, length)
			n, err := rand.Read(input)
			require.Nil(t, err)
			assert.Equal(t, length, n)

			var buf bytes.Buffer
			w, err := NewWriterSize(&buf, 1, blockSize)
			require.Nil(t, err)
			n, err = w.Write(input)
			assert.Nil(t, err)
			assert.Equal(t, length, n)
			require.Nil(t, w.Close())
			assert.True(t, bytes.HasSuffix(buf.Bytes(), Terminator))

			r, err := gzip.NewReader(&buf)
			require.Nil(t, err)
			actual, err := ioutil.ReadAll(r)
			require.Nil(t, err)
			assert.Equal(t, length, len(actual))
			assert.Equal(t, 0, bytes.Compare(input, actual))
		}
	}
}

func TestWriterBadBlockSize(t *testing.T) {
	_, err := NewWriterSize(ioutil.Discard, 1, 0)
	assert.Error(t, err)
	_, err = NewWriterSize(ioutil.Discard, 1, MaxUncompressedBlockSize+1)
	assert.Error(t, err)
}

func TestOffset(t *testing.T) {
	// Set bgzf block size to 5.
	var buf bytes.Buffer
	w, err := NewWriterSize(&buf, 1, 5)
	require.Nil(t, err)

	// Write 4 bytes, should not cause block completion, so offset should be (0, 4)
	_, err = w.Write([]byte("ABCD"))
	require.Nil(t, err)
	assert.Equal(t, htsbgzf.Offset{File: 0, Block: 4}, w.Offset())

	// Write 1 byte, should cause block completion, so offset should be (non-zero, 0)
	_, err = w.Write([]byte("E"))
	require.Nil(t, err)
	offset1 := w.Offset()
	assert.Equal(t, uint16(0), offset1.Block)
	assert.NotEqual(t, int64(0), offset1.File)

	// Write 1 byte, should not cause block completion.  The file offset
	// should be the same, and the block offset should be 1.
	_, err = w.Write([]byte("F"))
	require.Nil(t, err)
	offset2 := w.Offset()
	assert.Equal(t, uint16(1), offset2.Block)
	assert.Equal(t, offset1.File, offset2.File)

	// Flush ends the block.
	require.Nil(t, w.Flush())
	offset3 := w.Offset()
	assert.Equal(t, uint16(0), offset3.Block)
	assert.True(t, offset3.File > offset2.File)
	assert.Equal(t, int64(buf.Len()), offset3.File)
}

func TestReadBack(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriterSize(&buf, 1, 7)
	require.Nil(t, err)
	var offsets []htsbgzf.Offset
	for _, s := range []string{"alpha\n", "beta\n", "gamma\n", "delta\n"} {
		offsets = append(offsets, w.Offset())
		_, err := w.Write([]byte(s))
		require.Nil(t, err)
	}
	require.Nil(t, w.Close())

	r, err := htsbgzf.NewReader(bytes.NewReader(buf.Bytes()), 1)
	require.Nil(t, err)
	require.Nil(t, r.Seek(offsets[2]))
	got := make([]byte, 6)
	_, err = io.ReadFull(r, got)
	require.Nil(t, err)
	assert.Equal(t, "gamma\n", string(got))
}
