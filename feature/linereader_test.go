package feature_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/grailbio/featureio/encoding/bgzf"
	"github.com/grailbio/featureio/feature"
	htsbgzf "github.com/grailbio/hts/bgzf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLines = []string{"#header", "chr1\t10", "chr1\t20", "", "chr2\t5\tlonger line here"}

func readAll(t *testing.T, r feature.LineReader) (lines []string, begins []htsbgzf.Offset) {
	for {
		line, begin, _, err := r.ReadLine()
		if err == io.EOF {
			return
		}
		require.NoError(t, err)
		lines = append(lines, string(line))
		begins = append(begins, begin)
	}
}

func TestPlainLineReader(t *testing.T) {
	data := "#header\nchr1\t10\r\nchr1\t20\n\nchr2\t5\tlonger line here"
	r, err := feature.NewLineReader(bytes.NewReader([]byte(data)), false)
	require.NoError(t, err)
	lines, begins := readAll(t, r)
	assert.Equal(t, testLines, lines)
	assert.Equal(t, []htsbgzf.Offset{{File: 0}, {File: 8}, {File: 17}, {File: 25}, {File: 26}}, begins)

	require.NoError(t, r.Seek(htsbgzf.Offset{File: 17}))
	line, begin, end, err := r.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "chr1\t20", string(line))
	assert.Equal(t, htsbgzf.Offset{File: 17}, begin)
	assert.Equal(t, htsbgzf.Offset{File: 25}, end)

	err = r.Seek(htsbgzf.Offset{File: 1, Block: 3})
	assert.True(t, feature.Class(err) == feature.ErrIndexCorrupt, "%v", err)
	require.NoError(t, r.Close())
}

func TestPlainLineReaderLongLine(t *testing.T) {
	long := bytes.Repeat([]byte{'A'}, 200000)
	data := append(append([]byte("x\n"), long...), '\n')
	r, err := feature.NewLineReader(bytes.NewReader(data), false)
	require.NoError(t, err)
	lines, begins := readAll(t, r)
	require.Len(t, lines, 2)
	assert.Equal(t, string(long), lines[1])
	assert.Equal(t, int64(2), begins[1].File)
}

func writeBGZF(t *testing.T, lines []string, blockSize int) ([]byte, []htsbgzf.Offset) {
	var buf bytes.Buffer
	w, err := bgzf.NewWriterSize(&buf, 1, blockSize)
	require.NoError(t, err)
	var offsets []htsbgzf.Offset
	for _, line := range lines {
		offsets = append(offsets, w.Offset())
		_, err := w.Write([]byte(line + "\n"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes(), offsets
}

func TestBGZFLineReader(t *testing.T) {
	for _, blockSize := range []int{5, 7, 8, 1000} {
		data, offsets := writeBGZF(t, testLines, blockSize)
		r, err := feature.NewLineReader(bytes.NewReader(data), true)
		require.NoError(t, err)
		lines, begins := readAll(t, r)
		assert.Equal(t, testLines, lines, "block size %d", blockSize)
		assert.Equal(t, offsets, begins, "block size %d", blockSize)

		for i := len(offsets) - 1; i >= 0; i-- {
			require.NoError(t, r.Seek(offsets[i]))
			line, begin, _, err := r.ReadLine()
			require.NoError(t, err)
			assert.Equal(t, testLines[i], string(line))
			assert.Equal(t, offsets[i], begin)
		}
		require.NoError(t, r.Close())
	}
}

func TestBGZFLineReaderGarbage(t *testing.T) {
	_, err := feature.NewLineReader(bytes.NewReader([]byte("plain text, not bgzf\n")), true)
	assert.Error(t, err)
	assert.NotNil(t, feature.Class(err))
}

func TestLineScanner(t *testing.T) {
	data := "#a\n#b\nrec1\nrec2\n"
	r, err := feature.NewLineReader(bytes.NewReader([]byte(data)), false)
	require.NoError(t, err)
	s := feature.NewLineScanner(r, htsbgzf.Offset{})
	assert.Equal(t, htsbgzf.Offset{}, s.Offset())

	line, err := s.Peek()
	require.NoError(t, err)
	assert.Equal(t, "#a", string(line))
	line, err = s.Next()
	require.NoError(t, err)
	assert.Equal(t, "#a", string(line))
	assert.Equal(t, htsbgzf.Offset{File: 3}, s.Offset())

	_, err = s.Next()
	require.NoError(t, err)
	line, err = s.Peek()
	require.NoError(t, err)
	assert.Equal(t, "rec1", string(line))
	assert.Equal(t, htsbgzf.Offset{File: 6}, s.Offset())

	_, err = s.Next()
	require.NoError(t, err)
	begin, end := s.Span()
	assert.Equal(t, htsbgzf.Offset{File: 6}, begin)
	assert.Equal(t, htsbgzf.Offset{File: 11}, end)
	_, err = s.Next()
	require.NoError(t, err)
	_, err = s.Peek()
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, htsbgzf.Offset{File: int64(len(data))}, s.Offset())
}

func TestInterval(t *testing.T) {
	assert.NoError(t, feature.Interval{"1", 1, 1}.Validate())
	assert.Equal(t, feature.ErrInvalidInterval, feature.Class(feature.Interval{"1", 0, 10}.Validate()))
	assert.Equal(t, feature.ErrInvalidInterval, feature.Class(feature.Interval{"1", 10, 9}.Validate()))
	assert.Equal(t, "1:190-210", feature.Interval{"1", 190, 210}.String())
}
