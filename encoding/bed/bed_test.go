package bed

import (
	"bytes"
	"testing"

	"github.com/grailbio/featureio/feature"
	htsbgzf "github.com/grailbio/hts/bgzf"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTokens(t *testing.T) {
	var tokens [4][]byte
	n := getTokens(tokens[:], []byte("  chr1\t10 \t20\tname\textra"))
	expect.EQ(t, n, 4)
	expect.EQ(t, string(tokens[0]), "chr1")
	expect.EQ(t, string(tokens[3]), "name")
	expect.EQ(t, getTokens(tokens[:], []byte(" \t ")), 0)
}

func TestDecode(t *testing.T) {
	c := Codec{}
	for _, test := range []struct {
		line       string
		contig     string
		start, end int
		name       string
	}{
		{"chr1\t0\t100", "chr1", 1, 100, ""},
		{"chr1\t99\t100\tfoo\t0\t+", "chr1", 100, 100, "foo"},
		{"chr2 1000 2000 bar", "chr2", 1001, 2000, "bar"},
		{"chr2\t500\t500\tins", "chr2", 501, 501, "ins"},
	} {
		f, err := c.Decode(nil, []byte(test.line))
		require.NoError(t, err, test.line)
		b := f.(*Feature)
		expect.EQ(t, b.Contig(), test.contig)
		expect.EQ(t, b.Start(), test.start)
		expect.EQ(t, b.End(), test.end)
		expect.EQ(t, b.Name, test.name)
		expect.EQ(t, b.String(), test.line)
	}
	for _, line := range []string{"", "#x", "track name=foo", "browser position chr1:1-10"} {
		f, err := c.Decode(nil, []byte(line))
		assert.NoError(t, err)
		assert.Nil(t, f)
	}
	for _, line := range []string{"chr1\t10", "chr1\tx\t20", "chr1\t-1\t20", "chr1\t30\t20"} {
		_, err := c.Decode(nil, []byte(line))
		assert.Equal(t, feature.ErrRecordDecode, feature.Class(err), line)
	}
}

func TestHeader(t *testing.T) {
	text := "track name=x\n#comment\nchr1\t0\t10\n"
	r, err := feature.NewLineReader(bytes.NewReader([]byte(text)), false)
	require.NoError(t, err)
	s := feature.NewLineScanner(r, htsbgzf.Offset{})
	h, err := Codec{}.DecodeHeader(s)
	require.NoError(t, err)
	expect.EQ(t, h.Version(), "")
	expect.EQ(t, h.String(), "track name=x\n#comment\n")
	expect.EQ(t, s.Offset(), htsbgzf.Offset{File: 22})
	line, err := s.Next()
	require.NoError(t, err)
	expect.EQ(t, string(line), "chr1\t0\t10")
}

func TestCanDecode(t *testing.T) {
	c := Codec{}
	expect.True(t, c.CanDecode("x.bed"))
	expect.True(t, c.CanDecode("x.BED.gz"))
	expect.True(t, c.CanDecode("ftp://host/pub/x.bed?y"))
	expect.False(t, c.CanDecode("x.bed.idx"))
	expect.False(t, c.CanDecode("x.vcf"))
}
