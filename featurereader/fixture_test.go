package featurereader_test

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/grailbio/featureio/encoding/bgzf"
	"github.com/grailbio/featureio/featurereader"
	"github.com/grailbio/featureio/source"
	"github.com/klauspost/compress/gzip"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

const vcfHeader = "##fileformat=VCFv4.2\n" +
	"##contig=<ID=1,length=1000>\n" +
	"##contig=<ID=2,length=1000>\n" +
	"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\n"

var (
	contig1 = []int{10, 50, 100, 150, 185, 190, 200, 210, 300, 400, 500, 600, 700, 800}
	contig2 = []int{10, 50, 100, 150, 180, 205, 250, 300, 400, 500, 600, 700}
)

const nRecords = 26

// testVCF returns a VCF file with single-base records on contigs 1 and 2.
func testVCF() string {
	var b strings.Builder
	b.WriteString(vcfHeader)
	for _, c := range []struct {
		name string
		pos  []int
	}{{"1", contig1}, {"2", contig2}} {
		for _, p := range c.pos {
			fmt.Fprintf(&b, "%s\t%d\t.\tA\tG\t.\tPASS\t.\n", c.name, p)
		}
	}
	return b.String()
}

// wideVCF returns a VCF file that mixes point records and long records
// whose extent comes from INFO END, so that records overlap each other.
func wideVCF() string {
	var b strings.Builder
	b.WriteString(vcfHeader)
	for _, contig := range []string{"1", "2"} {
		for pos := 5; pos < 3000; pos += 23 {
			switch {
			case pos%7 == 0:
				fmt.Fprintf(&b, "%s\t%d\tsv%d\tN\t<DEL>\t.\tPASS\tSVTYPE=DEL;END=%d\n", contig, pos, pos, pos+pos%400)
			case pos%5 == 0:
				fmt.Fprintf(&b, "%s\t%d\tdel%d\tACGTACGT\tA\t.\tPASS\t.\n", contig, pos, pos)
			default:
				fmt.Fprintf(&b, "%s\t%d\tsnv%d\tC\tT\t.\tPASS\tDP=%d\n", contig, pos, pos, pos%50)
			}
		}
	}
	return b.String()
}

const bedText = "track name=test\n" +
	"chr1\t0\t100\ta\n" +
	"chr1\t150\t250\tb\n" +
	"chr1\t200\t201\tc\n" +
	"chr1\t1000\t5000\td\n" +
	"chr2\t10\t20\te\n"

// compress block-compresses text with small blocks, so records straddle
// block boundaries.
func compress(t *testing.T, text string) []byte {
	var buf bytes.Buffer
	w, err := bgzf.NewWriterSize(&buf, gzip.DefaultCompression, 97)
	require.NoError(t, err)
	_, err = w.Write([]byte(text))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

// fixture is an in-memory filesystem served under the "mem" scheme.
type fixture struct {
	t        *testing.T
	fs       afero.Fs
	resolver *source.Resolver
}

func newFixture(t *testing.T) *fixture {
	fs := afero.NewMemMapFs()
	r := source.NewResolver()
	r.Register("mem", source.NewFSTransport(fs))
	return &fixture{t: t, fs: fs, resolver: r}
}

func (f *fixture) write(path string, data []byte) string {
	require.NoError(f.t, afero.WriteFile(f.fs, path, data, 0644))
	return "mem://" + path
}

func (f *fixture) read(path string) []byte {
	data, err := afero.ReadFile(f.fs, path)
	require.NoError(f.t, err)
	return data
}

// index builds an index of the given kind over location and returns it
// serialized.
func (f *fixture) index(location string, opts featurereader.IndexOpts) []byte {
	opts.Resolver = f.resolver
	ix, err := featurereader.BuildIndex(context.Background(), location, opts)
	require.NoError(f.t, err)
	var buf bytes.Buffer
	require.NoError(f.t, ix.Write(&buf))
	return buf.Bytes()
}

// writeIndexed writes data at path together with its default index and
// returns the data location.
func (f *fixture) writeIndexed(path string, data []byte, opts featurereader.IndexOpts) string {
	loc := f.write(path, data)
	idx := featurereader.IndexPath(path)
	f.write(idx, f.index(loc, opts))
	return loc
}

func (f *fixture) opts() featurereader.Opts {
	return featurereader.Opts{Resolver: f.resolver}
}
