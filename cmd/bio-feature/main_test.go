package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/featureio/featurereader"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testHeader = "##fileformat=VCFv4.2\n" +
	"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\n"

func testVCF() string {
	var b strings.Builder
	b.WriteString(testHeader)
	for _, contig := range []string{"1", "2", "3"} {
		for pos := 100; pos <= 5000; pos += 100 {
			fmt.Fprintf(&b, "%s\t%d\trs%s_%d\tA\tC\t.\tPASS\t.\n", contig, pos, contig, pos)
		}
	}
	return b.String()
}

func setup(t *testing.T) (string, func()) {
	dir, cleanup := testutil.TempDir(t, "", "")
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "test.vcf"), []byte(testVCF()), 0644))
	return dir, cleanup
}

func TestIndexAndView(t *testing.T) {
	dir, cleanup := setup(t)
	defer testutil.NoCleanupOnError(t, cleanup, dir)
	plain := filepath.Join(dir, "test.vcf")

	require.NoError(t, bgzip(plain, bgzipOpts{level: -1}))
	gz := plain + ".gz"
	require.NoError(t, index([]string{plain, gz}, featurereader.IndexOpts{}, 0))
	_, err := os.Stat(plain + ".idx")
	require.NoError(t, err)
	_, err = os.Stat(gz + ".tbi")
	require.NoError(t, err)

	for _, path := range []string{plain, gz} {
		var out bytes.Buffer
		require.NoError(t, view(&out, path, viewOpts{regions: "2:250-450;3:5,000", requireIndex: true}))
		expect.EQ(t, out.String(), "2\t300\trs2_300\tA\tC\t.\tPASS\t.\n"+
			"2\t400\trs2_400\tA\tC\t.\tPASS\t.\n"+
			"3\t5000\trs3_5000\tA\tC\t.\tPASS\t.\n")

		out.Reset()
		require.NoError(t, view(&out, path, viewOpts{header: true}))
		expect.EQ(t, out.String(), testVCF())

		out.Reset()
		require.NoError(t, view(&out, path, viewOpts{headerOnly: true}))
		expect.EQ(t, out.String(), testHeader)
	}

	bedPath := filepath.Join(dir, "regions.bed")
	require.NoError(t, ioutil.WriteFile(bedPath, []byte("track name=regions\n1\t99\t100\n3\t4850\t5100\n"), 0644))
	var out bytes.Buffer
	require.NoError(t, view(&out, gz, viewOpts{bed: bedPath}))
	expect.EQ(t, out.String(), "1\t100\trs1_100\tA\tC\t.\tPASS\t.\n"+
		"3\t4900\trs3_4900\tA\tC\t.\tPASS\t.\n"+
		"3\t5000\trs3_5000\tA\tC\t.\tPASS\t.\n")

	err = view(&out, plain, viewOpts{regions: "2:0-10"})
	assert.Error(t, err)
}

func TestViewOutput(t *testing.T) {
	dir, cleanup := setup(t)
	defer testutil.NoCleanupOnError(t, cleanup, dir)
	plain := filepath.Join(dir, "test.vcf")
	out := filepath.Join(dir, "out.vcf")
	require.NoError(t, view(nil, plain, viewOpts{header: true, output: out}))
	data, err := ioutil.ReadFile(out)
	require.NoError(t, err)
	expect.EQ(t, string(data), testVCF())
}

func TestIndexKinds(t *testing.T) {
	dir, cleanup := setup(t)
	defer testutil.NoCleanupOnError(t, cleanup, dir)
	plain := filepath.Join(dir, "test.vcf")

	for _, opts := range []featurereader.IndexOpts{
		{Kind: featurereader.KindLinear, BinWidth: 250},
		{Kind: featurereader.KindIntervalTree, FeaturesPerInterval: 7},
	} {
		opts.Output = filepath.Join(dir, string(opts.Kind)+".idx")
		require.NoError(t, index([]string{plain}, opts, 1))
		var out bytes.Buffer
		require.NoError(t, view(&out, plain, viewOpts{index: opts.Output, regions: "1:1000-1200"}))
		expect.EQ(t, strings.Count(out.String(), "\n"), 3, opts.Kind)
	}
	assert.Error(t, index([]string{plain}, featurereader.IndexOpts{Kind: featurereader.KindTabix}, 1))
	assert.Error(t, index([]string{filepath.Join(dir, "missing.vcf")}, featurereader.IndexOpts{}, 1))
}

func TestChecksum(t *testing.T) {
	dir, cleanup := setup(t)
	defer testutil.NoCleanupOnError(t, cleanup, dir)
	plain := filepath.Join(dir, "test.vcf")
	require.NoError(t, bgzip(plain, bgzipOpts{level: -1, index: true}))
	require.NoError(t, index([]string{plain}, featurereader.IndexOpts{}, 1))

	parse := func(path string, opts checksumOpts) []contigChecksum {
		var out bytes.Buffer
		require.NoError(t, checksum(&out, path, opts))
		var csums []contigChecksum
		require.NoError(t, json.Unmarshal(out.Bytes(), &csums))
		return csums
	}
	want := parse(plain, checksumOpts{})
	require.Len(t, want, 3)
	for i, c := range want {
		expect.EQ(t, c.Name, fmt.Sprint(i+1))
		expect.EQ(t, c.NRecs, int64(50))
		expect.EQ(t, c.SumStart, uint64(50*51/2*100))
	}
	expect.EQ(t, parse(plain, checksumOpts{useIndex: true, parallelism: 2}), want)
	expect.EQ(t, parse(plain+".gz", checksumOpts{}), want)
	expect.EQ(t, parse(plain+".gz", checksumOpts{useIndex: true}), want)

	// A different file has a different checksum.
	require.NoError(t, ioutil.WriteFile(plain, []byte(strings.Replace(testVCF(), "rs2_300", "rs2_301", 1)), 0644))
	got := parse(plain, checksumOpts{})
	expect.EQ(t, got[0], want[0])
	assert.NotEqual(t, got[1], want[1])
}
