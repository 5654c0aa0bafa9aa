package bgzf

import (
	"bytes"
	"io/ioutil"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/grailbio/featureio/feature"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/expect"
	"github.com/pkg/errors"
)

var blockCompressedNames = []struct {
	name string
	want bool
}{
	{"testzip.gz", true},
	{"test.gzip", true},
	{"test.bgz", true},
	{"test.bgzf", true},
	{"test.GZ", true},
	{"test.vcf.gz", true},
	{"test.bzip", false},
	{"test.zip", false},
	{"test", false},
	{"test.gz.txt", false},
	{"test.vcf", false},
	{"gz", false},
}

var blockCompressedURIs = []struct {
	uri  string
	want bool
}{
	{"http://www.example.com/test.bgz", true},
	{"http://www.example.com/test.gz", true},
	{"http://www.example.com/test.gzip", true},
	{"http://www.example.com/test.bgzf", true},
	{"http://www.example.com/test", false},
	{"http://www.example.com/test.gz?alt=media", true},
	{"http://www.example.com/test.vcf?file=test.gz", false},
	{"http://www.example.com/test.gz#section", true},
	{"https://host/dir/test.vcf.gz?X-Amz-Expires=300&Signature=abc", true},
	{"ftp://ftp.example.org/dir/test.bed.gz", true},
	{"ftp://ftp.example.org/dir/test.bed", false},
	{"s3://bucket/key/test.vcf.bgz", true},
	{"mem:///data/test.vcf.gz", true},
	{"mem:///data/test.vcf", false},
	{"file:///local/test.gz", true},
}

func TestBlockCompressedExtensionString(t *testing.T) {
	for _, test := range blockCompressedNames {
		expect.EQ(t, HasBlockCompressedExtension(test.name), test.want, test.name)
	}
}

func TestBlockCompressedExtensionFile(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	for _, test := range blockCompressedNames {
		path := filepath.Join(tempDir, test.name)
		expect.NoError(t, ioutil.WriteFile(path, []byte("x"), 0600))
		f, err := os.Open(path)
		expect.NoError(t, err)
		expect.EQ(t, HasBlockCompressedExtensionFile(f), test.want, test.name)
		expect.EQ(t, HasBlockCompressedExtension(path), test.want, path)
		expect.NoError(t, f.Close())
	}
}

func TestBlockCompressedExtensionURI(t *testing.T) {
	for _, test := range blockCompressedURIs {
		u, err := url.Parse(test.uri)
		expect.NoError(t, err)
		expect.EQ(t, HasBlockCompressedExtensionURL(u), test.want, test.uri)
		expect.EQ(t, HasBlockCompressedExtension(test.uri), test.want, test.uri)
	}
}

func TestCheckTerminator(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, 1)
	expect.NoError(t, err)
	_, err = w.Write([]byte("1\t100\t.\tA\tC\t.\t.\t.\n"))
	expect.NoError(t, err)
	expect.NoError(t, w.Close())
	data := buf.Bytes()
	expect.NoError(t, CheckTerminator(bytes.NewReader(data), int64(len(data))))

	truncated := data[:len(data)-1]
	err = CheckTerminator(bytes.NewReader(truncated), int64(len(truncated)))
	expect.EQ(t, errors.Cause(err), feature.ErrSourceTruncated)

	err = CheckTerminator(bytes.NewReader(data[:10]), 10)
	expect.EQ(t, errors.Cause(err), feature.ErrSourceTruncated)
}

func TestTrimBlockCompressedExtension(t *testing.T) {
	for _, test := range []struct{ in, want string }{
		{"a.vcf.gz", "a.vcf"},
		{"a.VCF.BGZ", "a.VCF"},
		{"a.bed.gzip", "a.bed"},
		{"a.bed", "a.bed"},
		{"a.gz.gz", "a.gz"},
		{"gz", "gz"},
	} {
		expect.EQ(t, TrimBlockCompressedExtension(test.in), test.want)
	}
}
