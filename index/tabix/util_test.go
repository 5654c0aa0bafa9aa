package tabix

import (
	"bytes"
	"testing"

	"github.com/grailbio/featureio/encoding/bgzf"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"
)

func compress(t *testing.T, data []byte) []byte {
	var buf bytes.Buffer
	w, err := bgzf.NewWriter(&buf, gzip.DefaultCompression)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}
