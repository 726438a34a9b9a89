package inno

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func buildFields(values ...string) []byte {
	var buf bytes.Buffer
	for _, v := range values {
		var lenBytes [4]byte
		binary.LittleEndian.PutUint32(lenBytes[:], uint32(len(v)))
		buf.Write(lenBytes[:])
		buf.WriteString(v)
	}
	return buf.Bytes()
}

func TestFieldReaderReadsLengthPrefixed(t *testing.T) {
	r := newFieldReader(buildFields("MyApp", "", "1.0.0"))
	v1, err := r.Field()
	require.NoError(t, err)
	require.Equal(t, "MyApp", v1)

	v2, err := r.Field()
	require.NoError(t, err)
	require.Equal(t, "", v2)

	v3, err := r.Field()
	require.NoError(t, err)
	require.Equal(t, "1.0.0", v3)
}

func TestReadHeaderFieldsOrderedSequence(t *testing.T) {
	values := make([]string, 29)
	values[0] = "MyApp"
	values[9] = "1.2.3"
	values[10] = "{pf}\\MyApp"
	h, err := readHeaderFields(buildFields(values...))
	require.NoError(t, err)
	require.Equal(t, "MyApp", h.AppName)
	require.Equal(t, "1.2.3", h.AppVersion)
	require.Equal(t, `{pf}\MyApp`, h.DefaultDirName)
}

func TestReadHeaderFieldsTruncatedStreamTreatedAsAbsent(t *testing.T) {
	h, err := readHeaderFields(buildFields("MyApp"))
	require.NoError(t, err)
	require.Equal(t, "MyApp", h.AppName)
	require.Equal(t, "", h.AppVersionedName)
}

func TestProductCode(t *testing.T) {
	h := &headerFields{AppID: "{{2support-guid}}"}
	require.Equal(t, "{2support-guid}}_is1", h.productCode())

	h2 := &headerFields{AppID: "{MyAppID}"}
	require.Equal(t, "{MyAppID}_is1", h2.productCode())

	h3 := &headerFields{}
	require.Equal(t, "", h3.productCode())
}
