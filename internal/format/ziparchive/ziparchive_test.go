package ziparchive

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/majewsky/wininstall-analyze/model"
)

func buildZip(t *testing.T, names []string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, name := range names {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte("payload"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestDecodeAutoSelectsSoleCandidate(t *testing.T) {
	data := buildZip(t, []string{"readme.txt", "setup.msi"})

	called := false
	analyze := func(data []byte, fileName string) ([]model.Installer, error) {
		called = true
		require.Equal(t, "setup.msi", fileName)
		return []model.Installer{{Architecture: model.ArchX64, Type: model.TypeMsi}}, nil
	}

	results, err := Decode(data, analyze, nil)
	require.NoError(t, err)
	require.True(t, called)
	require.Len(t, results, 1)
	require.Equal(t, model.TypeZip, results[0].Type)
	require.Equal(t, model.TypeMsi, results[0].NestedInstallerType)
	require.Equal(t, []string{"setup.msi"}, results[0].NestedInstallerFiles)
}

func TestDecodeExcludesMacOSXFolder(t *testing.T) {
	data := buildZip(t, []string{"__MACOSX/setup.msi", "real/setup.exe"})

	analyze := func(data []byte, fileName string) ([]model.Installer, error) {
		return []model.Installer{{Architecture: model.ArchX86, Type: model.TypeExe}}, nil
	}

	results, err := Decode(data, analyze, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, []string{"real/setup.exe"}, results[0].NestedInstallerFiles)
}

func TestDecodeDefersToSelectorWhenAmbiguous(t *testing.T) {
	data := buildZip(t, []string{"a.msi", "b.msi"})

	analyze := func(data []byte, fileName string) ([]model.Installer, error) {
		return []model.Installer{{Architecture: model.ArchX86, Type: model.TypeMsi}}, nil
	}
	selector := func(candidates []string) ([]string, error) {
		require.Len(t, candidates, 2)
		return []string{"a.msi"}, nil
	}

	results, err := Decode(data, analyze, selector)
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestDecodeReturnsErrorWhenAmbiguousAndNoSelector(t *testing.T) {
	data := buildZip(t, []string{"a.msi", "b.msi"})
	analyze := func(data []byte, fileName string) ([]model.Installer, error) {
		return nil, nil
	}
	_, err := Decode(data, analyze, nil)
	require.Error(t, err)
}
