package fonts

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/goregular"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

func TestResolve_FirstLoadableWins(t *testing.T) {
	broken := writeFile(t, "broken.ttf", []byte("definitely not a font"))
	good := writeFile(t, "good.ttf", goregular.TTF)
	later := writeFile(t, "later.ttf", goregular.TTF)

	sel := Resolve([]string{broken, good, later}, nil)

	assert.True(t, sel.Registered)
	assert.Equal(t, CanonicalName, sel.Name)
	assert.Equal(t, good, sel.Path)
	assert.Equal(t, goregular.TTF, sel.Data)
}

func TestResolve_CFFOutlinesFallThrough(t *testing.T) {
	cff := filepath.Join("testdata", "CFFTest.otf")
	good := writeFile(t, "good.ttf", goregular.TTF)

	_, err := LoadTrueType(cff)
	require.ErrorIs(t, err, ErrUnsupportedOutlines)

	sel := Resolve([]string{cff, good}, nil)
	assert.True(t, sel.Registered)
	assert.Equal(t, good, sel.Path)

	assert.Equal(t, Fallback(), Resolve([]string{cff}, nil))
}

func TestLoadTrueType_RejectsCollectionsAndShortFiles(t *testing.T) {
	ttc := append([]byte("ttcf"), goregular.TTF[4:]...)
	_, err := LoadTrueType(writeFile(t, "fonts.ttc", ttc))
	assert.ErrorIs(t, err, ErrUnsupportedOutlines)

	_, err = LoadTrueType(writeFile(t, "short.ttf", []byte{0, 1}))
	assert.Error(t, err)

	data, err := LoadTrueType(writeFile(t, "good.ttf", goregular.TTF))
	require.NoError(t, err)
	assert.Equal(t, goregular.TTF, data)
}

func TestResolve_SkipsMissingAndStopsAtFirstSuccess(t *testing.T) {
	a := writeFile(t, "a.ttf", nil)
	b := writeFile(t, "b.ttf", nil)
	missing := filepath.Join(t.TempDir(), "missing.ttf")

	var tried []string
	load := func(path string) ([]byte, error) {
		tried = append(tried, path)
		if path == a {
			return nil, errors.New("corrupt")
		}
		return []byte("ok"), nil
	}

	sel := Resolve([]string{missing, a, b, writeFile(t, "c.ttf", nil)}, load)

	assert.True(t, sel.Registered)
	assert.Equal(t, b, sel.Path)
	assert.Equal(t, []string{a, b}, tried)
}

func TestResolve_FallbackWhenNothingUsable(t *testing.T) {
	broken := writeFile(t, "broken.ttf", []byte{0, 1, 0, 0})
	sel := Resolve([]string{filepath.Join(t.TempDir(), "none.ttf"), broken}, nil)

	assert.False(t, sel.Registered)
	assert.Equal(t, FallbackName, sel.Name)
	assert.Empty(t, sel.Data)

	assert.Equal(t, Fallback(), Resolve(nil, nil))
}

func TestResolve_IsRepeatable(t *testing.T) {
	good := writeFile(t, "good.ttf", goregular.TTF)
	assert.Equal(t, Resolve([]string{good}, nil), Resolve([]string{good}, nil))
}

func TestSelection_Fingerprint(t *testing.T) {
	assert.Equal(t, FallbackName, Fallback().Fingerprint())

	a := Resolve([]string{writeFile(t, "a.ttf", goregular.TTF)}, nil)
	b := Resolve([]string{writeFile(t, "b.ttf", goregular.TTF)}, nil)
	assert.Equal(t, a.Fingerprint(), b.Fingerprint(), "same bytes at different paths")

	other := &Selection{Registered: true, Name: CanonicalName, Data: []byte("other font")}
	assert.NotEqual(t, a.Fingerprint(), other.Fingerprint())

	unset := &Selection{Registered: true, Name: CanonicalName, Data: goregular.TTF}
	assert.Equal(t, a.Fingerprint(), unset.Fingerprint())
}

func TestSafeText(t *testing.T) {
	registered := &Selection{Registered: true, Name: CanonicalName}
	for _, s := range []string{"", "Привет", "Щука 🏎️", "A1!"} {
		assert.Equal(t, s, registered.SafeText(s))
	}

	fallback := Fallback()
	assert.Equal(t, "Privet", fallback.SafeText("Привет"))
	assert.Equal(t, "Shchuka", fallback.SafeText("Щука"))
	assert.Equal(t, "A1!🏎️", fallback.SafeText("A1!🏎️"))
	assert.Equal(t, "", fallback.SafeText("ЬъЪь"))
}
