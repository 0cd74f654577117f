// Package fonts locates a Cyrillic-capable TrueType font at startup.
package fonts

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"codeberg.org/go-pdf/fpdf"
	"golang.org/x/image/font/opentype"

	"consentpdf/internal/infra/logging"
	"consentpdf/internal/translit"
)

const (
	// CanonicalName is the family name a resolved font is registered under.
	CanonicalName = "CustomFont"
	// FallbackName is the built-in PDF base font used when nothing resolves.
	FallbackName = "Helvetica"
)

// DefaultCandidates lists the probed font locations in priority order.
var DefaultCandidates = []string{
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/TTF/DejaVuSans.ttf",
	"/System/Library/Fonts/Helvetica.ttc",
	"C:/Windows/Fonts/arial.ttf",
}

// Selection is the outcome of font resolution. It is computed once and then
// only read, so it can be shared between concurrent renders.
type Selection struct {
	Registered bool
	Name       string
	Path       string
	Data       []byte
	// Digest is the hex SHA-256 of Data, empty for the fallback.
	Digest string
}

// Fallback returns the selection used when no font file is usable.
func Fallback() *Selection {
	return &Selection{Name: FallbackName}
}

// SafeText returns s unchanged when a capable font was registered and its
// transliteration otherwise.
func (s *Selection) SafeText(text string) string {
	if s.Registered {
		return text
	}
	return translit.Transliterate(text)
}

// Fingerprint identifies the font by content, so two selections that share
// a family name but embed different files never compare equal.
func (s *Selection) Fingerprint() string {
	if !s.Registered {
		return s.Name
	}
	d := s.Digest
	if d == "" {
		d = digest(s.Data)
	}
	return s.Name + "@" + d
}

func digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// LoadFunc reads and validates the font at path.
type LoadFunc func(path string) ([]byte, error)

// ErrUnsupportedOutlines is returned for fonts the PDF engine cannot embed:
// CFF-flavoured OpenType (OTTO) and font collections (ttcf).
var ErrUnsupportedOutlines = errors.New("only TrueType-outline fonts can be embedded")

// LoadTrueType reads path and checks that it is a single TrueType-outline
// font that both parses and embeds.
func LoadTrueType(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := checkSFNTVersion(data); err != nil {
		return nil, err
	}
	if _, err := opentype.Parse(data); err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	if err := checkEmbeddable(data); err != nil {
		return nil, fmt.Errorf("embed font: %w", err)
	}
	return data, nil
}

func checkSFNTVersion(data []byte) error {
	if len(data) < 4 {
		return errors.New("parse font: file too short")
	}
	switch v := binary.BigEndian.Uint32(data); v {
	case 0x00010000, 0x74727565: // 1.0, "true"
		return nil
	case 0x4F54544F, 0x74746366: // "OTTO", "ttcf"
		return fmt.Errorf("%w: sfnt version %q", ErrUnsupportedOutlines, data[:4])
	default:
		return fmt.Errorf("parse font: unknown sfnt version %#x", v)
	}
}

// checkEmbeddable registers data into a scratch document and selects it, the
// same calls a render makes.
func checkEmbeddable(data []byte) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("%v", v)
		}
	}()
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.AddUTF8FontFromBytes(CanonicalName, "", data)
	pdf.SetFont(CanonicalName, "", 10)
	pdf.GetStringWidth("Согласие")
	return pdf.Error()
}

// Resolve probes candidates in order and returns the first one that exists
// and loads. A nil load uses LoadTrueType. It never fails: when no candidate
// is usable the fallback selection is returned.
func Resolve(candidates []string, load LoadFunc) *Selection {
	if load == nil {
		load = LoadTrueType
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				logging.Warn("Font candidate not accessible", "path", path, "error", err)
			}
			continue
		}
		data, err := load(path)
		if err != nil {
			logging.Warn("Failed to load font", "path", path, "error", err)
			continue
		}
		sel := &Selection{Registered: true, Name: CanonicalName, Path: path, Data: data, Digest: digest(data)}
		logging.Info("Font registered", "path", path, "name", CanonicalName, "sha256", sel.Digest)
		return sel
	}

	logging.Warn("No Cyrillic font found, falling back to transliteration", "font", FallbackName)
	return Fallback()
}
