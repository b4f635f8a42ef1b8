package render

import (
	"os"
	"path/filepath"

	"github.com/golang/freetype/truetype"
	"github.com/pkg/errors"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	regularFontFile = "regular.ttf"
	boldFontFile    = "bold.ttf"
)

type fontSet struct {
	regular []byte
	bold    []byte
}

// loadFonts reads regular.ttf and bold.ttf from dir, falling back to the Go fonts for missing files or an empty dir.
func loadFonts(dir string) (fontSet, error) {
	fs := fontSet{regular: goregular.TTF, bold: gobold.TTF}
	if dir == "" {
		return fs, nil
	}
	for name, dst := range map[string]*[]byte{regularFontFile: &fs.regular, boldFontFile: &fs.bold} {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return fontSet{}, errors.Wrapf(err, "reading font %s", name)
		}
		if _, err := truetype.Parse(b); err != nil {
			return fontSet{}, errors.Wrapf(err, "parsing font %s", name)
		}
		*dst = b
	}
	return fs, nil
}

func newFace(ttf []byte, size float64) (font.Face, error) {
	parsed, err := truetype.Parse(ttf)
	if err != nil {
		return nil, errors.Wrap(err, "parsing TTF")
	}
	return truetype.NewFace(parsed, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	}), nil
}
