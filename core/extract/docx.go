package extract

import (
	"archive/zip"
	"encoding/xml"
	"io"
	"strings"

	"github.com/pkg/errors"
)

const docxBody = "word/document.xml"

// readDOCX returns the text of every paragraph of a .docx file, joined with spaces.
// Runs of one paragraph are concatenated as is.
func readDOCX(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", errors.Wrap(err, "opening docx")
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != docxBody {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", errors.Wrap(err, "opening docx body")
		}
		defer rc.Close()
		paras, err := docxParagraphs(rc)
		if err != nil {
			return "", err
		}
		return strings.Join(paras, " "), nil
	}
	return "", errors.Errorf("docx has no %s", docxBody)
}

func docxParagraphs(r io.Reader) ([]string, error) {
	var (
		paras  []string
		buf    strings.Builder
		inPara bool
		inText bool
	)
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "decoding docx body")
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				inPara = true
				buf.Reset()
			case "t":
				inText = inPara
			case "tab":
				if inPara {
					buf.WriteByte('\t')
				}
			case "br", "cr":
				if inPara {
					buf.WriteByte('\n')
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if inPara {
					paras = append(paras, strings.TrimSpace(buf.String()))
				}
				inPara = false
			}
		case xml.CharData:
			if inText {
				buf.Write(t)
			}
		}
	}
	return paras, nil
}
