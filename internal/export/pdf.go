package export

import (
	"bytes"
	"fmt"
	"image"
	_ "image/png"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"
)

// PageFormat is a page size in PDF points.
type PageFormat struct {
	Name   string
	Width  float64
	Height float64
}

var (
	A4     = PageFormat{Name: "A4", Width: 595.28, Height: 841.89}
	Letter = PageFormat{Name: "Letter", Width: 612, Height: 792}
)

// LookupPageFormat resolves a format by case-insensitive name.
func LookupPageFormat(name string) (PageFormat, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "a4":
		return A4, nil
	case "letter":
		return Letter, nil
	default:
		return PageFormat{}, fmt.Errorf("unknown page format %q", name)
	}
}

const imageName = "advice"

// WritePDF paginates the PNG bitmap onto pages of the given format and
// writes the document to w.
func WritePDF(w io.Writer, pngData []byte, format PageFormat) (Layout, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(pngData))
	if err != nil {
		return Layout{}, fmt.Errorf("decode bitmap: %w", err)
	}

	layout, err := Paginate(cfg.Width, cfg.Height, format.Width, format.Height)
	if err != nil {
		return Layout{}, err
	}

	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: format.Width, Ht: format.Height},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)

	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(imageName, opts, bytes.NewReader(pngData))
	if err := pdf.Error(); err != nil {
		return Layout{}, fmt.Errorf("register bitmap: %w", err)
	}

	for _, offset := range layout.Offsets {
		pdf.AddPage()
		pdf.ImageOptions(imageName, 0, offset, layout.ImageWidth, layout.ImageHeight, false, opts, 0, "")
	}

	if err := pdf.Output(w); err != nil {
		return Layout{}, fmt.Errorf("write pdf: %w", err)
	}
	return layout, nil
}
