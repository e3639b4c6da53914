package render

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
	"gonum.org/v1/plot/vg/vgpdf"
)

type painter func(dc draw.Canvas)

// save paints the figure twice, once on a PNG canvas and once on a PDF
// canvas, and returns the written paths.
func (r *Renderer) save(base string, w, h vg.Length, paint painter) ([]string, error) {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWriteFile, err)
	}

	img := vgimg.NewWith(vgimg.UseWH(w, h), vgimg.UseDPI(r.dpi))
	paint(draw.New(img))
	pngPath := filepath.Join(r.dir, base+".png")
	if err := writeTo(pngPath, vgimg.PngCanvas{Canvas: img}); err != nil {
		return nil, err
	}

	pdf := vgpdf.New(w, h)
	paint(draw.New(pdf))
	pdfPath := filepath.Join(r.dir, base+".pdf")
	if err := writeTo(pdfPath, pdf); err != nil {
		return []string{pngPath}, err
	}
	return []string{pngPath, pdfPath}, nil
}

func writeTo(path string, w io.WriterTo) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFile, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: %w", ErrWriteFile, cerr)
		}
	}()
	if _, err := w.WriteTo(f); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWriteFile, path, err)
	}
	return nil
}
