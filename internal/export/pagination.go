package export

import (
	"fmt"
	"math"
)

// Layout describes how one tall bitmap is windowed across document pages.
// All lengths are in page units.
type Layout struct {
	PageWidth   float64
	PageHeight  float64
	ImageWidth  float64
	ImageHeight float64
	// Offsets holds the vertical position of the image on each page. The
	// first is always 0; page i shows the band starting i page heights down.
	Offsets []float64
}

func (l Layout) Pages() int {
	return len(l.Offsets)
}

// Band returns the [top, bottom) slice of the scaled image visible on page i.
func (l Layout) Band(i int) (top, bottom float64) {
	top = -l.Offsets[i]
	bottom = math.Min(top+l.PageHeight, l.ImageHeight)
	return top, bottom
}

// Paginate scales a bitmapW x bitmapH bitmap to the page width and slices it
// into page-high bands. The image is placed at offset 0 on the first page;
// while image height remains past the pages already emitted, another page is
// added with the image shifted up by the height consumed so far.
func Paginate(bitmapW, bitmapH int, pageW, pageH float64) (Layout, error) {
	if bitmapW <= 0 || bitmapH <= 0 {
		return Layout{}, fmt.Errorf("invalid bitmap size %dx%d", bitmapW, bitmapH)
	}
	if pageW <= 0 || pageH <= 0 || math.IsInf(pageW, 0) || math.IsInf(pageH, 0) {
		return Layout{}, fmt.Errorf("invalid page size %gx%g", pageW, pageH)
	}

	ratio := float64(bitmapW) / pageW
	imageH := float64(bitmapH) / ratio

	layout := Layout{
		PageWidth:   pageW,
		PageHeight:  pageH,
		ImageWidth:  pageW,
		ImageHeight: imageH,
		Offsets:     []float64{0},
	}

	// Remaining height is recomputed from the page count instead of being
	// decremented so rounding cannot add or drop a page.
	eps := pageH * 1e-9
	for consumed := 1; imageH-float64(consumed)*pageH > eps; consumed++ {
		layout.Offsets = append(layout.Offsets, -float64(consumed)*pageH)
	}
	return layout, nil
}
