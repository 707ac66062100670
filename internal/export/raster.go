package export

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

// ErrRegionNotFound means the page loaded but the region selector matched
// nothing, so there is nothing attached to capture.
var ErrRegionNotFound = errors.New("render region is not attached")

// ErrBrowserUnavailable means Chrome could not be launched or reached.
var ErrBrowserUnavailable = errors.New("browser unavailable")

// Region identifies the rendered surface to capture: a page and a CSS
// selector inside it.
type Region struct {
	URL      string
	Selector string
}

// Rasterizer captures a Region as PNG bytes.
type Rasterizer interface {
	Capture(ctx context.Context, region Region) ([]byte, error)
}

type RasterConfig struct {
	// Scale is the device scale factor used for capture.
	Scale          float64
	Background     color.RGBA
	ViewportWidth  int
	ViewportHeight int
	ChromeBin      string
	Headless       bool
	Timeout        time.Duration
}

func DefaultRasterConfig() RasterConfig {
	return RasterConfig{
		Scale:          2,
		Background:     color.RGBA{R: 0x0f, G: 0x17, B: 0x2a, A: 0xff},
		ViewportWidth:  1280,
		ViewportHeight: 800,
		Headless:       true,
		Timeout:        30 * time.Second,
	}
}

// ParseHexColor parses #rgb or #rrggbb into an opaque color.
func ParseHexColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

// BrowserRasterizer drives a headless Chrome through rod. The browser is
// launched on first use and reused until Close.
type BrowserRasterizer struct {
	cfg RasterConfig
	log *zap.Logger

	mu      sync.Mutex
	browser *rod.Browser
}

func NewBrowserRasterizer(cfg RasterConfig, log *zap.Logger) *BrowserRasterizer {
	if log == nil {
		log = zap.NewNop()
	}
	return &BrowserRasterizer{cfg: cfg, log: log}
}

func (r *BrowserRasterizer) ensureStarted() (*rod.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browser != nil {
		if _, err := r.browser.Version(); err == nil {
			return r.browser, nil
		}
		r.log.Warn("stale browser connection, relaunching")
		_ = r.browser.Close()
		r.browser = nil
	}

	l := launcher.New().Headless(r.cfg.Headless)
	if r.cfg.ChromeBin != "" {
		l = l.Bin(r.cfg.ChromeBin)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: launch chrome: %v", ErrBrowserUnavailable, err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("%w: connect to chrome: %v", ErrBrowserUnavailable, err)
	}
	r.log.Info("browser started", zap.Bool("headless", r.cfg.Headless))
	r.browser = browser
	return browser, nil
}

// Box is an element's border box in CSS pixels, relative to the document
// rather than the viewport.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// documentBoxJS measures the element it is called on. scrollX/scrollY move
// the viewport-relative rect into document space.
const documentBoxJS = `() => {
	const r = this.getBoundingClientRect();
	return {x: r.left + window.scrollX, y: r.top + window.scrollY, width: r.width, height: r.height};
}`

// Clip snaps b outward to whole CSS pixels. Chrome renders the clip at the
// device scale factor, so the bitmap comes out ScaledSize(b, scale) large.
func (b Box) Clip() *proto.PageViewport {
	x, y := math.Floor(b.X), math.Floor(b.Y)
	return &proto.PageViewport{
		X:      x,
		Y:      y,
		Width:  math.Ceil(b.X+b.Width) - x,
		Height: math.Ceil(b.Y+b.Height) - y,
		Scale:  1,
	}
}

// ScaledSize is the pixel size of the bitmap captured for b at scale.
func (b Box) ScaledSize(scale float64) (int, int) {
	clip := b.Clip()
	return int(math.Round(clip.Width * scale)), int(math.Round(clip.Height * scale))
}

// Capture loads region.URL in a fresh page at the configured scale over the
// configured background and captures the whole element matching
// region.Selector, including any part below the viewport.
func (r *BrowserRasterizer) Capture(ctx context.Context, region Region) ([]byte, error) {
	browser, err := r.ensureStarted()
	if err != nil {
		return nil, err
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	defer func(p *rod.Page) { _ = p.Close() }(page)

	timeout := r.cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	page = page.Context(ctx).Timeout(timeout)
	defer page.CancelTimeout()

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             r.cfg.ViewportWidth,
		Height:            r.cfg.ViewportHeight,
		DeviceScaleFactor: r.cfg.Scale,
		Mobile:            false,
	}); err != nil {
		return nil, fmt.Errorf("set viewport: %w", err)
	}

	bg := r.cfg.Background
	if err := (proto.EmulationSetDefaultBackgroundColorOverride{
		Color: &proto.DOMRGBA{R: int(bg.R), G: int(bg.G), B: int(bg.B)},
	}).Call(page); err != nil {
		return nil, fmt.Errorf("set background: %w", err)
	}

	if err := page.Navigate(region.URL); err != nil {
		return nil, fmt.Errorf("navigate %s: %w", region.URL, err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait load: %w", err)
	}

	has, el, err := page.Has(region.Selector)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", region.Selector, err)
	}
	if !has {
		return nil, fmt.Errorf("%w: %s", ErrRegionNotFound, region.Selector)
	}

	obj, err := el.Eval(documentBoxJS)
	if err != nil {
		return nil, fmt.Errorf("measure %s: %w", region.Selector, err)
	}
	var box Box
	if err := obj.Value.Unmarshal(&box); err != nil {
		return nil, fmt.Errorf("decode box of %s: %w", region.Selector, err)
	}
	if box.Width <= 0 || box.Height <= 0 {
		return nil, fmt.Errorf("%w: %s has an empty box", ErrRegionNotFound, region.Selector)
	}

	data, err := page.Screenshot(false, &proto.PageCaptureScreenshot{
		Format:                proto.PageCaptureScreenshotFormatPng,
		Clip:                  box.Clip(),
		CaptureBeyondViewport: true,
	})
	if err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	r.log.Debug("region captured",
		zap.String("selector", region.Selector),
		zap.Float64("width", box.Width),
		zap.Float64("height", box.Height),
		zap.Int("bytes", len(data)),
	)
	return data, nil
}

func (r *BrowserRasterizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browser == nil {
		return nil
	}
	err := r.browser.Close()
	r.browser = nil
	return err
}
