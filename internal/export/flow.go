// Package export turns the rendered advice report into a paginated PDF.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
)

// ErrExportInProgress is returned when Export is called while another export
// has not finished.
var ErrExportInProgress = errors.New("an export is already in progress")

const exportFailedMessage = "Could not export the report to PDF. Please try again."

// ExportError is the failure kind of the export flow. Message is generic and
// meant for the user; Err carries the cause for logs.
type ExportError struct {
	Message string
	Err     error
}

func (e *ExportError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

type Flow struct {
	raster Rasterizer
	format PageFormat
	log    *zap.Logger

	exporting atomic.Bool
}

func NewFlow(raster Rasterizer, format PageFormat, log *zap.Logger) *Flow {
	if log == nil {
		log = zap.NewNop()
	}
	return &Flow{raster: raster, format: format, log: log}
}

// IsExporting reports whether an export is currently running.
func (f *Flow) IsExporting() bool {
	return f.exporting.Load()
}

func (f *Flow) Format() PageFormat {
	return f.format
}

// Export captures region and returns it as a PDF document. The exporting
// flag is set for the duration of the call and cleared on every exit path.
func (f *Flow) Export(ctx context.Context, region Region) ([]byte, error) {
	if !f.exporting.CompareAndSwap(false, true) {
		return nil, ErrExportInProgress
	}
	defer f.exporting.Store(false)

	log := f.log.With(zap.String("url", region.URL), zap.String("selector", region.Selector))

	bitmap, err := f.raster.Capture(ctx, region)
	if err != nil {
		log.Error("export capture failed", zap.Error(err))
		return nil, &ExportError{Message: exportFailedMessage, Err: err}
	}

	var buf bytes.Buffer
	layout, err := WritePDF(&buf, bitmap, f.format)
	if err != nil {
		log.Error("export encoding failed", zap.Error(err))
		return nil, &ExportError{Message: exportFailedMessage, Err: err}
	}

	log.Info("export completed",
		zap.String("format", f.format.Name),
		zap.Int("pages", layout.Pages()),
		zap.Int("bytes", buf.Len()),
	)
	return buf.Bytes(), nil
}
