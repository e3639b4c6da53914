package render

import "github.com/okian/evalfast/pkg/logger"

// Option applies a configuration option to the Renderer.
type Option func(*Renderer)

// WithDPI sets the raster resolution of PNG output.
func WithDPI(dpi int) Option {
	return func(r *Renderer) {
		if dpi > 0 {
			r.dpi = dpi
		}
	}
}

// WithBins sets the histogram bin count.
func WithBins(n int) Option {
	return func(r *Renderer) {
		if n > 0 {
			r.bins = n
		}
	}
}

// WithAnnotation sets the text boxed in the lower right of the survival plot.
func WithAnnotation(text string) Option {
	return func(r *Renderer) { r.annotation = text }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Renderer) {
		if l != nil {
			r.logger = l
		}
	}
}
