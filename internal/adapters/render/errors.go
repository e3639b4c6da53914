package render

import "errors"

var (
	ErrNoRatios  = errors.New("no relative survival ratios to draw")
	ErrNoCurves  = errors.New("neither observed nor expected survival is available")
	ErrDraw      = errors.New("build figure")
	ErrWriteFile = errors.New("write figure")
)
