package overlay

import (
	"HawkVision/internal/entity"
	"fmt"
	"math"
)

// DisplayedImage is a handle to the rendered preview element. The caller
// that laid the element out passes it in; nothing here looks it up.
type DisplayedImage interface {
	Mounted() bool
	DisplayedSize() (width, height float64)
}

// Size is a DisplayedImage measured elsewhere, e.g. a browser's
// clientWidth/clientHeight posted back to the server.
type Size struct {
	Width  float64
	Height float64
}

func (s Size) Mounted() bool {
	return s.Width > 0 && s.Height > 0
}

func (s Size) DisplayedSize() (float64, float64) {
	return s.Width, s.Height
}

type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Text   string  `json:"text"`
}

type Scale struct {
	X float64
	Y float64
}

func NewScale(el DisplayedImage, native entity.ImageDimensions) (Scale, bool) {
	if el == nil || !el.Mounted() || native.IsZero() {
		return Scale{}, false
	}
	w, h := el.DisplayedSize()
	if w <= 0 || h <= 0 {
		return Scale{}, false
	}
	return Scale{
		X: w / float64(native.Width),
		Y: h / float64(native.Height),
	}, true
}

func (s Scale) Apply(d entity.Detection) Rect {
	return Rect{
		Left:   d.X1() * s.X,
		Top:    d.Y1() * s.Y,
		Width:  (d.X2() - d.X1()) * s.X,
		Height: (d.Y2() - d.Y1()) * s.Y,
		Text:   Label(d),
	}
}

// Render maps every detection from native pixel space onto el. It returns nil
// when there is nothing to draw or el has not been laid out yet.
func Render(el DisplayedImage, native entity.ImageDimensions, predictions []entity.Detection) []Rect {
	if len(predictions) == 0 {
		return nil
	}

	scale, ok := NewScale(el, native)
	if !ok {
		return nil
	}

	rects := make([]Rect, 0, len(predictions))
	for _, p := range predictions {
		rects = append(rects, scale.Apply(p))
	}
	return rects
}

func Label(d entity.Detection) string {
	return fmt.Sprintf("%s (%d%%)", d.Label, int(math.Round(d.Confidence*100)))
}
