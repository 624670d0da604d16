package captcha

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
	"math/rand/v2"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"
)

const (
	Width  = 160
	Height = 60

	noiseLines = 5
	glyphScale = 3.2
	maxTilt    = 0.45 // radians
)

var face = basicfont.Face7x13

// Render draws text into a distorted PNG.
func Render(text string) ([]byte, error) {
	canvas := image.NewRGBA(image.Rect(0, 0, Width, Height))
	bg := color.RGBA{R: uint8(230 + rand.IntN(26)), G: uint8(230 + rand.IntN(26)), B: uint8(230 + rand.IntN(26)), A: 255}
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	for i := 0; i < noiseLines/2; i++ {
		strokeLine(canvas, randomLine(), lightInk())
	}

	slot := float64(Width) / float64(len(text)+1)
	for i, r := range text {
		cx := slot*float64(i+1) + jitter(slot/5)
		cy := float64(Height)/2 + jitter(Height/8)
		drawGlyph(canvas, r, cx, cy, darkInk())
	}

	for i := noiseLines / 2; i < noiseLines; i++ {
		strokeLine(canvas, randomLine(), darkInk())
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// drawGlyph renders r on a small tile and maps it onto dst centred at
// (cx, cy) with random scale and rotation.
func drawGlyph(dst draw.Image, r rune, cx, cy float64, ink color.Color) {
	adv := face.Advance
	tile := image.NewRGBA(image.Rect(0, 0, adv, face.Height))
	d := font.Drawer{
		Dst:  tile,
		Src:  image.NewUniform(ink),
		Face: face,
		Dot:  fixed.P(0, face.Ascent),
	}
	d.DrawString(string(r))

	scale := glyphScale + jitter(0.5)
	theta := jitter(maxTilt)
	sin, cos := math.Sincos(theta)

	a, b := scale*cos, -scale*sin
	dd, e := scale*sin, scale*cos
	w0, h0 := float64(adv)/2, float64(face.Height)/2
	m := f64.Aff3{
		a, b, cx - (a*w0 + b*h0),
		dd, e, cy - (dd*w0 + e*h0),
	}
	draw.BiLinear.Transform(dst, m, tile, tile.Bounds(), draw.Over, nil)
}

type line struct{ x0, y0, x1, y1 int }

func randomLine() line {
	return line{
		x0: rand.IntN(Width / 4),
		y0: rand.IntN(Height),
		x1: Width - rand.IntN(Width/4),
		y1: rand.IntN(Height),
	}
}

// strokeLine draws a 2px Bresenham line.
func strokeLine(dst *image.RGBA, l line, c color.Color) {
	dx := abs(l.x1 - l.x0)
	dy := -abs(l.y1 - l.y0)
	sx, sy := 1, 1
	if l.x0 > l.x1 {
		sx = -1
	}
	if l.y0 > l.y1 {
		sy = -1
	}
	err := dx + dy
	x, y := l.x0, l.y0
	for {
		dst.Set(x, y, c)
		dst.Set(x, y+1, c)
		if x == l.x1 && y == l.y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
	}
}

func darkInk() color.RGBA {
	return color.RGBA{R: uint8(rand.IntN(120)), G: uint8(rand.IntN(120)), B: uint8(rand.IntN(120)), A: 255}
}

func lightInk() color.RGBA {
	return color.RGBA{R: uint8(150 + rand.IntN(80)), G: uint8(150 + rand.IntN(80)), B: uint8(150 + rand.IntN(80)), A: 255}
}

// jitter returns a uniform value in [-span, span].
func jitter(span float64) float64 {
	return (rand.Float64()*2 - 1) * span
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
