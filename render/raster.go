package render

import (
	"image"
	"image/color"
	"math"
)

// blend composites c over the pixel at (x, y). Out-of-bounds pixels are
// ignored.
func blend(img *image.RGBA, x, y int, c color.NRGBA) {
	if !(image.Point{X: x, Y: y}).In(img.Rect) {
		return
	}
	i := img.PixOffset(x, y)
	a := uint32(c.A)
	for k, v := range [3]uint8{c.R, c.G, c.B} {
		img.Pix[i+k] = uint8((uint32(v)*a + uint32(img.Pix[i+k])*(255-a)) / 255)
	}
	img.Pix[i+3] = uint8(a + uint32(img.Pix[i+3])*(255-a)/255)
}

// line draws a one-pixel Bresenham line.
func line(img *image.RGBA, from, to ScreenPoint, c color.NRGBA) {
	x0, y0 := pixel(from.X), pixel(from.Y)
	x1, y1 := pixel(to.X), pixel(to.Y)
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		blend(img, x0, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		if e2 := 2 * e; e2 >= dy {
			e += dy
			x0 += sx
		} else {
			e += dx
			y0 += sy
		}
	}
}

func hline(img *image.RGBA, y float64, c color.NRGBA) {
	py := pixel(y)
	for x := img.Rect.Min.X; x < img.Rect.Max.X; x++ {
		blend(img, x, py, c)
	}
}

func vline(img *image.RGBA, x float64, c color.NRGBA) {
	px := pixel(x)
	for y := img.Rect.Min.Y; y < img.Rect.Max.Y; y++ {
		blend(img, px, y, c)
	}
}

// disc fills a circle of radius r around p.
func disc(img *image.RGBA, p ScreenPoint, r int, c color.NRGBA) {
	cx, cy := pixel(p.X), pixel(p.Y)
	for y := -r; y <= r; y++ {
		for x := -r; x <= r; x++ {
			if x*x+y*y <= r*r {
				blend(img, cx+x, cy+y, c)
			}
		}
	}
}

func pixel(v float64) int { return int(math.Round(v)) }

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
