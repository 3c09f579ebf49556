package main

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"golang.org/x/image/draw"
)

// Internal render resolution. The scene is computed small and upscaled to
// the terminal size, which keeps per-frame cost independent of window size.
const (
	plasmaW = 96
	plasmaH = 54
)

// plasma is a classic sum-of-sines animation, cheap enough to run at full
// frame rate but with measurable per-stage cost.
type plasma struct {
	img *image.RGBA
	t   float64
}

func newPlasma() *plasma {
	return &plasma{
		img: image.NewRGBA(image.Rect(0, 0, plasmaW, plasmaH)),
	}
}

func (p *plasma) step(dt float64) {
	p.t += dt
}

// render recomputes the plasma field into the reused backing image.
func (p *plasma) render() *image.RGBA {
	for y := range plasmaH {
		fy := float64(y) / plasmaH

		for x := range plasmaW {
			fx := float64(x) / plasmaW

			v := math.Sin(fx*10 + p.t)
			v += math.Sin((fy*10 + p.t) / 2)
			v += math.Sin((fx*10 + fy*10 + p.t) / 2)

			cx := fx + 0.5*math.Sin(p.t/5)
			cy := fy + 0.5*math.Cos(p.t/3)
			v += math.Sin(math.Sqrt(100*(cx*cx+cy*cy)+1) + p.t)
			v /= 2

			p.img.SetRGBA(x, y, color.RGBA{
				R: uint8(128 + 127*math.Sin(v*math.Pi)),
				G: uint8(128 + 127*math.Sin(v*math.Pi+2*math.Pi/3)),
				B: uint8(128 + 127*math.Sin(v*math.Pi+4*math.Pi/3)),
				A: 255,
			})
		}
	}

	return p.img
}

// upscale scales img to fit within cols x rows terminal cells (where each
// cell represents 2 vertical pixels via the half-block technique).
// The image is centered within the bounds and padded with black.
func upscale(img image.Image, cols, rows int) *image.RGBA {
	pixW := cols
	pixH := rows * 2

	dst := image.NewRGBA(image.Rect(0, 0, pixW, pixH))

	srcBounds := img.Bounds()
	srcW := srcBounds.Dx()
	srcH := srcBounds.Dy()

	// Compute scale to fit within target while maintaining aspect ratio.
	scaleX := float64(pixW) / float64(srcW)
	scaleY := float64(pixH) / float64(srcH)

	scale := scaleX
	if scaleY < scaleX {
		scale = scaleY
	}

	newW := int(float64(srcW) * scale)
	newH := int(float64(srcH) * scale)

	// Center within the destination.
	offsetX := (pixW - newW) / 2
	offsetY := (pixH - newH) / 2

	dstRect := image.Rect(offsetX, offsetY, offsetX+newW, offsetY+newH)
	draw.ApproxBiLinear.Scale(dst, dstRect, img, srcBounds, draw.Over, nil)

	return dst
}

// renderHalfBlocks writes ANSI-styled half-block characters for the given
// image to the provided builder.
// Each terminal row represents 2 vertical pixels: the top pixel is the
// foreground color and the bottom pixel is the background color of a "▀"
// character.
func renderHalfBlocks(img *image.RGBA, cols, rows int, w *strings.Builder) {
	w.Reset()

	pixH := img.Bounds().Dy()

	for row := range rows {
		topY := row * 2
		botY := topY + 1

		for x := range cols {
			top := img.RGBAAt(x, topY)

			var bot color.RGBA
			if botY < pixH {
				bot = img.RGBAAt(x, botY)
			}

			fmt.Fprintf(w, "\033[38;2;%d;%d;%dm\033[48;2;%d;%d;%dm▀", top.R, top.G, top.B, bot.R, bot.G, bot.B)
		}

		w.WriteString("\033[0m\n")
	}
}
