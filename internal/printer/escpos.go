// Package printer sends rendered slips to a USB thermal receipt printer.
package printer

import (
	"image"
	"image/color"
)

// ESC/POS command bytes.
const (
	esc = 0x1b
	gs  = 0x1d
)

// maxBandRows is the tallest raster block sent in one GS v 0 command.
// Many printers reject taller blocks.
const maxBandRows = 256

// feedLines is how far paper advances before the cut so the last line clears the blade.
const feedLines = 6

// Encode converts img to ESC/POS: initialise, raster bit image, feed and full cut.
// Pixels darker than mid-grey print as black dots.
func Encode(img image.Image) []byte {
	b := img.Bounds()
	widthBytes := (b.Dx() + 7) / 8

	out := make([]byte, 0, 2+widthBytes*b.Dy()+8*(b.Dy()/maxBandRows+1)+5)
	out = append(out, esc, '@')

	for top := b.Min.Y; top < b.Max.Y; top += maxBandRows {
		rows := min(maxBandRows, b.Max.Y-top)
		out = append(out, gs, 'v', '0', 0,
			byte(widthBytes), byte(widthBytes>>8),
			byte(rows), byte(rows>>8))
		out = appendRaster(out, img, top, rows, widthBytes)
	}

	out = append(out, esc, 'd', feedLines)
	out = append(out, gs, 'V', 0)
	return out
}

func appendRaster(out []byte, img image.Image, top, rows, widthBytes int) []byte {
	b := img.Bounds()
	for y := top; y < top+rows; y++ {
		line := make([]byte, widthBytes)
		for x := b.Min.X; x < b.Max.X; x++ {
			if isDark(img.At(x, y)) {
				col := x - b.Min.X
				line[col/8] |= 0x80 >> (col % 8)
			}
		}
		out = append(out, line...)
	}
	return out
}

func isDark(c color.Color) bool {
	return color.GrayModel.Convert(c).(color.Gray).Y < 128
}
