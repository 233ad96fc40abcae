package slip

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// ErrFont is returned when a configured font cannot be loaded.
var ErrFont = errors.New("font error")

// Canvas geometry in printer dots.
const (
	Width     = 576
	MaxHeight = 2000

	marginLeft  = 25
	marginRight = 530
	ruleLeft    = 20
	ruleWidth   = 46
)

// Font sizes in points at 72 DPI, so one point is one dot.
const (
	sizeTitle  = 42
	sizeHeader = 32
	sizeBody   = 24
	sizeBold   = 26
	sizeSmall  = 20
	sizeMoney  = 48
)

var notes = []string{
	"1. 本注意力產出已完成轉換與商業化流程。",
	"2. 相關資料將持續用於系統優化與預測模型訓練。",
	"3. 使用者無法要求刪除、回收或轉讓其產出內容。",
	"4. 本單據不構成僱傭關係證明。",
}

type faces struct {
	title, header, body, bold, small, money font.Face
}

// Renderer draws slips onto a 1-channel canvas.
type Renderer struct {
	faces faces
	now   func() time.Time
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithClock overrides the clock used for the printed date.
func WithClock(now func() time.Time) RendererOption {
	return func(r *Renderer) {
		r.now = now
	}
}

// NewRenderer loads the font at fontPath. An empty path uses the built-in
// bitmap face, which only covers ASCII. A path that cannot be read or parsed
// returns an error wrapping ErrFont.
func NewRenderer(fontPath string, opts ...RendererOption) (*Renderer, error) {
	r := &Renderer{now: time.Now}
	for _, opt := range opts {
		opt(r)
	}

	if fontPath == "" {
		f := basicfont.Face7x13
		r.faces = faces{title: f, header: f, body: f, bold: f, small: f, money: f}
		return r, nil
	}

	f, err := loadFont(fontPath)
	if err != nil {
		return nil, err
	}

	sizes := []float64{sizeTitle, sizeHeader, sizeBody, sizeBold, sizeSmall, sizeMoney}
	loaded := make([]font.Face, len(sizes))
	for i, size := range sizes {
		loaded[i], err = opentype.NewFace(f, &opentype.FaceOptions{
			Size:    size,
			DPI:     72,
			Hinting: font.HintingFull,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: create face %.0fpt: %v", ErrFont, size, err)
		}
	}
	r.faces = faces{
		title:  loaded[0],
		header: loaded[1],
		body:   loaded[2],
		bold:   loaded[3],
		small:  loaded[4],
		money:  loaded[5],
	}
	return r, nil
}

// loadFont reads a TrueType/OpenType font or the first font of a collection.
func loadFont(path string) (*sfnt.Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFont, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".ttc", ".otc":
		coll, err := opentype.ParseCollection(data)
		if err != nil {
			return nil, fmt.Errorf("%w: parse collection: %v", ErrFont, err)
		}
		f, err := coll.Font(0)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFont, err)
		}
		return f, nil
	default:
		f, err := opentype.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%w: parse font: %v", ErrFont, err)
		}
		return f, nil
	}
}

// canvas tracks the drawing position down the slip.
type canvas struct {
	img *image.Gray
	y   int
}

// text draws s with its top edge at (x, y), matching how the layout is specified.
func (c *canvas) text(x, y int, s string, face font.Face) {
	d := &font.Drawer{
		Dst:  c.img,
		Src:  image.Black,
		Face: face,
		Dot:  fixed.P(x, y+face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(s)
}

func (c *canvas) width(s string, face font.Face) int {
	return font.MeasureString(face, s).Ceil()
}

func (c *canvas) centered(s string, face font.Face) {
	c.text((Width-c.width(s, face))/2, c.y, s, face)
}

func (c *canvas) rightAligned(y int, s string, face font.Face) {
	c.text(marginRight-c.width(s, face), y, s, face)
}

func (c *canvas) rule(ch string, face font.Face) {
	c.text(ruleLeft, c.y, strings.Repeat(ch, ruleWidth), face)
	c.y += 30
}

func (c *canvas) row(label, amount string, face font.Face) {
	c.text(marginLeft, c.y, label, face)
	c.rightAligned(c.y, amount, face)
	c.y += 35
}

// Render draws s and returns the slip cropped to its content height.
func (r *Renderer) Render(s Slip) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, Width, MaxHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	c := &canvas{img: img, y: 30}
	f := r.faces

	printedAt := s.PrintedAt
	if printedAt.IsZero() {
		printedAt = r.now()
	}

	grade := s.Grade()
	info := grade.Info()
	amounts := s.Amounts()

	c.centered("[ 注 意 力 有 限 公 司 ]", f.title)
	c.y += 60
	c.centered("薪 資 明 細 表", f.header)
	c.y += 45
	c.rule("=", f.body)
	c.y += 10

	if s.Name != "" {
		c.text(marginLeft, c.y, "姓名："+s.Name, f.bold)
		c.y += 40
	}
	c.text(marginLeft, c.y, "職稱："+info.Title, f.bold)
	c.y += 40

	for i, line := range info.Lines {
		if i == 0 {
			line = "『" + line
		}
		if i == len(info.Lines)-1 {
			line += "』"
		}
		c.text(marginLeft, c.y, line, f.body)
		c.y += 32
	}
	c.y += 10

	c.text(marginLeft, c.y, "列印日期: "+printedAt.Format("2006-01-02  15:04:05"), f.body)
	c.y += 35
	c.rule("=", f.body)
	c.y += 10

	c.centered("【 注 意 力 產 出 項 目 】", f.bold)
	c.y += 35
	c.rule("-", f.body)
	c.row(fmt.Sprintf("總停留時數 (%d sec)", s.WatchSeconds), Money(amounts.TimeIncome), f.body)
	c.row(fmt.Sprintf("互動完成率 (%s%%)", Percent(s.WatchedPercent)), Money(amounts.Bonus), f.body)
	c.rule("-", f.body)
	c.row("產值小計", Money(amounts.Subtotal), f.bold)
	c.y += 15

	c.centered("【 平 台 成 本 】", f.bold)
	c.y += 35
	c.rule("-", f.body)
	c.row("平台抽成比例 (100%)", Money(amounts.Deduction), f.body)
	c.rule("-", f.body)
	c.row("扣除小計", Money(amounts.Deduction), f.bold)
	c.y += 20

	c.rule("=", f.body)
	c.text(marginLeft, c.y+5, "實 發 金 額", f.header)
	c.rightAligned(c.y-5, fmt.Sprintf("$  %d", amounts.Net), f.money)
	c.y += 65
	c.rule("=", f.body)
	c.y += 15

	c.text(marginLeft, c.y, "備註：", f.small)
	c.y += 28
	for _, note := range notes {
		c.text(marginLeft, c.y, note, f.small)
		c.y += 25
	}
	c.y += 20

	c.centered("** 感 謝 您 的 專 注 投 入 **", f.bold)
	c.y += 55
	c.centered("_____________", f.body)
	c.y += 30
	c.centered("(簽收欄)", f.small)
	c.y += 40
	c.rule("-", f.body)
	c.y += 20

	height := min(c.y, MaxHeight)
	return img.SubImage(image.Rect(0, 0, Width, height)).(*image.Gray)
}
