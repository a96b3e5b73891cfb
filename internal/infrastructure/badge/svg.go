// Package badge renders shields-style SVG coverage badges.
package badge

import (
	"fmt"
	"html/template"
	"io"
	"unicode/utf8"
)

type Style string

const (
	StyleFlat       Style = "flat"
	StyleFlatSquare Style = "flat-square"
)

// DefaultLabel is the text on the left side of the badge.
const DefaultLabel = "coverage"

// Options describes a badge. When Minimum is set the colour reflects the
// verification threshold instead of a fixed scale.
type Options struct {
	Label   string
	Percent float64
	Style   Style
	Minimum *float64
}

// charWidth approximates Verdana 11px glyph width.
const charWidth = 7

var svgTemplate = template.Must(template.New("badge").Parse(`<svg xmlns="http://www.w3.org/2000/svg" width="{{.Width}}" height="20" role="img" aria-label="{{.Label}}: {{.Value}}">
  <title>{{.Label}}: {{.Value}}</title>
  <linearGradient id="s" x2="0" y2="100%">
    <stop offset="0" stop-color="#bbb" stop-opacity=".1"/>
    <stop offset="1" stop-opacity=".1"/>
  </linearGradient>
  <clipPath id="r">
    <rect width="{{.Width}}" height="20" rx="{{.Rx}}" fill="#fff"/>
  </clipPath>
  <g clip-path="url(#r)">
    <rect width="{{.Left.Width}}" height="20" fill="#555"/>
    <rect x="{{.Left.Width}}" width="{{.Right.Width}}" height="20" fill="{{.Color}}"/>
    <rect width="{{.Width}}" height="20" fill="url(#s)"/>
  </g>
  <g fill="#fff" text-anchor="middle" font-family="Verdana,Geneva,DejaVu Sans,sans-serif" text-rendering="geometricPrecision" font-size="110">
    <text aria-hidden="true" x="{{.Left.X}}" y="150" fill="#010101" fill-opacity=".3" transform="scale(.1)" textLength="{{.Left.TextLength}}">{{.Label}}</text>
    <text x="{{.Left.X}}" y="140" transform="scale(.1)" fill="#fff" textLength="{{.Left.TextLength}}">{{.Label}}</text>
    <text aria-hidden="true" x="{{.Right.X}}" y="150" fill="#010101" fill-opacity=".3" transform="scale(.1)" textLength="{{.Right.TextLength}}">{{.Value}}</text>
    <text x="{{.Right.X}}" y="140" transform="scale(.1)" fill="#fff" textLength="{{.Right.TextLength}}">{{.Value}}</text>
  </g>
</svg>
`))

// section is one half of the badge. X and TextLength are in the
// scale(.1) text coordinate space.
type section struct {
	Width      int
	X          int
	TextLength int
}

type templateData struct {
	Label string
	Value string
	Color string
	Width int
	Rx    int
	Left  section
	Right section
}

func measure(text string, offset int) section {
	textWidth := utf8.RuneCountInString(text) * charWidth
	width := textWidth + 10
	return section{
		Width:      width,
		X:          (offset + width/2) * 10,
		TextLength: textWidth * 10,
	}
}

// Generate writes the badge SVG to w.
func Generate(w io.Writer, opts Options) error {
	if opts.Label == "" {
		opts.Label = DefaultLabel
	}
	rx := 3
	if opts.Style == StyleFlatSquare {
		rx = 0
	}

	value := formatPercent(opts.Percent)
	left := measure(opts.Label, 0)
	right := measure(value, left.Width)
	data := templateData{
		Label: opts.Label,
		Value: value,
		Color: color(opts.Percent, opts.Minimum),
		Width: left.Width + right.Width,
		Rx:    rx,
		Left:  left,
		Right: right,
	}
	if err := svgTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("render badge: %w", err)
	}
	return nil
}

func formatPercent(p float64) string {
	if p == float64(int(p)) {
		return fmt.Sprintf("%.0f%%", p)
	}
	return fmt.Sprintf("%.1f%%", p)
}

const (
	colorGreen      = "#4c1"
	colorLightGreen = "#97ca00"
	colorYellow     = "#dfb317"
	colorRed        = "#e05d44"
)

func color(p float64, minimum *float64) string {
	if minimum != nil {
		switch {
		case p < *minimum:
			return colorRed
		case p < *minimum+5:
			return colorYellow
		default:
			return colorGreen
		}
	}
	switch {
	case p >= 90:
		return colorGreen
	case p >= 75:
		return colorLightGreen
	case p >= 60:
		return colorYellow
	default:
		return colorRed
	}
}
