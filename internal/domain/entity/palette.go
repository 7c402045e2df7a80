package entity

import (
	"fmt"
	"image/color"
	"strings"
)

// Palette цвета типов дефектов
type Palette struct {
	Colors  map[string]string `yaml:"colors" json:"colors"`
	Default string            `yaml:"default" json:"default"`
}

// DefaultPalette цвета по умолчанию.
func DefaultPalette() Palette {
	return Palette{
		Colors: map[string]string{
			"void":     "#ffa500",
			"edge":     "#00ff00",
			"void39":   "#f7e600",
			"dela":     "#0000ff",
			"signal":   "#ff0000",
			"particle": "#660099",
			"bbox":     "#ffffff",
		},
		Default: "#ffff00",
	}
}

// ColorFor возвращает цвет типа или цвет по умолчанию.
func (p Palette) ColorFor(annotationType string) string {
	if c, ok := p.Colors[annotationType]; ok && c != "" {
		return c
	}
	if p.Default != "" {
		return p.Default
	}
	return "#ffff00"
}

// Types возвращает известные типы.
func (p Palette) Types() []string {
	out := make([]string, 0, len(p.Colors))
	for t := range p.Colors {
		out = append(out, t)
	}
	return out
}

var namedColors = map[string]color.RGBA{
	"black":   {0, 0, 0, 255},
	"white":   {255, 255, 255, 255},
	"red":     {255, 0, 0, 255},
	"lime":    {0, 255, 0, 255},
	"green":   {0, 128, 0, 255},
	"blue":    {0, 0, 255, 255},
	"yellow":  {255, 255, 0, 255},
	"orange":  {255, 165, 0, 255},
	"cyan":    {0, 255, 255, 255},
	"magenta": {255, 0, 255, 255},
	"purple":  {128, 0, 128, 255},
	"skyblue": {135, 206, 235, 255},
}

// ParseColor разбирает "#rrggbb", "#rgb" или имя цвета.
func ParseColor(s string) (color.RGBA, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := namedColors[s]; ok {
		return c, nil
	}
	if !strings.HasPrefix(s, "#") {
		return color.RGBA{}, fmt.Errorf("%w: color %q", ErrParse, s)
	}

	var r, g, b uint8
	switch len(s) {
	case 7:
		if _, err := fmt.Sscanf(s, "#%02x%02x%02x", &r, &g, &b); err != nil {
			return color.RGBA{}, fmt.Errorf("%w: color %q", ErrParse, s)
		}
	case 4:
		if _, err := fmt.Sscanf(s, "#%1x%1x%1x", &r, &g, &b); err != nil {
			return color.RGBA{}, fmt.Errorf("%w: color %q", ErrParse, s)
		}
		r, g, b = r*17, g*17, b*17
	default:
		return color.RGBA{}, fmt.Errorf("%w: color %q", ErrParse, s)
	}
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}
