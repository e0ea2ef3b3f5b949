// Package stylesheet applies the user's custom style sheet to the terminal
// views. It understands a small CSS subset: class selectors for the player
// elements and the color, background-color, font-weight, font-style and
// text-decoration properties. Everything else is ignored.
package stylesheet

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
)

// Selectors understood by the views.
const (
	TrackName          = ".track-name"
	ArtistsName        = ".artists-name"
	AlbumName          = ".album-name"
	ContextDescription = ".context-description"
	Header             = ".header"
	Controller         = ".controller"
	Progress           = ".progress"
)

// Known lists the supported selectors.
var Known = []string{TrackName, ArtistsName, AlbumName, ContextDescription, Header, Controller, Progress}

// Rule is the merged declarations of one selector.
type Rule struct {
	Foreground string // hex, empty when unset
	Background string
	Bold       *bool
	Italic     *bool
	Underline  *bool
}

// Sheet is a parsed style sheet.
type Sheet struct {
	Rules map[string]Rule
	// Ignored holds the selectors and declarations that were skipped.
	Ignored []string
}

var (
	commentPattern = regexp.MustCompile(`(?s)/\*.*?\*/`)
	rgbPattern     = regexp.MustCompile(`^rgba?\(\s*(\d{1,3})\s*,\s*(\d{1,3})\s*,\s*(\d{1,3})\s*(?:,\s*[\d.]+\s*)?\)$`)
)

var namedColors = map[string]string{
	"black":   "#000000",
	"white":   "#ffffff",
	"red":     "#ff0000",
	"green":   "#008000",
	"lime":    "#00ff00",
	"blue":    "#0000ff",
	"yellow":  "#ffff00",
	"cyan":    "#00ffff",
	"magenta": "#ff00ff",
	"gray":    "#808080",
	"grey":    "#808080",
	"silver":  "#c0c0c0",
	"orange":  "#ffa500",
	"purple":  "#800080",
	"pink":    "#ffc0cb",
	"navy":    "#000080",
	"teal":    "#008080",
}

// Parse reads css. Malformed blocks are skipped, never fatal.
func Parse(css string) Sheet {
	sheet := Sheet{Rules: make(map[string]Rule)}
	css = commentPattern.ReplaceAllString(css, "")

	for _, block := range strings.Split(css, "}") {
		open := strings.Index(block, "{")
		if open < 0 {
			if strings.TrimSpace(block) != "" {
				sheet.Ignored = append(sheet.Ignored, strings.TrimSpace(block))
			}
			continue
		}

		var selectors []string
		for _, sel := range strings.Split(block[:open], ",") {
			sel = strings.TrimSpace(sel)
			if isKnown(sel) {
				selectors = append(selectors, sel)
			} else if sel != "" {
				sheet.Ignored = append(sheet.Ignored, sel)
			}
		}
		if len(selectors) == 0 {
			continue
		}

		for _, decl := range strings.Split(block[open+1:], ";") {
			prop, value, ok := strings.Cut(decl, ":")
			if !ok {
				continue
			}
			prop = strings.ToLower(strings.TrimSpace(prop))
			value = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(value), "!important"))
			value = strings.ToLower(strings.TrimSpace(value))

			for _, sel := range selectors {
				rule := sheet.Rules[sel]
				if !rule.set(prop, value) {
					sheet.Ignored = append(sheet.Ignored, fmt.Sprintf("%s { %s: %s }", sel, prop, value))
					break
				}
				sheet.Rules[sel] = rule
			}
		}
	}
	return sheet
}

func (r *Rule) set(prop, value string) bool {
	switch prop {
	case "color":
		hex, ok := ParseColor(value)
		if !ok {
			return false
		}
		r.Foreground = hex
	case "background-color", "background":
		hex, ok := ParseColor(value)
		if !ok {
			return false
		}
		r.Background = hex
	case "font-weight":
		b := value == "bold" || value == "bolder" || value == "700" || value == "800" || value == "900"
		r.Bold = &b
	case "font-style":
		b := value == "italic" || value == "oblique"
		r.Italic = &b
	case "text-decoration", "text-decoration-line":
		b := strings.Contains(value, "underline")
		r.Underline = &b
	default:
		return false
	}
	return true
}

// ParseColor converts a CSS color (#rgb, #rrggbb, rgb(), or a basic name)
// to #rrggbb.
func ParseColor(value string) (string, bool) {
	value = strings.ToLower(strings.TrimSpace(value))
	if named, ok := namedColors[value]; ok {
		value = named
	}

	if strings.HasPrefix(value, "#") {
		c, err := colorful.Hex(value)
		if err != nil {
			return "", false
		}
		return c.Hex(), true
	}

	if m := rgbPattern.FindStringSubmatch(value); m != nil {
		var rgb [3]float64
		for i := range rgb {
			n, err := strconv.Atoi(m[i+1])
			if err != nil || n > 255 {
				return "", false
			}
			rgb[i] = float64(n) / 255
		}
		return colorful.Color{R: rgb[0], G: rgb[1], B: rgb[2]}.Hex(), true
	}
	return "", false
}

// Apply layers the rule for selector over base.
func (s Sheet) Apply(selector string, base lipgloss.Style) lipgloss.Style {
	rule, ok := s.Rules[selector]
	if !ok {
		return base
	}
	if rule.Foreground != "" {
		base = base.Foreground(lipgloss.Color(rule.Foreground))
	}
	if rule.Background != "" {
		base = base.Background(lipgloss.Color(rule.Background))
	}
	if rule.Bold != nil {
		base = base.Bold(*rule.Bold)
	}
	if rule.Italic != nil {
		base = base.Italic(*rule.Italic)
	}
	if rule.Underline != nil {
		base = base.Underline(*rule.Underline)
	}
	return base
}

// Empty reports whether the sheet has no usable rule.
func (s Sheet) Empty() bool {
	return len(s.Rules) == 0
}

func isKnown(sel string) bool {
	for _, k := range Known {
		if sel == k {
			return true
		}
	}
	return false
}
