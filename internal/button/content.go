package button

import (
	"fmt"
	"strings"
)

// Key image geometry.
const (
	keySize    = 144
	fontSize   = 18
	lineHeight = 22
	cornerR    = 18
)

// ParseContent returns the renderable lines of the content file: blank
// lines and lines starting with prefix are dropped, the rest are trimmed.
func ParseContent(text, prefix string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if prefix != "" && strings.HasPrefix(line, prefix) {
			continue
		}
		lines = append(lines, trimmed)
	}
	return lines
}

var xmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// RenderSVG draws lines centred on a rounded dark key, one tspan per line.
func RenderSVG(lines []string) string {
	totalH := (len(lines) - 1) * lineHeight
	startY := keySize/2 - totalH/2 + fontSize/2

	var tspans strings.Builder
	for i, line := range lines {
		fmt.Fprintf(&tspans, `<tspan x="%d" y="%d" text-anchor="middle">%s</tspan>`,
			keySize/2, startY+i*lineHeight, xmlEscaper.Replace(line))
	}

	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%[1]d" height="%[1]d" viewBox="0 0 %[1]d %[1]d">
  <rect x="0" y="0" width="%[1]d" height="%[1]d" rx="%[2]d" ry="%[2]d" fill="#111"/>
  <text x="%[3]d" y="%[3]d" text-anchor="middle"
        font-family="Inter, Segoe UI, Arial, sans-serif" font-size="%[4]d"
        fill="#fff" dominant-baseline="middle">
    %[5]s
  </text>
</svg>`, keySize, cornerR, keySize/2, fontSize, tspans.String())
}
