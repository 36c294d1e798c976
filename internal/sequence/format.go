package sequence

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// DefaultFormat renders "SO-00001" style numbers.
const DefaultFormat = "{prefix}-{number:5}"

var numberToken = regexp.MustCompile(`\{number(?::(\d+))?\}`)

// Format renders number into template. Supported tokens are {prefix} and {number:N},
// where N is the zero-padded width (default 5).
func Format(template, prefix string, number int64) string {
	if strings.TrimSpace(template) == "" {
		template = DefaultFormat
	}
	out := strings.ReplaceAll(template, "{prefix}", prefix)
	return numberToken.ReplaceAllStringFunc(out, func(token string) string {
		width := 5
		if m := numberToken.FindStringSubmatch(token); len(m) == 2 && m[1] != "" {
			if w, err := strconv.Atoi(m[1]); err == nil {
				width = w
			}
		}
		return fmt.Sprintf("%0*d", width, number)
	})
}
