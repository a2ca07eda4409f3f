package domain

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	hexColor  = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3,4}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)
	funcColor = regexp.MustCompile(`^(?:rgba?|hsla?)\(\s*[0-9.]+%?\s*(?:,\s*|\s+)[0-9.]+%?\s*(?:,\s*|\s+)[0-9.]+%?\s*(?:(?:,|/)\s*[0-9.]+%?\s*)?\)$`)
	nameColor = regexp.MustCompile(`^[a-zA-Z]{3,20}$`)
)

// ValidColor reports whether v is a CSS color the page can emit as-is:
// hex, a bare color keyword, or rgb()/rgba()/hsl()/hsla() with numeric
// arguments. The empty string is allowed and leaves the browser default.
func ValidColor(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return true
	}
	return hexColor.MatchString(v) || funcColor.MatchString(v) || nameColor.MatchString(v)
}

func checkColor(field string, v *string) error {
	if v != nil && !ValidColor(*v) {
		return fmt.Errorf("%w: %s %q", ErrInvalidValue, field, *v)
	}
	return nil
}

func checkColors(fields map[string]*string) error {
	for name, v := range fields {
		if err := checkColor(name, v); err != nil {
			return err
		}
	}
	return nil
}
