package pipeline

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	bareWidth     = regexp.MustCompile(`^\d+$`)
	bareDimension = regexp.MustCompile(`^(\d+)x(\d+)$`)
	widthToken    = regexp.MustCompile(`^w(?:idth)?:(\d+)(?:px)?$`)
	heightToken   = regexp.MustCompile(`^h(?:eight)?:(\d+)(?:px)?$`)
)

// SizeAlt rewrites a bare size alt text into directives: "200" becomes
// "w:200", "200x100" becomes "w:200 h:100" and an empty alt becomes "image".
// Any other alt is returned unchanged.
func SizeAlt(alt string) string {
	if bareWidth.MatchString(alt) {
		return "w:" + alt
	}
	if m := bareDimension.FindStringSubmatch(alt); m != nil {
		return "w:" + m[1] + " h:" + m[2]
	}
	if alt == "" {
		return "image"
	}
	return alt
}

// Size is a pixel box. Zero fields are unset.
type Size struct {
	Width  int
	Height int
}

// IsZero reports whether no dimension is set.
func (s Size) IsZero() bool {
	return s.Width == 0 && s.Height == 0
}

// Style returns an inline CSS declaration list such as
// "width: 300px; height: 200px;".
func (s Size) Style() string {
	var parts []string
	if s.Width > 0 {
		parts = append(parts, "width: "+strconv.Itoa(s.Width)+"px;")
	}
	if s.Height > 0 {
		parts = append(parts, "height: "+strconv.Itoa(s.Height)+"px;")
	}
	return strings.Join(parts, " ")
}

// ParseSize reads `w:N`, `h:N` and `WxH` tokens from a whitespace separated
// directive string. Tokens that are not sizes are returned in rest.
func ParseSize(directives string) (size Size, rest string) {
	var others []string
	for _, tok := range strings.Fields(directives) {
		if m := widthToken.FindStringSubmatch(tok); m != nil {
			size.Width, _ = strconv.Atoi(m[1])
			continue
		}
		if m := heightToken.FindStringSubmatch(tok); m != nil {
			size.Height, _ = strconv.Atoi(m[1])
			continue
		}
		if m := bareDimension.FindStringSubmatch(tok); m != nil {
			size.Width, _ = strconv.Atoi(m[1])
			size.Height, _ = strconv.Atoi(m[2])
			continue
		}
		others = append(others, tok)
	}
	return size, strings.Join(others, " ")
}

// styleAttr renders size as a leading-space style attribute, or "".
func styleAttr(size Size) string {
	if size.IsZero() {
		return ""
	}
	return ` style="` + size.Style() + `"`
}
