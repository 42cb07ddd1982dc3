package types

import "strings"

// OverrideType describes how a member or collection item relates to the same
// member in the base (archetype) document.
type OverrideType uint8

const (
	// OverrideBase means the value is inherited from the base. It is the
	// implicit value of every member that has no recorded override.
	OverrideBase OverrideType = 0
	// OverrideNew means the value was introduced or changed in this document.
	OverrideNew OverrideType = 1 << 0
	// OverrideSealed means derived documents may not override the value further.
	OverrideSealed OverrideType = 1 << 1
)

// Override glyphs appended to serialized keys.
const (
	GlyphNew    = '*'
	GlyphSealed = '!'
)

// IsNew reports whether the New flag is set.
func (o OverrideType) IsNew() bool { return o&OverrideNew != 0 }

// IsSealed reports whether the Sealed flag is set.
func (o OverrideType) IsSealed() bool { return o&OverrideSealed != 0 }

// Glyphs returns the key suffix for o: "", "*", "!" or "*!".
func (o OverrideType) Glyphs() string {
	switch {
	case o.IsNew() && o.IsSealed():
		return string(GlyphNew) + string(GlyphSealed)
	case o.IsNew():
		return string(GlyphNew)
	case o.IsSealed():
		return string(GlyphSealed)
	}
	return ""
}

// String returns a readable name such as "New|Sealed".
func (o OverrideType) String() string {
	switch {
	case o.IsNew() && o.IsSealed():
		return "New|Sealed"
	case o.IsNew():
		return "New"
	case o.IsSealed():
		return "Sealed"
	}
	return "Base"
}

// ParseOverrideType parses the names produced by String (case-insensitive).
func ParseOverrideType(s string) (OverrideType, bool) {
	var o OverrideType
	for _, part := range strings.Split(s, "|") {
		switch strings.ToLower(strings.TrimSpace(part)) {
		case "base", "":
		case "new":
			o |= OverrideNew
		case "sealed":
			o |= OverrideSealed
		default:
			return OverrideBase, false
		}
	}
	return o, true
}

// FormatOverrideKey appends the override glyphs of o to key. For item keys of
// the form "<hex-id>~<key>" the glyphs are placed between the id and the '~'.
func FormatOverrideKey(key string, o OverrideType) string {
	glyphs := o.Glyphs()
	if glyphs == "" {
		return key
	}
	if IsItemIDPrefix(key) && len(key) > 32 && key[32] == '~' {
		return key[:32] + glyphs + key[32:]
	}
	return key + glyphs
}

// ParseOverrideKey splits a serialized key into the bare key and the override
// glyphs it carries. It is the inverse of FormatOverrideKey.
func ParseOverrideKey(key string) (string, OverrideType) {
	if IsItemIDPrefix(key) {
		rest := key[32:]
		bare, o := trimGlyphs(rest, true)
		return key[:32] + bare, o
	}
	return trimGlyphs(key, false)
}

// trimGlyphs removes glyphs from the end of s, or from its start when the
// glyphs precede a "~key" part.
func trimGlyphs(s string, itemKey bool) (string, OverrideType) {
	if itemKey {
		tail := ""
		head := s
		if i := strings.IndexByte(s, '~'); i >= 0 {
			head, tail = s[:i], s[i:]
		}
		o, ok := glyphsToOverride(head)
		if !ok {
			return s, OverrideBase
		}
		return tail, o
	}
	end := len(s)
	for end > 0 && (s[end-1] == GlyphNew || s[end-1] == GlyphSealed) && end > len(s)-2 {
		end--
	}
	o, ok := glyphsToOverride(s[end:])
	if !ok || end == 0 {
		return s, OverrideBase
	}
	return s[:end], o
}

func glyphsToOverride(g string) (OverrideType, bool) {
	switch g {
	case "":
		return OverrideBase, true
	case string(GlyphNew):
		return OverrideNew, true
	case string(GlyphSealed):
		return OverrideSealed, true
	case string(GlyphNew) + string(GlyphSealed):
		return OverrideNew | OverrideSealed, true
	}
	return OverrideBase, false
}
