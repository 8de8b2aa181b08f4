package model

import (
	"strings"
)

// TagName is the struct tag read by GetModel, e.g. `jdao:"column:user_name"`.
const TagName = "jdao"

// Tag represents parsed jdao tags
type Tag struct {
	Column string
	Ignore bool
}

// ParseTag parses the tag string. A bare "-" skips the field; a bare word
// is taken as the column name. Parts are separated by spaces, semicolons
// or commas.
func ParseTag(tagStr string) *Tag {
	tag := &Tag{}
	tagStr = strings.TrimSpace(tagStr)
	if tagStr == "" {
		return tag
	}
	if tagStr == "-" {
		tag.Ignore = true
		return tag
	}

	parts := strings.FieldsFunc(tagStr, func(r rune) bool {
		return r == ' ' || r == ';' || r == ','
	})
	for _, part := range parts {
		kv := strings.SplitN(part, ":", 2)
		key := strings.ToLower(strings.TrimSpace(kv[0]))
		if len(kv) == 1 {
			if key == "-" {
				tag.Ignore = true
			} else if tag.Column == "" {
				tag.Column = strings.TrimSpace(kv[0])
			}
			continue
		}
		switch key {
		case "column":
			tag.Column = strings.TrimSpace(kv[1])
		}
	}
	return tag
}
