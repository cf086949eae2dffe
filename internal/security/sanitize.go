package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	// content values may carry light formatting authored in the admin editor
	contentPolicy = bluemonday.UGCPolicy()
	// visitor input is stored as plain text
	plainPolicy = bluemonday.StrictPolicy()
)

func SanitizeContent(v string) string {
	return strings.TrimSpace(contentPolicy.Sanitize(v))
}

func SanitizePlain(v string) string {
	return strings.TrimSpace(plainPolicy.Sanitize(v))
}
