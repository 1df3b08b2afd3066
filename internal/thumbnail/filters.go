package thumbnail

import "strings"

// blockedURLParts marks icon/logo/social-brand assets that never make useful
// thumbnails, whatever their dimensions turn out to be.
var blockedURLParts = []string{
	"favicon",
	"icon",
	"logo",
	"sprite",
	"avatar",
	"gravatar",
	"badge",
	"button",
	"banner",
	"pixel",
	"spacer",
	"blank",
	"facebook",
	"twitter",
	"instagram",
	"linkedin",
	"youtube",
	"telegram",
	"whatsapp",
}

// RejectedURL reports whether the image URL should be filtered out before any
// download is attempted.
func RejectedURL(imageURL string) bool {
	lowered := strings.ToLower(imageURL)
	for _, part := range blockedURLParts {
		if strings.Contains(lowered, part) {
			return true
		}
	}
	return false
}
