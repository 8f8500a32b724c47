// Package device turns raw User-Agent strings into the short display names
// stored with a user's last login.
package device

import (
	"strings"

	"github.com/mssola/useragent"
)

const unknownDevice = "Unknown Device"

// ParseUserAgent renders a user agent as "Browser on OS", degrading to
// whichever half is recognizable and to "Unknown Device" when neither is.
func ParseUserAgent(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return unknownDevice
	}

	ua := useragent.New(raw)
	browser, _ := ua.Browser()
	os := ua.OSInfo().Name

	switch {
	case browser != "" && os != "":
		if ua.Mobile() {
			return browser + " on " + os + " (mobile)"
		}
		return browser + " on " + os
	case browser != "":
		return browser
	case os != "":
		return os
	default:
		return unknownDevice
	}
}
