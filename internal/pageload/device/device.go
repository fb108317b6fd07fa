// Package device turns a User-Agent header into a short display label such as
// "Firefox on Linux". Only the label is kept; the raw header is never stored.
package device

import (
	"strings"

	"github.com/mssola/useragent"
)

const unknownDevice = "Unknown Device"

// Describe returns a display label for userAgent.
func Describe(userAgent string) string {
	userAgent = strings.TrimSpace(userAgent)
	if userAgent == "" {
		return unknownDevice
	}

	ua := useragent.New(userAgent)
	browser, _ := ua.Browser()
	browser = strings.TrimSpace(browser)

	if ua.Bot() {
		if browser == "" {
			return "Bot"
		}
		return "Bot: " + browser
	}

	if browser == "" {
		browser = "Unknown Browser"
	}

	if ua.Mobile() {
		if platform := strings.TrimSpace(ua.Platform()); platform != "" {
			return browser + " on " + platform
		}
	}

	os := strings.TrimSpace(ua.OS())
	if os == "" {
		os = "Unknown OS"
	}
	return browser + " on " + os
}
