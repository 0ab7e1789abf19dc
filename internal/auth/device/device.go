// Package device turns a User-Agent header into the label shown next to a
// session.
package device

import (
	"strings"

	"github.com/mssola/useragent"
)

const (
	unknownDevice = "Unknown Device"
	maxNameLen    = 128
)

// ParseUserAgent returns "<browser> on <os>" for ua, falling back to
// "Unknown Device" for an empty header.
func ParseUserAgent(ua string) string {
	ua = strings.TrimSpace(ua)
	if ua == "" {
		return unknownDevice
	}
	parsed := useragent.New(ua)
	browser, _ := parsed.Browser()
	if browser == "" {
		browser = "Unknown Browser"
	}
	os := parsed.OS()
	if parsed.Mobile() && parsed.Platform() != "" && !strings.Contains(os, parsed.Platform()) {
		os = parsed.Platform() + " " + os
	}
	os = strings.TrimSpace(os)
	if os == "" {
		os = "Unknown OS"
	}
	name := strings.Join(strings.Fields(browser+" on "+os), " ")
	if len(name) > maxNameLen {
		name = name[:maxNameLen]
	}
	return name
}
