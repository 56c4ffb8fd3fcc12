package useragent

import "strings"

// Labels produced by the keyword classifier.
const (
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceDesktop = "desktop"
	Unknown       = "unknown"
)

// DeviceInfo represents classified device information
type DeviceInfo struct {
	DeviceType string // mobile, tablet, desktop
	Browser    string // Chrome, Firefox, Safari, etc.
	OS         string // Windows 10/11, macOS, Android, etc.
}

type rule struct {
	label string
	match func(ua string) bool
}

func anyOf(keywords ...string) func(string) bool {
	return func(ua string) bool {
		for _, k := range keywords {
			if strings.Contains(ua, k) {
				return true
			}
		}
		return false
	}
}

func containsWithout(keyword string, without ...string) func(string) bool {
	return func(ua string) bool {
		if !strings.Contains(ua, keyword) {
			return false
		}
		for _, w := range without {
			if strings.Contains(ua, w) {
				return false
			}
		}
		return true
	}
}

// Evaluated top to bottom, first match wins.
// Mobile must be checked before tablet: android tablets without "mobile" still carry "android".
var deviceRules = []rule{
	{DeviceMobile, anyOf("mobile", "android", "iphone", "ipod", "blackberry", "windows phone")},
	{DeviceTablet, anyOf("tablet", "ipad")},
}

// Order is load-bearing: Chrome and Edge both send "chrome", Chrome and Safari both send "safari".
// Chrome excludes "edg", Safari excludes "chrome", Edge is only reached for non-chrome tokens.
var browserRules = []rule{
	{"Chrome", containsWithout("chrome", "edg")},
	{"Firefox", anyOf("firefox")},
	{"Safari", containsWithout("safari", "chrome")},
	{"Edge", anyOf("edg")},
	{"Opera", anyOf("opera", "opr")},
	{"Internet Explorer", anyOf("msie", "trident")},
	{"Brave", anyOf("brave")},
}

// Windows versions, most specific NT token first.
var windowsRules = []rule{
	{"Windows 10/11", anyOf("windows nt 10")},
	{"Windows 8.1", anyOf("windows nt 6.3")},
	{"Windows 8", anyOf("windows nt 6.2")},
	{"Windows 7", anyOf("windows nt 6.1")},
}

// iOS user agents contain "like mac os x", so the apple rule decides between iOS and macOS.
// Android must precede Linux since android agents contain "linux".
var osRules = []rule{
	{"Windows", anyOf("windows")},
	{"apple", anyOf("mac os x", "macintosh")},
	{"Android", anyOf("android")},
	{"Linux", anyOf("linux")},
	{"iOS", anyOf("iphone", "ipad")},
}

func firstMatch(rules []rule, ua, fallback string) string {
	for _, r := range rules {
		if r.match(ua) {
			return r.label
		}
	}
	return fallback
}

// Classify derives device type, browser and OS from a user-agent string.
// ok is false for an empty user agent, in which case nothing is known.
func Classify(userAgent string) (DeviceInfo, bool) {
	if userAgent == "" {
		return DeviceInfo{}, false
	}

	ua := strings.ToLower(userAgent)

	info := DeviceInfo{
		DeviceType: firstMatch(deviceRules, ua, DeviceDesktop),
		Browser:    firstMatch(browserRules, ua, Unknown),
		OS:         firstMatch(osRules, ua, Unknown),
	}

	switch info.OS {
	case "Windows":
		info.OS = firstMatch(windowsRules, ua, "Windows")
	case "apple":
		if anyOf("iphone", "ipad")(ua) {
			info.OS = "iOS"
		} else {
			info.OS = "macOS"
		}
	}

	return info, true
}
