// Package useragent extracts browser, OS and device class from a User-Agent string.
//
// Each dimension is resolved by an ordered rule table evaluated top to bottom;
// the first matching rule wins. Rules for products whose UA embeds another
// product's token (Edge and Opera both carry "Chrome", Chrome carries "Safari")
// must stay above the product they embed.
package useragent

import (
	"regexp"
	"strings"
)

// Unknown is reported for any dimension that no rule matches.
const Unknown = "unknown"

// Info is the parsed result. Fields are never empty.
type Info struct {
	Browser        string `json:"browser"`
	BrowserVersion string `json:"browserVersion"`
	OS             string `json:"os"`
	Device         string `json:"device"`
}

type browserRule struct {
	name    string
	pattern *regexp.Regexp // first submatch is the version
}

type osRule struct {
	name  string
	match func(ua string) bool
}

type deviceRule struct {
	device string
	match  func(ua string) bool
}

var browserRules = []browserRule{
	{"Samsung Internet", regexp.MustCompile(`SamsungBrowser/([\d.]+)`)},
	{"Edge", regexp.MustCompile(`Edg(?:e|A|iOS)?/([\d.]+)`)},
	{"Opera", regexp.MustCompile(`(?:OPR|Opera)/([\d.]+)`)},
	{"Yandex", regexp.MustCompile(`YaBrowser/([\d.]+)`)},
	{"Firefox", regexp.MustCompile(`(?:Firefox|FxiOS)/([\d.]+)`)},
	{"Chrome", regexp.MustCompile(`(?:Chrome|CriOS)/([\d.]+)`)},
	{"Safari", regexp.MustCompile(`Version/([\d.]+).*Safari/`)},
	{"Internet Explorer", regexp.MustCompile(`(?:MSIE |Trident/.*rv:)([\d.]+)`)},
}

var osRules = []osRule{
	{"Windows", contains("windows")},
	{"Android", contains("android")},
	{"iOS", containsAny("iphone", "ipad", "ipod")},
	{"macOS", containsAny("mac os x", "macintosh")},
	{"Chrome OS", contains("cros")},
	{"Linux", contains("linux")},
}

var deviceRules = []deviceRule{
	{"tablet", func(ua string) bool {
		return strings.Contains(ua, "ipad") || strings.Contains(ua, "tablet") ||
			(strings.Contains(ua, "android") && !strings.Contains(ua, "mobile"))
	}},
	{"mobile", containsAny("mobile", "iphone", "ipod")},
	{"desktop", containsAny("windows", "macintosh", "x11", "cros", "linux")},
}

// Parse classifies ua. It never fails; unmatched dimensions are Unknown.
func Parse(ua string) Info {
	info := Info{Browser: Unknown, BrowserVersion: Unknown, OS: Unknown, Device: Unknown}
	if strings.TrimSpace(ua) == "" {
		return info
	}

	for _, rule := range browserRules {
		if m := rule.pattern.FindStringSubmatch(ua); m != nil {
			info.Browser = rule.name
			if len(m) > 1 && m[1] != "" {
				info.BrowserVersion = m[1]
			}
			break
		}
	}

	lower := strings.ToLower(ua)
	for _, rule := range osRules {
		if rule.match(lower) {
			info.OS = rule.name
			break
		}
	}
	for _, rule := range deviceRules {
		if rule.match(lower) {
			info.Device = rule.device
			break
		}
	}
	return info
}

// IsUnknown reports whether v carries no information.
func IsUnknown(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.EqualFold(v, Unknown)
}

func contains(token string) func(string) bool {
	return func(ua string) bool { return strings.Contains(ua, token) }
}

func containsAny(tokens ...string) func(string) bool {
	return func(ua string) bool {
		for _, t := range tokens {
			if strings.Contains(ua, t) {
				return true
			}
		}
		return false
	}
}
