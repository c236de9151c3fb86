package fetch

import "strings"

// popularPlatforms maps URL domains to display names for replies.
var popularPlatforms = []struct {
	domain string
	name   string
}{
	{"youtube.com", "YouTube"}, {"youtu.be", "YouTube"},
	{"tiktok.com", "TikTok"}, {"vt.tiktok.com", "TikTok"}, {"vm.tiktok.com", "TikTok"},
	{"instagram.com", "Instagram"},
	{"facebook.com", "Facebook"}, {"fb.watch", "Facebook"},
	{"twitter.com", "Twitter"}, {"x.com", "Twitter"}, {"t.co", "Twitter"},
	{"vimeo.com", "Vimeo"},
	{"dailymotion.com", "Dailymotion"},
	{"twitch.tv", "Twitch"},
	{"reddit.com", "Reddit"},
	{"soundcloud.com", "SoundCloud"},
	{"spotify.com", "Spotify"},
}

// PlatformName returns the display name of the platform hosting url.
func PlatformName(url string) string {
	lower := strings.ToLower(url)
	for _, p := range popularPlatforms {
		if strings.Contains(lower, p.domain) {
			return p.name
		}
	}
	return "Unknown Platform"
}

// ValidURL reports whether s looks like a fetchable http(s) URL.
func ValidURL(s string) bool {
	return (strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")) &&
		strings.Contains(s, ".")
}
