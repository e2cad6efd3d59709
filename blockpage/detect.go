package blockpage

import "strings"

// maxChallengeWords bounds the visible text of a challenge page. Product
// pages carry far more text than this.
const maxChallengeWords = 250

// similarityThreshold is the largest fingerprint distance still treated as
// the same challenge page.
const similarityThreshold = 10

// Signature describes one known challenge page.
type Signature struct {
	Name string

	// Markers are lowercase phrases that identify the page on their own.
	Markers []string

	// Sample is representative visible text of the page.
	Sample string

	fingerprint uint64
}

// Match is a positive detection.
type Match struct {
	Signature string
	Distance  int
}

// Signatures are the challenge pages seen in front of the marketplace.
var Signatures = compile([]Signature{
	{
		Name:    "cloudflare-challenge",
		Markers: []string{"just a moment...", "checking your browser before accessing", "verifying you are human"},
		Sample:  "Just a moment... Checking if the site connection is secure www.cardmarket.com needs to review the security of your connection before proceeding. Verifying you are human. This may take a few seconds. Ray ID Performance & security by Cloudflare",
	},
	{
		Name:    "cloudflare-blocked",
		Markers: []string{"sorry, you have been blocked", "attention required! | cloudflare"},
		Sample:  "Attention Required! | Cloudflare Sorry, you have been blocked You are unable to access cardmarket.com Why have I been blocked? This website is using a security service to protect itself from online attacks. Cloudflare Ray ID Performance & security by Cloudflare",
	},
	{
		Name:    "access-denied",
		Markers: []string{"access denied", "you don't have permission to access"},
		Sample:  "Access Denied You don't have permission to access this resource on this server. Reference",
	},
	{
		Name:    "rate-limited",
		Markers: []string{"too many requests"},
		Sample:  "Too Many Requests You have sent too many requests in a given amount of time. Please try again later.",
	},
})

func compile(sigs []Signature) []Signature {
	for i := range sigs {
		sigs[i].fingerprint = Fingerprint(sigs[i].Sample)
	}
	return sigs
}

// Detect reports whether doc is a known challenge page.
func Detect(doc string) (Match, bool) {
	text := VisibleText(doc)
	if text == "" {
		return Match{}, false
	}
	if len(strings.Fields(text)) > maxChallengeWords {
		return Match{}, false
	}

	if m, ok := matchMarkers(text); ok {
		return m, true
	}
	return matchFingerprint(text)
}

func matchMarkers(text string) (Match, bool) {
	lower := strings.ToLower(text)
	for _, sig := range Signatures {
		for _, marker := range sig.Markers {
			if strings.Contains(lower, marker) {
				return Match{Signature: sig.Name}, true
			}
		}
	}
	return Match{}, false
}

func matchFingerprint(text string) (Match, bool) {
	fp := Fingerprint(text)
	for _, sig := range Signatures {
		if d := Distance(fp, sig.fingerprint); d <= similarityThreshold {
			return Match{Signature: sig.Name, Distance: d}, true
		}
	}
	return Match{}, false
}
