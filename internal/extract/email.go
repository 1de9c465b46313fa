// Package extract provides pure text extraction helpers for the
// enrichment pipeline.
package extract

import (
	"regexp"
	"sort"
	"strings"
)

var emailRe = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

// assetExtensions are file extensions that produce false positives: asset
// filenames like "logo@2x.png" match the email pattern.
var assetExtensions = []string{".jpg", ".png", ".gif", ".pdf", ".doc"}

// Emails scans text for email addresses, drops asset-filename false
// positives, lowercases and deduplicates. The result is sorted so repeated
// runs over the same input are byte-identical; callers must not rely on
// order beyond that.
func Emails(text string) []string {
	matches := emailRe.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(matches))
	var emails []string
	for _, m := range matches {
		lower := strings.ToLower(m)
		if isAsset(lower) || seen[lower] {
			continue
		}
		seen[lower] = true
		emails = append(emails, lower)
	}

	sort.Strings(emails)
	return emails
}

func isAsset(email string) bool {
	for _, ext := range assetExtensions {
		if strings.Contains(email, ext) {
			return true
		}
	}
	return false
}
