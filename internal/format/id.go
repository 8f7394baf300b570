package format

import (
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	// TimestampLayout is the second-resolution UTC form stored in message headers
	// and registry records.
	TimestampLayout = "2006-01-02T15:04:05Z"

	// FileStampLayout is TimestampLayout with colons replaced so it is safe in
	// filenames on every platform.
	FileStampLayout = "2006-01-02T15-04-05Z"

	maxSlugLen = 50
)

var slugStrip = regexp.MustCompile(`[^a-z0-9-]`)

// Timestamp formats t as a header timestamp.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Slug derives the filename fragment for a subject: lowercased, spaces to
// hyphens, anything outside [a-z0-9-] dropped, at most 50 characters.
func Slug(subject string) string {
	s := strings.ReplaceAll(strings.ToLower(subject), " ", "-")
	s = slugStrip.ReplaceAllString(s, "")
	if len(s) > maxSlugLen {
		s = s[:maxSlugLen]
	}
	return s
}

// MessageFilename returns the canonical message filename for a subject sent at t.
func MessageFilename(t time.Time, subject string) string {
	return t.UTC().Format(FileStampLayout) + "-" + Slug(subject) + ".md"
}

// DisambiguatedFilename is used when MessageFilename is already taken. The
// ULID suffix is separated by an underscore, which sorts after ".md", so the
// original message stays first in lexicographic (chronological) order.
func DisambiguatedFilename(t time.Time, subject string) string {
	return t.UTC().Format(FileStampLayout) + "-" + Slug(subject) + "_" + strings.ToLower(ulid.Make().String()) + ".md"
}
