package ytdlp

import (
	"regexp"
	"strings"

	"github.com/jmylchreest/dlcut/internal/apperr"
)

var youtubePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^https?://(www\.)?youtube\.com/watch\?v=[\w-]+`),
	regexp.MustCompile(`^https?://(www\.)?youtube\.com/shorts/[\w-]+`),
	regexp.MustCompile(`^https?://youtu\.be/[\w-]+`),
	regexp.MustCompile(`^https?://(www\.)?youtube\.com/embed/[\w-]+`),
	regexp.MustCompile(`^https?://m\.youtube\.com/watch\?v=[\w-]+`),
}

// ErrInvalidURL is returned for URLs that are not recognised video pages.
var ErrInvalidURL = apperr.New(apperr.KindInvalidInput, "Invalid YouTube URL")

// ValidateURL accepts only YouTube watch, shorts, embed and short-link URLs.
// Nothing else is ever handed to the downloader.
func ValidateURL(raw string) error {
	u := strings.TrimSpace(raw)
	for _, re := range youtubePatterns {
		if re.MatchString(u) {
			return nil
		}
	}
	return ErrInvalidURL
}
