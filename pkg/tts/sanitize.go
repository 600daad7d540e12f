package tts

import (
	"regexp"
	"strings"
)

var (
	thinkTagRe   = regexp.MustCompile(`(?is)<think>.*?</think>`)
	headerRe     = regexp.MustCompile(`(?m)^#{1,3}\s+(.+)$`)
	urlRe        = regexp.MustCompile(`https?://\S+|www\.\S+`)
	dimensionRe  = regexp.MustCompile(`(\d+)x(\d+)`)
	multiSpaceRe = regexp.MustCompile(`\s+`)
	multiDotRe   = regexp.MustCompile(`\.+`)
)

// StripThinkTags removes <think>...</think> blocks so a model's internal
// reasoning is never spoken aloud.
func StripThinkTags(text string) string {
	return strings.TrimSpace(thinkTagRe.ReplaceAllString(text, ""))
}

// symbol replacements in application order; multi-character sequences
// first so their parts are not rewritten out from under them.
var speechReplacer = strings.NewReplacer(
	"```", "",
	"***", "",
	"**", "",
	"*", "",
	"__", "",
	"_", " ",
	"`", "",
	"&", " and ",
	"@", " at ",
	"%", " percent ",
	"$", " dollars ",
	"...", " dot dot dot ",
	"---", ", ",
	"--", ", ",
	"[", "",
	"]", "",
	"{", "",
	"}", "",
	"(", ", ",
	")", ", ",
	"\n\n", ". ",
	"\n", ". ",
	"\t", " ",
)

// SanitizeForSpeech cleans text for synthesis: reasoning blocks and
// markdown are stripped, symbols become their spoken forms, and URLs
// collapse to "web link".
func SanitizeForSpeech(text string) string {
	if text == "" {
		return ""
	}

	s := StripThinkTags(text)
	s = headerRe.ReplaceAllString(s, "$1.")
	s = urlRe.ReplaceAllString(s, " web link ")
	s = dimensionRe.ReplaceAllString(s, "$1 by $2")
	s = speechReplacer.Replace(s)

	// Keep only characters a voice can say.
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case strings.ContainsRune(" .,!?;:'-", r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}

	s = multiDotRe.ReplaceAllString(b.String(), ".")
	s = multiSpaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
