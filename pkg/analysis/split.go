package analysis

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/chogerlate/NovelVizAI/internal/util"
)

// SplitChapter is one chapter cut out of a raw novel text, before
// persistence assigns it an id.
type SplitChapter struct {
	Title              string
	Content            string
	WordCount          int
	ReadingTimeMinutes int
}

const (
	// minChapterChars drops or merges fragments too short to be a
	// chapter of their own.
	minChapterChars = 100

	// fallback splitting when no chapter markers exist
	fallbackWordsPerPart = 2000
	fallbackMaxParts     = 10

	maxTitleLen = 80
)

var (
	chapterHeadingRe = regexp.MustCompile(`(?mi)^[ \t]*(?:chapter|ch\.)[ \t]+(?:\d+|[ivxlcdm]+)\b[^\n]*$`)
	numberLineRe     = regexp.MustCompile(`(?m)^[ \t]*(?:\d{1,4}|[IVXLCDM]{1,7})\.?[ \t]*$`)
)

// SplitChapters cuts raw novel text into chapters. It looks for explicit
// chapter headings first ("Chapter 12", "Ch. 3"), then for bare
// number or roman-numeral lines, and falls back to even length-based
// parts when the text carries no markers at all. Word count and reading
// time are computed for every chapter.
//
// Uploaded text is untrusted: a JSON body may carry NUL bytes or broken
// UTF-8, which Postgres rejects in TEXT columns, so the whole input is
// sanitized before any chapter content or title is cut from it.
func SplitChapters(text string) []SplitChapter {
	text = util.SanitizePostgresText(text)
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	if parts := splitAtMarkers(text, chapterHeadingRe); len(parts) > 1 {
		return parts
	}
	if parts := splitAtMarkers(text, numberLineRe); len(parts) > 1 {
		return parts
	}
	return splitByLength(text)
}

// splitAtMarkers cuts the text at every line matching re. The matched
// line seeds the chapter title; a short following line is treated as a
// subtitle. Text before the first marker is kept as a preamble chapter
// when it is long enough to matter.
func splitAtMarkers(text string, re *regexp.Regexp) []SplitChapter {
	locs := re.FindAllStringIndex(text, -1)
	if len(locs) < 2 {
		return nil
	}

	chapters := []SplitChapter{}

	preamble := strings.TrimSpace(text[:locs[0][0]])
	if len(preamble) >= minChapterChars {
		chapters = append(chapters, newSplitChapter("Prologue", preamble))
	}

	for i, loc := range locs {
		heading := strings.TrimSpace(text[loc[0]:loc[1]])

		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		body := strings.TrimSpace(text[loc[1]:end])

		title, body := extractTitle(heading, body)

		if len(body) < minChapterChars && len(chapters) > 0 {
			// fragment, fold into the previous chapter
			prev := &chapters[len(chapters)-1]
			prev.Content = strings.TrimSpace(prev.Content + "\n\n" + heading + "\n" + body)
			prev.WordCount = util.WordCount(prev.Content)
			prev.ReadingTimeMinutes = util.ReadingTimeMinutes(prev.WordCount)
			continue
		}

		chapters = append(chapters, newSplitChapter(title, body))
	}

	if len(chapters) < 2 {
		return nil
	}
	return chapters
}

// extractTitle builds the chapter title from the heading line and, when
// the body opens with a short standalone line, appends it as a subtitle.
func extractTitle(heading, body string) (string, string) {
	title := heading

	lines := strings.SplitN(body, "\n", 2)
	if len(lines) == 2 {
		first := strings.TrimSpace(lines[0])
		rest := strings.TrimSpace(lines[1])
		if first != "" && len(first) <= maxTitleLen && !strings.HasSuffix(first, ".") && rest != "" {
			return title + ": " + first, rest
		}
	}
	return title, body
}

// splitByLength splits unmarked text into parts of roughly
// fallbackWordsPerPart words, capped at fallbackMaxParts.
func splitByLength(text string) []SplitChapter {
	words := strings.Fields(text)

	parts := (len(words) + fallbackWordsPerPart - 1) / fallbackWordsPerPart
	if parts < 1 {
		parts = 1
	}
	if parts > fallbackMaxParts {
		parts = fallbackMaxParts
	}

	if parts == 1 {
		return []SplitChapter{newSplitChapter("Part 1", text)}
	}

	perPart := (len(words) + parts - 1) / parts
	chapters := make([]SplitChapter, 0, parts)
	for i := 0; i < parts; i++ {
		start := i * perPart
		end := start + perPart
		if end > len(words) {
			end = len(words)
		}
		content := strings.Join(words[start:end], " ")
		if len(content) < minChapterChars && len(chapters) > 0 {
			prev := &chapters[len(chapters)-1]
			prev.Content = strings.TrimSpace(prev.Content + " " + content)
			prev.WordCount = util.WordCount(prev.Content)
			prev.ReadingTimeMinutes = util.ReadingTimeMinutes(prev.WordCount)
			continue
		}
		chapters = append(chapters, newSplitChapter(fmt.Sprintf("Part %d", len(chapters)+1), content))
	}
	return chapters
}

func newSplitChapter(title, content string) SplitChapter {
	words := util.WordCount(content)
	return SplitChapter{
		Title:              title,
		Content:            content,
		WordCount:          words,
		ReadingTimeMinutes: util.ReadingTimeMinutes(words),
	}
}
