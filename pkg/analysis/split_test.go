package analysis

import (
	"fmt"
	"strings"
	"testing"
)

func paragraph(words int) string {
	parts := make([]string, words)
	for i := range parts {
		parts[i] = fmt.Sprintf("word%d", i)
	}
	return strings.Join(parts, " ")
}

func TestSplitChapterHeadings(t *testing.T) {
	text := "Chapter 1\nThe Beginning\n" + paragraph(120) + "\n\nChapter 2\n" + paragraph(150)

	chapters := SplitChapters(text)
	if len(chapters) != 2 {
		t.Fatalf("expected 2 chapters, got %d", len(chapters))
	}
	if chapters[0].Title != "Chapter 1: The Beginning" {
		t.Errorf("title = %q", chapters[0].Title)
	}
	if chapters[1].Title != "Chapter 2" {
		t.Errorf("title = %q", chapters[1].Title)
	}
	if chapters[0].WordCount != 120 {
		t.Errorf("word count = %d, want 120", chapters[0].WordCount)
	}
	if chapters[0].ReadingTimeMinutes != 1 {
		t.Errorf("reading time = %d, want 1", chapters[0].ReadingTimeMinutes)
	}
}

func TestSplitAbbreviatedHeadings(t *testing.T) {
	text := "Ch. 1\n" + paragraph(110) + "\n\nCh. 2\n" + paragraph(110)
	chapters := SplitChapters(text)
	if len(chapters) != 2 {
		t.Fatalf("expected 2 chapters, got %d", len(chapters))
	}
}

func TestSplitNumberLines(t *testing.T) {
	text := "1\n" + paragraph(110) + "\n\n2\n" + paragraph(110) + "\n\nIII\n" + paragraph(110)
	chapters := SplitChapters(text)
	if len(chapters) != 3 {
		t.Fatalf("expected 3 chapters, got %d", len(chapters))
	}
}

func TestSplitKeepsPreamble(t *testing.T) {
	text := paragraph(60) + "\n\nChapter 1\n" + paragraph(110) + "\n\nChapter 2\n" + paragraph(110)
	chapters := SplitChapters(text)
	if len(chapters) != 3 {
		t.Fatalf("expected preamble plus 2 chapters, got %d", len(chapters))
	}
	if chapters[0].Title != "Prologue" {
		t.Errorf("title = %q, want Prologue", chapters[0].Title)
	}
}

func TestFallbackSplitByLength(t *testing.T) {
	chapters := SplitChapters(paragraph(5000))
	if len(chapters) != 3 {
		t.Fatalf("expected 3 parts for 5000 words, got %d", len(chapters))
	}
	total := 0
	for i, chapter := range chapters {
		if chapter.Title != fmt.Sprintf("Part %d", i+1) {
			t.Errorf("title = %q", chapter.Title)
		}
		total += chapter.WordCount
	}
	if total != 5000 {
		t.Errorf("total words = %d, want 5000", total)
	}
}

func TestFallbackShortTextSinglePart(t *testing.T) {
	chapters := SplitChapters(paragraph(300))
	if len(chapters) != 1 {
		t.Fatalf("expected a single part, got %d", len(chapters))
	}
	if chapters[0].Title != "Part 1" {
		t.Errorf("title = %q", chapters[0].Title)
	}
}

func TestSplitEmptyText(t *testing.T) {
	if chapters := SplitChapters("   \n  "); chapters != nil {
		t.Errorf("expected nil for empty text, got %v", chapters)
	}
}

func TestSplitSanitizesUploadedText(t *testing.T) {
	text := "Chapter 1\nA \x00Quiet\x00 Start\n" + paragraph(110) +
		"\n\nChapter 2\n" + paragraph(55) + " mid\x00dle " + paragraph(55) + " \xff"

	chapters := SplitChapters(text)
	if len(chapters) != 2 {
		t.Fatalf("expected 2 chapters, got %d", len(chapters))
	}
	for _, chapter := range chapters {
		if strings.ContainsRune(chapter.Title, 0) {
			t.Errorf("NUL byte survived in title %q", chapter.Title)
		}
		if strings.ContainsRune(chapter.Content, 0) {
			t.Errorf("NUL byte survived in content of %q", chapter.Title)
		}
		if !strings.Contains(chapter.Content, "word0") {
			t.Errorf("content of %q lost its body", chapter.Title)
		}
	}
	if chapters[0].Title != "Chapter 1: A Quiet Start" {
		t.Errorf("title = %q", chapters[0].Title)
	}
	if !strings.Contains(chapters[1].Content, "middle") {
		t.Error("NUL removal should keep the surrounding word intact")
	}
}

func TestShortFragmentFoldedIntoPrevious(t *testing.T) {
	text := "Chapter 1\n" + paragraph(110) + "\n\nChapter 2\ntoo short\n\nChapter 3\n" + paragraph(110)
	chapters := SplitChapters(text)
	if len(chapters) != 2 {
		t.Fatalf("expected fragment folded, got %d chapters", len(chapters))
	}
	if !strings.Contains(chapters[0].Content, "too short") {
		t.Error("fragment content lost")
	}
}
