package queue

// IngestNovelMsg asks the worker to split a novel's raw text into
// chapters, persist them, and queue analysis for the ones that need it.
type IngestNovelMsg struct {
	NovelID string `json:"novel_id"`
}

// AnalyzeChapterMsg asks the worker to (re-)analyze a single chapter.
// Mode is "full" or "incremental".
type AnalyzeChapterMsg struct {
	NovelID   string `json:"novel_id"`
	ChapterID string `json:"chapter_id"`
	Mode      string `json:"mode"`
}

// DeleteNovelMsg asks the worker to remove a novel and everything
// derived from it.
type DeleteNovelMsg struct {
	NovelID string `json:"novel_id"`
}
