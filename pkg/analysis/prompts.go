package analysis

// LiteraryAnalystSystemPrompt is prepended to every facet request.
const LiteraryAnalystSystemPrompt = `You are a careful literary analyst. You read narrative fiction closely and produce precise, structured analysis. You only report what the text supports; you never invent characters, events, or quotes. You always answer with valid JSON matching the requested structure, with no commentary outside the JSON.`

const summaryPrompt = `
# Task Context
You are summarizing one chapter of a novel for readers tracking the story across many chapters.

# Background Data
- Novel: %s by %s
- Known characters so far:
%s
- Story so far:
%s

# Detailed Task Description & Rules
- Write a concise summary of 2-3 sentences capturing what happens in this chapter.
- Write a detailed summary of one paragraph covering all major developments.
- List 3-5 key events as short phrases, in the order they occur.
- Use the character names as they appear in the chapter; prefer names from the known-character list when they refer to the same person.
- Do not speculate about events outside this chapter.

# Chapter Text
%s

# Output Formatting
Return a JSON object with this structure:
{
  "concise": "<2-3 sentence summary>",
  "detailed": "<one paragraph summary>",
  "key_events": ["<event 1>", "<event 2>", "<event 3>"]
}
`

const sentimentPrompt = `
# Task Context
You are charting the emotional arc of one chapter of a novel.

# Background Data
- Novel: %s by %s
- Known characters so far:
%s
- Story so far:
%s

# Detailed Task Description & Rules
- Name the overall tone of the chapter as a single short label (e.g., "tense", "melancholic", "triumphant").
- Break the chapter into 3-5 segments (opening, middle, climax, ending) and give each a dominant emotion and an intensity between 0 and 1.
- For each character that appears, state their emotional state at the end of the chapter in a few words.
- Base every judgement on the text; do not infer emotions for characters who do not appear.

# Chapter Text
%s

# Output Formatting
Return a JSON object with this structure:
{
  "overall_tone": "<single short label>",
  "emotional_arc": [
    { "segment": "<opening|middle|climax|ending>", "emotion": "<emotion>", "intensity": 0.0 }
  ],
  "character_sentiments": { "<character name>": "<emotional state>" }
}
`

const themesPrompt = `
# Task Context
You are identifying the themes at work in one chapter of a novel.

# Background Data
- Novel: %s by %s
- Known characters so far:
%s
- Story so far:
%s

# Detailed Task Description & Rules
- Identify 2-5 themes present in this chapter (e.g., "sacrifice", "loyalty", "corruption of power").
- Score each theme's relevance to this chapter between 0 and 1.
- Support each theme with short textual evidence: a brief quote or a concrete description of a scene.
- Only include themes the chapter text actually supports.

# Chapter Text
%s

# Output Formatting
Return a JSON object with this structure:
{
  "themes": [
    { "theme": "<theme name>", "relevance": 0.0, "evidence": "<short evidence>" }
  ]
}
`

const literaryElementsPrompt = `
# Task Context
You are cataloguing the literary craft of one chapter of a novel.

# Background Data
- Novel: %s by %s
- Known characters so far:
%s
- Story so far:
%s

# Detailed Task Description & Rules
- Name the narrative voice (e.g., "first person", "third person limited", "omniscient").
- List passages that foreshadow later events, each as a short description.
- List symbols used in the chapter and what each stands for.
- Leave a list empty when the chapter shows nothing of that kind; never invent.

# Chapter Text
%s

# Output Formatting
Return a JSON object with this structure:
{
  "narrative_voice": "<voice>",
  "foreshadowing": ["<passage description>"],
  "symbolism": ["<symbol>: <meaning>"]
}
`

const characterMappingPrompt = `
# Task Context
You are extracting the characters and relationships present in one chapter of a novel, to be merged into a cross-chapter character graph.

# Background Data
- Novel: %s by %s
- Known characters so far:
%s
- Story so far:
%s

# Detailed Task Description & Rules
- List every named character that appears or is directly referenced in this chapter.
- For each character, record the name as used in this chapter, any other names or titles used for them ("the Captain", a surname, a nickname), their narrative role (protagonist, antagonist, supporting, minor), the traits the chapter shows, and how they develop in this chapter.
- If a character in this chapter matches someone on the known-character list under a different name, still report the name as used here and put the known name into aliases.
- List every relationship between two characters that the chapter gives evidence for, with a type (allies, rivals, family, mentor, romantic, enemies, colleagues), a sentiment between -1 (hostile) and 1 (warm), and short textual evidence.
- Only report pairs that actually interact or are explicitly related in this chapter.

# Chapter Text
%s

# Output Formatting
Return a JSON object with this structure:
{
  "characters": [
    { "name": "<name>", "aliases": ["<alias>"], "role": "<role>", "traits": ["<trait>"], "development_status": "<development>" }
  ],
  "relationships": [
    { "character_a": "<name>", "character_b": "<name>", "type": "<type>", "sentiment": 0.0, "evidence": "<short evidence>" }
  ]
}
`

const readingAnalyticsPrompt = `
# Task Context
You are scoring reading metrics for one chapter of a novel.

# Background Data
- Novel: %s by %s
- Known characters so far:
%s
- Story so far:
%s

# Detailed Task Description & Rules
- Score reading complexity between 0 (simple prose) and 1 (dense, demanding prose), considering vocabulary, sentence structure, and narrative layering.
- Score pacing between 0 (slow, contemplative) and 1 (fast, action-driven).
- Score estimated reader engagement between 0 and 1, considering tension, stakes, and momentum.

# Chapter Text
%s

# Output Formatting
Return a JSON object with this structure:
{
  "complexity": 0.0,
  "pacing": 0.0,
  "engagement": 0.0
}
`
