package llm

import (
	"fmt"
	"strings"
)

// SummarySystemPrompt steers summarization toward discoverability content.
const SummarySystemPrompt = `You are an expert analyst specializing in content discoverability and digital media.
Your task is to summarize articles by extracting and preserving ALL information related to discoverability
while removing irrelevant, non-substantive content.

Focus on:
- Content discovery mechanisms, algorithms, and platforms
- Discoverability challenges and solutions
- Search, recommendation, and curation systems
- Cultural content accessibility and visibility
- Platform policies affecting content discoverability
- Technology and AI in content discovery
- Creative industry discoverability issues
- Metadata, SEO, and content optimization

Remove:
- Marketing fluff and promotional language
- Biographical information not related to discoverability
- Company history unless directly relevant
- General background that doesn't relate to discoverability
- Redundant or repetitive statements

Provide a concise but comprehensive summary that preserves all discoverability-related details.`

// SummaryUserPrompt builds the per-article summarization prompt.
func SummaryUserPrompt(title, url, text string) string {
	return fmt.Sprintf(`Article Title: %s
Article URL: %s

Article Text:
%s

Please provide a focused summary extracting all discoverability-related information.`, title, url, text)
}

// FilterSystemPrompt classifies summaries for cultural relevance.
const FilterSystemPrompt = `You are an expert in culture, creative industries, and cultural content.

Your task is to determine if an article is relevant to culture and creative industries for a study about DISCOVERABILITY.

RELEVANT articles discuss:
- Cultural content (e.g. film, TV, music, books, art, theater, museums, heritage)
- Creative industries (e.g. media, publishing, entertainment, gaming, fashion)
- Cultural policies and funding
- Arts organizations and cultural institutions
- Cultural content platforms and distribution
- Cultural participation and access
- Cultural diversity and representation

NOT RELEVANT articles focus primarily on:
- General tourism (unless discussing cultural tourism/heritage sites)
- Job market/employment (unless cultural sector jobs)
- General business/economics (unless cultural economics)
- Technology in general (unless for cultural content)
- Politics in general (unless cultural policy)

Answer ONLY with "YES" or "NO".`

// FilterUserPrompt builds the per-article relevance prompt.
func FilterUserPrompt(title, summary string) string {
	return fmt.Sprintf(`Title: %s

Summary: %s

Is this article relevant to culture and creative industries?`, title, summary)
}

// ParseYesNo interprets a relevance answer. Any occurrence of YES counts as
// relevant; everything else is not.
func ParseYesNo(answer string) bool {
	return strings.Contains(strings.ToUpper(answer), "YES")
}

// LabelUserPrompt builds the topic-label prompt from member documents and
// c-TF-IDF keywords.
func LabelUserPrompt(docs []string, keywords []string) string {
	return fmt.Sprintf(`I have a topic that contains the following documents:
%s

The topic is described by the following keywords: %s

Based on the documents and keywords, create a short, descriptive label for this topic.
Focus on discoverability, content discovery, and media/creative industries themes.
The label should be 2-5 words, clear and specific.

Topic label:`, strings.Join(docs, "\n"), strings.Join(keywords, ", "))
}

// MergeSystemPrompt frames the topic-merge analysis.
const MergeSystemPrompt = `You are an expert in topic modeling and content analysis.`

// MergeUserPrompt builds the merge-suggestion prompt over a per-topic
// summary block (label, keywords, size per line).
func MergeUserPrompt(topicsText string) string {
	return fmt.Sprintf(`You are analyzing topics from a topic model about content discoverability.

Topics identified:
%s

Task: Identify topics that should potentially be MERGED because they are too similar or represent the same theme.

Guidelines:
- Only suggest merging if topics are clearly overlapping
- Consider keywords, topic names, and article counts
- Smaller topics (<20 articles) are good candidates for merging with larger similar topics
- Don't merge if topics have distinct meanings even if keywords overlap slightly

Provide your analysis in this format:
MERGE: Topic X + Topic Y → Reason
MERGE: Topic A + Topic B + Topic C → Reason

If no merges are needed, write: NO MERGES RECOMMENDED`, topicsText)
}

// DescribeSystemPrompt frames long-form topic descriptions.
const DescribeSystemPrompt = `You are an expert analyst specializing in content discoverability and digital media.
Your task is to create a comprehensive description of a topic based on a collection of article summaries.

Focus on:
- What this topic is about in the context of discoverability
- Key themes and patterns across the articles
- Relevant technologies, platforms, or approaches mentioned
- Why this topic matters for content discovery

Write in 2-3 paragraphs, clear and informative. Avoid generic statements.`

// DescribeUserPrompt builds the per-topic description prompt from sampled
// member articles.
func DescribeUserPrompt(label, keywords string, articleCount int, samples []string) string {
	return fmt.Sprintf(`Topic Label: %s
Topic Keywords: %s
Number of articles in topic: %d

Sample Articles:
%s

Based on these articles, provide a comprehensive 2-3 paragraph description of what this topic is about in the context of content discoverability. Be specific and insightful.`,
		label, keywords, articleCount, strings.Join(samples, "\n\n"))
}
