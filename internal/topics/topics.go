// Package topics runs the topic-modeling and description stages: embed the
// filtered summaries, cluster them, derive keywords and labels, and write
// the topic artifacts the dashboard reads.
package topics

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"radar/internal/core"
	"radar/internal/embed"
	"radar/internal/llm"
	"radar/internal/logger"
	"radar/internal/store"
)

// Artifact file names inside the data directory.
const (
	EmbeddingsFile       = "embeddings.gob"
	TopicsFile           = "topics.json"
	DescriptionsFile     = "topic_descriptions.json"
	MergeSuggestionsFile = "merge_suggestions.txt"
)

// labelSampleDocs is how many member documents the label prompt sees.
const labelSampleDocs = 10

// Config holds the modeling parameters.
type Config struct {
	MinClusterSize int
	MinDocuments   int
	KeywordCount   int
	SampleSize     int
	LabelModel     string
	DescribeModel  string
}

// Modeler runs the topic stages over the store.
type Modeler struct {
	Store    *store.Store
	Embedder *embed.Client
	LLM      *llm.Client
	DataDir  string
	Config   Config
}

// Result summarizes one modeling run.
type Result struct {
	Documents int
	Topics    []core.Topic
	Outliers  int
}

// Model embeds the eligible summaries, clusters them, writes topic
// assignments to the store, and saves the topics artifact.
func (m *Modeler) Model(ctx context.Context) (*Result, error) {
	articles, err := m.Store.ListForTopics()
	if err != nil {
		return nil, err
	}
	if len(articles) < m.Config.MinDocuments {
		return nil, fmt.Errorf("only %d documents eligible for topic modeling, need at least %d",
			len(articles), m.Config.MinDocuments)
	}

	ids := make([]int64, len(articles))
	docs := make([]string, len(articles))
	for i, a := range articles {
		ids[i] = a.ID
		// Title + summary, the same text the embeddings describe.
		docs[i] = a.Title + "\n" + a.Summary
	}

	matrix, err := m.Embedder.MatrixFor(ctx, filepath.Join(m.DataDir, EmbeddingsFile), ids, docs)
	if err != nil {
		return nil, fmt.Errorf("failed to embed documents: %w", err)
	}

	clusterer := NewClusterer(m.Config.MinClusterSize)
	assignments, err := clusterer.Assign(matrix.Vectors)
	if err != nil {
		return nil, err
	}

	for i, topic := range assignments {
		if err := m.Store.SetTopic(ids[i], topic); err != nil {
			return nil, fmt.Errorf("failed to store topic for article %d: %w", ids[i], err)
		}
	}

	keywords := ClassKeywords(docs, assignments, m.Config.KeywordCount)

	members := make(map[int][]string)
	sizes := make(map[int]int)
	outliers := 0
	for i, topic := range assignments {
		if topic == core.TopicOutlier {
			outliers++
			continue
		}
		sizes[topic]++
		if len(members[topic]) < labelSampleDocs {
			members[topic] = append(members[topic], articles[i].Title)
		}
	}

	var topicList []core.Topic
	for topic, size := range sizes {
		label := m.labelTopic(ctx, members[topic], keywords[topic])
		topicList = append(topicList, core.Topic{
			ID:       topic,
			Label:    label,
			Keywords: keywords[topic],
			Size:     size,
			Created:  time.Now().UTC(),
		})
		logger.Info("topic built", "topic", topic, "size", size, "label", label)
	}
	sortTopics(topicList)

	if err := SaveTopics(filepath.Join(m.DataDir, TopicsFile), topicList); err != nil {
		return nil, err
	}

	if err := m.suggestMerges(ctx, topicList); err != nil {
		logger.Warn("merge suggestions not generated", "error", err.Error())
	}

	return &Result{Documents: len(articles), Topics: topicList, Outliers: outliers}, nil
}

// labelTopic asks the LLM for a short label, falling back to the top
// keywords when the call fails.
func (m *Modeler) labelTopic(ctx context.Context, docs, keywords []string) string {
	label, err := m.LLM.ChatCompletion(ctx, llm.ChatRequest{
		Model: m.Config.LabelModel,
		Messages: []llm.Message{
			{Role: "user", Content: llm.LabelUserPrompt(docs, keywords)},
		},
		Temperature: 0.3,
		MaxTokens:   30,
	})
	if err != nil || label == "" {
		logger.Warn("topic label generation failed, using keywords", "error", fmt.Sprint(err))
		return fallbackLabel(keywords)
	}
	return trimLabel(label)
}

// trimLabel cleans up model output: stray whitespace, quotes, a trailing
// period.
func trimLabel(label string) string {
	label = strings.TrimSpace(label)
	label = strings.Trim(label, `"'`)
	label = strings.TrimSuffix(label, ".")
	return strings.TrimSpace(label)
}

func fallbackLabel(keywords []string) string {
	n := len(keywords)
	if n > 3 {
		n = 3
	}
	if n == 0 {
		return "Unlabeled Topic"
	}
	label := keywords[0]
	for _, k := range keywords[1:n] {
		label += " / " + k
	}
	return label
}

// suggestMerges asks the LLM which topics overlap and writes the answer to
// a text artifact for the operator to review.
func (m *Modeler) suggestMerges(ctx context.Context, topicList []core.Topic) error {
	if len(topicList) < 2 {
		return nil
	}

	var lines string
	for _, t := range topicList {
		lines += fmt.Sprintf("Topic %d: %s (%d articles)\nKeywords: %s\n\n",
			t.ID, t.Label, t.Size, fallbackJoin(t.Keywords))
	}

	suggestions, err := m.LLM.ChatCompletion(ctx, llm.ChatRequest{
		Model: m.Config.LabelModel,
		Messages: []llm.Message{
			{Role: "system", Content: llm.MergeSystemPrompt},
			{Role: "user", Content: llm.MergeUserPrompt(lines)},
		},
		Temperature: 0.3,
		MaxTokens:   1000,
	})
	if err != nil {
		return err
	}

	content := "TOPIC MERGE SUGGESTIONS\n" +
		"======================================================================\n\n" +
		suggestions + "\n"
	return os.WriteFile(filepath.Join(m.DataDir, MergeSuggestionsFile), []byte(content), 0644)
}

// Describe generates a long-form description for every assigned topic from
// a random sample of member articles and saves the descriptions artifact.
func (m *Modeler) Describe(ctx context.Context) (map[int]core.TopicDescription, error) {
	topicIDs, err := m.Store.AssignedTopics()
	if err != nil {
		return nil, err
	}
	if len(topicIDs) == 0 {
		return nil, fmt.Errorf("no topics assigned; run the modeling stage first")
	}

	topicList, err := LoadTopics(filepath.Join(m.DataDir, TopicsFile))
	if err != nil {
		logger.Warn("topics artifact unreadable, labels will be generic", "error", err.Error())
	}
	labels := make(map[int]core.Topic, len(topicList))
	for _, t := range topicList {
		labels[t.ID] = t
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	descriptions := make(map[int]core.TopicDescription, len(topicIDs))
	for i, topicID := range topicIDs {
		members, err := m.Store.ListByTopic(topicID)
		if err != nil {
			return nil, err
		}
		if len(members) == 0 {
			continue
		}

		sampleSize := m.Config.SampleSize
		if sampleSize <= 0 || sampleSize > len(members) {
			sampleSize = len(members)
		}
		samples := make([]string, 0, sampleSize)
		for j, idx := range rng.Perm(len(members))[:sampleSize] {
			summary := members[idx].Summary
			if len(summary) > 500 {
				summary = summary[:500]
			}
			samples = append(samples, fmt.Sprintf("Article %d: %s\nSummary: %s", j+1, members[idx].Title, summary))
		}

		info := labels[topicID]
		label := info.Label
		if label == "" {
			label = fmt.Sprintf("Topic %d", topicID)
		}
		keywordStr := fallbackJoin(info.Keywords)

		logger.Info("describing topic", "topic", topicID, "label", label,
			"articles", len(members), "sampled", sampleSize, "progress", fmt.Sprintf("%d/%d", i+1, len(topicIDs)))

		description, err := m.LLM.ChatCompletion(ctx, llm.ChatRequest{
			Model: m.Config.DescribeModel,
			Messages: []llm.Message{
				{Role: "system", Content: llm.DescribeSystemPrompt},
				{Role: "user", Content: llm.DescribeUserPrompt(label, keywordStr, len(members), samples)},
			},
			Temperature: 0.3,
			MaxTokens:   1000,
		})
		if err != nil {
			logger.Error("topic description failed", err, "topic", topicID)
			description = "Error generating description"
		}

		descriptions[topicID] = core.TopicDescription{
			TopicID:      topicID,
			Label:        label,
			Keywords:     keywordStr,
			ArticleCount: len(members),
			Description:  description,
			SampleSize:   sampleSize,
		}
	}

	if err := SaveDescriptions(filepath.Join(m.DataDir, DescriptionsFile), descriptions); err != nil {
		return nil, err
	}
	return descriptions, nil
}

func fallbackJoin(keywords []string) string {
	out := ""
	for i, k := range keywords {
		if i > 0 {
			out += ", "
		}
		out += k
	}
	return out
}

func sortTopics(topicList []core.Topic) {
	sort.Slice(topicList, func(i, j int) bool { return topicList[i].ID < topicList[j].ID })
}

// SaveTopics writes the topics artifact.
func SaveTopics(path string, topicList []core.Topic) error {
	data, err := json.MarshalIndent(topicList, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode topics: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write topics artifact: %w", err)
	}
	return nil
}

// LoadTopics reads the topics artifact. A missing file returns (nil, nil).
func LoadTopics(path string) ([]core.Topic, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read topics artifact: %w", err)
	}
	var topicList []core.Topic
	if err := json.Unmarshal(data, &topicList); err != nil {
		return nil, fmt.Errorf("failed to decode topics artifact: %w", err)
	}
	return topicList, nil
}

// SaveDescriptions writes the topic descriptions artifact.
func SaveDescriptions(path string, descriptions map[int]core.TopicDescription) error {
	data, err := json.MarshalIndent(descriptions, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode descriptions: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write descriptions artifact: %w", err)
	}
	return nil
}

// LoadDescriptions reads the descriptions artifact. A missing file returns
// (nil, nil).
func LoadDescriptions(path string) (map[int]core.TopicDescription, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read descriptions artifact: %w", err)
	}
	var descriptions map[int]core.TopicDescription
	if err := json.Unmarshal(data, &descriptions); err != nil {
		return nil, fmt.Errorf("failed to decode descriptions artifact: %w", err)
	}
	return descriptions, nil
}
