package openai

import (
	"fmt"
	"strings"

	"github.com/probeworks/threadscout/core"
)

const analysisSystemPrompt = `You are an expert market research analyst and startup advisor.
Analyze the given discussion post and its comments to identify:
1. Clear market opportunities and gaps
2. Specific user pain points and problems
3. Potential startup ideas or business solutions
4. Market size indicators and trends
5. Competitive landscape insights

Comments often validate the problems raised in the post; note when they
add context or validation. Be precise, practical, and focus on
actionable insights.`

const batchSystemPromptFormat = `You are an expert market research analyst and startup advisor.
Analyze each of the given discussion posts and its comments to identify:
1. Clear market opportunities and gaps
2. Specific user pain points and problems
3. Potential startup ideas or business solutions
4. Market size indicators and trends
5. Competitive landscape insights

There are exactly %d posts. Produce one analysis per post, in the same
order, each introduced by its marker on its own line:
[POST 1]
<analysis of post 1>
[POST 2]
<analysis of post 2>

Do not skip, merge or reorder posts. Be precise, practical, and focus on
actionable insights.`

// renderPost formats one post and its comments for the analysis prompt.
func renderPost(post *core.Post, comments []string) string {
	var sb strings.Builder
	sb.WriteString("POST TITLE: ")
	sb.WriteString(post.Title)
	sb.WriteString("\n\nPOST CONTENT: ")
	sb.WriteString(post.Body)
	sb.WriteString("\n")
	if len(comments) > 0 {
		sb.WriteString("\nCOMMENTS:\n")
		for i, comment := range comments {
			fmt.Fprintf(&sb, "\nComment %d:\n%s\n", i+1, comment)
		}
	}
	return sb.String()
}

// renderBatch formats multiple posts for a single batch analysis request.
func renderBatch(posts []*core.Post, comments [][]string) string {
	var sb strings.Builder
	for i, post := range posts {
		if i > 0 {
			sb.WriteString("\n---\n")
		}
		fmt.Fprintf(&sb, "[POST %d]\n", i+1)
		var cs []string
		if i < len(comments) {
			cs = comments[i]
		}
		sb.WriteString(renderPost(post, cs))
	}
	return sb.String()
}
