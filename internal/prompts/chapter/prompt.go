// Package chapter holds the prompt templates for chapter narrative synthesis.
package chapter

import (
	_ "embed"
	"strings"
	"text/template"
)

//go:embed system.tmpl
var systemPrompt string

//go:embed user.tmpl
var userPrompt string

var userTmpl = template.Must(template.New("chapter_user").Parse(userPrompt))

// QA is one question/answer pair in interview order.
type QA struct {
	Question string
	Answer   string
}

// PromptData is the input to the user prompt template.
type PromptData struct {
	ChapterTitle   string
	StyleGuide     string
	ContextSummary string
	Pairs          []QA
}

// SystemPrompt returns the system prompt for chapter synthesis.
func SystemPrompt() string {
	return strings.TrimSpace(systemPrompt)
}

// UserPrompt renders the user prompt for the given chapter data.
func UserPrompt(data PromptData) (string, error) {
	var sb strings.Builder
	if err := userTmpl.Execute(&sb, data); err != nil {
		return "", err
	}
	return strings.TrimSpace(sb.String()), nil
}
