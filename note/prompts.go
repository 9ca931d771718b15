package note

import (
	"fmt"
	"strings"
)

const tagPromptTemplate = "You are a note-taking assistant. Your task is to generate relevant tags for a given " +
	"note so that the user can easily categorize and find related notes later.\n\nNote Content: %s\n\nTags:"

const summaryPromptTemplate = "Summarize the following notes:\n\n%s"

type tagsOutput struct {
	Tags []string `json:"tags" jsonschema:"description=Relevant tags for the note"`
}

type summaryOutput struct {
	Summary string `json:"summary" jsonschema:"description=The summarized notes"`
}

func tagPrompt(content string) string {
	return fmt.Sprintf(tagPromptTemplate, content)
}

func summaryPrompt(notes []Note) string {
	parts := make([]string, 0, len(notes))
	for i := range notes {
		parts = append(parts, "Title: "+notes[i].Title+"\n"+notes[i].Content)
	}
	return fmt.Sprintf(summaryPromptTemplate, strings.Join(parts, "\n\n"))
}

// Markdown renders n for export.
func Markdown(n *Note) string {
	var b strings.Builder
	b.WriteString("# ")
	b.WriteString(n.Title)
	b.WriteString("\n\n")
	if len(n.Tags) > 0 {
		b.WriteString("Tags: ")
		for i, tag := range n.Tags {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString("`" + tag + "`")
		}
		b.WriteString("\n\n")
	}
	b.WriteString("_Updated ")
	b.WriteString(n.UpdatedAt.UTC().Format("2006-01-02 15:04 MST"))
	b.WriteString("_\n\n")
	b.WriteString(n.Content)
	b.WriteString("\n")
	return b.String()
}
