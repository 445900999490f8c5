package sentry

import (
	"fmt"
	"strings"
)

// Event is a Sentry event with its exception entries and tags
type Event struct {
	Title   string  `json:"title"`
	Message string  `json:"message"`
	Entries []Entry `json:"entries"`
	Tags    []Tag   `json:"tags"`
}

// Entry is one section of a Sentry event
type Entry struct {
	Type string    `json:"type"`
	Data EntryData `json:"data"`
}

// EntryData holds the exception values of an entry
type EntryData struct {
	Values []ExceptionValue `json:"values"`
}

// ExceptionValue is a single exception in the chain
type ExceptionValue struct {
	Type       string      `json:"type"`
	Value      string      `json:"value"`
	Stacktrace *Stacktrace `json:"stacktrace"`
}

// Stacktrace is the frame list of an exception
type Stacktrace struct {
	Frames []Frame `json:"frames"`
}

// Frame is a single stack frame. Context rows are [lineNo, source] pairs.
type Frame struct {
	Function string          `json:"function"`
	Filename string          `json:"filename"`
	LineNo   int             `json:"lineNo"`
	Context  [][]interface{} `json:"context"`
}

// Tag is a key/value pair attached to an event
type Tag struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// FormatStacktrace renders the exception chain as markdown for the prompt.
// Falls back to the event message or title when no exception entry exists.
func (e *Event) FormatStacktrace() string {
	var b strings.Builder

	for _, entry := range e.Entries {
		if entry.Type != "exception" {
			continue
		}
		for _, exc := range entry.Data.Values {
			fmt.Fprintf(&b, "## %s : %s\n\n", exc.Type, exc.Value)
			if exc.Stacktrace == nil {
				continue
			}
			// Most recent call first
			frames := exc.Stacktrace.Frames
			for i := len(frames) - 1; i >= 0; i-- {
				frame := frames[i]
				fmt.Fprintf(&b, "%s in %s:%d\n", frame.Function, frame.Filename, frame.LineNo)
				for _, row := range frame.Context {
					if len(row) != 2 {
						continue
					}
					lineNo, ok := row[0].(float64)
					if !ok {
						continue
					}
					text, _ := row[1].(string)
					marker := "  "
					if int(lineNo) == frame.LineNo {
						marker = "> "
					}
					fmt.Fprintf(&b, "%s%d | %s\n", marker, int(lineNo), text)
				}
				b.WriteString("\n")
			}
		}
	}

	if b.Len() == 0 {
		if e.Message != "" {
			return e.Message
		}
		return e.Title
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatTags renders event tags as markdown bullets
func (e *Event) FormatTags() string {
	if len(e.Tags) == 0 {
		return ""
	}
	var b strings.Builder
	for _, tag := range e.Tags {
		fmt.Fprintf(&b, "- %s: %s\n", tag.Key, tag.Value)
	}
	return strings.TrimRight(b.String(), "\n")
}
