package parser

import (
	"strings"
)

// SplitBlocks splits a document on separator lines. Each separator closes
// the current block and the next block starts on the following line. Spans
// are 0-indexed and inclusive.
func SplitBlocks(text, path string) []*Block {
	file := &File{Path: path}
	return splitInto(file, text)
}

func splitInto(file *File, text string) []*Block {
	lines := Lex(text, 0)
	if len(lines) == 0 {
		return nil
	}

	var blocks []*Block
	start := 0
	emit := func(end int) {
		b := newBlock(file, len(blocks), lines[start:end+1])
		blocks = append(blocks, b)
		start = end + 1
	}

	for i, line := range lines {
		if line.Kind == LineSeparator {
			emit(i)
		}
	}

	// Lines after the last separator always form a block, blank or not, so
	// the blocks cover every line of the document.
	if start < len(lines) {
		emit(len(lines) - 1)
	}

	file.Blocks = blocks
	return blocks
}

func newBlock(file *File, index int, lines []Line) *Block {
	b := &Block{
		File:      file,
		Index:     index,
		Text:      joinLines(lines),
		StartLine: lines[0].Number,
		EndLine:   lines[len(lines)-1].Number,
		lines:     lines,
		content:   lines,
	}
	b.request, b.response = splitSections(lines)
	return b
}

// splitSections returns the request and response sections. Separator lines
// never belong to either section.
func splitSections(lines []Line) ([]Line, []Line) {
	start := -1
	for i, line := range lines {
		if line.Kind == LineMethod {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, nil
	}

	var request, response []Line
	inResponse := false
	for _, line := range lines[start:] {
		if line.Kind == LineSeparator {
			continue
		}
		if !inResponse && line.Kind == LineStatus {
			inResponse = true
		}
		if inResponse {
			response = append(response, line)
		} else {
			request = append(request, line)
		}
	}
	return request, response
}

func joinLines(lines []Line) string {
	parts := make([]string, len(lines))
	for i, line := range lines {
		parts[i] = line.Text
	}
	return strings.Join(parts, "\n")
}
