package processing

import "strings"

// Some local and third-party models interleave their reasoning with the
// final answer inside one text body, delimited by <think> tags. This package
// separates the two, both for complete responses and for streams where a tag
// can arrive split across chunks.

const (
	ThinkStart = "<think>"
	ThinkEnd   = "</think>"
)

// ExtractThinking splits a complete response body into answer text and
// reasoning text. Multiple <think> blocks are supported; an unclosed block
// is treated as reasoning to the end of the text.
func ExtractThinking(text string) (content string, reasoning string) {
	var contentBuilder strings.Builder
	var reasoningBuilder strings.Builder

	cursor := 0
	for cursor < len(text) {
		startIdx := strings.Index(text[cursor:], ThinkStart)
		if startIdx == -1 {
			contentBuilder.WriteString(text[cursor:])
			break
		}

		realStart := cursor + startIdx
		contentBuilder.WriteString(text[cursor:realStart])
		cursor = realStart + len(ThinkStart)

		endIdx := strings.Index(text[cursor:], ThinkEnd)
		if endIdx == -1 {
			reasoningBuilder.WriteString(text[cursor:])
			break
		}

		realEnd := cursor + endIdx
		reasoningBuilder.WriteString(text[cursor:realEnd])
		cursor = realEnd + len(ThinkEnd)
	}

	return contentBuilder.String(), reasoningBuilder.String()
}

// StreamParser separates reasoning from answer text chunk by chunk. It keeps
// just enough state to handle a tag split across chunk boundaries.
type StreamParser struct {
	inBlock bool
	buffer  string
}

func NewStreamParser() *StreamParser {
	return &StreamParser{}
}

// Process consumes one chunk and returns the answer and reasoning text it
// completed. Bytes that could be the start of a split tag are buffered until
// the next chunk decides them.
func (p *StreamParser) Process(input string) (content string, reasoning string) {
	text := p.buffer + input
	p.buffer = ""

	var contentBuilder strings.Builder
	var reasoningBuilder strings.Builder

	cursor := 0
	for cursor < len(text) {
		tag := ThinkStart
		builder := &contentBuilder
		if p.inBlock {
			tag = ThinkEnd
			builder = &reasoningBuilder
		}

		if idx := strings.Index(text[cursor:], tag); idx != -1 {
			realIdx := cursor + idx
			builder.WriteString(text[cursor:realIdx])
			cursor = realIdx + len(tag)
			p.inBlock = !p.inBlock
			continue
		}

		// No full tag. Hold back any suffix that is a prefix of the tag we
		// are looking for; it may complete in the next chunk.
		held := 0
		maxPartial := len(tag) - 1
		if rem := len(text) - cursor; rem < maxPartial {
			maxPartial = rem
		}
		for i := maxPartial; i > 0; i-- {
			if strings.HasPrefix(tag, text[len(text)-i:]) {
				held = i
				break
			}
		}

		builder.WriteString(text[cursor : len(text)-held])
		p.buffer = text[len(text)-held:]
		cursor = len(text)
	}

	return contentBuilder.String(), reasoningBuilder.String()
}

// Flush drains any held-back partial tag when the stream ends. The remainder
// belongs to whichever side the parser was emitting to.
func (p *StreamParser) Flush() (content string, reasoning string) {
	rest := p.buffer
	p.buffer = ""
	if rest == "" {
		return "", ""
	}
	if p.inBlock {
		return "", rest
	}
	return rest, ""
}
