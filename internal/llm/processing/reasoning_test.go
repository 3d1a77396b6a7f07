package processing

import (
	"testing"
)

func TestExtractThinking(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		wantContent   string
		wantReasoning string
	}{
		{
			name:          "No thinking",
			input:         "Hello world",
			wantContent:   "Hello world",
			wantReasoning: "",
		},
		{
			name:          "Simple thinking",
			input:         "<think>Reasoning here</think>Hello world",
			wantContent:   "Hello world",
			wantReasoning: "Reasoning here",
		},
		{
			name:          "Thinking at end",
			input:         "Hello world<think>Reasoning here</think>",
			wantContent:   "Hello world",
			wantReasoning: "Reasoning here",
		},
		{
			name:          "Multiple thinking blocks",
			input:         "<think>R1</think>C1<think>R2</think>C2",
			wantContent:   "C1C2",
			wantReasoning: "R1R2",
		},
		{
			name:          "Unclosed thinking",
			input:         "Hello <think>Reasoning",
			wantContent:   "Hello ",
			wantReasoning: "Reasoning",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotContent, gotReasoning := ExtractThinking(tt.input)
			if gotContent != tt.wantContent {
				t.Errorf("ExtractThinking() content = %q, want %q", gotContent, tt.wantContent)
			}
			if gotReasoning != tt.wantReasoning {
				t.Errorf("ExtractThinking() reasoning = %q, want %q", gotReasoning, tt.wantReasoning)
			}
		})
	}
}

func TestStreamParser(t *testing.T) {
	tests := []struct {
		name          string
		chunks        []string
		wantContent   string
		wantReasoning string
	}{
		{
			name:          "Tag split across chunks",
			chunks:        []string{"<thi", "nk>Reasoning</th", "ink>Hello"},
			wantContent:   "Hello",
			wantReasoning: "Reasoning",
		},
		{
			name:          "Tag split byte by byte",
			chunks:        []string{"<", "t", "h", "i", "n", "k", ">", "R", "<", "/", "t", "h", "i", "n", "k", ">", "C"},
			wantContent:   "C",
			wantReasoning: "R",
		},
		{
			name:          "Plain content",
			chunks:        []string{"Hello ", "world"},
			wantContent:   "Hello world",
			wantReasoning: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewStreamParser()
			fullContent := ""
			fullReasoning := ""

			for _, chunk := range tt.chunks {
				c, r := p.Process(chunk)
				fullContent += c
				fullReasoning += r
			}
			c, r := p.Flush()
			fullContent += c
			fullReasoning += r

			if fullContent != tt.wantContent {
				t.Errorf("StreamParser content = %q, want %q", fullContent, tt.wantContent)
			}
			if fullReasoning != tt.wantReasoning {
				t.Errorf("StreamParser reasoning = %q, want %q", fullReasoning, tt.wantReasoning)
			}
		})
	}
}

func TestStreamParserFlushPartialTag(t *testing.T) {
	p := NewStreamParser()
	c, r := p.Process("Hello <thi")
	if c != "Hello " || r != "" {
		t.Fatalf("Process() = %q, %q; want %q, %q", c, r, "Hello ", "")
	}

	// The held-back "<thi" never completes; Flush returns it as content.
	c, r = p.Flush()
	if c != "<thi" || r != "" {
		t.Fatalf("Flush() = %q, %q; want %q, %q", c, r, "<thi", "")
	}
}
