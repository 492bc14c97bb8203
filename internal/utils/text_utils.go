package utils

import (
	"bytes"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

var (
	blockBreaks = regexp.MustCompile(`(?i)<\s*(br|/p|/div|/li|/tr|/h[1-6]|/blockquote)\s*/?\s*>`)
	blankLines  = regexp.MustCompile(`\n{3,}`)
)

// TextProcessor provides utilities for processing text
type TextProcessor struct {
	logger   *zap.Logger
	strict   *bluemonday.Policy
	markdown goldmark.Markdown
}

// NewTextProcessor creates a new TextProcessor
func NewTextProcessor(logger *zap.Logger) *TextProcessor {
	return &TextProcessor{
		logger: logger,
		strict: bluemonday.StrictPolicy(),
		markdown: goldmark.New(
			goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
		),
	}
}

// TruncateText safely truncates text to the specified maximum size
// and ensures the result is valid UTF-8
func (tp *TextProcessor) TruncateText(text string, maxSize int) string {
	if maxSize <= 0 || len(text) <= maxSize {
		return text
	}

	truncated := text[:maxSize]

	// Drop a partial rune left by the byte cut
	for !utf8.ValidString(truncated) && len(truncated) > 0 {
		truncated = truncated[:len(truncated)-1]
	}

	tp.logger.Debug("Text truncated",
		zap.Int("original_size", len(text)),
		zap.Int("truncated_size", len(truncated)),
		zap.Int("max_size", maxSize))

	return truncated + "\n[... Content truncated due to size limits ...]"
}

// SanitizeUTF8 ensures the string contains only valid UTF-8 characters
func (tp *TextProcessor) SanitizeUTF8(text string) string {
	if utf8.ValidString(text) {
		return text
	}

	result := make([]rune, 0, len(text))
	for i, r := range text {
		if r == utf8.RuneError {
			_, size := utf8.DecodeRuneInString(text[i:])
			if size == 1 {
				continue
			}
		}
		result = append(result, r)
	}

	tp.logger.Debug("Text sanitized",
		zap.Int("original_size", len(text)),
		zap.Int("sanitized_size", len(string(result))))

	return string(result)
}

// Normalize returns the NFC form of the text
func (tp *TextProcessor) Normalize(text string) string {
	return norm.NFC.String(text)
}

// ProcessText truncates, sanitizes and normalizes text in one operation
func (tp *TextProcessor) ProcessText(text string, maxSize int) string {
	truncated := tp.TruncateText(text, maxSize)
	return tp.Normalize(tp.SanitizeUTF8(truncated))
}

// HTMLToText strips markup from an HTML body, keeping line structure
func (tp *TextProcessor) HTMLToText(body string) string {
	withBreaks := blockBreaks.ReplaceAllString(body, "\n")
	stripped := html.UnescapeString(tp.strict.Sanitize(withBreaks))

	lines := strings.Split(stripped, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(strings.ReplaceAll(line, " ", " "))
	}
	text := blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(text)
}

// RenderHTML renders a plain or markdown draft into an HTML body
func (tp *TextProcessor) RenderHTML(text string) string {
	var buf bytes.Buffer
	if err := tp.markdown.Convert([]byte(text), &buf); err != nil {
		tp.logger.Warn("Failed to render draft as HTML", zap.Error(err))
		return "<pre>" + html.EscapeString(text) + "</pre>"
	}
	return buf.String()
}
