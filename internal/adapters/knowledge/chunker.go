package knowledge

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

var separators = []string{"\n\n", "\n", " ", ""}

// Chunker splits documents into overlapping chunks, preferring paragraph,
// then line, then word boundaries. Sizes are measured in runes.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a chunker. An overlap not smaller than size is clamped.
func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = 300
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 5
	}
	return &Chunker{size: size, overlap: overlap}
}

// Split returns the chunks of text, trimmed and non-empty
func (c *Chunker) Split(text string) []string {
	text = norm.NFC.String(strings.ReplaceAll(text, "\r\n", "\n"))
	return c.split(text, separators)
}

func (c *Chunker) split(text string, seps []string) []string {
	sep := seps[len(seps)-1]
	rest := []string{}
	for i, s := range seps {
		if s == "" || strings.Contains(text, s) {
			sep = s
			rest = seps[i+1:]
			break
		}
	}

	var pieces []string
	if sep == "" {
		for _, r := range text {
			pieces = append(pieces, string(r))
		}
	} else {
		pieces = strings.Split(text, sep)
	}

	var chunks, small []string
	for _, p := range pieces {
		if p == "" {
			continue
		}
		if runeLen(p) <= c.size {
			small = append(small, p)
			continue
		}
		if len(small) > 0 {
			chunks = append(chunks, c.merge(small, sep)...)
			small = nil
		}
		if len(rest) == 0 {
			chunks = append(chunks, p)
		} else {
			chunks = append(chunks, c.split(p, rest)...)
		}
	}
	if len(small) > 0 {
		chunks = append(chunks, c.merge(small, sep)...)
	}
	return chunks
}

// merge packs pieces into chunks of at most size runes, carrying up to
// overlap runes of trailing pieces into the next chunk.
func (c *Chunker) merge(pieces []string, sep string) []string {
	sepLen := runeLen(sep)
	var chunks, current []string
	total := 0

	for _, p := range pieces {
		n := runeLen(p)
		joined := 0
		if len(current) > 0 {
			joined = sepLen
		}
		if total+n+joined > c.size && len(current) > 0 {
			if chunk := strings.TrimSpace(strings.Join(current, sep)); chunk != "" {
				chunks = append(chunks, chunk)
			}
			for len(current) > 0 && (total > c.overlap || total+n+sepLen > c.size) {
				total -= runeLen(current[0])
				if len(current) > 1 {
					total -= sepLen
				}
				current = current[1:]
			}
		}
		if len(current) > 0 {
			total += sepLen
		}
		current = append(current, p)
		total += n
	}

	if chunk := strings.TrimSpace(strings.Join(current, sep)); chunk != "" {
		chunks = append(chunks, chunk)
	}
	return chunks
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
