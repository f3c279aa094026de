package rag

import "strings"

// defaultSeparators orders break points from best to worst: paragraph,
// line, sentence, word, then hard character cuts.
var defaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Splitter cuts text into overlapping windows, breaking preferentially at the
// best separator still present in the text and recursing to finer separators
// for oversized pieces.
type Splitter struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

func NewSplitter(chunkSize, chunkOverlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 5
	}
	return &Splitter{chunkSize: chunkSize, chunkOverlap: chunkOverlap, separators: defaultSeparators}
}

// Split returns the chunks for one source text. Short texts come back as a
// single chunk; empty input yields none.
func (s *Splitter) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= s.chunkSize {
		return []string{text}
	}
	return s.split(text, s.separators)
}

func (s *Splitter) split(text string, separators []string) []string {
	sep := ""
	var next []string
	for i, candidate := range separators {
		if candidate == "" || strings.Contains(text, candidate) {
			sep = candidate
			next = separators[i+1:]
			break
		}
	}

	var parts []string
	if sep == "" {
		return s.hardSplit(text)
	}
	parts = strings.Split(text, sep)

	var out []string
	var pending []string
	for _, part := range parts {
		if len(part) < s.chunkSize {
			pending = append(pending, part)
			continue
		}
		if len(pending) > 0 {
			out = append(out, s.merge(pending, sep)...)
			pending = nil
		}
		if len(next) == 0 {
			out = append(out, s.hardSplit(part)...)
		} else {
			out = append(out, s.split(part, next)...)
		}
	}
	if len(pending) > 0 {
		out = append(out, s.merge(pending, sep)...)
	}
	return out
}

// merge packs small splits back together up to chunkSize, carrying
// chunkOverlap worth of tail into the next chunk.
func (s *Splitter) merge(splits []string, sep string) []string {
	var out []string
	var window []string
	total := 0

	flush := func() {
		if len(window) == 0 {
			return
		}
		joined := strings.TrimSpace(strings.Join(window, sep))
		if joined != "" {
			out = append(out, joined)
		}
	}

	for _, piece := range splits {
		pieceLen := len(piece) + len(sep)
		if total+pieceLen > s.chunkSize && total > 0 {
			flush()
			// Drop from the front until only the overlap tail remains.
			for total > s.chunkOverlap || (total+pieceLen > s.chunkSize && total > 0) {
				total -= len(window[0]) + len(sep)
				window = window[1:]
				if len(window) == 0 {
					total = 0
					break
				}
			}
		}
		window = append(window, piece)
		total += pieceLen
	}
	flush()
	return out
}

// hardSplit cuts by bytes when no separator helps, still honoring overlap.
func (s *Splitter) hardSplit(text string) []string {
	var out []string
	step := s.chunkSize - s.chunkOverlap
	for start := 0; start < len(text); start += step {
		end := start + s.chunkSize
		if end > len(text) {
			end = len(text)
		}
		piece := strings.TrimSpace(text[start:end])
		if piece != "" {
			out = append(out, piece)
		}
		if end == len(text) {
			break
		}
	}
	return out
}
