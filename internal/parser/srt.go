// Package parser implements C1: turning an SRT byte stream into a
// domain.Timeline. Grounded on the reference backend's ingestion
// extractor normalization helpers (whitespace/UTF-8 cleanup, dedup-by-key)
// and its config.Duration-style "tolerant parse, fail loudly only on
// structurally fatal input" posture.
package parser

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/reelforge/viralcut/internal/domain"
	"github.com/reelforge/viralcut/internal/errs"
)

// cjkThreshold is the proportion of CJK-vs-ASCII letters above which a
// Timeline is tagged zh (spec.md 4.1).
const cjkThreshold = 0.3

var timestampRe = regexp.MustCompile(
	`(\d{1,2}):(\d{2}):(\d{2})[,.](\d{1,3})\s*-->\s*(\d{1,2}):(\d{2}):(\d{2})[,.](\d{1,3})`)

// Parse turns raw SRT bytes into a Timeline. It transcodes BOM-prefixed
// UTF-16 input to UTF-8 first. Index lines may be absent or
// non-monotonic; segments are always renumbered 1..N in input order.
func Parse(raw []byte) (domain.Timeline, error) {
	text, err := decode(raw)
	if err != nil {
		return domain.Timeline{}, errs.Input(errs.CodeUnsupportedEncoding, "", err)
	}

	blocks := splitBlocks(text)
	segs := make([]domain.Segment, 0, len(blocks))
	var lastKept *domain.Segment

	for bi, block := range blocks {
		lines := splitLines(block)
		lines = dropLeadingIndex(lines)
		if len(lines) == 0 {
			continue
		}

		m := timestampRe.FindStringSubmatch(lines[0])
		if m == nil {
			return domain.Timeline{}, errs.Input(errs.CodeMalformedSRT,
				fmt.Sprintf("block %d", bi), fmt.Errorf("missing or malformed timestamp line: %q", lines[0]))
		}
		start, err1 := parseTimestamp(m[1:5])
		end, err2 := parseTimestamp(m[5:9])
		if err1 != nil || err2 != nil {
			return domain.Timeline{}, errs.Input(errs.CodeMalformedSRT,
				fmt.Sprintf("block %d", bi), fmt.Errorf("malformed timestamp"))
		}
		if end <= start {
			return domain.Timeline{}, errs.Input(errs.CodeMalformedSRT,
				fmt.Sprintf("block %d", bi), fmt.Errorf("end (%d) <= start (%d)", end, start))
		}

		textLines := lines[1:]
		rawText := strings.Join(textLines, "\n")
		clean := collapseWhitespace(sanitizeUTF8(rawText))
		if clean == "" {
			// Recoverable: empty text after trim — drop the segment.
			continue
		}

		if lastKept != nil && lastKept.Text == clean {
			// Recoverable: duplicate consecutive identical segment — merge
			// end times instead of emitting a second segment.
			lastKept.EndMS = end
			continue
		}

		seg := domain.Segment{StartMS: start, EndMS: end, Text: clean}
		segs = append(segs, seg)
		lastKept = &segs[len(segs)-1]
	}

	for i := range segs {
		segs[i].Index = i + 1
	}

	tl := domain.Timeline{Segments: segs, Language: detectLanguage(segs)}
	tl.Fingerprint = Fingerprint(tl)
	return tl, nil
}

// decode transcodes BOM-prefixed UTF-16 (LE or BE) to UTF-8; UTF-8 and
// BOM-less input pass through unchanged. golang.org/x/text/encoding/unicode
// is the same transcoding library family the reference backend's text
// pipeline uses for non-UTF-8 document ingestion.
func decode(raw []byte) (string, error) {
	switch {
	case bytes.HasPrefix(raw, []byte{0xFF, 0xFE}):
		return transcodeUTF16(raw, unicode.LittleEndian, unicode.ExpectBOM)
	case bytes.HasPrefix(raw, []byte{0xFE, 0xFF}):
		return transcodeUTF16(raw, unicode.BigEndian, unicode.ExpectBOM)
	default:
		// Strip a UTF-8 BOM if present; otherwise pass through.
		raw = bytes.TrimPrefix(raw, []byte{0xEF, 0xBB, 0xBF})
		if !isLikelyText(raw) {
			return "", fmt.Errorf("input does not decode as text")
		}
		return string(raw), nil
	}
}

func transcodeUTF16(raw []byte, endian unicode.Endianness, bom unicode.BOMPolicy) (string, error) {
	dec := unicode.UTF16(endian, bom).NewDecoder()
	out, _, err := transform.Bytes(dec, raw)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func isLikelyText(b []byte) bool {
	if len(b) == 0 {
		return true
	}
	printable, total := 0, 0
	for _, r := range string(b) {
		total++
		if r == '\n' || r == '\r' || r == '\t' {
			printable++
			continue
		}
		if r >= 32 && r != 0xFFFD {
			printable++
		}
	}
	return total == 0 || float64(printable)/float64(total) > 0.90
}

func splitBlocks(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	raw := strings.Split(text, "\n\n")
	blocks := make([]string, 0, len(raw))
	for _, b := range raw {
		if strings.TrimSpace(b) == "" {
			continue
		}
		blocks = append(blocks, b)
	}
	return blocks
}

func splitLines(block string) []string {
	sc := bufio.NewScanner(strings.NewReader(block))
	var out []string
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), " \t")
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}

// dropLeadingIndex removes a leading bare-integer index line (absent or
// non-monotonic indices are tolerated per spec.md 4.1: segments are
// renumbered regardless).
func dropLeadingIndex(lines []string) []string {
	if len(lines) == 0 {
		return lines
	}
	if _, err := strconv.Atoi(strings.TrimSpace(lines[0])); err == nil {
		return lines[1:]
	}
	return lines
}

func parseTimestamp(m []string) (int64, error) {
	h, err := strconv.Atoi(m[0])
	if err != nil {
		return 0, err
	}
	mi, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, err
	}
	s, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, err
	}
	msStr := m[3]
	for len(msStr) < 3 {
		msStr += "0"
	}
	ms, err := strconv.Atoi(msStr[:3])
	if err != nil {
		return 0, err
	}
	total := int64(h)*3600000 + int64(mi)*60000 + int64(s)*1000 + int64(ms)
	return total, nil
}

// detectLanguage applies the CJK-vs-ASCII heuristic over all segment
// text (spec.md 4.1): ratio >= 0.3 => zh, else en if any ASCII letters
// are present, else unknown.
func detectLanguage(segs []domain.Segment) domain.Language {
	if len(segs) == 0 {
		return domain.LanguageUnknown
	}
	var b strings.Builder
	for _, s := range segs {
		b.WriteString(s.Text)
	}
	all := b.String()
	if all == "" {
		return domain.LanguageUnknown
	}
	if cjkRatio(all) >= cjkThreshold {
		return domain.LanguageZH
	}
	for _, r := range all {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			return domain.LanguageEN
		}
	}
	return domain.LanguageUnknown
}

// Fingerprint computes the SHA-256 content fingerprint over normalized
// text+timing, per the Timeline contract in spec.md section 3.
func Fingerprint(tl domain.Timeline) string {
	h := sha256.New()
	for _, s := range tl.Segments {
		fmt.Fprintf(h, "%d|%d|%d|%s\n", s.Index, s.StartMS, s.EndMS, s.Text)
	}
	return hex.EncodeToString(h.Sum(nil))
}
