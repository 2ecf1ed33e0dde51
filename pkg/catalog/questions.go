package catalog

import (
	"bufio"
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/mchmarny/nsctl/pkg/score"
	"github.com/pkg/errors"
	"golang.org/x/text/encoding/charmap"
)

const (
	questionSeparator = ';'
	questionEscape    = '\\'

	textColumn     = "soru"
	expectedColumn = "Sağlıklı Çocukta Beklenen Cevap"
)

// LoadQuestions reads the semicolon separated question sheet. Files that are
// not valid UTF-8 are decoded as Windows-1254. Quotes carry no meaning and a
// backslash escapes the next character. The n-th non-blank data row becomes
// question Q{n}.
func LoadQuestions(path string) ([]*Question, error) {
	if path == "" {
		return nil, errors.New("questions path required")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading questions file: %s", path)
	}
	b, err = toUTF8(b)
	if err != nil {
		return nil, errors.Wrapf(err, "error decoding questions file: %s", path)
	}
	return parseQuestions(b)
}

func toUTF8(b []byte) ([]byte, error) {
	b = bytes.TrimPrefix(b, []byte("\ufeff"))
	if utf8.Valid(b) {
		return b, nil
	}
	return charmap.Windows1254.NewDecoder().Bytes(b)
}

func parseQuestions(b []byte) ([]*Question, error) {
	sc := bufio.NewScanner(bytes.NewReader(b))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	textIdx, expectedIdx := -1, -1
	header := true
	list := make([]*Question, 0)

	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := splitEscaped(line, questionSeparator, questionEscape)

		if header {
			for i, f := range fields {
				name := cleanHeader(f)
				switch {
				case strings.EqualFold(name, textColumn):
					textIdx = i
				case name == expectedColumn:
					expectedIdx = i
				}
			}
			if expectedIdx < 0 {
				return nil, errors.Errorf("column %q not found in question sheet header", expectedColumn)
			}
			header = false
			continue
		}

		q := &Question{ID: fmt.Sprintf("Q%d", len(list)+1)}
		if textIdx >= 0 && textIdx < len(fields) {
			q.Text = cleanValue(fields[textIdx])
		}
		if expectedIdx < len(fields) {
			q.Expected = expectedAnswer(cleanValue(fields[expectedIdx]))
		}
		list = append(list, q)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "error scanning question sheet")
	}
	if header {
		return nil, errors.New("question sheet is empty")
	}
	return list, nil
}

// expectedAnswer keeps unrecognized values verbatim so they still take part
// in the literal comparison against given answers.
func expectedAnswer(s string) score.Answer {
	if s == "" {
		return ""
	}
	if a, ok := score.ParseAnswer(s); ok {
		return a
	}
	slog.Debug("unrecognized expected answer kept as is", "value", s)
	return score.Answer(s)
}

func cleanValue(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, `"`, ""))
}

// splitEscaped splits s on sep. The escape rune makes the following rune
// literal and is itself dropped.
func splitEscaped(s string, sep, esc rune) []string {
	var fields []string
	var cur strings.Builder
	escaped := false
	for _, r := range s {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == esc:
			escaped = true
		case r == sep:
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	return append(fields, cur.String())
}
