package mdf

import (
	"strconv"
	"strings"
)

// Format canonicalises MDF text in one pass:
//
//  1. leading whitespace is stripped from every tag line;
//  2. runs of blank lines collapse to a single blank line;
//  3. every \se line that is not the first line of its record is preceded
//     by exactly one blank line;
//  4. the "\nt Record:" line, when present, becomes the final line of the
//     record with exactly one blank line before it;
//  5. line order is otherwise preserved.
//
// Rules 3 and 4 are per record, so multi-record text is split at \lx
// lines first and the canonical records are rejoined with a single blank
// line. Format(Format(x)) == Format(x) for all x.
func Format(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	var records [][]string
	var current []string
	for _, line := range lines {
		if tag, _, ok := splitTagLine(line); ok && tag == "lx" && current != nil {
			records = append(records, current)
			current = nil
		}
		current = append(current, line)
	}
	if current != nil {
		records = append(records, current)
	}

	parts := make([]string, 0, len(records))
	for _, rec := range records {
		if s := formatRecord(rec); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n")
}

func formatRecord(lines []string) string {
	var out []string
	var recordIDLine string
	pendingBlank := false

	emit := func(line string) {
		if pendingBlank && len(out) > 0 {
			out = append(out, "")
		}
		pendingBlank = false
		out = append(out, line)
	}

	for _, raw := range lines {
		if strings.TrimSpace(raw) == "" {
			pendingBlank = true
			continue
		}

		line := raw
		tag, value, isTag := splitTagLine(raw)
		if isTag {
			line = strings.TrimLeft(raw, " \t")
		}

		if isTag && tag == "nt" && recordIDRe.MatchString(value) {
			// Moved to the end of the record; the last occurrence wins.
			recordIDLine = line
			pendingBlank = false
			continue
		}

		if isTag && tag == "se" && len(out) > 0 {
			pendingBlank = false
			out = append(out, "", line)
			continue
		}

		emit(line)
	}

	if recordIDLine != "" {
		if len(out) > 0 {
			out = append(out, "")
		}
		out = append(out, recordIDLine)
	}

	return strings.Join(out, "\n")
}

// NormalizeRecordID removes every existing "\nt Record: <n>" line and
// appends "\nt Record: <id>" as the last line, preceded by one blank line.
// Other \nt lines are untouched. Afterwards exactly one record-id line
// exists and it matches id.
func NormalizeRecordID(text string, id int) string {
	body := strings.TrimRight(StripRecordIDLines(text), " \t\n")
	idLine := "\\nt Record: " + strconv.Itoa(id)
	if body == "" {
		return idLine
	}
	return body + "\n\n" + idLine
}

// StripRecordIDLines removes every "\nt Record: <n>" line, plus any blank
// line immediately preceding one, so two records differing only in their
// id lines compare equal.
func StripRecordIDLines(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		tag, value, ok := splitTagLine(line)
		if ok && tag == "nt" && recordIDRe.MatchString(value) {
			if len(out) > 0 && strings.TrimSpace(out[len(out)-1]) == "" {
				out = out[:len(out)-1]
			}
			continue
		}
		out = append(out, line)
	}
	return strings.TrimRight(strings.Join(out, "\n"), " \t\n")
}

// StripHomonymLines removes every \hm line. Used for comparing uploads to
// stored records when only the homonym number differs.
func StripHomonymLines(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if tag, _, ok := splitTagLine(line); ok && tag == "hm" {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// InsertHomonymAfterLx inserts "\hm <n>" on the line after the first \lx
// line. Text without a \lx line is returned unchanged.
func InsertHomonymAfterLx(text string, n int) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if tag, _, ok := splitTagLine(line); ok && tag == "lx" {
			out := make([]string, 0, len(lines)+1)
			out = append(out, lines[:i+1]...)
			out = append(out, "\\hm "+strconv.Itoa(n))
			out = append(out, lines[i+1:]...)
			return strings.Join(out, "\n")
		}
	}
	return text
}
