package mdf

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	tagLineRe  = regexp.MustCompile(`^\s*\\([a-z]+)(?:[ \t]+(.*))?$`)
	recordIDRe = regexp.MustCompile(`^Record:\s*(\d+)\s*$`)
)

// Parse splits MDF text into entries. Records are separated by runs of
// blank lines and open with \lx; a \lx line also begins a new record
// mid-block. A blank-separated block without \lx continues the preceding
// record only when it opens with \se or \nt, since the canonical form
// keeps blank lines before subentries and the record-id line. Every other
// lx-less block is malformed and silently dropped, as are lines before
// the first \lx. Malformed input never errors.
func Parse(text string) []Entry {
	if strings.TrimSpace(text) == "" {
		return []Entry{}
	}

	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	var blocks [][]string
	var current []string
	hasLx := false
	blanks := 0

	flush := func() {
		if hasLx {
			blocks = append(blocks, current)
		}
		current = nil
		hasLx = false
	}

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			blanks++
			continue
		}
		tag, _, isTag := splitTagLine(line)
		switch {
		case isTag && tag == "lx":
			flush()
			hasLx = true
		case current == nil:
			// lx-less leading block, accumulated then dropped at flush
		case blanks > 0 && isTag && (tag == "se" || tag == "nt"):
			for ; blanks > 0; blanks-- {
				current = append(current, "")
			}
		case blanks > 0:
			// a blank boundary followed by anything but a subentry or
			// remark opens a new block, which without \lx is malformed
			flush()
		}
		blanks = 0
		current = append(current, line)
	}
	flush()

	entries := make([]Entry, 0, len(blocks))
	for _, block := range blocks {
		if e, ok := parseBlock(block); ok {
			entries = append(entries, e)
		}
	}
	return entries
}

func parseBlock(lines []string) (Entry, bool) {
	e := Entry{Hm: 1}

	type field struct {
		tag   string
		value string
	}
	var fields []field

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if tag, value, ok := splitTagLine(line); ok {
			fields = append(fields, field{tag: tag, value: value})
			continue
		}
		// Continuation line: indented text without a backslash joins the
		// preceding field's value.
		if len(fields) > 0 {
			last := &fields[len(fields)-1]
			if last.value == "" {
				last.value = strings.TrimSpace(line)
			} else {
				last.value += " " + strings.TrimSpace(line)
			}
		}
	}

	sawHm := false
	for _, f := range fields {
		switch f.tag {
		case "lx":
			if e.Lx == "" {
				e.Lx = f.value
			}
		case "hm":
			if !sawHm {
				if n, err := strconv.Atoi(strings.TrimSpace(f.value)); err == nil && n >= 1 {
					e.Hm = n
				}
				sawHm = true
			}
		case "ps":
			if e.Ps == "" {
				e.Ps = f.value
			}
		case "ge":
			if e.Ge == "" {
				e.Ge = f.value
			}
		case "va":
			e.Va = append(e.Va, f.value)
		case "se":
			e.Se = append(e.Se, f.value)
		case "cf":
			e.Cf = append(e.Cf, f.value)
		case "ve":
			e.Ve = append(e.Ve, f.value)
		case "lg":
			e.Lg = append(e.Lg, f.value)
		case "nt":
			if e.RecordID == nil {
				if m := recordIDRe.FindStringSubmatch(f.value); m != nil {
					if n, err := strconv.Atoi(m[1]); err == nil {
						e.RecordID = &n
					}
				}
			}
		}
	}

	if e.Lx == "" {
		return Entry{}, false
	}
	e.MDFData = strings.TrimSpace(strings.Join(lines, "\n"))
	return e, true
}

// splitTagLine returns the tag and trimmed value of a backslash-tagged
// line, tolerating leading whitespace.
func splitTagLine(line string) (tag, value string, ok bool) {
	m := tagLineRe.FindStringSubmatch(line)
	if m == nil {
		return "", "", false
	}
	return m[1], strings.TrimSpace(m[2]), true
}

// ExtractRecordID returns the integer of the first "\nt Record: <n>" line
// in text, or nil.
func ExtractRecordID(text string) *int {
	for _, line := range strings.Split(text, "\n") {
		tag, value, ok := splitTagLine(line)
		if !ok || tag != "nt" {
			continue
		}
		if m := recordIDRe.FindStringSubmatch(value); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				return &n
			}
		}
	}
	return nil
}

// ExtractHomonym returns the value of the first \hm line, or nil when the
// record carries none or the value is not a positive integer.
func ExtractHomonym(text string) *int {
	for _, line := range strings.Split(text, "\n") {
		tag, value, ok := splitTagLine(line)
		if !ok || tag != "hm" {
			continue
		}
		if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && n >= 1 {
			return &n
		}
		return nil
	}
	return nil
}
