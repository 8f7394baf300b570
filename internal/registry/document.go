package registry

import (
	"strings"
)

const (
	// DocumentTitle heads a freshly created registry document.
	DocumentTitle = "# Active Agents"

	recordMarker      = "## "
	capabilitiesLabel = "**Capabilities:**"
	workingDirLabel   = "**Working in:**"
	startedLabel      = "**Started:**"
	statusLabel       = "**Status:**"
)

// Record is one agent entry in the registry document.
type Record struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Capabilities string `json:"capabilities"`
	WorkingDir   string `json:"working_dir"`
	Started      string `json:"started"`
	Status       string `json:"status"`

	// raw holds the section exactly as read, so records nobody touched are
	// written back unchanged. Nil for records built in memory.
	raw []string
}

// Lines renders the record's section without trailing blank lines.
func (r Record) Lines() []string {
	if r.raw != nil {
		return r.raw
	}
	return []string{
		recordMarker + r.Name,
		"",
		escapeDescription(r.Description),
		"",
		capabilitiesLabel + " " + r.Capabilities,
		workingDirLabel + " " + r.WorkingDir,
		startedLabel + " " + r.Started,
		statusLabel + " " + r.Status,
	}
}

// Document is the parsed registry: a free-form preamble followed by records
// in order of appearance.
type Document struct {
	Preamble []string
	Records  []Record
}

// NewDocument returns an empty document with the standard title.
func NewDocument() *Document {
	return &Document{Preamble: []string{DocumentTitle}}
}

// ParseDocument splits data into records. A record starts at a line
// beginning with "## " and runs until the next such line or the end of the
// document.
func ParseDocument(data []byte) *Document {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	lines := strings.Split(text, "\n")

	doc := &Document{}
	var section []string
	flush := func() {
		if section == nil {
			return
		}
		doc.Records = append(doc.Records, parseRecord(trimTrailingBlank(section)))
		section = nil
	}
	for _, line := range lines {
		if strings.HasPrefix(line, recordMarker) {
			flush()
			section = []string{line}
			continue
		}
		if section == nil {
			doc.Preamble = append(doc.Preamble, line)
			continue
		}
		section = append(section, line)
	}
	flush()
	doc.Preamble = trimTrailingBlank(doc.Preamble)
	return doc
}

func parseRecord(lines []string) Record {
	rec := Record{
		Name: strings.TrimSpace(strings.TrimPrefix(lines[0], recordMarker)),
		raw:  lines,
	}
	descDone := false
	for _, line := range lines[1:] {
		switch {
		case strings.HasPrefix(line, capabilitiesLabel):
			rec.Capabilities = labelValue(line, capabilitiesLabel)
			descDone = true
		case strings.HasPrefix(line, workingDirLabel):
			rec.WorkingDir = labelValue(line, workingDirLabel)
			descDone = true
		case strings.HasPrefix(line, startedLabel):
			rec.Started = labelValue(line, startedLabel)
			descDone = true
		case strings.HasPrefix(line, statusLabel):
			rec.Status = labelValue(line, statusLabel)
			descDone = true
		case strings.HasPrefix(line, "**"):
			descDone = true
		case !descDone && strings.TrimSpace(line) != "":
			rec.Description = unescapeDescription(line)
			descDone = true
		}
	}
	return rec
}

// escapeDescription prefixes a backslash to a description that would
// otherwise read back as a record heading or a labelled field. A leading
// backslash is escaped too so unescapeDescription is exact.
func escapeDescription(desc string) string {
	if strings.HasPrefix(desc, "#") || strings.HasPrefix(desc, "**") || strings.HasPrefix(desc, `\`) {
		return `\` + desc
	}
	return desc
}

func unescapeDescription(line string) string {
	return strings.TrimPrefix(line, `\`)
}

func labelValue(line, label string) string {
	return strings.TrimPrefix(strings.TrimPrefix(line, label), " ")
}

// Find returns the index of the first record named name.
func (d *Document) Find(name string) (int, bool) {
	for i, rec := range d.Records {
		if rec.Name == name {
			return i, true
		}
	}
	return -1, false
}

// Remove deletes every record named name and reports whether any existed.
func (d *Document) Remove(name string) bool {
	kept := d.Records[:0]
	removed := false
	for _, rec := range d.Records {
		if rec.Name == name {
			removed = true
			continue
		}
		kept = append(kept, rec)
	}
	d.Records = kept
	return removed
}

// Append adds rec as the last record.
func (d *Document) Append(rec Record) {
	rec.raw = nil
	d.Records = append(d.Records, rec)
}

// Render produces the document text. Sections are separated by one blank
// line and the document ends with a single newline.
func (d *Document) Render() []byte {
	var b strings.Builder
	b.WriteString(strings.Join(trimTrailingBlank(d.Preamble), "\n"))
	for _, rec := range d.Records {
		b.WriteString("\n\n")
		b.WriteString(strings.Join(trimTrailingBlank(rec.Lines()), "\n"))
	}
	b.WriteString("\n")
	return []byte(b.String())
}

// collapseBlankRuns squeezes consecutive blank lines into one and trims
// trailing blank lines, leaving a single final newline.
func collapseBlankRuns(data []byte) []byte {
	lines := trimTrailingBlank(strings.Split(string(data), "\n"))
	out := make([]string, 0, len(lines))
	prevBlank := false
	for _, line := range lines {
		blank := line == ""
		if blank && prevBlank {
			continue
		}
		out = append(out, line)
		prevBlank = blank
	}
	return []byte(strings.Join(out, "\n") + "\n")
}

func trimTrailingBlank(lines []string) []string {
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
