package format

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	frontmatterStart = "---\n"
	frontmatterEnd   = "\n---\n"
)

// Sentinel errors for message parsing.
var (
	ErrMissingFrontmatterStart = errors.New("missing frontmatter start")
	ErrMissingFrontmatterEnd   = errors.New("missing frontmatter end")
)

// Header is the metadata block at the top of each message file.
type Header struct {
	From         string `yaml:"from" json:"from"`
	To           string `yaml:"to" json:"to"`
	Timestamp    string `yaml:"timestamp" json:"timestamp"`
	Subject      string `yaml:"subject" json:"subject"`
	ExpectsReply bool   `yaml:"expects-reply" json:"expects_reply"`
}

// Message is the in-memory representation of a message file.
type Message struct {
	Header Header `json:"header"`
	Body   string `json:"body"`
}

// Marshal renders the message in its on-disk form. Header values are written
// verbatim (not YAML-quoted) so files stay readable and match what existing
// stores contain; line breaks in header values are flattened to spaces.
func (m Message) Marshal() []byte {
	var buf bytes.Buffer
	buf.WriteString(frontmatterStart)
	fmt.Fprintf(&buf, "from: %s\n", oneLine(m.Header.From))
	fmt.Fprintf(&buf, "to: %s\n", oneLine(m.Header.To))
	fmt.Fprintf(&buf, "timestamp: %s\n", oneLine(m.Header.Timestamp))
	fmt.Fprintf(&buf, "subject: %s\n", oneLine(m.Header.Subject))
	fmt.Fprintf(&buf, "expects-reply: %t\n", m.Header.ExpectsReply)
	buf.WriteString("---\n\n")
	buf.WriteString(m.Body)
	buf.WriteString("\n")
	return buf.Bytes()
}

// ParseMessage decodes a message file. Header lines are split on their first
// colon, which is how Marshal writes them. Headers written by other tools that
// use YAML constructs the line form cannot express (block scalars, continued
// lines) are decoded as YAML instead.
func ParseMessage(data []byte) (Message, error) {
	headerBytes, body, err := splitFrontmatter(data)
	if err != nil {
		return Message{}, err
	}
	header, err := parseHeader(headerBytes)
	if err != nil {
		return Message{}, err
	}
	body = bytes.TrimPrefix(body, []byte("\n"))
	body = bytes.TrimSuffix(body, []byte("\n"))
	return Message{Header: header, Body: string(body)}, nil
}

func splitFrontmatter(data []byte) ([]byte, []byte, error) {
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(data, []byte(frontmatterStart)) {
		return nil, nil, ErrMissingFrontmatterStart
	}
	payload := data[len(frontmatterStart):]
	// Empty header block: the closing fence follows immediately.
	if bytes.HasPrefix(payload, []byte("---\n")) {
		return nil, payload[len("---\n"):], nil
	}
	idx := bytes.Index(payload, []byte(frontmatterEnd))
	if idx < 0 {
		return nil, nil, ErrMissingFrontmatterEnd
	}
	return payload[:idx], payload[idx+len(frontmatterEnd):], nil
}

func parseHeader(block []byte) (Header, error) {
	header, lineErr := parseHeaderLines(block)
	if lineErr == nil {
		return header, nil
	}
	var yamlHeader Header
	if err := yaml.Unmarshal(block, &yamlHeader); err != nil {
		return Header{}, fmt.Errorf("%w (yaml: %v)", lineErr, err)
	}
	return yamlHeader, nil
}

func parseHeaderLines(block []byte) (Header, error) {
	var header Header
	for _, line := range strings.Split(string(block), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok || strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") {
			return Header{}, fmt.Errorf("parse frontmatter: malformed line %q", line)
		}
		value = strings.TrimPrefix(value, " ")
		switch strings.TrimSpace(key) {
		case "from":
			header.From = value
		case "to":
			header.To = value
		case "timestamp":
			header.Timestamp = value
		case "subject":
			header.Subject = value
		case "expects-reply":
			header.ExpectsReply = strings.TrimSpace(value) == "true"
		}
	}
	return header, nil
}

func oneLine(s string) string {
	if !strings.ContainsAny(s, "\r\n") {
		return s
	}
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s)
}
