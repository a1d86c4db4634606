package parsing

import (
	"bytes"
	"fmt"
	"strings"
)

// Header is one RFC 2822 style preamble field.
type Header struct {
	Name  string
	Value string
}

// Headers keeps preamble fields in source order.
type Headers []Header

// Get returns the value of the first header called name, ignoring case.
func (h Headers) Get(name string) (string, bool) {
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			return f.Value, true
		}
	}
	return "", false
}

// Value is Get without the presence flag.
func (h Headers) Value(name string) string {
	v, _ := h.Get(name)
	return v
}

// SplitHeaders separates the preamble from the body. The preamble ends at the
// first blank line; lines starting with whitespace continue the previous
// field and are folded into it with a single space.
func SplitHeaders(src []byte) (Headers, []byte, error) {
	src = bytes.TrimPrefix(src, []byte("\xef\xbb\xbf"))

	var headers Headers
	offset := 0
	for lineNo := 1; offset < len(src); lineNo++ {
		end := bytes.IndexByte(src[offset:], '\n')
		next := len(src)
		if end >= 0 {
			next = offset + end + 1
		}
		line := strings.TrimRight(string(src[offset:next]), "\r\n")
		offset = next

		if strings.TrimSpace(line) == "" {
			if len(headers) == 0 {
				continue
			}
			break
		}
		if line[0] == ' ' || line[0] == '\t' {
			if len(headers) == 0 {
				return nil, nil, fmt.Errorf("line %d: continuation line before first header", lineNo)
			}
			last := &headers[len(headers)-1]
			last.Value = strings.TrimSpace(last.Value + " " + strings.TrimSpace(line))
			continue
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok || name == "" || strings.ContainsAny(name, " \t") {
			return nil, nil, fmt.Errorf("line %d: malformed header %q", lineNo, line)
		}
		headers = append(headers, Header{Name: name, Value: strings.TrimSpace(value)})
	}
	if len(headers) == 0 {
		return nil, nil, fmt.Errorf("document has no header preamble")
	}
	return headers, src[offset:], nil
}
