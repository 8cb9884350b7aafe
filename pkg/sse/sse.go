// Package sse parses server-sent-event streams.
package sse

import (
	"bufio"
	"io"
	"strings"
)

// Event is one server-sent event.
type Event struct {
	// Event name, from the "event:" field.
	Event string
	// Payload, joined from one or more "data:" fields.
	Data string
	// Event ID, from the "id:" field.
	ID string
}

// Scanner reads events from a stream, one blank-line-delimited block
// at a time.
type Scanner struct {
	scanner *bufio.Scanner
}

func NewScanner(r io.Reader) *Scanner {
	s := bufio.NewScanner(r)
	// Streamed tool inputs can carry large JSON fragments per event.
	s.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return &Scanner{scanner: s}
}

// Scan returns the next event, or io.EOF at the end of the stream.
func (s *Scanner) Scan() (*Event, error) {
	ev := &Event{}
	var dataLines []string
	sawField := false
	for s.scanner.Scan() {
		line := s.scanner.Text()
		if line == "" {
			if sawField {
				break
			}
			// Leading blank lines before the first field.
			continue
		}
		if strings.HasPrefix(line, ":") {
			// comment
			continue
		}
		field, value, found := strings.Cut(line, ":")
		if !found {
			// A line without a colon is a field with an empty value.
			field, value = line, ""
		}
		value = strings.TrimPrefix(value, " ")
		sawField = true
		switch field {
		case "event":
			ev.Event = value
		case "data":
			dataLines = append(dataLines, value)
		case "id":
			ev.ID = value
		default:
			// Unknown fields are ignored.
		}
	}
	if err := s.scanner.Err(); err != nil {
		return nil, err
	}
	if !sawField {
		return nil, io.EOF
	}
	ev.Data = strings.Join(dataLines, "\n")
	return ev, nil
}
