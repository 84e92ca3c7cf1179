package extract

import (
	"context"
	"strings"
)

// CalendarExtractor renders .ics files into readable event text. It handles
// the VEVENT subset the pipeline cares about (summary, start, end, location,
// description); anything else in the calendar is ignored.
type CalendarExtractor struct{}

// NewCalendarExtractor creates a new calendar extractor.
func NewCalendarExtractor() *CalendarExtractor {
	return &CalendarExtractor{}
}

// Extract parses the iCalendar bytes and returns one text block per event.
func (e *CalendarExtractor) Extract(_ context.Context, data []byte, _ string) (string, error) {
	lines := unfoldLines(string(data))

	var events []string
	var current []string
	inEvent := false

	for _, line := range lines {
		name, value := splitProperty(line)
		switch {
		case name == "BEGIN" && value == "VEVENT":
			inEvent = true
			current = nil
		case name == "END" && value == "VEVENT":
			inEvent = false
			if len(current) > 0 {
				events = append(events, strings.Join(current, "\n"))
			}
		case inEvent:
			switch name {
			case "SUMMARY":
				current = append(current, "Event: "+unescapeText(value))
			case "DTSTART":
				current = append(current, "Start: "+value)
			case "DTEND":
				current = append(current, "End: "+value)
			case "LOCATION":
				if value != "" {
					current = append(current, "Location: "+unescapeText(value))
				}
			case "DESCRIPTION":
				if value != "" {
					current = append(current, "Description: "+unescapeText(value))
				}
			}
		}
	}

	if len(events) == 0 {
		return "Empty calendar file", nil
	}
	return strings.Join(events, "\n\n---\n\n"), nil
}

// unfoldLines undoes RFC 5545 line folding: continuation lines begin with a
// space or tab and belong to the previous line.
func unfoldLines(raw string) []string {
	rawLines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	var lines []string
	for _, line := range rawLines {
		if (strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")) && len(lines) > 0 {
			lines[len(lines)-1] += strings.TrimLeft(line, " \t")
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// splitProperty splits "NAME;PARAM=X:value" into the bare property name and
// its value.
func splitProperty(line string) (string, string) {
	idx := strings.Index(line, ":")
	if idx < 0 {
		return strings.ToUpper(strings.TrimSpace(line)), ""
	}
	name := line[:idx]
	value := line[idx+1:]
	if paramIdx := strings.Index(name, ";"); paramIdx >= 0 {
		name = name[:paramIdx]
	}
	return strings.ToUpper(strings.TrimSpace(name)), strings.TrimSpace(value)
}

func unescapeText(value string) string {
	replacer := strings.NewReplacer(
		`\n`, "\n",
		`\N`, "\n",
		`\,`, ",",
		`\;`, ";",
		`\\`, `\`,
	)
	return replacer.Replace(value)
}
