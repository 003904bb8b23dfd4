package parser

import "strings"

// quoted returns the text between the first and second double quote.
// With fewer than two quotes it returns "".
func quoted(line string) string {
	first := strings.IndexByte(line, '"')
	if first < 0 {
		return ""
	}
	rest := line[first+1:]
	second := strings.IndexByte(rest, '"')
	if second < 0 {
		return ""
	}
	return rest[:second]
}

// quotedOuter returns the text between the first and last double quote, so
// payloads that themselves contain quotes survive intact. With fewer than
// two quotes it returns "".
func quotedOuter(line string) string {
	first := strings.IndexByte(line, '"')
	last := strings.LastIndexByte(line, '"')
	if first < 0 || last <= first {
		return ""
	}
	return line[first+1 : last]
}
