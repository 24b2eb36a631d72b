package relay

import "strings"

// Frames splits a text chunk into the payloads of its data frames. Every
// element of the split becomes one frame, including empty ones. A client
// joining all payloads of a stream with "\n" therefore gets the non-empty
// chunks joined with "\n": each chunk boundary contributes one newline.
// SSE treats "\r\n", "\r" and "\n" alike as line ends, so all three split.
func Frames(text string) []string {
	return strings.Split(lineEnds.Replace(text), "\n")
}

var lineEnds = strings.NewReplacer("\r\n", "\n", "\r", "\n")
