package openaicompat

import "encoding/json"

// ExtractErrorMessage parses a ChatErrorResponse body and returns its
// message, or "" if the body has another shape.
func ExtractErrorMessage(data []byte) string {
	var errResp ChatErrorResponse
	if err := json.Unmarshal(data, &errResp); err == nil && errResp.Error.Message != "" {
		return errResp.Error.Message
	}
	return ""
}
