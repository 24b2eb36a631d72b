package gemini

import (
	"encoding/json"
	"fmt"
)

// blockingFinishReasons end a candidate without a usable reply.
var blockingFinishReasons = map[string]bool{
	"SAFETY":                  true,
	"RECITATION":              true,
	"BLOCKLIST":               true,
	"PROHIBITED_CONTENT":      true,
	"SPII":                    true,
	"MALFORMED_FUNCTION_CALL": true,
}

// extractErrorMessage parses a Google API error body.
func extractErrorMessage(body []byte) string {
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		if errResp.Error.Status != "" {
			return fmt.Sprintf("%s (%s)", errResp.Error.Message, errResp.Error.Status)
		}
		return errResp.Error.Message
	}
	return ""
}
