// ABOUTME: Response normalization for the loosely-specified webhook reply contract
// ABOUTME: Reduces heterogeneous body shapes to content text plus image URLs

package webhook

import "encoding/json"

// NoContentSentinel is returned when a reply parses as JSON but carries no
// recognizable content field.
const NoContentSentinel = "No response content found"

// contentFields is the field precedence for extracting reply text. The order
// is the contract to reproduce, first match wins, both at the top level and
// nested one level under "data".
var contentFields = []string{"output", "text", "response", "message", "answer", "reply", "result"}

// Normalize reduces a raw webhook response body to content text and image
// URLs. Bodies that are not valid JSON are used verbatim as content.
func Normalize(body []byte) (content string, images []string) {
	var parsed any
	if err := json.Unmarshal(body, &parsed); err != nil {
		return string(body), nil
	}

	switch v := parsed.(type) {
	case string:
		// Bare JSON string literal
		return v, nil
	case map[string]any:
		return normalizeObject(v)
	default:
		// Arrays, numbers, booleans, null
		return NoContentSentinel, nil
	}
}

func normalizeObject(obj map[string]any) (string, []string) {
	images := stringSlice(obj["images"])

	if text, ok := firstContentField(obj); ok {
		return text, images
	}

	// Same field set nested one level under "data"
	if data, ok := obj["data"].(map[string]any); ok {
		if images == nil {
			images = stringSlice(data["images"])
		}
		if text, ok := firstContentField(data); ok {
			return text, images
		}
	}

	return NoContentSentinel, images
}

func firstContentField(obj map[string]any) (string, bool) {
	for _, field := range contentFields {
		if s, ok := obj[field].(string); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

func stringSlice(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
