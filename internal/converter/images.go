package converter

import "strings"

// ImageRecord is the upstream-facing shape images normalize to (§4.3):
// {format: <subtype after slash>, source:{bytes: <base64>}}.
type ImageRecord struct {
	Format string
	Bytes  string
}

// ParseAnthropicImageBlock handles {type:"image", source:{type:"base64",
// media_type, data}}.
func ParseAnthropicImageBlock(source map[string]interface{}) (ImageRecord, bool) {
	if str(source["type"]) != "base64" {
		return ImageRecord{}, false
	}
	mediaType := str(source["media_type"])
	data := str(source["data"])
	if data == "" {
		return ImageRecord{}, false
	}
	return ImageRecord{Format: subtypeOf(mediaType), Bytes: data}, true
}

// ParseOpenAIImageURL handles {type:"image_url", image_url:{url}} where url
// must be a data: URI. http(s) URLs are not fetched — skipped per §4.3.
func ParseOpenAIImageURL(url string) (ImageRecord, bool) {
	if !strings.HasPrefix(url, "data:") {
		return ImageRecord{}, false
	}
	rest := strings.TrimPrefix(url, "data:")
	parts := strings.SplitN(rest, ";base64,", 2)
	if len(parts) != 2 {
		return ImageRecord{}, false
	}
	return ImageRecord{Format: subtypeOf(parts[0]), Bytes: parts[1]}, true
}

func subtypeOf(mediaType string) string {
	idx := strings.Index(mediaType, "/")
	if idx < 0 {
		return mediaType
	}
	return mediaType[idx+1:]
}
