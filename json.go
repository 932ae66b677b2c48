package subscription

import (
	"encoding/json"
	"mime"
	"strings"
)

type JsonMarshaler struct{}

func (j JsonMarshaler) Marshal(v any) ([]byte, error) {
	switch d := v.(type) {
	case []byte:
		return d, nil
	case string:
		return []byte(d), nil
	default:
		return json.Marshal(v)
	}
}

func (j JsonMarshaler) Unmarshal(d []byte, v any) error {
	return json.Unmarshal(d, v)
}

func (j JsonMarshaler) ContentType() string {
	return "application/json"
}

func (j JsonMarshaler) String() string {
	return "json"
}

// DecodePayload turns a message body into a hook payload. Bodies whose
// content type matches the codec are decoded; anything else, including a
// body the codec rejects, is returned as raw bytes.
func DecodePayload(codec Marshaler, contentType string, body []byte) (any, error) {
	if codec == nil || !matchContentType(codec.ContentType(), contentType) {
		return body, nil
	}
	var v any
	if err := codec.Unmarshal(body, &v); err != nil {
		return body, err
	}
	return v, nil
}

func matchContentType(want, got string) bool {
	if got == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(got)
	if err != nil {
		mediaType = strings.TrimSpace(got)
	}
	return strings.EqualFold(mediaType, want)
}
