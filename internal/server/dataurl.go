package server

import (
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/h2non/filetype"
)

// decodeFileData turns stored content into raw bytes. Content of the form
// data:[<mediatype>][;base64],<data> is decoded; anything else is served
// as-is with an empty media type.
func decodeFileData(content string) (body []byte, mediaType string, err error) {
	if !strings.HasPrefix(content, "data:") {
		return []byte(content), "", nil
	}

	header, payload, ok := strings.Cut(content[len("data:"):], ",")
	if !ok {
		return nil, "", errors.New("data url has no payload separator")
	}

	isBase64 := false
	if h, found := strings.CutSuffix(header, ";base64"); found {
		header, isBase64 = h, true
	}

	if header != "" {
		mt, params, perr := mime.ParseMediaType(header)
		if perr != nil {
			return nil, "", fmt.Errorf("data url media type: %w", perr)
		}
		mediaType = mime.FormatMediaType(mt, params)
	}

	if isBase64 {
		payload = strings.TrimRight(strings.Join(strings.Fields(payload), ""), "=")
		body, err = base64.RawStdEncoding.DecodeString(payload)
		if err != nil {
			// Some encoders emit the URL-safe alphabet.
			body, err = base64.RawURLEncoding.DecodeString(payload)
		}
		if err != nil {
			return nil, "", fmt.Errorf("data url base64: %w", err)
		}
		return body, mediaType, nil
	}

	unescaped, err := url.PathUnescape(payload)
	if err != nil {
		return nil, "", fmt.Errorf("data url escape: %w", err)
	}
	return []byte(unescaped), mediaType, nil
}

// sniffContentType guesses a type from magic numbers, falling back to the
// net/http sniffer for text.
func sniffContentType(body []byte) string {
	if kind, err := filetype.Match(body); err == nil && kind != filetype.Unknown {
		return kind.MIME.Value
	}
	return http.DetectContentType(body)
}
