package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"mime"
	"mime/multipart"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	requestBodyLogKey  = "http.request.body.summary"
	responseBodyLogKey = "http.response.body.summary"
	maxLoggedBody      = 2048
	redacted           = "redacted"
	binaryBody         = "binary"
)

// Order rows and mail requests carry customer contact details. Values under
// these keys never reach the log.
var sensitiveKeys = []string{
	"password", "연락처", "주소", "고객명", "contact", "address", "phone", "to", "recipients",
}

func registerLogging(e *echo.Echo) {
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogRequestID: true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			entry := requestLogEntry{
				Time:      v.StartTime.Format(time.RFC3339),
				RequestID: v.RequestID,
				LatencyMS: v.Latency.Milliseconds(),
			}
			entry.Request.Method = v.Method
			entry.Request.URI = v.URI
			entry.Request.Body = c.Get(requestBodyLogKey)
			entry.Response.Status = v.Status
			entry.Response.Body = c.Get(responseBodyLogKey)
			if v.Error != nil {
				entry.Response.Error = v.Error.Error()
			}

			buf, err := json.Marshal(entry)
			if err != nil {
				return err
			}
			log.Println(string(buf))
			return nil
		},
	}))

	e.Use(middleware.BodyDump(func(c echo.Context, reqBody, resBody []byte) {
		if summary := summarizeBody(reqBody, c.Request().Header.Get(echo.HeaderContentType)); summary != nil {
			c.Set(requestBodyLogKey, summary)
		}
		if summary := summarizeBody(resBody, c.Response().Header().Get(echo.HeaderContentType)); summary != nil {
			c.Set(responseBodyLogKey, summary)
		}
	}))
}

type requestLogEntry struct {
	Time      string `json:"time"`
	RequestID string `json:"request_id,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
	Request   struct {
		Method string `json:"method"`
		URI    string `json:"uri"`
		Body   any    `json:"body,omitempty"`
	} `json:"request"`
	Response struct {
		Status int    `json:"status"`
		Body   any    `json:"body,omitempty"`
		Error  string `json:"error,omitempty"`
	} `json:"response"`
}

// summarizeBody turns a request or response body into something safe and
// small enough to log. Spreadsheets and other binaries collapse to a marker.
func summarizeBody(body []byte, contentType string) any {
	if len(body) == 0 {
		return nil
	}
	mediaType, params, _ := mime.ParseMediaType(strings.TrimSpace(contentType))

	switch {
	case strings.HasPrefix(mediaType, "multipart/"):
		return summarizeMultipart(body, params["boundary"])
	case mediaType == echo.MIMEApplicationJSON || json.Valid(body):
		var data any
		if err := json.Unmarshal(body, &data); err == nil {
			return capJSON(redactJSON(data, ""))
		}
	}

	if isBinary(body) {
		return binaryBody
	}
	return clampString(string(body))
}

func summarizeMultipart(body []byte, boundary string) any {
	if boundary == "" {
		return binaryBody
	}
	reader := multipart.NewReader(bytes.NewReader(body), boundary)
	fields := make(map[string]any)
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return binaryBody
		}
		name := part.FormName()
		switch {
		case name == "":
		case part.FileName() != "":
			fields[name] = map[string]any{"file": part.FileName()}
		default:
			data, err := io.ReadAll(part)
			if err != nil {
				fields[name] = binaryBody
			} else {
				fields[name] = redactString(string(data), strings.ToLower(name))
			}
		}
		_ = part.Close()
	}
	if len(fields) == 0 {
		return binaryBody
	}
	return capJSON(fields)
}

func redactJSON(value any, key string) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			lower := strings.ToLower(k)
			if isSensitiveKey(lower) {
				out[k] = redacted
				continue
			}
			out[k] = redactJSON(item, lower)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = redactJSON(item, key)
		}
		return out
	case string:
		return redactString(v, key)
	default:
		return v
	}
}

func redactString(value, key string) string {
	if isSensitiveKey(key) {
		return redacted
	}
	if isBinary([]byte(value)) {
		return binaryBody
	}
	return clampString(value)
}

func isSensitiveKey(key string) bool {
	if key == "" {
		return false
	}
	for _, s := range sensitiveKeys {
		if key == s || (len(s) > 2 && strings.Contains(key, s)) {
			return true
		}
	}
	return false
}

// capJSON replaces values whose encoding exceeds maxLoggedBody with a
// shallow preview.
func capJSON(value any) any {
	buf, err := json.Marshal(value)
	if err != nil || len(buf) <= maxLoggedBody {
		return value
	}
	return map[string]any{
		"_truncated": true,
		"_preview":   preview(value, 0),
	}
}

func preview(value any, depth int) any {
	const (
		maxDepth   = 3
		maxEntries = 6
		maxSamples = 3
		maxString  = 256
	)
	if depth >= maxDepth {
		return "...(omitted)..."
	}

	switch v := value.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(map[string]any)
		for i, k := range keys {
			if i == maxEntries {
				out["_omitted_fields"] = len(keys) - i
				break
			}
			out[k] = preview(v[k], depth+1)
		}
		return out
	case []any:
		n := min(len(v), maxSamples)
		sample := make([]any, 0, n)
		for _, item := range v[:n] {
			sample = append(sample, preview(item, depth+1))
		}
		return map[string]any{"_total_items": len(v), "_sample": sample}
	case string:
		if len(v) <= maxString {
			return v
		}
		return truncateUTF8(v, maxString) + "...(truncated)"
	default:
		return v
	}
}

func isBinary(data []byte) bool {
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			return true
		}
		if !unicode.IsPrint(r) && !unicode.IsSpace(r) {
			return true
		}
		data = data[size:]
	}
	return false
}

func clampString(value string) string {
	if len(value) <= maxLoggedBody {
		return value
	}
	return truncateUTF8(value, maxLoggedBody) + "...(truncated)"
}

func truncateUTF8(value string, n int) string {
	out := value[:n]
	for !utf8.ValidString(out) && len(out) > 0 {
		out = out[:len(out)-1]
	}
	return out
}
