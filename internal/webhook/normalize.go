// Package webhook turns untrusted provider callbacks into flat field maps.
//
// Shopier does not guarantee a content type: the same callback may arrive as
// a form post, a JSON body, or a bare query string, and retries sometimes
// carry the fields on the URL only. Each encoding is handled by a pure
// strategy (bytes in, map or nil out) tried in a fixed order; nothing in this
// package returns an error to its caller.
package webhook

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
)

// Field names Shopier uses on its callback.
const (
	FieldOrderID     = "platform_order_id"
	FieldStatus      = "status"
	FieldTxnID       = "payment_id"
	FieldInstallment = "installment"
	FieldRandomNr    = "random_nr"
	FieldSignature   = "signature"
)

const maxBodyBytes = 1 << 20

// Normalize flattens the request into field/value pairs. Strategies are tried
// in order: declared form encoding, raw body as query string, raw body as
// JSON. If none yields an order id, values from the URL query are merged in.
// A body that matches no strategy produces an empty map, never an error.
func Normalize(r *http.Request) map[string]string {
	var body []byte
	if r.Body != nil {
		body, _ = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	}

	fields := parseFormBody(r.Header.Get("Content-Type"), body)
	if len(fields) == 0 {
		fields = parseRawBody(body)
	}
	if fields == nil {
		fields = make(map[string]string)
	}
	if fields[FieldOrderID] == "" && r.URL != nil {
		mergeMissing(fields, parseQueryText(r.URL.RawQuery))
	}
	return fields
}

// parseFormBody handles the declared encoding: multipart if the content type
// says so, URL-encoded otherwise. A body that looks like JSON is left for the
// raw-body strategy — a JSON value containing '=' (base64 signatures) would
// otherwise parse as a query string into garbage keys. Returns nil when the
// body does not match.
func parseFormBody(contentType string, body []byte) map[string]string {
	if len(body) == 0 {
		return nil
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err == nil && strings.HasPrefix(mediaType, "multipart/") {
		return parseMultipart(body, params["boundary"])
	}
	text := strings.TrimSpace(string(body))
	if strings.HasPrefix(text, "{") {
		return nil
	}
	return parseQueryText(text)
}

// parseRawBody is the fallback for bodies with no usable content type: text
// containing '=' is treated as a query string, anything else as JSON.
func parseRawBody(body []byte) map[string]string {
	text := strings.TrimSpace(string(body))
	if text == "" {
		return nil
	}
	if strings.Contains(text, "=") && !strings.HasPrefix(text, "{") {
		if fields := parseQueryText(text); len(fields) > 0 {
			return fields
		}
	}
	return parseJSON(body)
}

func parseQueryText(text string) map[string]string {
	if !strings.Contains(text, "=") {
		return nil
	}
	values, err := url.ParseQuery(text)
	if err != nil {
		return nil
	}
	return flattenValues(values)
}

func parseJSON(body []byte) map[string]string {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil
	}

	fields := make(map[string]string, len(raw))
	for key, value := range raw {
		switch v := value.(type) {
		case string:
			fields[key] = v
		case json.Number:
			fields[key] = v.String()
		case bool:
			if v {
				fields[key] = "true"
			} else {
				fields[key] = "false"
			}
		}
		// nested objects/arrays are dropped; the provider sends flat payloads
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func parseMultipart(body []byte, boundary string) map[string]string {
	if boundary == "" {
		return nil
	}
	reader := multipart.NewReader(bytes.NewReader(body), boundary)
	fields := make(map[string]string)
	for {
		part, err := reader.NextPart()
		if err != nil {
			break
		}
		name := part.FormName()
		if name == "" || part.FileName() != "" {
			continue
		}
		value, _ := io.ReadAll(io.LimitReader(part, maxBodyBytes))
		fields[name] = string(value)
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func flattenValues(values url.Values) map[string]string {
	if len(values) == 0 {
		return nil
	}
	fields := make(map[string]string, len(values))
	for key := range values {
		if key == "" {
			continue
		}
		fields[key] = values.Get(key)
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func mergeMissing(dst, src map[string]string) {
	for key, value := range src {
		if _, ok := dst[key]; !ok {
			dst[key] = value
		}
	}
}
