package leads

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	maxBodyBytes      = 10 << 20
	maxMultipartBytes = 32 << 20
)

// DecodeInput is everything the decoders may look at for one request.
type DecodeInput struct {
	Body        []byte
	ContentType string
	// Form holds fields net/http already parsed from an urlencoded or
	// multipart body.
	Form url.Values
}

// decoder extracts fields from in. claimed reports whether it recognized the
// input; the chain stops at the first decoder that claims it.
type decoder func(in DecodeInput) (lead Lead, claimed bool)

var decodeChain = []decoder{
	formDecoder,
	jsonDecoder,
	queryDecoder,
}

// Decode runs the decoder chain and never fails: an unrecognizable request
// yields an empty lead.
func Decode(in DecodeInput) Lead {
	for _, dec := range decodeChain {
		if lead, ok := dec(in); ok {
			if lead == nil {
				return Lead{}
			}
			return lead
		}
	}
	return Lead{}
}

// DecodeRequest reads r's body once and decodes it.
func DecodeRequest(r *http.Request) (Lead, error) {
	in, err := ReadInput(r)
	if err != nil {
		return Lead{}, err
	}
	return Decode(in), nil
}

// ReadInput buffers the request body and lets net/http parse form encodings
// from a replayed copy, so the raw bytes stay available to later decoders.
func ReadInput(r *http.Request) (DecodeInput, error) {
	in := DecodeInput{ContentType: r.Header.Get("Content-Type")}
	if r.Body == nil {
		return in, nil
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return in, fmt.Errorf("leads: read body: %w", err)
	}
	if len(body) > maxBodyBytes {
		return in, ErrBodyTooLarge
	}
	in.Body = body
	in.Form = parseForm(r, in.ContentType, body)
	return in, nil
}

func parseForm(r *http.Request, contentType string, body []byte) url.Values {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil
	}
	replay := r.Clone(r.Context())
	replay.Body = io.NopCloser(bytes.NewReader(body))
	replay.Form, replay.PostForm, replay.MultipartForm = nil, nil, nil

	switch mediaType {
	case "multipart/form-data":
		if err := replay.ParseMultipartForm(maxMultipartBytes); err != nil {
			return nil
		}
		defer replay.MultipartForm.RemoveAll()
		return url.Values(replay.MultipartForm.Value)
	case "application/x-www-form-urlencoded":
		if err := replay.ParseForm(); err != nil {
			return nil
		}
		return replay.PostForm
	}
	return nil
}

func formDecoder(in DecodeInput) (Lead, bool) {
	if len(in.Form) == 0 {
		return nil, false
	}
	return fromValues(in.Form), true
}

// jsonDecoder claims any syntactically valid JSON body. Only a top-level
// object produces fields; invalid JSON falls through to queryDecoder.
func jsonDecoder(in DecodeInput) (Lead, bool) {
	if !isJSONContent(in.ContentType) {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader(in.Body))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, false
	}
	if dec.More() {
		return nil, false
	}
	obj, ok := doc.(map[string]any)
	if !ok {
		return Lead{}, true
	}
	lead := make(Lead, len(obj))
	for k, v := range obj {
		lead[k] = jsonString(v)
	}
	return lead, true
}

// queryDecoder reads the raw body as a query string. Multipart bodies are
// never reparsed this way: their only fields are the parsed text parts.
func queryDecoder(in DecodeInput) (Lead, bool) {
	if isMultipartContent(in.ContentType) {
		return nil, false
	}
	// ParseQuery keeps every well-formed pair even when it reports an error.
	values, _ := url.ParseQuery(strings.TrimSpace(string(in.Body)))
	return fromValues(values), true
}

func fromValues(values url.Values) Lead {
	lead := make(Lead, len(values))
	for k, vs := range values {
		if len(vs) == 0 {
			lead[k] = ""
			continue
		}
		lead[k] = vs[0]
	}
	return lead
}

// jsonString renders a decoded JSON value the way it would have arrived in a
// form post.
func jsonString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case json.Number:
		return val.String()
	default:
		raw, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(raw)
	}
}

func isJSONContent(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

func isMultipartContent(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "multipart/form-data"
}
