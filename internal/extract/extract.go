// Package extract pulls declared login parameters out of an HTTP request.
//
// Extractors are best effort. A parameter that is not present in the request
// is omitted from the result; it is never defaulted to an empty string.
// Several extractors can be combined with a Chain, where the first extractor
// to produce a key owns it for the rest of the request.
package extract

import (
	"bytes"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
)

// Extractor reads the named parameters from a request.
type Extractor interface {
	Name() string
	Extract(r *http.Request, names []string) (map[string]string, error)
}

// Sentinel errors for extraction.
var (
	// ErrExtractionDegraded marks a structured body that could not be decoded
	// and was read as form data instead. It is logged, never returned.
	ErrExtractionDegraded = errors.New("extract: structured body decode failed, fell back to form")

	// ErrBodyTooLarge is returned when the body exceeds the server's byte limit.
	ErrBodyTooLarge = errors.New("extract: request body too large")
)

// Content types handled by the extractors.
const (
	ContentTypeForm    = "application/x-www-form-urlencoded"
	ContentTypeJSON    = "application/json"
	ContentTypeJSONAPI = "application/vnd.api+json"
)

// bufferedBody is a request body that has already been read into memory.
// A read that failed keeps its error so later callers see the same outcome.
type bufferedBody struct {
	*bytes.Reader
	err  error
	data []byte
}

func (b *bufferedBody) Close() error { return nil }

// BufferBody reads the request body once and replaces r.Body with an
// in-memory copy, so every later reader sees the same bytes.
// A nil body yields nil bytes. Bodies cut short by http.MaxBytesReader
// return ErrBodyTooLarge.
func BufferBody(r *http.Request) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}
	if b, ok := r.Body.(*bufferedBody); ok {
		b.Reset(b.data)
		if b.err != nil {
			return nil, b.err
		}
		return b.data, nil
	}

	data, err := io.ReadAll(r.Body)
	closeErr := r.Body.Close()
	if err != nil && isTooLarge(err) {
		err = ErrBodyTooLarge
	}

	// Restore whatever was read, even on a partial read.
	r.Body = &bufferedBody{Reader: bytes.NewReader(data), data: data, err: err}
	r.ContentLength = int64(len(data))

	if err != nil {
		return nil, err
	}
	if closeErr != nil {
		return data, closeErr
	}
	return data, nil
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

// mediaType returns the lowercased media type of the request, without parameters.
func mediaType(r *http.Request) string {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(strings.Split(ct, ";")[0]))
	}
	return mt
}

// pick copies the first value of each present name out of values.
func pick(values url.Values, names []string) map[string]string {
	out := make(map[string]string, len(names))
	for _, name := range names {
		if vs, ok := values[name]; ok && len(vs) > 0 {
			out[name] = vs[0]
		}
	}
	return out
}

// formValues merges a urlencoded body with the URL query. Body values come
// first, as with http.Request.ParseForm.
func formValues(body []byte, query url.Values) url.Values {
	out := url.Values{}
	if len(body) > 0 {
		// Malformed pairs are skipped; ParseQuery still returns the good ones.
		parsed, _ := url.ParseQuery(string(body)) //nolint:errcheck // partial result is wanted
		for k, vs := range parsed {
			out[k] = append(out[k], vs...)
		}
	}
	for k, vs := range query {
		out[k] = append(out[k], vs...)
	}
	return out
}
