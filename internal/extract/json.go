package extract

import (
	"net/http"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// JSON reads top-level fields of a JSON object body.
//
// Requests that do not declare a JSON content type yield an empty result so
// the extractor composes with others in a Chain. A body that is not a valid
// JSON object is re-read as urlencoded form data; the degradation is logged.
type JSON struct{}

// NewJSON creates a JSON body extractor.
func NewJSON() *JSON {
	return &JSON{}
}

// Name implements Extractor.
func (j *JSON) Name() string {
	return "json"
}

// Extract implements Extractor.
func (j *JSON) Extract(r *http.Request, names []string) (map[string]string, error) {
	mt := mediaType(r)
	if mt != ContentTypeJSON && mt != ContentTypeJSONAPI {
		return map[string]string{}, nil
	}

	body, err := BufferBody(r)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return pick(r.URL.Query(), names), nil
	}

	if !gjson.ValidBytes(body) || !gjson.ParseBytes(body).IsObject() {
		zerolog.Ctx(r.Context()).Warn().
			Err(ErrExtractionDegraded).
			Str("extractor", j.Name()).
			Str("content_type", mt).
			Int("body_bytes", len(body)).
			Msg("invalid json body, reading parameters as form data")
		return pick(formValues(body, r.URL.Query()), names), nil
	}

	return fieldsOf(gjson.ParseBytes(body), names), nil
}

// fieldsOf reads the wanted top-level keys. Duplicate keys keep the first
// occurrence. null values are treated as absent.
func fieldsOf(obj gjson.Result, names []string) map[string]string {
	wanted := make(map[string]struct{}, len(names))
	for _, name := range names {
		wanted[name] = struct{}{}
	}

	out := make(map[string]string, len(names))
	obj.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		if _, ok := wanted[name]; !ok {
			return true
		}
		if _, seen := out[name]; seen {
			return true
		}
		switch value.Type {
		case gjson.Null:
		case gjson.String:
			out[name] = value.Str
		default:
			out[name] = value.Raw
		}
		return true
	})
	return out
}

var _ Extractor = (*JSON)(nil)
