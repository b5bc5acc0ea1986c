package extract

import (
	"net/http"
)

// multipartMemory bounds the in-memory part of a multipart form.
const multipartMemory = 1 << 20

// Form reads parameters from the URL query and from urlencoded or multipart
// bodies. It does not consume the body for other content types.
type Form struct{}

// NewForm creates a form extractor.
func NewForm() *Form {
	return &Form{}
}

// Name implements Extractor.
func (f *Form) Name() string {
	return "form"
}

// Extract implements Extractor.
func (f *Form) Extract(r *http.Request, names []string) (map[string]string, error) {
	switch mediaType(r) {
	case ContentTypeForm:
		body, err := BufferBody(r)
		if err != nil {
			return nil, err
		}
		return pick(formValues(body, r.URL.Query()), names), nil
	case "multipart/form-data":
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			if isTooLarge(err) {
				return nil, ErrBodyTooLarge
			}
			return pick(r.URL.Query(), names), nil
		}
		return pick(r.Form, names), nil
	default:
		return pick(r.URL.Query(), names), nil
	}
}

var _ Extractor = (*Form)(nil)
