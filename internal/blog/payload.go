package blog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"inkpress/internal/apperr"
	"inkpress/internal/validation"
)

const (
	// MsgNestedList is reported for categories/tags that are not a list of
	// {"name": string} objects.
	MsgNestedList = "Expected a list of items with a name."

	// maxTitleLen bounds titles and term names.
	maxTitleLen = 250
)

// dateLayouts are the accepted published_date formats, tried in order.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// PostInput is a decoded post payload. A nil field was absent from the
// request. Categories and Tags hold names in input order.
type PostInput struct {
	Title         *string
	Content       *string
	Status        *bool
	PublishedDate *time.Time
	Categories    *[]string
	Tags          *[]string
}

// CommentInput is a decoded comment payload.
type CommentInput struct {
	PostID *int64
	Body   *string
}

// fields is a JSON object keyed by field name, used to tell absent fields
// from null or empty ones.
type fields map[string]json.RawMessage

// decodeObject parses body as a JSON object.
func decodeObject(body []byte) (fields, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return fields{}, nil
	}
	if trimmed[0] != '{' {
		return nil, apperr.Detail("Invalid data. Expected a dictionary.")
	}
	var f fields
	if err := json.Unmarshal(trimmed, &f); err != nil {
		return nil, apperr.Detail(fmt.Sprintf("JSON parse error - %v", err))
	}
	return f, nil
}

// isNull reports whether a raw value is the JSON null literal.
func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// str decodes a string field. required applies when the field is absent.
func (f fields) str(v *apperr.ValidationError, name string, required bool, maxLen int) *string {
	raw, ok := f[name]
	if !ok {
		if required {
			v.Add(name, validation.MsgRequired)
		}
		return nil
	}
	if isNull(raw) {
		v.Add(name, validation.MsgNull)
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		v.Add(name, validation.MsgNotString)
		return nil
	}
	if strings.TrimSpace(s) == "" {
		v.Add(name, validation.MsgBlank)
		return nil
	}
	if maxLen > 0 && utf8.RuneCountInString(s) > maxLen {
		v.Add(name, fmt.Sprintf("Ensure this field has no more than %d characters.", maxLen))
		return nil
	}
	return &s
}

func (f fields) boolean(v *apperr.ValidationError, name string) *bool {
	raw, ok := f[name]
	if !ok {
		return nil
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil || isNull(raw) {
		v.Add(name, validation.MsgNotBool)
		return nil
	}
	return &b
}

func (f fields) datetime(v *apperr.ValidationError, name string, required bool) *time.Time {
	raw, ok := f[name]
	if !ok {
		if required {
			v.Add(name, validation.MsgRequired)
		}
		return nil
	}
	if isNull(raw) {
		v.Add(name, validation.MsgNull)
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		v.Add(name, validation.MsgDatetime)
		return nil
	}
	t, err := ParseDate(s)
	if err != nil {
		v.Add(name, validation.MsgDatetime)
		return nil
	}
	return &t
}

func (f fields) integer(v *apperr.ValidationError, name string, required bool) *int64 {
	raw, ok := f[name]
	if !ok {
		if required {
			v.Add(name, validation.MsgRequired)
		}
		return nil
	}
	if isNull(raw) {
		v.Add(name, validation.MsgNull)
		return nil
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err != nil {
		v.Add(name, validation.MsgNotInt)
		return nil
	}
	return &n
}

// names decodes a list of {"name": string} objects into the names.
func (f fields) names(v *apperr.ValidationError, name string) *[]string {
	raw, ok := f[name]
	if !ok {
		return nil
	}
	var items []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil || isNull(raw) {
		v.Add(name, MsgNestedList)
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		var n string
		nraw, ok := item["name"]
		if !ok || json.Unmarshal(nraw, &n) != nil || strings.TrimSpace(n) == "" || utf8.RuneCountInString(n) > maxTitleLen {
			v.Add(name, MsgNestedList)
			return nil
		}
		out = append(out, n)
	}
	return &out
}

// ParseDate parses a published_date value.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// DecodePost parses a post payload. When partial is false (create and
// PUT) title, content and published_date are required.
func DecodePost(body []byte, partial bool) (PostInput, error) {
	f, err := decodeObject(body)
	if err != nil {
		return PostInput{}, err
	}
	return f.post(partial)
}

// DecodePostForm parses the HTML post form. Categories and tags are
// comma-separated names; an unchecked status box means draft.
func DecodePostForm(form url.Values) (PostInput, error) {
	f := fields{}
	for _, name := range []string{"title", "content", "published_date"} {
		if vals, ok := form[name]; ok && len(vals) > 0 {
			f[name], _ = json.Marshal(vals[0])
		}
	}
	f["status"], _ = json.Marshal(form.Get("status") != "")
	for _, name := range []string{"categories", "tags"} {
		items := []map[string]string{}
		for _, n := range strings.Split(form.Get(name), ",") {
			if n = strings.TrimSpace(n); n != "" {
				items = append(items, map[string]string{"name": n})
			}
		}
		f[name], _ = json.Marshal(items)
	}
	return f.post(false)
}

func (f fields) post(partial bool) (PostInput, error) {
	v := &apperr.ValidationError{}
	in := PostInput{
		Title:         f.str(v, "title", !partial, maxTitleLen),
		Content:       f.str(v, "content", !partial, 0),
		Status:        f.boolean(v, "status"),
		PublishedDate: f.datetime(v, "published_date", !partial),
		Categories:    f.names(v, "categories"),
		Tags:          f.names(v, "tags"),
	}
	return in, v.OrNil()
}

// DecodeTerm parses a category or tag payload.
func DecodeTerm(body []byte) (string, error) {
	f, err := decodeObject(body)
	if err != nil {
		return "", err
	}
	v := &apperr.ValidationError{}
	name := f.str(v, "name", true, maxTitleLen)
	if err := v.OrNil(); err != nil {
		return "", err
	}
	return *name, nil
}

// DecodeComment parses a comment payload. When partial is false both
// post_obj and comment are required.
func DecodeComment(body []byte, partial bool) (CommentInput, error) {
	f, err := decodeObject(body)
	if err != nil {
		return CommentInput{}, err
	}
	v := &apperr.ValidationError{}
	in := CommentInput{
		PostID: f.integer(v, "post_obj", !partial),
		Body:   f.str(v, "comment", !partial, 0),
	}
	return in, v.OrNil()
}
