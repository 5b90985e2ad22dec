package blog

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkpress/internal/apperr"
	"inkpress/internal/validation"
)

func fieldErrors(t *testing.T, err error) map[string][]string {
	t.Helper()
	v, ok := apperr.AsValidation(err)
	require.True(t, ok, "expected a validation error, got %v", err)
	return v.Fields
}

func TestDecodePostFull(t *testing.T) {
	in, err := DecodePost([]byte(`{
		"title": "Hello",
		"content": "Body text",
		"status": true,
		"published_date": "2024-03-01T10:00:00Z",
		"categories": [{"name": "Go"}, {"name": "Web"}],
		"tags": []
	}`), false)
	require.NoError(t, err)

	assert.Equal(t, "Hello", *in.Title)
	assert.Equal(t, "Body text", *in.Content)
	assert.True(t, *in.Status)
	assert.True(t, in.PublishedDate.Equal(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, []string{"Go", "Web"}, *in.Categories)
	require.NotNil(t, in.Tags)
	assert.Empty(t, *in.Tags)
}

func TestDecodePostRequired(t *testing.T) {
	_, err := DecodePost([]byte(`{"content": "x"}`), false)
	fields := fieldErrors(t, err)
	assert.Equal(t, []string{validation.MsgRequired}, fields["title"])
	assert.Equal(t, []string{validation.MsgRequired}, fields["published_date"])
	assert.NotContains(t, fields, "content")
}

func TestDecodePostPartial(t *testing.T) {
	in, err := DecodePost([]byte(`{"status": false}`), true)
	require.NoError(t, err)
	assert.Nil(t, in.Title)
	assert.Nil(t, in.Categories)
	assert.Nil(t, in.Tags)
	require.NotNil(t, in.Status)
	assert.False(t, *in.Status)
}

func TestDecodePostNestedErrors(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{name: "string", value: `"Go"`},
		{name: "list of strings", value: `["Go"]`},
		{name: "missing name", value: `[{"title": "Go"}]`},
		{name: "blank name", value: `[{"name": "  "}]`},
		{name: "null", value: `null`},
		{name: "numeric name", value: `[{"name": 3}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodePost([]byte(`{"categories": `+tt.value+`}`), true)
			fields := fieldErrors(t, err)
			assert.Equal(t, []string{MsgNestedList}, fields["categories"])
		})
	}
}

func TestDecodePostScalarErrors(t *testing.T) {
	_, err := DecodePost([]byte(`{
		"title": "",
		"content": null,
		"status": "yes",
		"published_date": "yesterday"
	}`), false)
	fields := fieldErrors(t, err)
	assert.Equal(t, []string{validation.MsgBlank}, fields["title"])
	assert.Equal(t, []string{validation.MsgNull}, fields["content"])
	assert.Equal(t, []string{validation.MsgNotBool}, fields["status"])
	assert.Equal(t, []string{validation.MsgDatetime}, fields["published_date"])
}

func TestDecodePostNotObject(t *testing.T) {
	_, err := DecodePost([]byte(`[1, 2]`), false)
	fields := fieldErrors(t, err)
	assert.Contains(t, fields, apperr.DetailKey)

	_, err = DecodePost([]byte(`{"title": `), false)
	fields = fieldErrors(t, err)
	assert.Contains(t, fields, apperr.DetailKey)
}

func TestDecodePostForm(t *testing.T) {
	in, err := DecodePostForm(url.Values{
		"title":          {"From a form"},
		"content":        {"Body"},
		"published_date": {"2024-05-06T07:08"},
		"categories":     {" Go , ,Web"},
		"tags":           {""},
	})
	require.NoError(t, err)
	assert.Equal(t, "From a form", *in.Title)
	assert.False(t, *in.Status, "unchecked box is a draft")
	assert.True(t, in.PublishedDate.Equal(time.Date(2024, 5, 6, 7, 8, 0, 0, time.UTC)))
	assert.Equal(t, []string{"Go", "Web"}, *in.Categories)
	require.NotNil(t, in.Tags)
	assert.Empty(t, *in.Tags)

	_, err = DecodePostForm(url.Values{"title": {" "}, "status": {"on"}, "published_date": {"soon"}})
	fields := fieldErrors(t, err)
	assert.Equal(t, []string{validation.MsgBlank}, fields["title"])
	assert.Equal(t, []string{validation.MsgRequired}, fields["content"])
	assert.Equal(t, []string{validation.MsgDatetime}, fields["published_date"])
}

func TestParseDate(t *testing.T) {
	for _, s := range []string{"2024-03-01T10:00:00Z", "2024-03-01T10:00:00+02:00", "2024-03-01T10:00", "2024-03-01"} {
		_, err := ParseDate(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseDate("01/03/2024")
	assert.Error(t, err)
}

func TestDecodeTerm(t *testing.T) {
	name, err := DecodeTerm([]byte(`{"name": "Python"}`))
	require.NoError(t, err)
	assert.Equal(t, "Python", name)

	_, err = DecodeTerm([]byte(`{}`))
	assert.Equal(t, []string{validation.MsgRequired}, fieldErrors(t, err)["name"])
}

func TestDecodeComment(t *testing.T) {
	in, err := DecodeComment([]byte(`{"post_obj": 4, "comment": "nice"}`), false)
	require.NoError(t, err)
	assert.EqualValues(t, 4, *in.PostID)
	assert.Equal(t, "nice", *in.Body)

	_, err = DecodeComment([]byte(`{"post_obj": "four"}`), false)
	fields := fieldErrors(t, err)
	assert.Equal(t, []string{validation.MsgNotInt}, fields["post_obj"])
	assert.Equal(t, []string{validation.MsgRequired}, fields["comment"])
}
