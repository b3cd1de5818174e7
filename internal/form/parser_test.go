package form

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSpec(t *testing.T) *Spec {
	t.Helper()
	s, err := Compile(
		FieldSpec{Name: "name", Required: true, Trim: true, MaxLength: 10},
		FieldSpec{Name: "code", Pattern: `[A-Z]{3}`},
		FieldSpec{Name: "email", Type: TypeEmail},
		FieldSpec{Name: "colour", Type: TypeSelect, Options: []Option{{Value: "red"}, {Value: "blue"}}},
		FieldSpec{Name: "born", Type: TypeDate, DateFormat: "YYYY-MM-DD"},
		FieldSpec{Name: "password", Type: TypePassword, MinLength: 4},
		FieldSpec{Name: "notice", Type: TypeInfo, Required: true},
		FieldSpec{Name: "avatar", Type: TypeFile},
	)
	require.NoError(t, err)
	return s
}

func TestParser_ParseValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		input      url.Values
		wantErrors map[string]string
		wantValues map[string]string
		wantExtras map[string]string
	}{
		{
			name:       "valid submission",
			input:      url.Values{"name": {"  Ada "}, "code": {"ABC"}, "colour": {"red"}, "born": {"1990-01-31"}},
			wantValues: map[string]string{"name": "Ada", "code": "ABC", "colour": "red", "born": "1990-01-31"},
		},
		{
			name:       "required empty value",
			input:      url.Values{"name": {"   "}},
			wantErrors: map[string]string{"name": ReasonRequired},
		},
		{
			name:       "required missing entirely",
			input:      url.Values{"code": {"ABC"}},
			wantErrors: map[string]string{"name": ReasonRequired},
			wantValues: map[string]string{"code": "ABC"},
		},
		{
			name:       "pattern mismatch",
			input:      url.Values{"name": {"Ada"}, "code": {"abc"}},
			wantErrors: map[string]string{"code": ReasonPattern},
			wantValues: map[string]string{"name": "Ada"},
		},
		{
			name:       "pattern is anchored",
			input:      url.Values{"name": {"Ada"}, "code": {"ABCD"}},
			wantErrors: map[string]string{"code": ReasonPattern},
			wantValues: map[string]string{"name": "Ada"},
		},
		{
			name:       "select value not offered",
			input:      url.Values{"name": {"Ada"}, "colour": {"green"}},
			wantErrors: map[string]string{"colour": ReasonNotAvailable},
			wantValues: map[string]string{"name": "Ada"},
		},
		{
			name:       "invalid date",
			input:      url.Values{"name": {"Ada"}, "born": {"2024-13-40"}},
			wantErrors: map[string]string{"born": "This must be a valid date in the format YYYY-MM-DD."},
			wantValues: map[string]string{"name": "Ada"},
		},
		{
			name:       "invalid email",
			input:      url.Values{"name": {"Ada"}, "email": {"not-an-email"}},
			wantErrors: map[string]string{"email": ReasonEmail},
			wantValues: map[string]string{"name": "Ada"},
		},
		{
			name:       "too short and too long",
			input:      url.Values{"name": {"Ada Lovelace Byron"}, "password": {"abc"}},
			wantErrors: map[string]string{"name": ReasonMaxLength, "password": ReasonMinLength},
		},
		{
			name:       "unknown field goes to extras only",
			input:      url.Values{"name": {"Ada"}, "_csrf": {"tok"}},
			wantValues: map[string]string{"name": "Ada"},
			wantExtras: map[string]string{"_csrf": "tok"},
		},
		{
			name:       "optional empty value is kept",
			input:      url.Values{"name": {"Ada"}, "code": {""}},
			wantValues: map[string]string{"name": "Ada", "code": ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res := NewParser(testSpec(t), ParserOptions{}).ParseValues(tt.input)

			assert.Equal(t, tt.wantErrors, res.Errors)
			assert.Equal(t, tt.wantValues, res.Texts())
			if tt.wantExtras == nil {
				assert.Nil(t, res.Extras)
			} else {
				require.NotNil(t, res.Extras)
				for k, v := range tt.wantExtras {
					assert.Equal(t, v, res.Extras[k].Text)
				}
			}
			assert.Equal(t, tt.wantErrors == nil, res.OK())
		})
	}
}

func TestParser_EmptyMapsAreNil(t *testing.T) {
	t.Parallel()
	s := MustCompile(FieldSpec{Name: "q"})
	res := NewParser(s, ParserOptions{}).ParseValues(url.Values{})
	assert.Nil(t, res.Values)
	assert.Nil(t, res.Errors)
	assert.Nil(t, res.Extras)
	assert.True(t, res.OK())
}

func TestParser_OnExpectedSeesOnlyValidValues(t *testing.T) {
	t.Parallel()
	var seen []string
	p := NewParser(testSpec(t), ParserOptions{
		OnExpected: func(name string, v Value) { seen = append(seen, name+"="+v.Text) },
	})
	p.ParseValues(url.Values{"name": {"Ada"}, "code": {"bad"}, "other": {"x"}})
	assert.Equal(t, []string{"name=Ada"}, seen)
}

func TestParser_RejectedKeepsSubmittedText(t *testing.T) {
	t.Parallel()
	res := NewParser(testSpec(t), ParserOptions{}).ParseValues(url.Values{
		"name":  {" Ada Augusta King "},
		"email": {"not-an-email"},
		"code":  {"ABC"},
	})
	assert.Equal(t, map[string]string{"name": ReasonMaxLength, "email": ReasonEmail}, res.Errors)
	assert.Equal(t, map[string]string{"name": "Ada Augusta King", "email": "not-an-email"}, res.Rejected)
	assert.Equal(t, map[string]string{"code": "ABC"}, res.Texts())
	assert.Equal(t, map[string]string{
		"name":  "Ada Augusta King",
		"email": "not-an-email",
		"code":  "ABC",
	}, res.Submitted())

	clean := NewParser(testSpec(t), ParserOptions{}).ParseValues(url.Values{"name": {"Ada"}})
	assert.Nil(t, clean.Rejected)
	assert.Equal(t, map[string]string{"name": "Ada"}, clean.Submitted())
}

func TestParser_OnExpectedOrder(t *testing.T) {
	t.Parallel()
	var seen []string
	p := NewParser(testSpec(t), ParserOptions{
		OnExpected: func(name string, _ Value) { seen = append(seen, name) },
	})

	p.ParseValues(url.Values{"name": {"Ada"}, "code": {"ABC"}, "colour": {"red"}})
	assert.Equal(t, []string{"code", "colour", "name"}, seen)

	seen = nil
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("name", "Ada"))
	require.NoError(t, mw.WriteField("colour", "red"))
	require.NoError(t, mw.WriteField("code", "ABC"))
	require.NoError(t, mw.Close())
	r := httptest.NewRequest(http.MethodPost, "/", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())

	_, err := p.ParseRequest(r)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "colour", "code"}, seen)
}

func TestParser_ParseMultipartForm(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("name", "Ada"))
	require.NoError(t, mw.WriteField("other", "x"))
	fw, err := mw.CreateFormFile("avatar", "me.png")
	require.NoError(t, err)
	_, err = fw.Write([]byte("PNGDATA"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	r := httptest.NewRequest(http.MethodPost, "/", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	require.NoError(t, r.ParseMultipartForm(1<<20))

	res, err := NewParser(testSpec(t), ParserOptions{}).ParseMultipartForm(r.MultipartForm)
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, "Ada", res.Get("name"))
	require.True(t, res.Has("avatar"))
	assert.Equal(t, "me.png", res.Values["avatar"].File.Filename)
	assert.Equal(t, []byte("PNGDATA"), res.Values["avatar"].File.Data)
	assert.Equal(t, "x", res.Extras["other"].Text)

	_, err = NewParser(testSpec(t), ParserOptions{MaxFileBytes: 4}).ParseMultipartForm(r.MultipartForm)
	require.ErrorIs(t, err, ErrFieldTooLarge)

	noFile, err := NewParser(testSpec(t), ParserOptions{}).ParseMultipartForm(&multipart.Form{
		Value: map[string][]string{"name": {"Ada"}},
		File:  map[string][]*multipart.FileHeader{"avatar": {{Filename: ""}}},
	})
	require.NoError(t, err)
	assert.True(t, noFile.OK())
	assert.False(t, noFile.Has("avatar"))

	empty, err := NewParser(testSpec(t), ParserOptions{}).ParseMultipartForm(nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"name": ReasonRequired}, empty.Errors)
}

func TestParser_ParseObject(t *testing.T) {
	t.Parallel()
	s := MustCompile(
		FieldSpec{Name: "name.givenName", Required: true},
		FieldSpec{Name: "age", Type: TypeNumber},
	)
	res := NewParser(s, ParserOptions{}).ParseObject(map[string]any{
		"name":  map[string]any{"givenName": "Ada"},
		"age":   float64(36),
		"extra": true,
	})
	assert.Nil(t, res.Errors)
	assert.Equal(t, "Ada", res.Get("name.givenName"))
	assert.Equal(t, "36", res.Get("age"))
	assert.Equal(t, "true", res.Extras["extra"].Text)
}

func TestParser_ParseRequestURLEncoded(t *testing.T) {
	t.Parallel()
	body := url.Values{"name": {"Ada"}}.Encode()
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := NewParser(testSpec(t), ParserOptions{}).ParseRequest(r)
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, "Ada", res.Get("name"))
}

func TestParser_ParseRequestJSON(t *testing.T) {
	t.Parallel()
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Ada","colour":"blue"}`))
	r.Header.Set("Content-Type", "application/json")

	res, err := NewParser(testSpec(t), ParserOptions{}).ParseRequest(r)
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, "blue", res.Get("colour"))
}

func TestParser_ParseRequestMultipart(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("name", "Ada"))
	fw, err := mw.CreateFormFile("avatar", "me.png")
	require.NoError(t, err)
	_, err = fw.Write([]byte("PNGDATA"))
	require.NoError(t, err)
	// An empty filename means no file was chosen.
	ew, err := mw.CreateFormFile("attachment", "")
	require.NoError(t, err)
	_, err = ew.Write([]byte("ignored"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	r := httptest.NewRequest(http.MethodPost, "/", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())

	res, err := NewParser(testSpec(t), ParserOptions{}).ParseRequest(r)
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, "Ada", res.Get("name"))
	require.True(t, res.Has("avatar"))
	assert.Equal(t, "me.png", res.Values["avatar"].File.Filename)
	assert.Equal(t, []byte("PNGDATA"), res.Values["avatar"].File.Data)
	assert.Nil(t, res.Extras)
}

func TestParser_MultipartFileTooLarge(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("avatar", "big.bin")
	require.NoError(t, err)
	_, err = fw.Write(bytes.Repeat([]byte("x"), 64))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	r := httptest.NewRequest(http.MethodPost, "/", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())

	_, err = NewParser(testSpec(t), ParserOptions{MaxFileBytes: 16}).ParseRequest(r)
	require.ErrorIs(t, err, ErrFieldTooLarge)
}

func TestParser_UnsupportedContentType(t *testing.T) {
	t.Parallel()
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("<x/>"))
	r.Header.Set("Content-Type", "application/xml")
	_, err := NewParser(testSpec(t), ParserOptions{}).ParseRequest(r)
	require.ErrorIs(t, err, ErrUnsupportedBody)
}

func TestCompile_RejectsBadSpecs(t *testing.T) {
	t.Parallel()
	_, err := Compile(FieldSpec{Name: ""})
	require.Error(t, err)
	_, err = Compile(FieldSpec{Name: "a"}, FieldSpec{Name: "a"})
	require.Error(t, err)
	_, err = Compile(FieldSpec{Name: "a", Pattern: "("})
	require.Error(t, err)
	_, err = Compile(FieldSpec{Name: "d", Type: TypeDate})
	require.Error(t, err)
	_, err = Compile(FieldSpec{Name: "s", Type: TypeSelect})
	require.Error(t, err)
}

func TestResult_AddError(t *testing.T) {
	t.Parallel()
	res := &Result{}
	assert.True(t, res.OK())
	res.AddError("confirmPassword", "Does not match")
	assert.False(t, res.OK())
	assert.Equal(t, "Does not match", res.Errors["confirmPassword"])
}
