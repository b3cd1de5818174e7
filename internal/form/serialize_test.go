package form

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func profileSpec() *Spec {
	return MustCompile(
		FieldSpec{Name: "name.givenName"},
		FieldSpec{Name: "name.familyName", EmptyIsNull: true},
		FieldSpec{Name: "born", Type: TypeDate, DateFormat: "DD/MM/YYYY"},
		FieldSpec{Name: "seen", Type: TypeDateTime, DateFormat: "YYYY-MM-DD HH:mm"},
		FieldSpec{Name: "age", Type: TypeNumber},
	)
}

func TestSpec_Flatten(t *testing.T) {
	t.Parallel()
	post, err := profileSpec().Flatten(map[string]any{
		"name": map[string]any{"givenName": "Ada", "familyName": "Lovelace"},
		"born": "1815-12-10",
		"seen": time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC),
		"age":  36,
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"name.givenName":  "Ada",
		"name.familyName": "Lovelace",
		"born":            "10/12/1815",
		"seen":            "2024-03-01 09:30",
		"age":             "36",
	}, post)
}

func TestSpec_FlattenRejectsUndeclaredKeys(t *testing.T) {
	t.Parallel()
	_, err := profileSpec().Flatten(map[string]any{
		"name":  map[string]any{"givenName": "Ada", "nickname": "A"},
		"admin": true,
	})
	require.ErrorIs(t, err, ErrUnexpectedValues)
	assert.Contains(t, err.Error(), "admin")
	assert.Contains(t, err.Error(), "name.nickname")
}

func TestSpec_FlattenSkipsNil(t *testing.T) {
	t.Parallel()
	post, err := profileSpec().Flatten(map[string]any{"age": nil})
	require.NoError(t, err)
	assert.Empty(t, post)
}

func TestSpec_Unflatten(t *testing.T) {
	t.Parallel()
	obj, err := profileSpec().Unflatten(map[string]string{
		"name.givenName":  "Ada",
		"name.familyName": "",
		"born":            "10/12/1815",
		"seen":            "2024-03-01 09:30",
		"age":             "36.5",
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"name": map[string]any{"givenName": "Ada", "familyName": nil},
		"born": "1815-12-10",
		"seen": "2024-03-01T09:30:00",
		"age":  36.5,
	}, obj)
}

func TestSpec_UnflattenBadNumber(t *testing.T) {
	t.Parallel()
	_, err := profileSpec().Unflatten(map[string]string{"age": "many"})
	require.Error(t, err)
}

func TestSpec_RoundTrip(t *testing.T) {
	t.Parallel()
	s := profileSpec()
	in := map[string]any{
		"name": map[string]any{"givenName": "Ada", "familyName": "Lovelace"},
		"born": "1815-12-10",
		"age":  float64(36),
	}
	post, err := s.Flatten(in)
	require.NoError(t, err)
	out, err := s.Unflatten(post)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestGoLayout(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"YYYY-MM-DD":          "2006-01-02",
		"DD/MM/YYYY HH:mm:ss": "02/01/2006 15:04:05",
		"D MMM YY":            "2 Jan 06",
		"h:mm A":              "3:04 PM",
		"YYYY-MM-DD[T]HH:mm":  "2006-01-02T15:04",
	}
	for in, want := range tests {
		assert.Equal(t, want, goLayout(in), in)
	}
}
