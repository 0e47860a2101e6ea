package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslate(t *testing.T) {
	s, err := NewI18nSupport("en")
	require.NoError(t, err)

	assert.Equal(t, "Food & Water", s.T("en", "amenity.category.food", "food"))
	assert.Equal(t, "भोजन और पानी", s.T("hi", "amenity.category.food", "Food & Water"))
	assert.Equal(t, "fallback", s.T("hi", "no.such.message", "fallback"))
}

func TestNilSupportReturnsFallback(t *testing.T) {
	var s *I18nSupport
	assert.Equal(t, "Open", s.T("hi", "sos.status.open", "Open"))
}

func TestMatch(t *testing.T) {
	assert.Equal(t, "hi", Match("hi-IN,hi;q=0.9,en;q=0.8"))
	assert.Equal(t, "en", Match("fr"))
	assert.Equal(t, "hi", Match("", "hi"))
}
