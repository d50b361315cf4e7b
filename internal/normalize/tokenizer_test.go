package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func set(words ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(words))
	for _, w := range words {
		s[w] = struct{}{}
	}
	return s
}

func TestTokenizerSpanishExample(t *testing.T) {
	tok := NewTokenizer("es", set("el"))

	assert.Equal(t, []string{"perro", "corre", "rápido"}, tok.Tokens("El Perro Corre Rápido"))
	assert.Equal(t, 3, tok.Count("El Perro Corre Rápido"))
}

func TestTokenizerDropsNonAlphabetic(t *testing.T) {
	tok := NewTokenizer("es", set())

	tokens := tok.Tokens("¡Hola! En 2024, el 50% de los niños... ok")
	assert.Equal(t, []string{"hola", "en", "el", "de", "los", "niños", "ok"}, tokens)
}

func TestTokenizerNormalizesDecomposedAccents(t *testing.T) {
	tok := NewTokenizer("es", set())

	// "rápido" written with a combining acute accent
	assert.Equal(t, []string{"rápido"}, tok.Tokens("ra\u0301pido"))
}

func TestTokenizerBuiltinSpanishStopWords(t *testing.T) {
	tok := NewTokenizer("es", StopWords("es", nil))

	assert.Equal(t, []string{"gobierno", "anuncia", "medidas", "economía"},
		tok.Tokens("El gobierno anuncia las medidas de la economía"))
}

func TestStopWordsOverride(t *testing.T) {
	words := StopWords("es", map[string][]string{"es": {"Gobierno"}})
	assert.Equal(t, set("gobierno"), words)

	assert.NotEmpty(t, StopWords("en", nil))
	assert.Empty(t, StopWords("xx", nil))
	assert.True(t, HasStopWords("es", nil))
	assert.False(t, HasStopWords("xx", nil))
	assert.True(t, HasStopWords("xx", map[string][]string{"xx": nil}))
}

func TestStopWordsOverrideDecomposedEntry(t *testing.T) {
	// "Más" с комбинируемым акутом в YAML
	words := StopWords("es", map[string][]string{"es": {"Ma\u0301s"}})
	assert.Equal(t, set("más"), words)

	tok := NewTokenizer("es", words)
	assert.Equal(t, []string{"noticias"}, tok.Tokens("más noticias"))
}

func TestCountTokensLeavesMissingUnset(t *testing.T) {
	tok := NewTokenizer("es", set())
	rows := []Row{
		{Title: Str("Hola"), Body: Str("Mundo bonito")},
		{Title: Null, Body: Str("solo cuerpo")},
	}

	out := CountTokens(rows, ColumnTitle, tok)
	out = CountTokens(out, ColumnBody, tok)

	require.True(t, out[0].NTokensTitle.Valid)
	assert.EqualValues(t, 1, out[0].NTokensTitle.Int64)
	assert.EqualValues(t, 2, out[0].NTokensBody.Int64)

	assert.False(t, out[1].NTokensTitle.Valid)
	assert.EqualValues(t, 2, out[1].NTokensBody.Int64)
}

func TestCountTokensColumnOrderIndependent(t *testing.T) {
	tok := NewTokenizer("es", set("el"))
	rows := []Row{{Title: Str("El perro"), Body: Str("El gato negro")}}

	a := CountTokens(CountTokens(rows, ColumnTitle, tok), ColumnBody, tok)
	b := CountTokens(CountTokens(rows, ColumnBody, tok), ColumnTitle, tok)
	assert.Equal(t, a, b)
}
