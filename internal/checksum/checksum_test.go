package checksum

import (
	"testing"
)

func TestArticleID(t *testing.T) {
	url := "https://elpais.com/internacional/2024-10-18/una-noticia.html"

	id1 := ArticleID(url)
	id2 := ArticleID(url)

	// ID должен быть детерминированным
	if id1 != id2 {
		t.Errorf("ID not deterministic: %s != %s", id1, id2)
	}

	// MD5 hex: 32 символа
	if len(id1) != 32 {
		t.Errorf("ID wrong length: %d, expected 32", len(id1))
	}

	// Другой URL, другой ID
	if id1 == ArticleID(url+"?page=2") {
		t.Errorf("ID should change when URL changes")
	}
}

func TestArticleIDKnownValue(t *testing.T) {
	// md5("") and md5("abc") are fixed across processes and platforms
	if got := ArticleID(""); got != "d41d8cd98f00b204e9800998ecf8427e" {
		t.Errorf("ArticleID(\"\") = %s", got)
	}
	if got := ArticleID("abc"); got != "900150983cd24fb0d6963f7d28e17f72" {
		t.Errorf("ArticleID(\"abc\") = %s", got)
	}
}
