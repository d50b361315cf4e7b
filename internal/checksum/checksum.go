package checksum

import (
	"crypto/md5"
	"encoding/hex"
)

// ArticleID генерирует идентификатор статьи: hex(MD5(url))
// Одинаковый URL всегда даёт одинаковый ID, в том числе между запусками.
func ArticleID(url string) string {
	hash := md5.Sum([]byte(url))
	return hex.EncodeToString(hash[:])
}
