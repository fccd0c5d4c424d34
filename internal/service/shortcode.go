package service

import (
	"crypto/rand"
	"math/big"
	"net/url"
	"regexp"
)

// Константы генерации кодов
const (
	DefaultCodeLength   = 6
	maxGenerateAttempts = 16
	charset             = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var shortCodePattern = regexp.MustCompile(`^[a-zA-Z0-9]{3,20}$`)

// GenerateShortCode возвращает случайный код из 62 алфавитно-цифровых символов.
// Проверка на коллизии остаётся на вызывающей стороне.
func GenerateShortCode(length int) (string, error) {
	if length <= 0 {
		length = DefaultCodeLength
	}

	max := big.NewInt(int64(len(charset)))
	result := make([]byte, length)
	for i := 0; i < length; i++ {
		num, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		result[i] = charset[num.Int64()]
	}
	return string(result), nil
}

// IsValidURL принимает только абсолютные URL со схемой и хостом
func IsValidURL(candidate string) bool {
	u, err := url.Parse(candidate)
	if err != nil {
		return false
	}
	return u.IsAbs() && u.Host != ""
}

// IsValidShortCode: 3-20 символов, только буквы и цифры
func IsValidShortCode(candidate string) bool {
	return shortCodePattern.MatchString(candidate)
}
