package util

import (
	"crypto/rand"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// 去掉易混淆字符 O/0、l/1
const (
	tempUppercase = "ABCDEFGHIJKLMNPQRSTUVWXYZ"
	tempLowercase = "abcdefghijkmnpqrstuvwxyz"
	tempDigits    = "23456789"
)

const TempPasswordLength = 8

// GenerateTemporaryPassword 生成 8 位临时密码，至少包含一个大写、小写字母和数字
func GenerateTemporaryPassword() (string, error) {
	all := tempUppercase + tempLowercase + tempDigits
	buf := make([]byte, 0, TempPasswordLength)

	for _, set := range []string{tempUppercase, tempLowercase, tempDigits} {
		ch, err := randomChar(set)
		if err != nil {
			return "", err
		}
		buf = append(buf, ch)
	}
	for len(buf) < TempPasswordLength {
		ch, err := randomChar(all)
		if err != nil {
			return "", err
		}
		buf = append(buf, ch)
	}

	// Fisher-Yates
	for i := len(buf) - 1; i > 0; i-- {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return "", err
		}
		buf[i], buf[j.Int64()] = buf[j.Int64()], buf[i]
	}
	return string(buf), nil
}

func randomChar(set string) (byte, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(set))))
	if err != nil {
		return 0, err
	}
	return set[n.Int64()], nil
}

func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
