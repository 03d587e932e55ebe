package utils

import (
	"golang.org/x/crypto/bcrypt"
)

// 管理员口令的 bcrypt 成本。终端凭据不经过这里，它们明文存本地库、从不出网。
const passwordHashCost = bcrypt.DefaultCost

// HashPassword 使用 bcrypt 对管理员口令进行哈希处理
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), passwordHashCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// CheckPasswordHash 比较口令和哈希值
func CheckPasswordHash(password, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
