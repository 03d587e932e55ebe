package utils

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
)

// RandomInt32 生成一个安全的随机32位整数
func RandomInt32() int32 {
	var num int32
	err := binary.Read(rand.Reader, binary.BigEndian, &num)
	if err != nil {
		panic("generate random int32 failed")
	}

	return num
}

// RandomDigits 生成指定长度的随机数字串，用于终端上的学生编号
func RandomDigits(length int) string {
	if length <= 0 {
		return ""
	}

	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		panic("generate random digits failed")
	}

	out := make([]byte, length)
	for i, b := range buf {
		out[i] = '0' + b%10
	}
	return string(out)
}

// RandomRunToken 生成一次导入运行的短随机后缀
func RandomRunToken() string {
	return fmt.Sprintf("%08x", uint32(RandomInt32()))
}
