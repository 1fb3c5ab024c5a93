package util

import (
	"crypto/md5"
	"encoding/hex"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func GetJson(v interface{}) string {
	marshal, _ := json.Marshal(v)
	return string(marshal)
}

// QueryDigest 问题的缓存键：去掉首尾空白并合并连续空白后取 md5
func QueryDigest(query string) string {
	normalized := strings.Join(strings.Fields(query), " ")
	sum := md5.Sum([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
