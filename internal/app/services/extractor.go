package services

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/tidwall/gjson"

	"weread-agent/internal/app/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const opExtract = "extract"

// PeekErrCode 读取响应体里的 errCode（兼容 errcode 写法），不存在或不是数字时 ok 为 false
func PeekErrCode(raw []byte) (code int, ok bool) {
	if !gjson.ValidBytes(raw) {
		return 0, false
	}
	root := gjson.ParseBytes(raw)
	for _, key := range []string{"errCode", "errcode"} {
		if v := root.Get(key); v.Type == gjson.Number {
			return int(v.Int()), true
		}
	}
	return 0, false
}

// ExtractChunk 把一次响应解码为 Chunk，同时返回响应里的 session_id（可能为空）。
// 只有结构性错误才返回 ProtocolError；缺少回答或引用条目不算错误。
func ExtractChunk(raw []byte) (*models.Chunk, string, error) {
	if !gjson.ValidBytes(raw) {
		return nil, "", newQueryError(KindProtocol, opExtract, fmt.Errorf("body is not valid json"))
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return nil, "", newQueryError(KindProtocol, opExtract, fmt.Errorf("body is not a json object"))
	}

	hasMore := root.Get("has_more")
	if hasMore.Type != gjson.True && hasMore.Type != gjson.False {
		return nil, "", newQueryError(KindProtocol, opExtract, fmt.Errorf("missing boolean has_more"))
	}

	chunk := &models.Chunk{HasMore: hasMore.Bool()}

	if interval := root.Get("request_interval"); interval.Type == gjson.Number && interval.Int() >= 0 {
		ms := interval.Int()
		chunk.PacingMillis = &ms
	}

	data := root.Get("data")
	if data.Exists() && data.Type != gjson.Null {
		if !data.IsArray() {
			return nil, "", newQueryError(KindProtocol, opExtract, fmt.Errorf("data is not an array"))
		}
		if err := extractItems(data, chunk); err != nil {
			return nil, "", err
		}
	}

	return chunk, root.Get("session_id").String(), nil
}

// extractItems 每种类型只取第一个条目
func extractItems(data gjson.Result, chunk *models.Chunk) error {
	var answerSeen, citationsSeen bool
	var err error

	data.ForEach(func(_, item gjson.Result) bool {
		if !item.IsObject() {
			return true
		}
		// type 必须是整数，"8" 或 8.5 这样的值不识别
		typ := item.Get("type")
		if typ.Type != gjson.Number || typ.Num != float64(typ.Int()) {
			return true
		}
		switch typ.Int() {
		case models.ItemTypeAnswer:
			if answerSeen {
				return true
			}
			answerSeen = true
			if md := item.Get("markdown").String(); md != "" {
				chunk.Answer = &md
			}
		case models.ItemTypeCitations:
			if citationsSeen {
				return true
			}
			citationsSeen = true
			chunk.Citations, chunk.HasCitations, err = decodeCitations(item.Get("anchor_datas"))
			if err != nil {
				return false
			}
		}
		return true
	})
	return err
}

func decodeCitations(anchors gjson.Result) ([]models.Citation, bool, error) {
	if !anchors.Exists() || anchors.Type == gjson.Null {
		return nil, false, nil
	}
	if !anchors.IsArray() {
		return nil, false, newQueryError(KindProtocol, opExtract, fmt.Errorf("anchor_datas is not an array"))
	}

	var datas []models.AnchorData
	if err := json.UnmarshalFromString(anchors.Raw, &datas); err != nil {
		return nil, false, newQueryError(KindProtocol, opExtract, fmt.Errorf("decode anchor_datas: %w", err))
	}

	citations := make([]models.Citation, 0, len(datas))
	for _, a := range datas {
		citations = append(citations, models.Citation{
			Reference: a.Anchor,
			Label:     a.Title,
			Excerpt:   a.AnchorText,
			TargetURL: a.WebURL,
		})
	}
	return citations, true, nil
}
