package models

import (
	"fmt"
	"strings"
	"time"
)

// QueryRecord 一次问书会话的历史记录
type QueryRecord struct {
	ID        uint64       `gorm:"primaryKey;autoIncrement;comment:主键" json:"id"`
	TaskID    string       `gorm:"size:64;not null;uniqueIndex;comment:本地任务ID" json:"task_id"`
	SessionID string       `gorm:"size:128;default:null;comment:服务端会话ID" json:"session_id"`
	Query     string       `gorm:"size:2000;not null;comment:问题" json:"query"`
	State     SessionState `gorm:"size:20;not null;index;comment:会话状态" json:"state"`
	Answer    string       `gorm:"type:text;default:null;comment:最终回答" json:"answer"`
	Citations string       `gorm:"type:text;default:null;comment:引用(JSON)" json:"citations"`
	ErrorKind string       `gorm:"size:32;default:null;comment:失败类型" json:"error_kind,omitempty"`
	Chunks    int          `gorm:"not null;default:0;comment:收到的分片数" json:"chunks"`
	FromCache bool         `gorm:"not null;default:false;comment:是否命中缓存" json:"from_cache"`
	CreatedAt time.Time    `gorm:"type:datetime;not null;default:CURRENT_TIMESTAMP;comment:记录创建时间" json:"created_at"`
	UpdatedAt time.Time    `gorm:"type:datetime;not null;default:CURRENT_TIMESTAMP;comment:最后更新时间" json:"updated_at"`
}

// TableName 指定表名
func (QueryRecord) TableName() string {
	return "query_record"
}

// Validate 验证模型数据
func (r *QueryRecord) Validate() error {
	if r.TaskID == "" {
		return fmt.Errorf("任务ID不能为空")
	}
	if strings.TrimSpace(r.Query) == "" {
		return fmt.Errorf("问题不能为空")
	}
	if !r.State.Terminal() {
		return fmt.Errorf("会话未结束: %s", r.State)
	}
	return nil
}
