package repositories

import (
	"errors"

	"gorm.io/gorm"

	"weread-agent/internal/app/models"
	"weread-agent/internal/pkg/storage"
)

var ErrNoDatabase = errors.New("mysql is not enabled")

type QueryRecordRepository struct{}

func NewQueryRecordRepository() *QueryRecordRepository {
	return &QueryRecordRepository{}
}

func (r *QueryRecordRepository) db() (*gorm.DB, error) {
	if storage.DB == nil {
		return nil, ErrNoDatabase
	}
	return storage.DB, nil
}

// Create 保存一条会话记录，同一个任务只保存一次
func (r *QueryRecordRepository) Create(record *models.QueryRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}
	db, err := r.db()
	if err != nil {
		return err
	}
	return db.Create(record).Error
}

// GetByID 根据ID获取记录
func (r *QueryRecordRepository) GetByID(id uint64) (*models.QueryRecord, error) {
	db, err := r.db()
	if err != nil {
		return nil, err
	}
	var record models.QueryRecord
	if err := db.Where("id = ?", id).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// GetByTaskID 根据本地任务ID获取记录
func (r *QueryRecordRepository) GetByTaskID(taskID string) (*models.QueryRecord, error) {
	db, err := r.db()
	if err != nil {
		return nil, err
	}
	var record models.QueryRecord
	if err := db.Where("task_id = ?", taskID).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// List 按创建时间倒序分页
func (r *QueryRecordRepository) List(limit, offset int) ([]models.QueryRecord, error) {
	db, err := r.db()
	if err != nil {
		return nil, err
	}
	var records []models.QueryRecord
	err = db.Order("id desc").Limit(limit).Offset(offset).Find(&records).Error
	return records, err
}

// ListByCont 按非空字段过滤，问题走模糊匹配
func (r *QueryRecordRepository) ListByCont(filter models.QueryRecord, limit, offset int) ([]models.QueryRecord, error) {
	db, err := r.db()
	if err != nil {
		return nil, err
	}

	if filter.TaskID != "" {
		db = db.Where("task_id = ?", filter.TaskID)
	}
	if filter.SessionID != "" {
		db = db.Where("session_id = ?", filter.SessionID)
	}
	if filter.State != "" {
		db = db.Where("state = ?", filter.State)
	}
	if filter.Query != "" {
		db = db.Where("query LIKE ?", "%"+filter.Query+"%")
	}
	if filter.ErrorKind != "" {
		db = db.Where("error_kind = ?", filter.ErrorKind)
	}

	var records []models.QueryRecord
	err = db.Order("id desc").Limit(limit).Offset(offset).Find(&records).Error
	return records, err
}

// Delete 删除记录
func (r *QueryRecordRepository) Delete(id uint64) error {
	db, err := r.db()
	if err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&models.QueryRecord{}).Error
}
