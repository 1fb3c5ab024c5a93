package services

import (
	"weread-agent/internal/app/models"
	"weread-agent/internal/app/repositories"
)

type IQueryHistory interface {
	SaveRecord(record *models.QueryRecord) error
	GetRecordByID(id uint64) (*models.QueryRecord, error)
	GetRecordByTaskID(taskID string) (*models.QueryRecord, error)
	ListRecords(limit, offset int) ([]models.QueryRecord, error)
	ListRecordsByCont(filter models.QueryRecord, limit, offset int) ([]models.QueryRecord, error)
	DeleteRecord(id uint64) error
}

type QueryHistoryService struct {
	repo *repositories.QueryRecordRepository
}

func NewQueryHistoryService() IQueryHistory {
	return &QueryHistoryService{
		repo: repositories.NewQueryRecordRepository(),
	}
}

func (s *QueryHistoryService) SaveRecord(record *models.QueryRecord) error {
	return s.repo.Create(record)
}

func (s *QueryHistoryService) GetRecordByID(id uint64) (*models.QueryRecord, error) {
	return s.repo.GetByID(id)
}

func (s *QueryHistoryService) GetRecordByTaskID(taskID string) (*models.QueryRecord, error) {
	return s.repo.GetByTaskID(taskID)
}

func (s *QueryHistoryService) ListRecords(limit, offset int) ([]models.QueryRecord, error) {
	return s.repo.List(limit, offset)
}

func (s *QueryHistoryService) ListRecordsByCont(filter models.QueryRecord, limit, offset int) ([]models.QueryRecord, error) {
	return s.repo.ListByCont(filter, limit, offset)
}

func (s *QueryHistoryService) DeleteRecord(id uint64) error {
	return s.repo.Delete(id)
}
