package services

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/username/taxinator/src/database"
	"github.com/username/taxinator/src/models"
)

type sqliteJobStore struct{}

// NewSQLiteJobStore persists jobs into the jobs table opened by
// database.InitDB. Each save upserts the full JSON snapshot.
func NewSQLiteJobStore() JobStore {
	return &sqliteJobStore{}
}

func (s *sqliteJobStore) SaveJob(job *models.Job) error {
	snapshot, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("error marshaling job %s snapshot: %w", job.ID, err)
	}
	_, err = database.DB.Exec(`
		INSERT INTO jobs (id, status, tax_year, vendor_source, vendor_target, created_at, snapshot)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			vendor_target = excluded.vendor_target,
			updated_at = CURRENT_TIMESTAMP,
			snapshot = excluded.snapshot`,
		job.ID, string(job.Status), job.TaxYear, job.VendorSource, job.VendorTarget, job.CreatedAt, string(snapshot))
	if err != nil {
		return fmt.Errorf("error persisting job %s: %w", job.ID, err)
	}
	return nil
}

func (s *sqliteJobStore) LoadAll() ([]*models.Job, error) {
	rows, err := database.DB.Query(`SELECT snapshot FROM jobs`)
	if err != nil {
		return nil, fmt.Errorf("error loading job snapshots: %w", err)
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		var snapshot string
		if err := rows.Scan(&snapshot); err != nil {
			return nil, fmt.Errorf("error scanning job snapshot: %w", err)
		}
		var job models.Job
		if err := json.Unmarshal([]byte(snapshot), &job); err != nil {
			return nil, fmt.Errorf("error unmarshaling job snapshot: %w", err)
		}
		if job.Translations == nil {
			job.Translations = make(map[string]*models.TranslationPayload)
		}
		jobs = append(jobs, &job)
	}
	return jobs, rows.Err()
}

func (s *sqliteJobStore) DeleteAll() error {
	if _, err := database.DB.Exec(`DELETE FROM jobs`); err != nil {
		return fmt.Errorf("error clearing jobs table: %w", err)
	}
	return nil
}

// memoryJobStore backs tests and ephemeral deployments.
type memoryJobStore struct {
	mu   sync.Mutex
	jobs map[string]*models.Job
}

func NewMemoryJobStore() JobStore {
	return &memoryJobStore{jobs: make(map[string]*models.Job)}
}

func (s *memoryJobStore) SaveJob(job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job.Clone()
	return nil
}

func (s *memoryJobStore) LoadAll() ([]*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, job.Clone())
	}
	return out, nil
}

func (s *memoryJobStore) DeleteAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = make(map[string]*models.Job)
	return nil
}
