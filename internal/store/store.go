package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/PortNumber53/landing-intake/backend/internal/models"
)

const (
	defaultPageSize = 200
	requestsTable   = "intake_requests"
)

// Store provides database-backed access to the request log.
type Store struct {
	db *sql.DB
}

// New creates a Store using the provided sql.DB connection.
func New(db *sql.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}
	return &Store{db: db}, nil
}

// CreateRequest records one handled request. An empty ID is filled in.
func (s *Store) CreateRequest(ctx context.Context, req models.Request) error {
	if s == nil || s.db == nil {
		return errors.New("store: db cannot be nil")
	}

	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	query := fmt.Sprintf(`
	INSERT INTO %s (id, request_id, method, endpoint, status_code, response_time_ms, request_size_bytes, response_size_bytes)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, requestsTable)

	_, err := s.db.ExecContext(ctx, query,
		req.ID,
		req.RequestID,
		req.Method,
		req.Endpoint,
		req.StatusCode,
		req.ResponseTimeMs,
		req.RequestSizeBytes,
		req.ResponseSizeBytes,
	)
	if err != nil {
		return fmt.Errorf("store: create request: %w", err)
	}

	return nil
}

// ListRequests returns the most recent requests, newest first.
func (s *Store) ListRequests(ctx context.Context, limit int) ([]models.Request, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store: db cannot be nil")
	}

	if limit <= 0 || limit > defaultPageSize {
		limit = defaultPageSize
	}

	query := fmt.Sprintf(`
	SELECT
		id::text,
		request_id,
		method,
		endpoint,
		status_code,
		response_time_ms,
		request_size_bytes,
		response_size_bytes,
		created_at
	FROM %s
	ORDER BY created_at DESC
	LIMIT $1
	`, requestsTable)

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list requests: %w", err)
	}
	defer rows.Close()

	var requests []models.Request
	for rows.Next() {
		var req models.Request
		if err := rows.Scan(
			&req.ID,
			&req.RequestID,
			&req.Method,
			&req.Endpoint,
			&req.StatusCode,
			&req.ResponseTimeMs,
			&req.RequestSizeBytes,
			&req.ResponseSizeBytes,
			&req.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("store: scan request: %w", err)
		}
		requests = append(requests, req)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate requests: %w", err)
	}

	return requests, nil
}

// EndpointMetrics aggregates the request log per endpoint.
func (s *Store) EndpointMetrics(ctx context.Context) ([]models.RequestMetrics, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store: db cannot be nil")
	}

	query := fmt.Sprintf(`
	SELECT
		endpoint,
		COUNT(*) AS total_requests,
		COUNT(CASE WHEN status_code < 400 THEN 1 END) AS success_requests,
		COUNT(CASE WHEN status_code >= 400 THEN 1 END) AS error_requests,
		COALESCE(AVG(response_time_ms), 0) AS avg_response_time_ms,
		MAX(created_at) AS last_request_at
	FROM %s
	GROUP BY endpoint
	ORDER BY total_requests DESC
	`, requestsTable)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("store: endpoint metrics: %w", err)
	}
	defer rows.Close()

	var metrics []models.RequestMetrics
	for rows.Next() {
		var (
			m    models.RequestMetrics
			last sql.NullTime
		)
		if err := rows.Scan(
			&m.Endpoint,
			&m.TotalRequests,
			&m.SuccessRequests,
			&m.ErrorRequests,
			&m.AvgResponseTimeMs,
			&last,
		); err != nil {
			return nil, fmt.Errorf("store: scan metrics: %w", err)
		}
		if last.Valid {
			t := last.Time
			m.LastRequestAt = &t
		}
		metrics = append(metrics, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate metrics: %w", err)
	}

	return metrics, nil
}
