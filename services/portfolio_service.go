package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/mvavassori/portfolio-pulse/models"
)

var ErrPortfolioNotFound = errors.New("portfolio not found")

type Portfolios interface {
	Get(ctx context.Context, ownerID string) (models.Portfolio, error)
	Upsert(ctx context.Context, ownerID string, portfolio models.Portfolio) (models.Portfolio, error)
}

type PortfolioService struct {
	DB *sql.DB
}

func NewPortfolioService(db *sql.DB) *PortfolioService {
	return &PortfolioService{DB: db}
}

func (s *PortfolioService) Get(ctx context.Context, ownerID string) (models.Portfolio, error) {
	var data []byte
	var updatedAt time.Time
	err := s.DB.QueryRowContext(ctx, `
		SELECT data, updated_at FROM portfolios WHERE owner_id = $1
	`, ownerID).Scan(&data, &updatedAt)
	if err == sql.ErrNoRows {
		return models.Portfolio{}, ErrPortfolioNotFound
	} else if err != nil {
		return models.Portfolio{}, err
	}

	var portfolio models.Portfolio
	if err := json.Unmarshal(data, &portfolio); err != nil {
		return models.Portfolio{}, err
	}
	// The key columns win over whatever the blob says.
	portfolio.OwnerID = ownerID
	portfolio.UpdatedAt = updatedAt

	return portfolio, nil
}

func (s *PortfolioService) Upsert(ctx context.Context, ownerID string, portfolio models.Portfolio) (models.Portfolio, error) {
	now := time.Now().UTC()
	portfolio.OwnerID = ownerID
	portfolio.UpdatedAt = now

	data, err := json.Marshal(portfolio)
	if err != nil {
		return models.Portfolio{}, err
	}

	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO portfolios (owner_id, data, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (owner_id) DO UPDATE
		SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at
	`, ownerID, data, now)
	if err != nil {
		return models.Portfolio{}, err
	}

	return portfolio, nil
}
