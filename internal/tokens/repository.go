package tokens

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mtlprog/swaproute/internal/domain"
)

// ErrNotFound indicates that no metadata is stored for the token.
var ErrNotFound = errors.New("token metadata not found")

// Metadata is the persisted on-chain metadata of a token.
type Metadata struct {
	ChainID   domain.ChainID `json:"chainId"`
	Address   string         `json:"address"`
	Symbol    string         `json:"symbol,omitempty"`
	Decimals  int            `json:"decimals"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// Repository defines persistent storage for token metadata.
type Repository interface {
	Get(ctx context.Context, chainID domain.ChainID, address string) (Metadata, error)
	Save(ctx context.Context, m Metadata) error
	List(ctx context.Context, chainID domain.ChainID) ([]Metadata, error)
}

// PgRepository implements Repository with PostgreSQL.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewPgRepository creates a new PostgreSQL token metadata repository.
func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) Get(ctx context.Context, chainID domain.ChainID, address string) (Metadata, error) {
	var m Metadata
	err := r.pool.QueryRow(ctx,
		`SELECT chain_id, address, symbol, decimals, updated_at
		 FROM token_metadata
		 WHERE chain_id = $1 AND address = $2`,
		int64(chainID), storedAddress(chainID, address)).Scan(&m.ChainID, &m.Address, &m.Symbol, &m.Decimals, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Metadata{}, ErrNotFound
		}
		return Metadata{}, fmt.Errorf("getting metadata for %s on chain %d: %w", address, chainID, err)
	}
	return m, nil
}

func (r *PgRepository) Save(ctx context.Context, m Metadata) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO token_metadata (chain_id, address, symbol, decimals, updated_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 ON CONFLICT (chain_id, address)
		 DO UPDATE SET decimals = $4,
		               symbol = COALESCE(NULLIF($3, ''), token_metadata.symbol),
		               updated_at = NOW()`,
		int64(m.ChainID), storedAddress(m.ChainID, m.Address), m.Symbol, m.Decimals)
	if err != nil {
		return fmt.Errorf("saving metadata for %s on chain %d: %w", m.Address, m.ChainID, err)
	}
	return nil
}

func (r *PgRepository) List(ctx context.Context, chainID domain.ChainID) ([]Metadata, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT chain_id, address, symbol, decimals, updated_at
		 FROM token_metadata
		 WHERE chain_id = $1
		 ORDER BY address`, int64(chainID))
	if err != nil {
		return nil, fmt.Errorf("listing metadata for chain %d: %w", chainID, err)
	}
	defer rows.Close()

	var result []Metadata
	for rows.Next() {
		var m Metadata
		if err := rows.Scan(&m.ChainID, &m.Address, &m.Symbol, &m.Decimals, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning metadata: %w", err)
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating metadata: %w", err)
	}
	return result, nil
}

// storedAddress lowercases EVM addresses. Solana mints are case-sensitive.
func storedAddress(chainID domain.ChainID, address string) string {
	if chainID.IsSolana() {
		return address
	}
	return strings.ToLower(address)
}
