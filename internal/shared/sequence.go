package shared

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NumberGenerator supplies unique, human-readable document numbers for
// proposals and payments. The core only requires uniqueness and roughly
// monotonic ordering for display.
type NumberGenerator interface {
	ProposalNumber(ctx context.Context) (string, error)
	PaymentNumber(ctx context.Context) (string, error)
}

// SequenceGenerator draws numbers from Postgres sequences, formatted as
// PRP-YYYYMM-NNNNNN / PAY-YYYYMM-NNNNNN.
type SequenceGenerator struct {
	pool *pgxpool.Pool
}

// NewSequenceGenerator constructs a SequenceGenerator.
func NewSequenceGenerator(pool *pgxpool.Pool) *SequenceGenerator {
	return &SequenceGenerator{pool: pool}
}

// ProposalNumber returns the next proposal number.
func (g *SequenceGenerator) ProposalNumber(ctx context.Context) (string, error) {
	return g.next(ctx, "proposal_number_seq", "PRP")
}

// PaymentNumber returns the next payment number.
func (g *SequenceGenerator) PaymentNumber(ctx context.Context) (string, error) {
	return g.next(ctx, "payment_number_seq", "PAY")
}

func (g *SequenceGenerator) next(ctx context.Context, seq, prefix string) (string, error) {
	if g == nil || g.pool == nil {
		return "", errors.New("sequence generator not initialised")
	}
	var n int64
	if err := g.pool.QueryRow(ctx, fmt.Sprintf("SELECT nextval('%s')", seq)).Scan(&n); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s-%06d", prefix, time.Now().UTC().Format("200601"), n), nil
}
