package history

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/table"
)

//go:embed schema.sql
var schema string

const defaultWriteTimeout = 5 * time.Second

// Postgres records rounds into a PostgreSQL database. The full round is kept
// as JSON next to per-hand and per-side-bet rows for querying.
type Postgres struct {
	pool    *pgxpool.Pool
	timeout time.Duration
	logger  *log.Logger
}

// OpenPostgres connects to dsn, checks the connection and applies the schema
func OpenPostgres(ctx context.Context, dsn string, logger *log.Logger) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("history: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("history: ping: %w", err)
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}

	p := &Postgres{pool: pool, timeout: defaultWriteTimeout, logger: logger.WithPrefix("history")}
	if err := p.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

// Migrate creates the history tables when missing
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("history: migrate: %w", err)
	}
	return nil
}

// Record implements table.Recorder. The round and its rows are written in
// one transaction; recording the same round twice is a no-op.
func (p *Postgres) Record(r table.RoundResult) error {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("history: encode round %s: %w", r.ID, err)
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("history: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
        INSERT INTO rounds(id, round_number, rules, started_at, settled_at, dealer_cards,
                           dealer_total, dealer_blackjack, wagered, returned, payload)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        ON CONFLICT (id) DO NOTHING
    `, r.ID, r.Round, r.Rules, r.StartedAt, r.SettledAt, codes(r.Dealer),
		r.DealerTotal, r.DealerBlackjack, r.Wagered(), r.Returned(), payload)
	if err != nil {
		return fmt.Errorf("history: insert round %s: %w", r.ID, err)
	}
	if tag.RowsAffected() == 0 {
		p.logger.Debug("Round already recorded", "id", r.ID)
		return nil
	}

	batch := &pgx.Batch{}
	for _, h := range r.Hands {
		batch.Queue(`
            INSERT INTO round_hands(round_id, hand_id, owner, cards, total, outcome, amount, payout, doubled, split)
            VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        `, r.ID, int(h.Hand), h.Owner, codes(h.Cards), h.Total, h.Outcome.String(),
			h.Amount, h.Payout, h.Doubled, h.Split)
	}
	for _, sb := range r.SideBets {
		batch.Queue(`
            INSERT INTO round_side_bets(round_id, bet_id, hand_id, owner, kind, label, amount, payout)
            VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        `, r.ID, int(sb.ID), sb.Hand, sb.Owner, sb.Kind.String(), sb.Label, sb.Amount, sb.Payout)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("history: insert rows for %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("history: commit: %w", err)
	}
	return nil
}

// PlayerTotals is the aggregate result of one player across stored rounds
type PlayerTotals struct {
	Owner    string
	Hands    int
	Wagered  int64
	Returned int64
}

// Net returns the player's chips won or lost
func (t PlayerTotals) Net() int64 { return t.Returned - t.Wagered }

// Totals aggregates primary-bet results per player
func (p *Postgres) Totals(ctx context.Context) ([]PlayerTotals, error) {
	rows, err := p.pool.Query(ctx, `
        SELECT owner, COUNT(*)::int, COALESCE(SUM(amount),0)::bigint, COALESCE(SUM(payout),0)::bigint
          FROM round_hands
         GROUP BY owner
         ORDER BY owner`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PlayerTotals
	for rows.Next() {
		var t PlayerTotals
		if err := rows.Scan(&t.Owner, &t.Hands, &t.Wagered, &t.Returned); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Round loads one stored round by id
func (p *Postgres) Round(ctx context.Context, id string) (table.RoundResult, error) {
	var payload []byte
	if err := p.pool.QueryRow(ctx, `SELECT payload FROM rounds WHERE id = $1`, id).Scan(&payload); err != nil {
		return table.RoundResult{}, fmt.Errorf("history: round %s: %w", id, err)
	}
	var r table.RoundResult
	if err := json.Unmarshal(payload, &r); err != nil {
		return table.RoundResult{}, fmt.Errorf("history: decode round %s: %w", id, err)
	}
	return r, nil
}

// Close releases the connection pool
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func codes(cards []deck.Card) string {
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = c.Code()
	}
	return strings.Join(parts, " ")
}
