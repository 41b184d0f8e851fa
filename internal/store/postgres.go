package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/robertmcarvalho/rh-kelly-agent/internal/funnel"
)

// Postgres is the durable tier. Schema: db/schema.sql (leads table).
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres returns a durable tier backed by the given pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const leadColumns = `sender_id, stage, city, requirements_passed, req_answers,
	disc_answers, disc_result, offered_vacancy_ids, selected_vacancy_id,
	form_token, reprompt_count, version, created_at, updated_at`

// Get returns the lead context or ErrNotFound.
func (p *Postgres) Get(ctx context.Context, senderID string) (*funnel.LeadContext, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE sender_id = $1`, senderID)
	lead, err := scanLead(row)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get lead: %w", ErrStoreUnavailable, err)
	}
	return lead, nil
}

// CreateIfAbsent inserts the initial context, tolerating a concurrent
// creator, then reads whichever row won.
func (p *Postgres) CreateIfAbsent(ctx context.Context, senderID string, initial funnel.Stage) (*funnel.LeadContext, error) {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO leads (sender_id, stage, requirements_passed, version)
		 VALUES ($1, $2, $3, 1)
		 ON CONFLICT (sender_id) DO NOTHING`,
		senderID, string(initial), string(funnel.RequirementsUnknown),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: create lead: %w", ErrStoreUnavailable, err)
	}
	return p.Get(ctx, senderID)
}

// CompareAndSwap commits lead iff the stored version still matches.
func (p *Postgres) CompareAndSwap(ctx context.Context, senderID string, expectedVersion int64, lead *funnel.LeadContext) error {
	reqAnswers, _ := json.Marshal(lead.ReqAnswers)
	discAnswers, _ := json.Marshal(lead.DiscAnswers)
	offered, _ := json.Marshal(lead.OfferedVacancyIDs)
	var discResult []byte
	if lead.DiscResult != nil {
		discResult, _ = json.Marshal(lead.DiscResult)
	}

	tag, err := p.pool.Exec(ctx,
		`UPDATE leads
		 SET stage               = $1,
		     city                = $2,
		     requirements_passed = $3,
		     req_answers         = $4::jsonb,
		     disc_answers        = $5::jsonb,
		     disc_result         = $6::jsonb,
		     offered_vacancy_ids = $7::jsonb,
		     selected_vacancy_id = $8,
		     form_token          = $9,
		     reprompt_count      = $10,
		     version             = $11,
		     updated_at          = NOW()
		 WHERE sender_id = $12 AND version = $13`,
		string(lead.Stage), lead.City, string(lead.RequirementsStatus),
		reqAnswers, discAnswers, discResult, offered,
		lead.SelectedVacancyID, lead.FormToken, lead.RepromptCount, expectedVersion+1,
		senderID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("%w: update lead: %w", ErrStoreUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	lead.Version = expectedVersion + 1
	lead.UpdatedAt = time.Now().UTC()
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (*funnel.LeadContext, error) {
	var (
		lead        funnel.LeadContext
		stage       string
		reqStatus   string
		reqAnswers  []byte
		discAnswers []byte
		discResult  []byte
		offered     []byte
	)
	err := row.Scan(
		&lead.SenderID, &stage, &lead.City, &reqStatus, &reqAnswers,
		&discAnswers, &discResult, &offered, &lead.SelectedVacancyID,
		&lead.FormToken, &lead.RepromptCount, &lead.Version,
		&lead.CreatedAt, &lead.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	lead.Stage = funnel.Stage(stage)
	lead.RequirementsStatus = funnel.RequirementsStatus(reqStatus)
	if err := json.Unmarshal(reqAnswers, &lead.ReqAnswers); err != nil {
		return nil, fmt.Errorf("decode req_answers: %w", err)
	}
	if err := json.Unmarshal(discAnswers, &lead.DiscAnswers); err != nil {
		return nil, fmt.Errorf("decode disc_answers: %w", err)
	}
	if err := json.Unmarshal(offered, &lead.OfferedVacancyIDs); err != nil {
		return nil, fmt.Errorf("decode offered_vacancy_ids: %w", err)
	}
	if len(discResult) > 0 {
		var r funnel.DiscResult
		if err := json.Unmarshal(discResult, &r); err != nil {
			return nil, fmt.Errorf("decode disc_result: %w", err)
		}
		lead.DiscResult = &r
	}
	return &lead, nil
}
