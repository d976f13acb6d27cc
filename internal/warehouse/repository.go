package warehouse

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/receipt-ledger/internal/domain"
)

const (
	transactionsTable = "transactions"
	transactionsView  = "enriched_transactions"
)

// Store is the persistence contract the handlers and the ingest CLI depend
// on. Insert and UpdateCategory surface their errors; ListRecent does not -
// a failed read yields an empty result set instead. That asymmetry matches
// the system's observed behavior and is kept deliberately.
type Store interface {
	Insert(ctx context.Context, t *domain.Transaction) (string, error)
	ListRecent(ctx context.Context, limit int) []domain.Transaction
	UpdateCategory(ctx context.Context, id string, category domain.Category, confidence float64) error
}

// Repository is the BigQuery-backed Store. It owns a shared client for its
// whole lifetime; callers construct one at process start and Close it on
// shutdown.
type Repository struct {
	client    *bigquery.Client
	projectID string
	datasetID string
	log       zerolog.Logger
}

// NewRepository creates a repository with a shared BigQuery client.
func NewRepository(ctx context.Context, projectID, datasetID string, log zerolog.Logger) (*Repository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewRepository: bigquery client: %w", err)
	}
	return &Repository{
		client:    client,
		projectID: projectID,
		datasetID: datasetID,
		log:       log,
	}, nil
}

// Close releases the underlying client.
func (r *Repository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// Insert writes one confirmed transaction and returns its id, generating a
// UUID when the caller did not supply one. Uses DML INSERT rather than the
// streaming inserter so the row is immediately updatable by UpdateCategory.
func (r *Repository) Insert(ctx context.Context, t *domain.Transaction) (string, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	row, err := rowFromTransaction(t)
	if err != nil {
		return "", fmt.Errorf("Insert: %w", err)
	}

	q := r.client.Query(fmt.Sprintf(`
		INSERT %s.%s (
			id, date, merchant, merchant_confidence,
			description, amount, amount_confidence,
			category, category_confidence, date_confidence,
			is_reconciled, metadata
		)
		VALUES (
			@id, @date, @merchant, @merchant_confidence,
			@description, @amount, @amount_confidence,
			@category, @category_confidence, @date_confidence,
			@is_reconciled, @metadata
		)
	`, r.datasetID, transactionsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "id", Value: row.ID},
		{Name: "date", Value: row.Date},
		{Name: "merchant", Value: row.Merchant},
		{Name: "merchant_confidence", Value: row.MerchantConfidence},
		{Name: "description", Value: row.Description},
		{Name: "amount", Value: row.Amount},
		{Name: "amount_confidence", Value: row.AmountConfidence},
		{Name: "category", Value: row.Category},
		{Name: "category_confidence", Value: row.CategoryConfidence},
		{Name: "date_confidence", Value: row.DateConfidence},
		{Name: "is_reconciled", Value: row.IsReconciled},
		{Name: "metadata", Value: row.Metadata},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return "", fmt.Errorf("Insert: running insert query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return "", fmt.Errorf("Insert: waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return "", fmt.Errorf("Insert: job error: %w", err)
	}

	return t.ID, nil
}

// ListRecent reads the newest transactions from the enriched view, most
// recent first. Query failures are logged and produce an empty slice; the
// caller always gets something renderable.
func (r *Repository) ListRecent(ctx context.Context, limit int) []domain.Transaction {
	if limit <= 0 {
		limit = 100
	}

	q := r.client.Query(fmt.Sprintf(`
		SELECT
			id, date, merchant, merchant_confidence,
			description, amount, amount_confidence,
			category, category_confidence, date_confidence,
			is_reconciled, metadata, last_updated
		FROM %s.%s
		ORDER BY date DESC
		LIMIT @limit
	`, r.datasetID, transactionsView))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "limit", Value: limit},
	}

	it, err := q.Read(ctx)
	if err != nil {
		r.log.Error().Err(err).Msg("ListRecent: query read failed")
		return []domain.Transaction{}
	}

	var out []domain.Transaction
	for {
		var row TransactionRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			r.log.Error().Err(err).Msg("ListRecent: iterating rows failed")
			return []domain.Transaction{}
		}
		out = append(out, transactionFromRow(&row))
	}

	if out == nil {
		out = []domain.Transaction{}
	}
	return out
}

// UpdateCategory reassigns a transaction's category. The category must be a
// member of the closed set; confidence is clamped into [0,1].
func (r *Repository) UpdateCategory(ctx context.Context, id string, category domain.Category, confidence float64) error {
	if !domain.IsValidCategory(string(category)) {
		return fmt.Errorf("UpdateCategory: invalid category %q, must be one of %v", category, domain.CategoryStrings())
	}
	if confidence < 0 {
		confidence = 0
	} else if confidence > 1 {
		confidence = 1
	}

	q := r.client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET category = @category,
		    category_confidence = @confidence,
		    last_updated = CURRENT_TIMESTAMP()
		WHERE id = @id
	`, r.datasetID, transactionsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "category", Value: string(category)},
		{Name: "confidence", Value: confidence},
		{Name: "id", Value: id},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("UpdateCategory: running update query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("UpdateCategory: waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("UpdateCategory: job error: %w", err)
	}

	return nil
}
