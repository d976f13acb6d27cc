package warehouse

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/receipt-ledger/internal/domain"
)

// Runs against a real dataset; set GCP_PROJECT and BQ_DATASET (with the
// migrations applied) to enable it.
func TestRepositoryInsert_Integration(t *testing.T) {
	project := os.Getenv("GCP_PROJECT")
	dataset := os.Getenv("BQ_DATASET")
	if project == "" || dataset == "" {
		t.Skip("set GCP_PROJECT and BQ_DATASET to run warehouse integration tests")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	repo, err := NewRepository(ctx, project, dataset, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewRepository failed: %v", err)
	}
	defer repo.Close()

	tx1 := domain.Transaction{
		Date:             time.Now().UTC(),
		Merchant:         "Integration Cafe",
		Amount:           1.23,
		AmountConfidence: 0.9,
		Category:         domain.CategoryOther,
	}
	id1, err := repo.Insert(ctx, &tx1)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if id1 == "" {
		t.Fatal("Insert returned an empty id")
	}

	tx2 := domain.Transaction{
		Date:     time.Now().UTC(),
		Merchant: "Integration Cafe",
		Category: domain.CategoryOther,
	}
	id2, err := repo.Insert(ctx, &tx2)
	if err != nil {
		t.Fatalf("second Insert failed: %v", err)
	}
	if id2 == "" || id2 == id1 {
		t.Fatalf("generated ids not unique: %q vs %q", id1, id2)
	}

	// The DML insert path must leave the row immediately updatable.
	if err := repo.UpdateCategory(ctx, id1, domain.CategoryMeals, 0.9); err != nil {
		t.Fatalf("UpdateCategory right after insert failed: %v", err)
	}
}
