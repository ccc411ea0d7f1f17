package history

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/opengov-pk/shafaf/internal/cache"
	"github.com/opengov-pk/shafaf/internal/domain"
	"github.com/opengov-pk/shafaf/internal/repository"
)

func TestSupplierProfile(t *testing.T) {
	// Create temp database
	tmpFile, err := os.CreateTemp("", "history-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	defer os.Remove(tmpPath)

	// Create repository
	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: tmpPath,
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	defer repo.Close()

	// Create cache
	lruCache := cache.NewLRUCache(100)
	defer lruCache.Close()

	svc := NewService(repo, lruCache)

	ctx := context.Background()

	t.Run("UnknownSupplier", func(t *testing.T) {
		stats, err := svc.SupplierProfile(ctx, "Nobody Ltd")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stats.ContractCount != 0 {
			t.Errorf("expected 0 contracts for unknown supplier, got %d", stats.ContractCount)
		}
	})

	t.Run("WithContracts", func(t *testing.T) {
		for i := 0; i < 4; i++ {
			contract := &domain.Contract{
				ID:             fmt.Sprintf("con-%d", i),
				ContractNumber: fmt.Sprintf("CONTRACT-10%d", i),
				Description:    "Road resurfacing",
				Amount:         2000000,
				Supplier:       "ABC Construction",
				Country:        "Pakistan",
				AwardDate:      time.Date(2023, 3, 1+i, 0, 0, 0, 0, time.UTC),
				DurationMonths: 12,
				BidCount:       4,
				RiskScore:      0.4,
				RiskLevel:      domain.RiskLow,
				CreatedAt:      time.Now().UTC(),
			}
			if err := repo.InsertContract(ctx, contract); err != nil {
				t.Fatalf("failed to insert contract: %v", err)
			}
		}

		stats, err := svc.SupplierProfile(ctx, "ABC Construction")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stats.ContractCount != 4 {
			t.Errorf("expected 4 contracts, got %d", stats.ContractCount)
		}
		if stats.MeanValue != 2000000 {
			t.Errorf("expected mean 2000000, got %.2f", stats.MeanValue)
		}
		if stats.MeanRisk != 0.4 {
			t.Errorf("expected mean risk 0.4, got %.2f", stats.MeanRisk)
		}
	})

	t.Run("CachesProfile", func(t *testing.T) {
		// First call populates the cache
		if _, err := svc.SupplierProfile(ctx, "ABC Construction"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		data, err := lruCache.Get(ctx, domain.CacheKeySupplier+"ABC Construction")
		if err != nil {
			t.Fatalf("cache get failed: %v", err)
		}
		if data == nil {
			t.Error("expected supplier profile to be cached")
		}
	})

	t.Run("RequiresSupplier", func(t *testing.T) {
		_, err := svc.SupplierProfile(ctx, "")
		if err == nil {
			t.Error("expected error for empty supplier")
		}
	})
}

func TestSupplierProfileWithoutCache(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "history-nocache-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	defer os.Remove(tmpPath)

	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: tmpPath,
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	defer repo.Close()

	svc := NewService(repo, nil)

	stats, err := svc.SupplierProfile(context.Background(), "Anyone")
	if err != nil {
		t.Fatalf("unexpected error without cache: %v", err)
	}
	if stats.ContractCount != 0 {
		t.Errorf("expected 0 contracts, got %d", stats.ContractCount)
	}
}
