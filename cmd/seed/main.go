// File: cmd/seed/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"recruitment-billing/internal/config"
	"recruitment-billing/internal/domain/model"
	pg "recruitment-billing/internal/infra/db/postgres"
	"recruitment-billing/internal/infra/logging"
	"recruitment-billing/internal/usecase"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pg.Connect(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	pkgRepo := pg.NewPackageRepo(pool)
	txManager := pg.NewTxManager(pool)
	pkgUC := usecase.NewPackageUseCase(pkgRepo, txManager, logger)

	// If the catalog is already populated, do nothing.
	existing, err := pkgUC.ListActive(ctx)
	if err != nil {
		log.Fatalf("list packages: %v", err)
	}
	if len(existing) > 0 {
		fmt.Printf("%d packages already present. No changes.\n", len(existing))
		for _, p := range existing {
			fmt.Printf("  - %s v%d (%s, %d %s, %d days)\n", p.Code, p.Version, p.PackageType, p.Price, p.Currency, p.DurationDays)
		}
		return
	}

	seed := []struct {
		Code     string
		Name     string
		Type     model.PackageType
		Price    int64
		Currency string
		Days     int
		Quotas   map[string]int
	}{
		{"JOB_FREE", "Free Posting", model.PackageTypeJobPosting, 0, "VND", 30, map[string]int{model.QuotaJobPosts: 1}},
		{"JOB_BASIC", "Basic Posting", model.PackageTypeJobPosting, 500_000, "VND", 30, map[string]int{model.QuotaJobPosts: 5}},
		{"JOB_PRO", "Pro Posting", model.PackageTypeJobPosting, 1_500_000, "VND", 30, map[string]int{model.QuotaJobPosts: 20, model.QuotaFeatured: 3}},
		{"FEATURED_5", "Featured Jobs x5", model.PackageTypeFeaturedJob, 900_000, "VND", 30, map[string]int{model.QuotaFeatured: 5}},
		{"URGENT_3", "Urgent Badge x3", model.PackageTypeUrgentJob, 600_000, "VND", 14, map[string]int{model.QuotaUrgent: 3}},
		{"CV_SEARCH_100", "CV Database 100 views", model.PackageTypeCVDatabase, 2_000_000, "VND", 30, map[string]int{model.QuotaCVViews: 100}},
		{"PREMIUM_MONTH", "Premium Account", model.PackageTypePremiumAccount, 2_900_000, "VND", 30, map[string]int{model.QuotaJobPosts: model.QuotaUnlimited, model.QuotaCVViews: 300}},
	}

	for _, s := range seed {
		p, err := pkgUC.Create(ctx, s.Code, s.Name, s.Type, s.Price, s.Currency, s.Days, s.Quotas)
		if err != nil {
			log.Fatalf("create package %q: %v", s.Code, err)
		}
		fmt.Printf("seeded: %s (id=%s, %d %s, %d days)\n", p.Code, p.ID, p.Price, p.Currency, p.DurationDays)
	}

	fmt.Println("Seeding complete.")
}
