package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"autopay-billing/internal/config"
	"autopay-billing/internal/domain/model"
	"autopay-billing/internal/domain/ports/repository"
	pg "autopay-billing/internal/infra/db/postgres"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()
	if err := pg.EnsureSchema(ctx, pool); err != nil {
		log.Fatalf("schema: %v", err)
	}

	planRepo := pg.NewPostgresPlanRepo(pool)

	// If plans already exist, do nothing
	plans, err := planRepo.ListAll(ctx, repository.NoTx)
	if err != nil {
		log.Fatalf("list plans: %v", err)
	}
	if len(plans) > 0 {
		fmt.Printf("%d plans already present. No changes.\n", len(plans))
		for _, p := range plans {
			fmt.Printf("  - %s (amount=%d %s every %s)\n", p.Name, p.Amount, p.Currency, p.Interval)
		}
		return
	}

	// Seed a few sample plans for exercising the billing flow
	seed := []struct {
		Name     string
		Amount   int64
		Interval time.Duration
		Retries  int
	}{
		{"Starter", 1_00, 24 * time.Hour, 2},
		{"Pro", 9_99, 24 * time.Hour, 3},
		{"Ultra", 49_99, 7 * 24 * time.Hour, 3},
	}

	for _, s := range seed {
		p, err := model.NewPlan("merchant-demo", "acct:merchant-demo", s.Name, "USD", s.Amount, s.Interval, s.Retries)
		if err != nil {
			log.Fatalf("build plan %q: %v", s.Name, err)
		}
		if err := planRepo.Save(ctx, repository.NoTx, p); err != nil {
			log.Fatalf("save plan %q: %v", s.Name, err)
		}
		fmt.Printf("seeded: %s (id=%s, amount=%d USD, interval=%s, retries=%d)\n", p.Name, p.ID, p.Amount, p.Interval, p.MaxFailures)
	}

	fmt.Println("✅ Seeding complete.")
}
