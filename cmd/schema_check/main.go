package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"bar-bartender/internal/config"
	"bar-bartender/internal/db"
	"bar-bartender/internal/schema"
)

// schema_check corre el reconciliador contra la base configurada dos veces y
// reporta cada paso. La segunda pasada no debe aplicar ni fallar ningun paso.
func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	store, err := db.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	defer store.Close()

	if err := store.Ping(ctx); err != nil {
		log.Fatalf("db ping: %v", err)
	}

	reconciler := schema.NewReconciler(store, zap.NewNop())
	failed := 0
	for pass := 1; pass <= 2; pass++ {
		fmt.Printf("=== Pasada %d (%s) ===\n", pass, store.Dialect.Name())
		counts := map[schema.Outcome]int{}
		for _, res := range reconciler.Ensure(ctx) {
			counts[res.Outcome]++
			switch res.Outcome {
			case schema.OutcomeFailed:
				failed++
				fmt.Printf("❌ FAIL [%s] %v\n", res.Step, res.Err)
			case schema.OutcomeApplied:
				if pass > 1 {
					failed++
					fmt.Printf("❌ NOT IDEMPOTENT [%s] applied again\n", res.Step)
					continue
				}
				fmt.Printf("✅ APPLIED [%s]\n", res.Step)
			default:
				fmt.Printf("·  %s [%s]\n", res.Outcome, res.Step)
			}
		}
		fmt.Printf("applied=%d already_applied=%d skipped=%d failed=%d\n\n",
			counts[schema.OutcomeApplied], counts[schema.OutcomeAlreadyApplied],
			counts[schema.OutcomeSkipped], counts[schema.OutcomeFailed])
	}

	if failed > 0 {
		fmt.Printf("Pasos fallidos: %d\n", failed)
		os.Exit(1)
	}
	fmt.Println("Esquema reconciliado")
}
