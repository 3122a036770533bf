// Command providerkey stores or rotates a provider API key in the
// provider_credentials table. Keys set here are the fallback for both the
// API and the worker when the corresponding environment variable is unset,
// so a rotation takes effect without a redeploy.
//
// Usage:
//
//	providerkey -provider gemini -key <key>
//	providerkey -provider openai          (key read from OPENAI_API_KEY)
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"server/internal/infra"
	"server/internal/infra/credentials"
)

func main() {
	var (
		keyFlag      string
		providerFlag string
	)
	flag.StringVar(&keyFlag, "key", "", "API key to store (falls back to the provider's environment variable)")
	flag.StringVar(&providerFlag, "provider", credentials.ProviderGemini, "provider to configure (gemini or openai)")
	flag.Parse()

	_ = godotenv.Load()

	provider := strings.TrimSpace(strings.ToLower(providerFlag))
	if provider == "" {
		provider = credentials.ProviderGemini
	}

	var envVar string
	switch provider {
	case credentials.ProviderGemini:
		envVar = "GEMINI_API_KEY"
	case credentials.ProviderOpenAI:
		envVar = "OPENAI_API_KEY"
	default:
		fatalf("unsupported provider %q (want gemini or openai)", providerFlag)
	}

	key := strings.TrimSpace(keyFlag)
	if key == "" {
		key = strings.TrimSpace(os.Getenv(envVar))
	}
	if key == "" {
		fatalf("%s key is required via -key or %s", provider, envVar)
	}

	cfg, err := infra.LoadConfig()
	if err != nil {
		fatalf("load config: %v", err)
	}
	logger := infra.NewLogger(cfg.AppEnv).With().Str("cmd", "providerkey").Logger()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		fatalf("connect database: %v", err)
	}
	defer pool.Close()

	store := credentials.NewStore(infra.NewSQLRunner(pool, logger))
	if err := store.SetAPIKey(ctx, provider, key); err != nil {
		fatalf("store %s key: %v", provider, err)
	}

	logger.Info().Str("provider", provider).Msg("providerkey: key stored")
	fmt.Printf("%s key stored\n", provider)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "providerkey: "+format+"\n", args...)
	os.Exit(1)
}
