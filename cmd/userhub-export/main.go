// Command userhub-export enumerates every user account of a UserHub project
// and writes them as newline-delimited JSON, one record per line. Exports can
// resume from a page token after an interruption.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/userhub/userhub-admin-go/pkg/auth"
	"github.com/userhub/userhub-admin-go/pkg/credentials"
	"github.com/userhub/userhub-admin-go/pkg/logging"
	"github.com/userhub/userhub-admin-go/pkg/tokencache"
	"github.com/userhub/userhub-admin-go/pkg/transport"
)

// progressInterval is how many exported records pass between progress logs.
const progressInterval = 1000

// config is populated from the environment.
type config struct {
	APIURL    string `env:"USERHUB_API_URL" envDefault:"https://identity.userhub.io"`
	ProjectID string `env:"USERHUB_PROJECT_ID"`

	// Credentials: a service account key file, an OAuth2 client, or a
	// static token for emulators. The first one configured wins.
	ServiceAccountFile string `env:"USERHUB_SERVICE_ACCOUNT_FILE"`
	ClientID           string `env:"USERHUB_CLIENT_ID"`
	ClientSecret       string `env:"USERHUB_CLIENT_SECRET"`
	TokenURL           string `env:"USERHUB_TOKEN_URL" envDefault:"https://identity.userhub.io/oauth/token"`
	AccessToken        string `env:"USERHUB_ACCESS_TOKEN"`

	PageSize  int    `env:"USERHUB_PAGE_SIZE" envDefault:"1000"`
	PageToken string `env:"USERHUB_PAGE_TOKEN"`
	Output    string `env:"USERHUB_OUTPUT" envDefault:"-"`

	RedisAddr  string `env:"USERHUB_REDIS_ADDR"`
	ListenAddr string `env:"USERHUB_LISTEN_ADDR"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty bool   `env:"LOG_PRETTY" envDefault:"false"`
}

// loadConfig parses the environment and checks the fields the parser cannot.
func loadConfig() (config, error) {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		return config{}, fmt.Errorf("parse env: %w", err)
	}

	if cfg.ProjectID == "" {
		return config{}, errors.New("USERHUB_PROJECT_ID is required")
	}
	if cfg.PageSize < 0 {
		return config{}, fmt.Errorf("USERHUB_PAGE_SIZE must not be negative, got %d", cfg.PageSize)
	}

	return cfg, nil
}

// tokenSource is satisfied by every pkg/credentials implementation.
type tokenSource interface {
	Token(ctx context.Context) (string, error)
	TokenWithExpiry(ctx context.Context) (string, time.Time, error)
}

// buildTokenSource picks the configured credential mechanism, preferring a
// service account key over client credentials over a static token.
func buildTokenSource(cfg config) (tokenSource, error) {
	switch {
	case cfg.ServiceAccountFile != "":
		return credentials.NewServiceAccountSourceFromFile(cfg.ServiceAccountFile)
	case cfg.ClientID != "" || cfg.ClientSecret != "":
		return credentials.NewClientCredentialsSource(credentials.ClientCredentialsConfig{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
		})
	case cfg.AccessToken != "":
		return credentials.NewStaticSource(cfg.AccessToken), nil
	default:
		return nil, errors.New("no credentials configured: set USERHUB_SERVICE_ACCOUNT_FILE, USERHUB_CLIENT_ID/USERHUB_CLIENT_SECRET, or USERHUB_ACCESS_TOKEN")
	}
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		// Logging is not configured yet.
		fmt.Fprintf(os.Stderr, "userhub-export: %v\n", err)
		os.Exit(1)
	}

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.LogLevel),
		Pretty: cfg.LogPretty,
		Output: os.Stderr,
	})
	logger := logging.NewLogger("userhub-export")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		evt := logger.Error().Err(err)
		if code := auth.CodeOf(err); code != "" {
			evt = evt.Str("code", string(code))
		}
		evt.Msg("Export failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config, logger zerolog.Logger) error {
	source, err := buildTokenSource(cfg)
	if err != nil {
		return err
	}

	// Redis is optional. With it, quota state and minted tokens are shared
	// across every exporter pointed at the same instance.
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			return fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		defer redisClient.Close()

		source = credentials.NewCachedSource(source, tokencache.NewManager(redisClient), tokencache.Key{
			ProjectID: cfg.ProjectID,
			ClientID:  cfg.ClientID,
		})
		logger.Info().Str("redis_addr", cfg.RedisAddr).Msg("Shared quota state and token cache enabled")
	}

	tp, err := transport.New(transport.Config{
		Redis:       redisClient,
		BaseURL:     cfg.APIURL,
		ProjectID:   cfg.ProjectID,
		TokenSource: source,
		UserAgent:   "userhub-export/1.0",
	})
	if err != nil {
		return fmt.Errorf("create transport client: %w", err)
	}

	client, err := auth.New(auth.Config{Transport: tp})
	if err != nil {
		return fmt.Errorf("create auth client: %w", err)
	}

	if cfg.ListenAddr != "" {
		go serveMonitoring(cfg.ListenAddr, logger)
	}

	out := os.Stdout
	if cfg.Output != "" && cfg.Output != "-" {
		f, err := os.Create(cfg.Output)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	logger.Info().
		Str("project_id", cfg.ProjectID).
		Str("api_url", cfg.APIURL).
		Int("page_size", cfg.PageSize).
		Msg("Starting user export")

	start := time.Now()
	w := bufio.NewWriter(out)
	exported, exportErr := exportUsers(ctx, client, cfg, w, logger)
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	if exportErr != nil {
		return exportErr
	}

	logger.Info().
		Int("exported", exported).
		Dur("duration", time.Since(start)).
		Msg("Export complete")
	return nil
}

// exportUsers walks the account set from the configured start token and
// writes one JSON object per line. It returns how many records were written;
// on failure the log carries the token to resume from.
func exportUsers(ctx context.Context, client *auth.Client, cfg config, out io.Writer, logger zerolog.Logger) (int, error) {
	it, err := client.UsersWithPageSize(ctx, cfg.PageToken, cfg.PageSize)
	if err != nil {
		return 0, err
	}

	enc := json.NewEncoder(out)
	exported := 0
	for {
		user, err := it.Next()
		if errors.Is(err, auth.Done) {
			break
		}
		if err != nil {
			logger.Error().
				Err(err).
				Int("exported", exported).
				Str("resume_token", it.PageToken()).
				Msg("Enumeration failed; set USERHUB_PAGE_TOKEN to resume")
			return exported, err
		}

		if err := enc.Encode(user); err != nil {
			return exported, fmt.Errorf("encode user %s: %w", user.UID, err)
		}
		exported++

		if exported%progressInterval == 0 {
			logger.Info().
				Int("exported", exported).
				Str("page_token", it.PageToken()).
				Msg("Export progress")
		}
	}

	return exported, nil
}

// serveMonitoring exposes /health and /metrics while an export runs.
func serveMonitoring(addr string, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	})
	mux.Handle("/metrics", promhttp.Handler())

	logger.Info().Str("listen_addr", addr).Msg("Monitoring listener started")
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error().Err(err).Msg("Monitoring listener failed")
	}
}
