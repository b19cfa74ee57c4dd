package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"eduassist-backend/lib/configutil"
	"eduassist-backend/lib/configutil/sqlite"
	"eduassist-backend/lib/scrapers/eschool"
	"eduassist-backend/lib/serviceutil"
	"eduassist-backend/lib/telemetry"
	"eduassist-backend/lib/timezone"
	"eduassist-backend/lib/vault"
	"eduassist-backend/services/sis"
	"eduassist-backend/services/sis/store"
)

type Config struct {
	Database configsqlite.Struct `json:"database"`
	Port     int                 `json:"port"`
	// base url of the legacy portal deployment
	PortalBaseUrl string `json:"portal_baseurl"`
	// base64 encoded 32 byte master key
	MasterKey string `json:"master_key"`
	// minutes between poll cycles, 0 disables polling
	PollIntervalMinutes int               `json:"poll_interval_minutes"`
	Smtp                sis.AlerterConfig `json:"smtp"`
}

func main() {
	ctx := serviceutil.SignalContext()

	config, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("failed to load configuration", err)
	}

	tel, err := telemetry.SetupFromEnv(ctx, "sisd")
	if err != nil {
		serviceutil.Fatal("failed to initialize telemetry", err)
	}
	defer tel.Shutdown(context.Background())
	telemetry.InstrumentPerfStats(ctx)

	db, err := config.Database.OpenDB(store.Schema)
	if err != nil {
		serviceutil.Fatal("failed to open database", err)
	}
	st := store.New(db)

	v, err := vault.NewFromBase64(config.MasterKey)
	if err != nil {
		serviceutil.Fatal("failed to load master key", err)
	}

	client, err := eschool.NewClient(eschool.ClientOptions{
		BaseUrl: config.PortalBaseUrl,
	})
	if err != nil {
		serviceutil.Fatal("failed to create portal client", err)
	}

	var alerter *sis.Alerter
	if config.Smtp.Server != "" {
		alerter = sis.NewAlerter(config.Smtp)
	}

	service := sis.NewService(sis.ServiceOptions{
		Sessions: sis.NewSessionCache(sis.SessionCacheOptions{
			Credentials: st,
			Vault:       v,
			Acquirer:    client,
		}),
		Fetcher:  client,
		Datasets: st,
		Alerter:  alerter,
	})

	if config.PollIntervalMinutes > 0 {
		go pollDaemon(ctx, service, st, time.Minute*time.Duration(config.PollIntervalMinutes))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	go serviceutil.StartHttpServer(config.Port, mux)

	<-ctx.Done()
}

// pollDaemon refreshes every enrolled subject once per interval.
// Per-subject failures are logged and skipped, one broken account must
// not starve the rest.
func pollDaemon(ctx context.Context, service sis.Service, st store.Store, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		// the portal runs nightly batch jobs and drops sessions while
		// they run, polling then just burns logins
		if hour := timezone.Now().Hour(); hour < 6 {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			continue
		}

		subjects, err := st.ListSubjects(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "failed to list enrolled subjects", "err", err)
		}
		for _, subjectID := range subjects {
			_, err := service.FetchAndReconcile(ctx, subjectID)
			if err != nil {
				slog.WarnContext(
					ctx, "scheduled refresh failed",
					"subject_id", subjectID,
					"err", err,
				)
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
