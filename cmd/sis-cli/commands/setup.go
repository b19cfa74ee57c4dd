package commands

import (
	"eduassist-backend/lib/configutil"
	"eduassist-backend/lib/configutil/sqlite"
	"eduassist-backend/lib/scrapers/eschool"
	"eduassist-backend/lib/serviceutil"
	"eduassist-backend/lib/vault"
	"eduassist-backend/services/sis"
	"eduassist-backend/services/sis/store"
)

type Config struct {
	Database      configsqlite.Struct `json:"database"`
	PortalBaseUrl string              `json:"portal_baseurl"`
	MasterKey     string              `json:"master_key"`
}

// setup wires the store, vault and pipeline the same way sisd does,
// against the daemon's database file.
func setup() (sis.Service, store.Store, *vault.Vault) {
	config, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}

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

	service := sis.NewService(sis.ServiceOptions{
		Sessions: sis.NewSessionCache(sis.SessionCacheOptions{
			Credentials: st,
			Vault:       v,
			Acquirer:    client,
		}),
		Fetcher:  client,
		Datasets: st,
	})
	return service, st, v
}
