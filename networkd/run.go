// Copyright 2025 ClassBlogs
// SPDX-License-Identifier: BUSL-1.1
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package networkd wires the blog network daemon together: tenant store,
// component registry, aggregation engine, and the admin HTTP API.
package networkd

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/go-redis/redis/v8"

	"classblogs/platform/admin"
	"classblogs/platform/aggregator"
	"classblogs/platform/components/report"
	"classblogs/platform/components/sitewide"
	"classblogs/platform/config"
	"classblogs/platform/events"
	"classblogs/platform/options"
	"classblogs/platform/plugins/base"
	"classblogs/platform/plugins/registry"
	"classblogs/platform/shared/logger"
	"classblogs/platform/tenants"
	"classblogs/platform/tenants/mysql"
	"classblogs/platform/tenants/postgres"
)

// Run is the exported entry point for the network daemon.
//
// It loads configuration, connects the tenant content store, builds the
// component registry, and starts the admin HTTP server. The function
// blocks until the server is shut down.
//
// Environment variables used:
//   - NETWORK_CONFIG: path to the YAML config file (optional)
//   - PORT, DATABASE_URL, JWT_SECRET and friends when no file is given
func Run() {
	log.Println("Starting ClassBlogs network daemon...")

	cfg, err := config.Load(os.Getenv("NETWORK_CONFIG"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	appLogger := logger.New("networkd")
	network := cfg.NetworkConfig()

	// Tenant content store
	store, db, err := openTenantStore(cfg)
	if err != nil {
		log.Fatalf("Failed to open tenant store: %v", err)
	}
	defer db.Close()

	switcher := tenants.NewSwitcher(store, network)

	// Options, backed by the same network database. The option tables use
	// postgres placeholders; mysql deployments fall back to the in-memory
	// store until the schema gains mysql support.
	var optionStore base.OptionStore
	if cfg.Database.Driver == "postgres" {
		dbOptions := options.NewStore(db, switcher.Current, 0)
		if err := dbOptions.InitSchema(); err != nil {
			log.Fatalf("Failed to initialize option tables: %v", err)
		}
		optionStore = dbOptions
	} else {
		log.Println("Option persistence unavailable on mysql; options reset on restart")
		optionStore = options.NewMemoryStore(switcher.Current)
	}

	// Aggregation
	directory, ok := store.(tenants.UserDirectory)
	if !ok {
		log.Fatalf("Tenant store %T does not provide a user directory", store)
	}
	engine := aggregator.NewEngine(store, switcher, directory, cfg.ScanBudget())

	var snapshots *aggregator.SnapshotStore
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis at %s: %v", cfg.Redis.Addr, err)
		}
		snapshots = aggregator.NewSnapshotStore(client, cfg.SnapshotTTL())
		log.Printf("Aggregate snapshot mirror enabled at %s", cfg.Redis.Addr)
	}
	cache := aggregator.NewCache(engine, cfg.MaxAge(), snapshots)

	// Component registry. The disabled set persists in the network
	// database on postgres; mysql deployments hold it in memory until the
	// schema gains mysql upsert support.
	var disabledStore registry.DisabledStore
	if cfg.Database.Driver == "postgres" {
		storage := registry.NewPostgreSQLStorageWithDB(db)
		if err := storage.InitSchema(); err != nil {
			log.Fatalf("Failed to initialize component settings storage: %v", err)
		}
		disabledStore = storage
	} else {
		log.Println("Component settings persistence unavailable on mysql; toggles reset on restart")
		disabledStore = registry.NewMemoryDisabledStore()
	}

	env := &base.Env{
		Options: optionStore,
		Logger:  appLogger,
		Network: network,
	}
	reg, err := registry.New(ctx, env, disabledStore)
	if err != nil {
		log.Fatalf("Failed to create component registry: %v", err)
	}

	// Components register in a fixed alphabetical order so every start
	// produces the same registry contents.
	if err := reg.Register(ctx, sitewide.ComponentID, func(e *base.Env) (base.Component, error) {
		return sitewide.New(e, cache), nil
	}, registry.WithDisplayName("Sitewide Feed"), registry.WithDescription("Front-page feed and tag cloud for the whole network")); err != nil {
		log.Fatalf("Failed to register %s: %v", sitewide.ComponentID, err)
	}
	if err := reg.Register(ctx, report.ComponentID, func(e *base.Env) (base.Component, error) {
		return report.New(e, cache), nil
	}, registry.WithDisplayName("Student Report"), registry.WithDescription("Per-student post and comment activity summaries")); err != nil {
		log.Fatalf("Failed to register %s: %v", report.ComponentID, err)
	}

	// Events
	bus := events.NewBus()
	for _, sub := range cache.Subscriptions() {
		if err := bus.Subscribe(sub); err != nil {
			log.Fatalf("Failed to wire aggregate invalidation: %v", err)
		}
	}
	if err := reg.WireSubscriptions(bus); err != nil {
		log.Fatalf("Failed to wire component subscriptions: %v", err)
	}

	log.Printf("Registered %d components (%d enabled)", reg.Count(), len(reg.ListEnabled()))

	// Admin API. The report endpoint is only backed when the component is
	// active; a disabled component must not keep serving through a side door.
	var reports admin.StudentReporter
	if instance, ok := reg.Get(report.ComponentID); ok {
		reports = instance.(*report.Component)
	}
	server := admin.NewServer(admin.Config{
		Registry:   reg,
		Aggregates: cache,
		Reports:    reports,
		JWTSecret:  []byte(cfg.Server.JWTSecret),
		Logger:     appLogger,
	})

	log.Printf("ClassBlogs network daemon listening on port %s", cfg.Server.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Server.Port, server.Handler()))
}

// openTenantStore connects the configured database driver and returns the
// tenant content store bound to it.
func openTenantStore(cfg *config.File) (tenants.Store, *sql.DB, error) {
	switch cfg.Database.Driver {
	case "postgres":
		store, err := postgres.Open(cfg.Database.URL, cfg.Database.SchemaPrefix)
		if err != nil {
			return nil, nil, err
		}
		return store, store.DB(), nil
	case "mysql":
		store, err := mysql.Open(cfg.Database.URL, cfg.Database.DBPrefix, cfg.Database.NetworkDB)
		if err != nil {
			return nil, nil, err
		}
		return store, store.DB(), nil
	default:
		return nil, nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}
