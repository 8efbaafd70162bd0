// Command coverdrift runs the cover-traffic scheduler: a stochastic
// activity planner that continuously generates synthetic browsing,
// search, and DNS events to blend real usage into the surrounding noise.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/coverdrift/coverdrift/internal/config"
	"github.com/coverdrift/coverdrift/internal/control"
	"github.com/coverdrift/coverdrift/internal/engine"
	"github.com/coverdrift/coverdrift/internal/persist"
	"github.com/coverdrift/coverdrift/internal/planner"
	"github.com/coverdrift/coverdrift/internal/producer"
	"github.com/coverdrift/coverdrift/internal/scheduler"
	"github.com/coverdrift/coverdrift/internal/stats"
	"github.com/coverdrift/coverdrift/internal/topics"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (defaults to the XDG config path)")
	port := flag.Int("port", 0, "Override control surface port")
	flag.Parse()

	log := logrus.New()

	cfgPath := *configPath
	if cfgPath == "" {
		cfgPath = config.DefaultConfigPath()
	}

	cfg, err := config.LoadOrDefault(cfgPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("fatal error")
	}
}

func run(cfg *config.Config, log *logrus.Logger) error {
	persistStore := persist.NewStore(cfg.Persist.Dir)

	var timing planner.TimingState
	if cfg.Persist.Enabled {
		if loaded, ok, err := persistStore.Load(); err != nil {
			log.WithError(err).Warn("could not load persisted timing state, starting fresh")
		} else if ok {
			timing = loaded
			log.WithField("drift_seed", timing.DriftSeed).Info("restored persisted timing state")
		}
	}

	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))

	rm := planner.NewRateModel(planner.Intensity(cfg.Intensity), timing.DriftSeed, entropy)
	sessionCfg := cfg.PlannerSessionConfig()
	timer := planner.NewTimer(rm, sessionCfg, [3]int64{entropy.Int63(), entropy.Int63(), entropy.Int63()})
	chain := planner.NewChain(entropy.Int63())
	obsession := planner.NewObsessionTracker(sessionCfg, entropy.Int63())

	registry := engine.NewRegistry(int64(cfg.Session.MaxConcurrentSessions), log)
	registerEngines(registry, cfg, log)

	wordlists := topics.Load(cfg.Wordlists, entropy.Int63(), log)

	counters := stats.NewCounters(time.Now())
	sched := scheduler.New(chain, timer, obsession, registry, counters, log, wordlists.Categories())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sched.Run(ctx)
	}()

	broadcaster := control.NewBroadcaster(func() stats.Snapshot {
		return counters.Snapshot(registry, time.Now())
	}, 5*time.Second, log)
	defer broadcaster.Stop()

	server := control.NewServer(registry, rm, counters, broadcaster, cfg.Server.AuthToken, cfg.Server.AllowedOrigins, log)
	mux := http.NewServeMux()
	server.SetupRoutes(mux)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutting down")
		cancel()
		wg.Wait()

		if cfg.Persist.Enabled {
			state := planner.TimingState{DriftSeed: rm.DriftSeed()}
			if err := persistStore.Save(state); err != nil {
				log.WithError(err).Warn("failed to persist timing state")
			}
		}
		os.Exit(0)
	}()

	return control.ListenAndServe(cfg.Server.Host, cfg.Server.Port, mux, log)
}

// registerEngines wires the concrete traffic producers named in cfg into
// the registry, skipping any HTTP producer whose endpoint is unset. dns
// takes no endpoint and is registered whenever its worker pool starts.
func registerEngines(registry *engine.Registry, cfg *config.Config, log *logrus.Logger) {
	const producerTimeout = 15 * time.Second

	if cfg.Engines.Browse.Endpoint != "" {
		registry.Register("browse", producer.NewBrowse(cfg.Engines.Browse.Endpoint, producerTimeout, log), cfg.Engines.Browse.Enabled)
	}
	if cfg.Engines.Search.Endpoint != "" {
		registry.Register("search", producer.NewSearch(cfg.Engines.Search.Endpoint, producerTimeout, log), cfg.Engines.Search.Enabled)
	}

	dnsProducer, err := producer.NewDNS(4, func(topic string) string {
		if topic == "" {
			return "example.com"
		}
		return fmt.Sprintf("%s.example.com", topic)
	}, log)
	if err != nil {
		log.WithError(err).Warn("failed to initialize dns producer, skipping")
	} else {
		registry.Register("dns", dnsProducer, cfg.Engines.DNS.Enabled)
	}

	if cfg.Engines.AdClick.Endpoint != "" {
		registry.Register("adclick", producer.NewAdClick(cfg.Engines.AdClick.Endpoint, producerTimeout, log), cfg.Engines.AdClick.Enabled)
	}
}
