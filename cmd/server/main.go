// Command server runs the F1 telemetry service plane: the HTTP control API,
// the WebSocket subscribe bridge, and the Championship Manager that starts
// and stops per-championship UDP listeners. Wiring is grounded on the
// teacher's main.go (flags for process-local knobs, a persisted store
// opened up front, signal-driven graceful shutdown) generalized to
// spec.md §6's environment-variable configuration surface.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"intelliserver/internal/championship"
	"intelliserver/internal/config"
	"intelliserver/internal/firewall"
	"intelliserver/internal/httpapi"
	"intelliserver/internal/ports"
	"intelliserver/internal/ratelimit"
	"intelliserver/internal/store"
	"intelliserver/internal/token"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP control API listen address")
	tokenSnapshot := flag.String("token-snapshot", "tokens.bin", "path to the token manager's persisted snapshot")
	nftables := flag.Bool("nftables", false, "apply firewall rules with nft instead of logging them only")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	st, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("store open failed")
	}
	defer st.Close()

	champs := store.NewChampionshipRepository(st)
	drivers := store.NewDriverRepository(st)
	results := store.NewRaceResultRepository(st)

	pool, err := ports.New(cfg.PortRangeStart, cfg.PortRangeEnd, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("port pool init failed")
	}

	var runner firewall.Runner = loggingRunner{}
	if *nftables {
		runner = firewall.NFTRunner{}
	}
	fw := firewall.New(runner)
	defer fw.RecoverAndCloseAll()

	mgr := championship.New(pool, fw, championship.DefaultDialer, drivers, results)

	tokens := token.New()
	tokens.LoadSnapshotOrEmpty(*tokenSnapshot)

	gate := ratelimit.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("shutdown signal received")
		cancel()
	}()

	purgeStop := make(chan struct{})
	go tokens.StartPurgeLoop(purgeStop, cfg.TokenPurgeInterval, *tokenSnapshot)

	srv := httpapi.New(mgr, champs, tokens, gate)

	log.Info().Str("addr", *addr).Msg("starting http control api")
	if err := srv.Run(ctx, *addr); err != nil {
		log.Error().Err(err).Msg("http control api exited with error")
	}

	close(purgeStop)
	if err := tokens.SaveSnapshot(*tokenSnapshot); err != nil {
		log.Error().Err(err).Msg("token snapshot save failed")
	}

	shutdownDeadline := time.Now().Add(5 * time.Second)
	for _, status := range mgr.Enumerate() {
		if status.Active {
			_ = mgr.StopService(status.ChampionshipID)
		}
	}
	for time.Now().Before(shutdownDeadline) && pool.Available() < cfg.PortRangeEnd-cfg.PortRangeStart {
		time.Sleep(50 * time.Millisecond)
	}

	log.Info().Msg("shutdown complete")
}

// loggingRunner is the default Firewall Runner when -nftables is not set:
// it logs the script it would have applied instead of shelling out, so the
// control plane is exercisable on a machine without nft/root privileges.
type loggingRunner struct{}

func (loggingRunner) Run(script string) error {
	log.Debug().Str("script", script).Msg("firewall: would apply nft script")
	return nil
}
