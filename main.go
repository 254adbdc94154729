package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/rs/zerolog/log"

	"github.com/tanpawarit/coach-agent/agent/agents/coordinator"
	"github.com/tanpawarit/coach-agent/agent/agents/responder"
	contractx "github.com/tanpawarit/coach-agent/agent/contract"
	llmx "github.com/tanpawarit/coach-agent/agent/llm"
	notifyx "github.com/tanpawarit/coach-agent/agent/notify"
	statex "github.com/tanpawarit/coach-agent/agent/state"
	toolx "github.com/tanpawarit/coach-agent/agent/tool"
	"github.com/tanpawarit/coach-agent/api"
	configx "github.com/tanpawarit/coach-agent/pkg/config"
	larkx "github.com/tanpawarit/coach-agent/pkg/lark"
	_ "github.com/tanpawarit/coach-agent/pkg/logger/autoload"
	openrouterx "github.com/tanpawarit/coach-agent/pkg/openrouter"
	qstashx "github.com/tanpawarit/coach-agent/pkg/qstash"
)

const purgeInterval = 15 * time.Minute

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	llmCfg := configx.MustNew[llmx.Config]("LLM")
	storeCfg := configx.MustNew[statex.Config]("STORE")
	upstashCfg := configx.MustNew[statex.UpstashRedisConfig]("UPSTASH_REDIS")
	larkCfg := configx.MustNew[larkx.Config]("LARK")
	qstashCfg := configx.MustNew[qstashx.Config]("QSTASH")
	coordCfg := configx.MustNew[coordinator.Config]("COORDINATOR")
	httpCfg := configx.MustNew[api.Config]("HTTP")

	store, closeStore, err := statex.Open(ctx, *storeCfg, *upstashCfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", storeCfg.Backend).Msg("open conversation store")
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Warn().Err(err).Msg("close conversation store")
		}
	}()
	if pg, ok := store.(*statex.PostgresStore); ok {
		go purgeExpired(ctx, pg)
	}

	notifier, closeNotifier := buildNotifier(*larkCfg, *qstashCfg)
	defer closeNotifier()

	tools, err := toolx.NewGateway(notifier)
	if err != nil {
		log.Fatal().Err(err).Msg("build tool gateway")
	}

	responders, err := responder.NewSet(ctx, func(ctx context.Context, agent contractx.AgentName) (einomodel.ToolCallingChatModel, error) {
		return llmCfg.ChatModelFor(ctx, agent)
	})
	if err != nil {
		log.Fatal().Err(err).Msg("build responders")
	}

	coord, err := coordinator.New(store, responders, tools, *coordCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("build coordinator")
	}

	var probe api.Prober
	if strings.EqualFold(strings.TrimSpace(llmCfg.Provider), llmx.ProviderOpenRouter) {
		if p, err := openrouterx.NewProber(llmCfg.OpenRouterFor(contractx.AgentRouter)); err != nil {
			log.Warn().Err(err).Msg("model probe disabled")
		} else {
			probe = p
		}
	}

	srv := &http.Server{
		Addr:              httpCfg.Addr,
		Handler:           api.NewRouter(coord, probe, *httpCfg, log.Logger),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info().
		Str("addr", httpCfg.Addr).
		Str("store", storeCfg.Backend).
		Str("provider", llmCfg.Provider).
		Msg("coach agent listening")
	if err := runServer(ctx, srv); err != nil {
		log.Error().Err(err).Msg("server error")
	}
}

// buildNotifier prefers Lark with an optional QStash retry queue and falls
// back to logging when Lark is not configured.
func buildNotifier(larkCfg larkx.Config, qstashCfg qstashx.Config) (contractx.Notifier, func()) {
	if !larkCfg.Enabled() {
		log.Warn().Msg("lark is not configured, operator notifications are only logged")
		return notifyx.LogNotifier{}, func() {}
	}
	sender, err := larkx.NewClient(larkCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("build lark client")
	}

	var queue notifyx.Publisher
	if qstashCfg.Enabled() {
		client, err := qstashx.NewClient(qstashCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("build qstash client")
		}
		queue = client
	}

	d, err := notifyx.NewDispatcher(sender, queue)
	if err != nil {
		log.Fatal().Err(err).Msg("build notification dispatcher")
	}
	return d, d.Close
}

func purgeExpired(ctx context.Context, store *statex.PostgresStore) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.PurgeExpired(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("purge expired sessions")
				continue
			}
			if n > 0 {
				log.Info().Int64("rows", n).Msg("purged expired sessions")
			}
		}
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
