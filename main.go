package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/katla/internal/auth"
	"github.com/robalobadob/katla/internal/config"
	"github.com/robalobadob/katla/internal/daily"
	"github.com/robalobadob/katla/internal/httpserver"
	"github.com/robalobadob/katla/internal/live"
	"github.com/robalobadob/katla/internal/messages"
	"github.com/robalobadob/katla/internal/play"
	"github.com/robalobadob/katla/internal/store"
	"github.com/robalobadob/katla/internal/words"
)

const (
	roomTokenTTL    = 12 * time.Hour
	shutdownTimeout = 10 * time.Second
)

func main() {
	cfg := config.Load()
	cfg.SetupLogger()

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func run(cfg *config.Config) error {
	db, err := setupDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	list, err := words.Load(cfg.WordsAnswersFile, cfg.WordsAllowedFile)
	if err != nil {
		return err
	}
	cal, err := daily.NewCalendar(cfg.PuzzleEpoch, cfg.PuzzleOffsetHours)
	if err != nil {
		return err
	}
	loc, err := messages.Default()
	if err != nil {
		return err
	}
	source := &daily.Source{Cal: cal, Answers: list.Answers(), Lead: cfg.PublishLead, Salt: cfg.DailySalt}
	provider := newProvider(cfg, db)
	results := daily.NewStore(db)

	hub := live.NewHub(live.Config{
		Words:          list,
		Provider:       provider,
		Messages:       loc,
		Lang:           messages.DefaultLang,
		NewGameDelay:   cfg.LiveNewGameDelay,
		RevealDuration: cfg.RevealDuration,
	})
	defer hub.Close()

	srv := httpserver.New(httpserver.Deps{
		Config: cfg,
		Play: play.New(play.Config{
			Source:         source,
			Words:          list,
			Provider:       provider,
			Results:        results,
			RevealDuration: cfg.RevealDuration,
			ShareURL:       cfg.ClientOrigin,
		}),
		Source:     source,
		Words:      list,
		Provider:   provider,
		Results:    results,
		Users:      auth.NewUsers(db),
		Tokens:     auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL()),
		Rooms:      live.NewRoomStore(db),
		RoomTokens: live.NewRoomTokens(cfg.JWTSecret, roomTokenTTL),
		Hub:        hub,
		Messages:   loc,
	})

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		answers, allowed := list.Stats()
		log.Info().Str("port", cfg.Port).Str("storage", cfg.Storage).
			Int("answers", answers).Int("allowed", allowed).
			Int("puzzle", source.Current(time.Now())).Msg("starting katla server")
		errc <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	hub.Close()
	return httpSrv.Shutdown(shutdownCtx)
}

// newProvider picks where player state lives.
func newProvider(cfg *config.Config, db *sql.DB) store.Provider {
	switch cfg.Storage {
	case config.StorageMemory:
		return store.NewMemory()
	case config.StorageNone:
		log.Warn().Msg("player storage disabled, progress will not be saved")
		return store.Unavailable{}
	}
	return store.NewSQLite(db)
}
