// Package server wires the persistence core together and exposes the
// call surface a command layer consumes: ledger operations, off-thread
// lookups that resume on the engine loop, warm-up continuations and
// cooldown gates.
package server

import (
	"context"
	"time"

	"github.com/emberforge/embercore"
	"github.com/emberforge/embercore/ledger"
	"github.com/emberforge/embercore/sched"
	"github.com/emberforge/embercore/storage"
	"github.com/emberforge/embercore/structs"
	"github.com/google/uuid"
)

type Server struct {
	cfg       Config
	storage   *storage.Storage
	ledger    *ledger.Ledger
	loop      *sched.Loop
	workers   *sched.Workers
	cooldowns *sched.Cooldowns
}

func New(cfg Config) (*Server, error) {
	defaultBalance, err := structs.ParseAmount(cfg.DefaultBalance)
	if err != nil {
		return nil, embercore.WithStack(err)
	}
	store, err := storage.Open(cfg.Dir)
	if err != nil {
		return nil, embercore.WithStack(err)
	}
	return &Server{
		cfg:     cfg,
		storage: store,
		ledger: ledger.New(store.DB, ledger.Config{
			DefaultBalance: defaultBalance,
			Symbol:         cfg.CurrencySymbol,
			SymbolSuffix:   cfg.SymbolSuffix,
			SymbolSpace:    cfg.SymbolSpace,
			DecimalPlaces:  cfg.DecimalPlaces,
			ThousandsSep:   cfg.ThousandsSep,
		}),
		loop:      sched.NewLoop(),
		workers:   sched.NewWorkers(cfg.Workers),
		cooldowns: sched.NewCooldowns(),
	}, nil
}

// Start runs the engine loop until the context is cancelled or Close is
// called.
func (s *Server) Start(ctx context.Context) error {
	return embercore.WithStack(s.loop.Start(ctx))
}

// Close drains the loop, waits for outstanding workers, drops all
// cooldown timers and closes the store connection.
func (s *Server) Close() error {
	s.loop.Close()
	s.workers.Wait()
	s.cooldowns.Clear()
	return embercore.WithStack(s.storage.Close())
}

func (s *Server) Ledger() *ledger.Ledger {
	return s.ledger
}

func (s *Server) Storage() *storage.Storage {
	return s.storage
}

func (s *Server) Loop() *sched.Loop {
	return s.loop
}

// TryCooldown gates a feature for an account. Bypass callers always pass
// and never record a timer.
func (s *Server) TryCooldown(feature string, id uuid.UUID, bypass bool) (time.Duration, bool) {
	if bypass {
		return 0, true
	}
	return s.cooldowns.Try(feature, id, s.cfg.Cooldown(feature))
}

// BalanceAsync reads the balance off the engine loop and hands it to
// apply on the loop.
func (s *Server) BalanceAsync(id uuid.UUID, apply func(structs.Amount)) {
	sched.Dispatch(s.workers, s.loop, sched.Job[structs.Amount]{
		Lookup: func() (structs.Amount, error) {
			return s.ledger.GetBalance(id), nil
		},
		Apply: apply,
	})
}

// DeliverMail fetches the recipient's unread mail on a worker and
// resumes on the loop with whatever was found. Messages are marked read
// only from the delivering continuation, so mail fetched right before a
// shutdown stays unread for the next session instead of vanishing.
func (s *Server) DeliverMail(recipient uuid.UUID, apply func([]structs.MailMessage)) {
	sched.Dispatch(s.workers, s.loop, sched.Job[[]structs.MailMessage]{
		Lookup: func() ([]structs.MailMessage, error) {
			return s.storage.UnreadMail(recipient), nil
		},
		Apply: func(mail []structs.MailMessage) {
			s.workers.Go(func() {
				for _, msg := range mail {
					s.storage.MarkMailRead(msg.ID)
				}
			})
			apply(mail)
		},
	})
}

// ClaimGifts claims every pending gift for the recipient on a worker and
// resumes on the loop with the combined item payload. guard is checked
// on the loop before anything is handed over.
func (s *Server) ClaimGifts(recipient uuid.UUID, guard func() bool, apply func(structs.ItemStacks)) {
	sched.Dispatch(s.workers, s.loop, sched.Job[structs.ItemStacks]{
		Lookup: func() (structs.ItemStacks, error) {
			var items structs.ItemStacks
			for _, gift := range s.storage.UnclaimedGifts(recipient) {
				claimed, ok := s.storage.ClaimGift(gift.ID)
				if ok {
					items = append(items, claimed...)
				}
			}
			return items, nil
		},
		Guard: guard,
		Apply: apply,
	})
}

// WarmupTeleport schedules teleport on the loop after the configured
// warm-up. guard runs on the loop just before the teleport; a violated
// guard (the account moved, logged off, took damage) skips it. release
// runs exactly once however the warm-up ends.
func (s *Server) WarmupTeleport(guard func() bool, teleport func(), release func()) *sched.Pending {
	return s.loop.RunGuarded(time.Duration(s.cfg.TeleportWarmup), guard, teleport, release)
}
