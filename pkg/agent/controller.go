package agent

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"bonesagent/pkg/claude"
	"bonesagent/pkg/config"
	"bonesagent/pkg/embed"
	"bonesagent/pkg/overlay"
	"bonesagent/pkg/tools"
	"bonesagent/pkg/wire"
)

// Controller owns the outer protocol loop. It waits for init, builds the
// session, and dispatches every subsequent host message until the transport
// closes.
type Controller struct {
	transport *wire.Transport
	cfg       *config.Config
	logger    *slog.Logger
	session   *Session

	// factory hooks, swapped out by tests
	newStreamer func(apiKey string) (Streamer, error)
	newStore    func(ctx context.Context, apiKey string) (tools.SharedStore, error)
}

func NewController(transport *wire.Transport, cfg *config.Config, logger *slog.Logger) *Controller {
	c := &Controller{
		transport: transport,
		cfg:       cfg,
		logger:    logger,
	}
	c.newStreamer = func(apiKey string) (Streamer, error) {
		return claude.NewClient(cfg.Claude, apiKey, logger)
	}
	c.newStore = func(ctx context.Context, apiKey string) (tools.SharedStore, error) {
		embedder, err := embed.New(ctx, cfg.Embedding, apiKey, logger)
		if err != nil {
			return nil, err
		}
		return overlay.New(cfg.RedisAddr, embedder, logger), nil
	}
	return c
}

// Run reads host messages until EOF. A closed transport is the normal way
// for the host to end the process, so it returns nil.
func (c *Controller) Run(ctx context.Context) error {
	c.logger.Info("agent started, waiting for init")
	for {
		msg, err := c.transport.Read()
		if errors.Is(err, io.EOF) {
			c.logger.Info("host closed the transport, exiting")
			return nil
		}
		if err != nil {
			return err
		}

		switch msg.Type {
		case wire.TypeInit:
			if err := c.startSession(ctx, msg); err != nil {
				c.logger.Error("init failed", "error", err)
				if werr := c.transport.Write(wire.NewError(err.Error())); werr != nil {
					c.logger.Error("failed to write to host", "error", werr)
				}
				continue
			}
			c.session.handleInit(ctx, msg)
			c.session.drainPending(ctx)
		case wire.TypeUserMessage:
			if c.session == nil {
				if werr := c.transport.Write(wire.NewError("agent not initialized")); werr != nil {
					c.logger.Error("failed to write to host", "error", werr)
				}
				continue
			}
			c.session.cancelled = false
			c.session.handleUserMessage(ctx, msg)
			c.session.drainPending(ctx)
		case wire.TypeCancel:
			// No turn in flight; nothing to interrupt. Mid-turn cancels
			// are consumed inside awaitHostResult.
			c.logger.Info("cancel received while idle")
		case wire.TypeSetModel:
			if c.session != nil {
				c.session.setModel(msg.Model)
			}
		default:
			c.logger.Warn("unknown message type", "type", msg.Type)
		}
	}
}

func (c *Controller) startSession(ctx context.Context, msg *wire.Inbound) error {
	apiKey, err := c.cfg.Claude.ResolveAPIKey(msg.APIKey)
	if err != nil {
		return err
	}
	streamer, err := c.newStreamer(apiKey)
	if err != nil {
		return err
	}

	s := NewSession(c.transport, streamer, append([]string(nil), c.cfg.Claude.Models...), c.logger)
	if msg.Model != "" {
		s.setModel(msg.Model)
	}

	var store tools.SharedStore
	storeFn := func(ctx context.Context) (tools.SharedStore, error) {
		if store == nil {
			st, err := c.newStore(ctx, apiKey)
			if err != nil {
				return nil, err
			}
			store = st
		}
		return store, nil
	}
	if err := s.initRegistry(storeFn); err != nil {
		return err
	}
	c.session = s
	c.logger.Info("session initialized", "model", s.models[s.modelIdx], "domain", s.domain)
	return nil
}
