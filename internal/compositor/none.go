package compositor

import (
	"context"
	"log/slog"

	"github.com/oklog/ulid/v2"

	"github.com/jmylchreest/wlpanel/internal/toplevel"
)

// NoneBackend tracks nothing. It is used when no supported compositor is
// detected so the rest of the panel still works.
type NoneBackend struct{}

// Name implements Backend.
func (NoneBackend) Name() string { return "none" }

// Connect implements Backend.
func (NoneBackend) Connect(_ context.Context, logger *slog.Logger) (Session, error) {
	logger.Info("no compositor backend, toplevel tracking disabled")
	return &noneSession{events: NewMailbox[Event]()}, nil
}

type noneSession struct {
	events *Mailbox[Event]
}

func (s *noneSession) Events() *Mailbox[Event] { return s.events }
func (s *noneSession) Capabilities() Capabilities { return Capabilities{} }
func (s *noneSession) Activate(toplevel.Handle) error { return ErrNotBound }
func (s *noneSession) Minimize(toplevel.Handle) error { return ErrNotBound }
func (s *noneSession) Close(toplevel.Handle) error { return ErrNotBound }
func (s *noneSession) RequestActivationToken(ulid.ULID, string) error { return ErrNotBound }

func (s *noneSession) Disconnect() error {
	s.events.Close()
	return nil
}
