package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
	"github.com/travigo/journeymapper/pkg/ctdf"
)

// NATSNotifier publishes lineage events on <subject>.<codespace>
type NATSNotifier struct {
	nc      *nats.Conn
	subject string
}

func NewNATSNotifier(url string, subject string) (*NATSNotifier, error) {
	nc, err := nats.Connect(url,
		nats.Name("journeymapper"),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Info().Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, err
	}

	return &NATSNotifier{nc: nc, subject: subject}, nil
}

func (n *NATSNotifier) Notify(ctx context.Context, datedServiceJourney *ctdf.DatedServiceJourney) error {
	eventBytes, err := newEvent(datedServiceJourney)
	if err != nil {
		return err
	}

	return n.nc.Publish(eventSubject(n.subject, datedServiceJourney), eventBytes)
}

func (n *NATSNotifier) Close() {
	if n.nc != nil {
		n.nc.Drain()
		n.nc.Close()
	}
}

func eventSubject(subject string, datedServiceJourney *ctdf.DatedServiceJourney) string {
	return fmt.Sprintf("%s.%s", subject, subjectToken(datedServiceJourney.Codespace()))
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", ":", "_").Replace(s)
	if s == "" {
		s = "_"
	}

	return s
}
