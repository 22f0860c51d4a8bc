package notify

import (
	"encoding/json"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// ConnectNATS dials the bus, adding the token only when one is configured.
func ConnectNATS(url, token string) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name("sweeps-settlement"),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}
	return nats.Connect(url, opts...)
}

// NATSPublisher publishes events as JSON. Balance updates go to
// <prefix>.balance.<player>, announcements to <prefix>.announce or
// <prefix>.announce.<player>.
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
}

func NewNATSPublisher(conn *nats.Conn, prefix string) *NATSPublisher {
	return &NATSPublisher{conn: conn, prefix: prefix}
}

func (p *NATSPublisher) BalanceChanged(u BalanceUpdate) {
	p.publish(p.prefix+".balance."+u.PlayerID, Message{Type: TypeBalanceUpdate, Data: u})
}

func (p *NATSPublisher) Announce(a Announcement) {
	subject := p.prefix + ".announce"
	if a.PlayerID != "" {
		subject += "." + a.PlayerID
	}
	p.publish(subject, Message{Type: a.Type, Data: a})
}

func (p *NATSPublisher) publish(subject string, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.WithError(err).Error("failed to encode notification")
		return
	}
	if err := p.conn.Publish(subject, data); err != nil {
		log.WithError(err).WithField("subject", subject).Warn("nats publish failed")
	}
}
