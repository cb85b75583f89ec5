package telemetry

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/gwillem/premaid/pkg/protocol"
)

// natsConn is the subset of *nats.Conn the sink uses.
type natsConn interface {
	Publish(subj string, data []byte) error
	Subscribe(subj string, cb nats.MsgHandler) (*nats.Subscription, error)
	Drain() error
}

// Subject returns the NATS subject for one kind of doll message, e.g.
// "premaid.maid.frames".
func Subject(doll, kind string) string {
	return fmt.Sprintf("premaid.%s.%s", doll, kind)
}

// NATSSink publishes frames, battery levels and status as JSON.
type NATSSink struct {
	conn natsConn
	doll string
}

// DialNATS connects to a NATS server.
func DialNATS(url, doll string) (*NATSSink, error) {
	nc, err := nats.Connect(url, nats.Name("premaid-"+doll))
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return NewNATSSink(nc, doll), nil
}

// NewNATSSink wraps an existing connection.
func NewNATSSink(conn natsConn, doll string) *NATSSink {
	return &NATSSink{conn: conn, doll: doll}
}

func (s *NATSSink) publish(kind string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := s.conn.Publish(Subject(s.doll, kind), data); err != nil {
		return fmt.Errorf("publish %s: %w", kind, err)
	}
	return nil
}

func (s *NATSSink) PublishFrame(_ context.Context, f protocol.Frame) error {
	return s.publish("frames", FrameMessage{
		Doll:    s.doll,
		Hex:     f.Hex(),
		Command: f.Command(),
		Valid:   f.Valid(),
		Time:    now(),
	})
}

func (s *NATSSink) PublishBattery(_ context.Context, b protocol.Battery) error {
	return s.publish("battery", BatteryMessage{
		Doll:  s.doll,
		Raw:   b.Raw,
		Volts: b.Volts,
		Low:   b.Low(),
		Time:  now(),
	})
}

func (s *NATSSink) PublishStatus(_ context.Context, st Status) error {
	st.Doll = s.doll
	return s.publish("status", st)
}

// SubscribeOrders forwards orders published on premaid.<doll>.orders to send.
// Message bodies are hex frames; the checksum is recomputed. Orders that do
// not parse or fail to send are passed to onError, which may be nil.
func (s *NATSSink) SubscribeOrders(send func(protocol.Order) error, onError func(error)) (*nats.Subscription, error) {
	return s.conn.Subscribe(Subject(s.doll, "orders"), func(msg *nats.Msg) {
		if err := handleOrder(msg.Data, send); err != nil && onError != nil {
			onError(fmt.Errorf("remote order %q: %w", msg.Data, err))
		}
	})
}

func handleOrder(data []byte, send func(protocol.Order) error) error {
	o, err := protocol.RawOrder(string(data))
	if err != nil {
		return err
	}
	return send(o)
}

// Close flushes pending messages and closes the connection.
func (s *NATSSink) Close() error {
	return s.conn.Drain()
}
