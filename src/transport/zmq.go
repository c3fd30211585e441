package transport

import (
	"context"
	"errors"
	"fmt"

	"mt5-bridge/src/helpers"
	"mt5-bridge/src/logger"

	"github.com/go-zeromq/zmq4"
)

var errNotConnected = errors.New("socket not connected")

// -----------------------------------------------------------------------------
// ZMQSubscriber is a SUB socket subscribed to every topic of one publisher.
// It is owned by a single goroutine.
// -----------------------------------------------------------------------------

type ZMQSubscriber struct {
	endpoint string
	topic    string
	sock     zmq4.Socket
	logger   *logger.Logger
}

// NewZMQSubscriber creates an unconnected subscriber. An empty topic
// subscribes to everything.
func NewZMQSubscriber(endpoint, topic string, l *logger.Logger) *ZMQSubscriber {
	return &ZMQSubscriber{endpoint: endpoint, topic: topic, logger: l}
}

// -----------------------------------------------------------------------------

func (s *ZMQSubscriber) Connect(ctx context.Context) error {
	if s.sock != nil {
		_ = s.sock.Close()
		s.sock = nil
	}

	sock := zmq4.NewSub(ctx)
	if err := sock.Dial(s.endpoint); err != nil {
		_ = sock.Close()
		return helpers.NewTransportError(fmt.Sprintf("dial %s", s.endpoint), err)
	}
	if err := sock.SetOption(zmq4.OptionSubscribe, s.topic); err != nil {
		_ = sock.Close()
		return helpers.NewTransportError("subscribe", err)
	}

	s.sock = sock
	s.logger.Info("Subscribed to %s", s.endpoint)
	return nil
}

// -----------------------------------------------------------------------------

func (s *ZMQSubscriber) Recv() ([]byte, error) {
	if s.sock == nil {
		return nil, helpers.NewTransportError("recv", errNotConnected)
	}
	msg, err := s.sock.Recv()
	if err != nil {
		return nil, helpers.NewTransportError("recv", err)
	}
	return firstFrame(msg), nil
}

// -----------------------------------------------------------------------------

func (s *ZMQSubscriber) Close() error {
	if s.sock == nil {
		return nil
	}
	err := s.sock.Close()
	s.sock = nil
	return err
}

// -----------------------------------------------------------------------------
// ZMQRequester is a REQ socket. A failed exchange leaves a REQ socket in a
// state where it refuses further sends, so Reset drops it and the next Send
// dials a new one.
// -----------------------------------------------------------------------------

type ZMQRequester struct {
	ctx      context.Context
	endpoint string
	sock     zmq4.Socket
	logger   *logger.Logger
}

// NewZMQRequester creates a requester whose sockets live as long as ctx.
// Dialling is deferred to the first Send.
func NewZMQRequester(ctx context.Context, endpoint string, l *logger.Logger) *ZMQRequester {
	return &ZMQRequester{ctx: ctx, endpoint: endpoint, logger: l}
}

// -----------------------------------------------------------------------------

func (r *ZMQRequester) dial() error {
	sock := zmq4.NewReq(r.ctx)
	if err := sock.Dial(r.endpoint); err != nil {
		_ = sock.Close()
		return helpers.NewTransportError(fmt.Sprintf("dial %s", r.endpoint), err)
	}
	r.sock = sock
	r.logger.Info("Connected to %s", r.endpoint)
	return nil
}

// -----------------------------------------------------------------------------

func (r *ZMQRequester) Send(payload []byte) error {
	if r.sock == nil {
		if err := r.dial(); err != nil {
			return err
		}
	}
	if err := r.sock.Send(zmq4.NewMsg(payload)); err != nil {
		return helpers.NewTransportError("send", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (r *ZMQRequester) Recv() ([]byte, error) {
	if r.sock == nil {
		return nil, helpers.NewTransportError("recv", errNotConnected)
	}
	msg, err := r.sock.Recv()
	if err != nil {
		return nil, helpers.NewTransportError("recv", err)
	}
	return firstFrame(msg), nil
}

// -----------------------------------------------------------------------------

func (r *ZMQRequester) Reset() error {
	if r.sock == nil {
		return nil
	}
	err := r.sock.Close()
	r.sock = nil
	return err
}

// -----------------------------------------------------------------------------

func (r *ZMQRequester) Close() error {
	return r.Reset()
}

// -----------------------------------------------------------------------------

func firstFrame(msg zmq4.Msg) []byte {
	if len(msg.Frames) == 0 {
		return nil
	}
	return msg.Frames[0]
}
