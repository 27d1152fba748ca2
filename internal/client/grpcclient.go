// Package client is a small Go client for the relay: it opens Connect
// streams, speaks the event vocabulary and calls the admin API.
package client

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dmitrijs2005/cipherrelay/internal/common"
	pb "github.com/dmitrijs2005/cipherrelay/internal/proto"
	"github.com/dmitrijs2005/cipherrelay/internal/server/wire"
)

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
}

// Dial prepares a connection to addr. Extra options are applied after the
// default insecure transport credentials.
func Dial(addr string, opts ...grpc.DialOption) (*GRPCClient, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return &GRPCClient{endpointURL: addr, conn: conn}, nil
}

func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AuthorizationHeaderName, token)
	return metadata.NewOutgoingContext(ctx, md)
}

// Connect opens a new session. The session ends when ctx is cancelled or
// CloseSend is called.
func (c *GRPCClient) Connect(ctx context.Context) (*Stream, error) {
	s, err := pb.NewRelayConnectClient(ctx, c.conn)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	return &Stream{s: s}, nil
}

// Stats fetches operator counters using an admin token.
func (c *GRPCClient) Stats(ctx context.Context, token string) (*structpb.Struct, error) {
	return pb.AdminStats(withAccessToken(ctx, token), c.conn)
}

// PublicKeys opens a short-lived session and returns the directory.
func (c *GRPCClient) PublicKeys(ctx context.Context) (map[string]string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s, err := c.Connect(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.GetPublicKeys(); err != nil {
		return nil, err
	}
	in, err := s.Await(wire.EventPublicKeys)
	if err != nil {
		return nil, err
	}
	keys := map[string]string{}
	if err := in.Bind(&keys); err != nil {
		return nil, err
	}
	return keys, nil
}

// Stream is one client session. Send methods must not be called
// concurrently with each other; Recv may run on its own goroutine.
type Stream struct {
	s pb.RelayConnectClient
}

func (s *Stream) send(event string, payload any) error {
	frame, err := wire.NewFrame(event, payload)
	if err != nil {
		return err
	}
	if err := s.s.Send(frame); err != nil {
		return fmt.Errorf("send %s: %w", event, err)
	}
	return nil
}

func (s *Stream) Register(username, publicKey string) error {
	return s.send(wire.EventRegister, wire.RegisterRequest{Username: username, PublicKey: publicKey})
}

func (s *Stream) GetPublicKeys() error {
	return s.send(wire.EventGetPublicKeys, nil)
}

func (s *Stream) SendMessage(m wire.Message) error {
	return s.send(wire.EventSendMessage, m)
}

// Recv blocks for the next event from the relay.
func (s *Stream) Recv() (wire.Inbound, error) {
	frame, err := s.s.Recv()
	if err != nil {
		return wire.Inbound{}, err
	}
	return wire.Decode(frame)
}

// Await discards events until one named event arrives.
func (s *Stream) Await(event string) (wire.Inbound, error) {
	for {
		in, err := s.Recv()
		if err != nil {
			return wire.Inbound{}, err
		}
		if in.Event == event {
			return in, nil
		}
	}
}

// CloseSend tells the relay this client is done sending.
func (s *Stream) CloseSend() error {
	return s.s.CloseSend()
}
