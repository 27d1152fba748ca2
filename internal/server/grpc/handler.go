package grpc

import (
	"context"
	"errors"
	"io"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	pb "github.com/dmitrijs2005/cipherrelay/internal/proto"
	"github.com/dmitrijs2005/cipherrelay/internal/server/hub"
	"github.com/dmitrijs2005/cipherrelay/internal/server/wire"
)

// Connect serves one client session for the lifetime of the stream. Frames
// are dispatched in arrival order by a single reader; queued events are
// written by this goroutine. With an idle timeout set, a session that sends
// nothing for that long is closed.
func (s *GRPCServer) Connect(stream pb.RelayConnectServer) error {
	ctx := stream.Context()
	sess := s.hub.Connect(ctx)
	defer s.hub.Disconnect(context.WithoutCancel(ctx), sess)

	activity := make(chan struct{}, 1)
	readDone := make(chan error, 1)
	go func() { readDone <- s.readFrames(ctx, stream, sess, activity) }()

	var idle <-chan time.Time
	if s.idleTimeout > 0 {
		timer := time.NewTimer(s.idleTimeout)
		defer timer.Stop()
		idle = timer.C
		go func() {
			for {
				select {
				case <-activity:
					timer.Reset(s.idleTimeout)
				case <-sess.Done():
					return
				}
			}
		}()
	}

	for {
		select {
		case <-idle:
			s.logger.Info(ctx, "idle session closed", "session", sess.ID())
			return status.Error(codes.DeadlineExceeded, "session idle")
		case out := <-sess.Outbound():
			if err := s.sendFrame(stream, out); err != nil {
				return err
			}
		case err := <-readDone:
			if err != nil {
				return err
			}
			return s.flush(stream, sess)
		case <-sess.Done():
			return status.Error(codes.ResourceExhausted, "session closed: too slow")
		case <-ctx.Done():
			return status.FromContextError(ctx.Err()).Err()
		}
	}
}

// readFrames returns nil when the client half-closes the stream. Every
// received frame is signalled on activity.
func (s *GRPCServer) readFrames(ctx context.Context, stream pb.RelayConnectServer, sess *hub.Session, activity chan<- struct{}) error {
	for {
		frame, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		select {
		case activity <- struct{}{}:
		default:
		}

		in, err := wire.Decode(frame)
		if err != nil {
			s.hub.Reject(ctx, sess, err)
			continue
		}
		s.hub.Dispatch(ctx, sess, in)
	}
}

// flush writes what is already queued once the client stops sending.
func (s *GRPCServer) flush(stream pb.RelayConnectServer, sess *hub.Session) error {
	for {
		select {
		case out := <-sess.Outbound():
			if err := s.sendFrame(stream, out); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (s *GRPCServer) sendFrame(stream pb.RelayConnectServer, out wire.Outbound) error {
	frame, err := wire.Encode(out)
	if err != nil {
		s.logger.Error(stream.Context(), "encode frame", "event", out.Event, "error", err)
		return status.Error(codes.Internal, "internal error")
	}
	return stream.Send(frame)
}

// Stats reports relay and audit counters to an authenticated operator.
func (s *GRPCServer) Stats(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	hs := s.hub.Stats()

	usernames := make([]any, 0, len(hs.Usernames))
	for _, u := range hs.Usernames {
		usernames = append(usernames, u)
	}

	sinks := make([]any, 0, len(s.audit))
	for _, a := range s.audit {
		st := a.Stats()
		sinks = append(sinks, map[string]any{
			"name":    st.Name,
			"written": st.Written,
			"failed":  st.Failed,
			"dropped": st.Dropped,
		})
	}

	out, err := structpb.NewStruct(map[string]any{
		"sessions":  hs.Sessions,
		"users":     hs.Users,
		"usernames": usernames,
		"version":   hs.MembershipVersion,
		"delivered": hs.Delivered,
		"not_found": hs.RecipientNotFound,
		"evicted":   hs.Evicted,
		"audit":     sinks,
	})
	if err != nil {
		s.logger.Error(ctx, "build stats", "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}

	s.logger.Info(ctx, "stats served", "operator", operatorFromContext(ctx))
	return out, nil
}
