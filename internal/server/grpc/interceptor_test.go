package grpc

import (
	"context"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/cipherrelay/internal/common"
	"github.com/dmitrijs2005/cipherrelay/internal/logging"
	pb "github.com/dmitrijs2005/cipherrelay/internal/proto"
	"github.com/dmitrijs2005/cipherrelay/internal/server/auth"
)

func newTestServer(secret string) *GRPCServer {
	return &GRPCServer{logger: logging.Nop{}, jwtSecret: []byte(secret)}
}

func TestInterceptor_NonAdminPassesWithoutToken(t *testing.T) {
	s := newTestServer("secret")

	info := &grpc.UnaryServerInfo{FullMethod: "/pkg.Service/Other"}
	called := false
	h := func(ctx context.Context, req any) (any, error) {
		called = true
		return "ok", nil
	}

	resp, err := s.accessTokenInterceptor(context.Background(), nil, info, h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called || resp != "ok" {
		t.Fatalf("handler not invoked properly: called=%v resp=%v", called, resp)
	}
}

func TestInterceptor_AdminMissingToken(t *testing.T) {
	s := newTestServer("secret")

	info := &grpc.UnaryServerInfo{FullMethod: pb.Admin_Stats_FullMethodName}
	h := func(ctx context.Context, req any) (any, error) {
		t.Fatal("handler should not be called when token missing")
		return nil, nil
	}

	_, err := s.accessTokenInterceptor(context.Background(), nil, info, h)
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected Unauthenticated, got %v", status.Code(err))
	}
	if status.Convert(err).Message() != "missing token" {
		t.Fatalf("expected 'missing token', got %q", status.Convert(err).Message())
	}
}

func TestInterceptor_AdminInvalidToken(t *testing.T) {
	s := newTestServer("secret")

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(common.AuthorizationHeaderName, "not-a-jwt"))
	info := &grpc.UnaryServerInfo{FullMethod: pb.Admin_Stats_FullMethodName}
	h := func(ctx context.Context, req any) (any, error) {
		t.Fatal("handler should not be called with invalid token")
		return nil, nil
	}

	_, err := s.accessTokenInterceptor(ctx, nil, info, h)
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected Unauthenticated, got %v", status.Code(err))
	}
}

func TestInterceptor_AdminValidTokenSetsOperator(t *testing.T) {
	s := newTestServer("secret")

	tok, err := auth.GenerateToken("ops", []byte("secret"), time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(common.AuthorizationHeaderName, "Bearer "+tok))
	info := &grpc.UnaryServerInfo{FullMethod: pb.Admin_Stats_FullMethodName}

	var got string
	h := func(ctx context.Context, req any) (any, error) {
		got = operatorFromContext(ctx)
		return nil, nil
	}

	if _, err := s.accessTokenInterceptor(ctx, nil, info, h); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ops" {
		t.Fatalf("operator = %q, want ops", got)
	}
}
