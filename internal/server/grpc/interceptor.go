package grpc

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/cipherrelay/internal/common"
	pb "github.com/dmitrijs2005/cipherrelay/internal/proto"
	"github.com/dmitrijs2005/cipherrelay/internal/server/auth"
)

type ctxKey string

const operatorKey ctxKey = "operator"

var adminPrefix = "/" + pb.AdminServiceName + "/"

// accessTokenInterceptor requires a valid operator token on admin methods.
// The token may be sent bare or with a "Bearer " prefix.
func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if !strings.HasPrefix(info.FullMethod, adminPrefix) {
		return handler(ctx, req)
	}

	var token string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(common.AuthorizationHeaderName); len(values) > 0 {
			token = strings.TrimSpace(strings.TrimPrefix(values[0], "Bearer "))
		}
	}
	if token == "" {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	operator, err := auth.SubjectFromToken(token, s.jwtSecret)
	if err != nil {
		s.logger.Warn(ctx, "admin call rejected", "method", info.FullMethod, "error", err)
		return nil, status.Error(codes.Unauthenticated, common.ErrUnauthorized.Error())
	}

	return handler(context.WithValue(ctx, operatorKey, operator), req)
}

func operatorFromContext(ctx context.Context) string {
	v, _ := ctx.Value(operatorKey).(string)
	return v
}
