package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/joseph-ayodele/salesbook/constants"
	"github.com/joseph-ayodele/salesbook/internal/metrics"
	"github.com/joseph-ayodele/salesbook/internal/verify"
)

const (
	VerificationServiceName = "salesbook.verification.v1.VerificationService"
	VerifyPayloadMethod     = "/" + VerificationServiceName + "/VerifyPayload"
)

// VerificationServiceServer verifies payloads decoded by a client, typically a
// point-of-sale scanner. The request is the raw payload; the response carries
// the same fields as the HTTP verification result.
type VerificationServiceServer interface {
	VerifyPayload(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
}

var VerificationServiceDesc = grpc.ServiceDesc{
	ServiceName: VerificationServiceName,
	HandlerType: (*VerificationServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "VerifyPayload", Handler: verifyPayloadHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "salesbook/verification/v1/verification.proto",
}

func verifyPayloadHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(VerificationServiceServer).VerifyPayload(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: VerifyPayloadMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(VerificationServiceServer).VerifyPayload(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

type VerificationServer struct {
	svc    *verify.Service
	logger *slog.Logger
}

func NewVerificationServer(svc *verify.Service, logger *slog.Logger) *VerificationServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &VerificationServer{svc: svc, logger: logger}
}

func (s *VerificationServer) VerifyPayload(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	payload := in.GetValue()
	if strings.TrimSpace(payload) == "" {
		return nil, status.Error(codes.InvalidArgument, "payload is required")
	}
	res := s.svc.VerifyDecoded(ctx, metrics.PathGRPC, payload)
	if res.Outcome == constants.OutcomeError {
		return nil, status.Error(codes.Internal, constants.MsgVerifyFailed)
	}
	out, err := resultStruct(res)
	if err != nil {
		s.logger.Error("grpc.verify.encode_failed", "error", err)
		return nil, status.Error(codes.Internal, constants.MsgVerifyFailed)
	}
	return out, nil
}

func resultStruct(res verify.Result) (*structpb.Struct, error) {
	raw, err := json.Marshal(res)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

// NewGRPCServer builds a gRPC server exposing verification and the standard
// health service. The returned health server reports SERVING for the whole
// server; flip it to NOT_SERVING before GracefulStop.
func NewGRPCServer(vs VerificationServiceServer, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	srv := grpc.NewServer(opts...)
	srv.RegisterService(&VerificationServiceDesc, vs)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(srv, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(VerificationServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	return srv, healthServer
}

// LoggingInterceptor logs each unary call with its status code.
func LoggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		logger.Info("grpc request", "method", info.FullMethod, "code", status.Code(err).String())
		return resp, err
	}
}
