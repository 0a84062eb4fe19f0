package server

import (
	"context"
	"net"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/joseph-ayodele/salesbook/constants"
	"github.com/joseph-ayodele/salesbook/internal/common"
)

func dialGRPC(t *testing.T, env *testEnv) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv, _ := NewGRPCServer(NewVerificationServer(env.verify, discardLogger()),
		grpc.UnaryInterceptor(LoggingInterceptor(discardLogger())))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestGRPCVerifyPayload(t *testing.T) {
	env := newTestEnv(t, common.ScanConfig{})
	rec := env.createReceipt(t, "owner-1")
	conn := dialGRPC(t, env)
	ctx := context.Background()

	tests := []struct {
		name      string
		payload   string
		wantCode  codes.Code
		wantValid bool
		wantError string
	}{
		{name: "known receipt", payload: strconv.FormatInt(rec.ID, 10), wantValid: true},
		{name: "unknown receipt", payload: `{"receiptId":"31337"}`, wantError: constants.MsgReceiptNotFound},
		{name: "empty payload", payload: "  ", wantCode: codes.InvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := new(structpb.Struct)
			err := conn.Invoke(ctx, VerifyPayloadMethod, wrapperspb.String(tt.payload), out)
			if tt.wantCode != codes.OK {
				require.Equal(t, tt.wantCode, status.Code(err))
				return
			}
			require.NoError(t, err)

			fields := out.GetFields()
			require.Equal(t, tt.wantValid, fields["valid"].GetBoolValue())
			if tt.wantValid {
				receipt := fields["receipt"].GetStructValue().GetFields()
				require.Equal(t, float64(rec.ID), receipt["id"].GetNumberValue())
				require.Equal(t, "Grace Hopper", receipt["customer"].GetStringValue())
				require.Equal(t, tt.payload, fields["qrData"].GetStringValue())
			} else {
				require.Equal(t, tt.wantError, fields["error"].GetStringValue())
				require.NotContains(t, fields, "receipt")
			}
		})
	}
}

func TestGRPCHealth(t *testing.T) {
	env := newTestEnv(t, common.ScanConfig{})
	conn := dialGRPC(t, env)

	client := grpc_health_v1.NewHealthClient(conn)
	for _, service := range []string{"", VerificationServiceName} {
		resp, err := client.Check(context.Background(), &grpc_health_v1.HealthCheckRequest{Service: service})
		require.NoError(t, err)
		require.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, resp.GetStatus())
	}
}
