package telemetry

import (
	"testing"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
)

func TestGRPCLevel(t *testing.T) {
	tests := map[string]struct {
		code codes.Code
		want logging.Level
	}{
		"ok":          {code: codes.OK, want: logging.LevelDebug},
		"canceled":    {code: codes.Canceled, want: logging.LevelDebug},
		"not found":   {code: codes.NotFound, want: logging.LevelWarn},
		"internal":    {code: codes.Internal, want: logging.LevelError},
		"unavailable": {code: codes.Unavailable, want: logging.LevelError},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, grpcLevel(tc.code))
		})
	}
}

func TestGRPCServerOptions(t *testing.T) {
	assert.Len(t, GRPCServerOptions(), 2)
}
