package transport

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Dial returns a health client for target; the caller closes the conn.
func Dial(target string) (*grpc.ClientConn, healthpb.HealthClient, error) {
	cc, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, err
	}
	return cc, healthpb.NewHealthClient(cc), nil
}
