// Package ingest is the gRPC transport shim between producers and the
// sink's send queue. It registers one thin service whose single RPC
// decodes a batch of datums off the wire and calls Sink.Enqueue; it never
// touches Postgres, DDL, or the coalescing/write loop directly.
//
// The wire format uses google.protobuf.Struct/ListValue rather than a
// hand-rolled generated pb.go: a Datum is itself a self-describing bag of
// dimensions and measurements, so a self-describing wire value is a
// natural fit, and it lets the service avoid depending on a
// protoc-generated package that doesn't exist for this project.
package ingest

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/goodmetrics/metricsink/internal/metricsmodel"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Sink is the subset of the send queue's producer-facing API the gRPC
// service needs: enqueue a batch, never block, never fail.
type Sink interface {
	Enqueue(batch []metricsmodel.Datum)
}

// Config holds the listener and server-tuning knobs for the ingest
// service.
type Config struct {
	ListenAddress           string
	GRPCMaxRecvMsgSizeBytes int
	GracefulShutdownTimeout time.Duration
	DrainDelay              time.Duration
}

// Server is the thin gRPC service: it decodes the wire batch and hands it
// straight to Sink. No validation beyond decoding lives here; a datum
// that fails to decode rejects the whole RPC with InvalidArgument and
// nothing from that request is enqueued.
type Server struct {
	cfg       Config
	sink      Sink
	healthSrv *health.Server
}

func New(cfg Config, sink Sink) *Server {
	healthSrv := health.NewServer()
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	return &Server{cfg: cfg, sink: sink, healthSrv: healthSrv}
}

// Send is the service's single RPC. The request is a ListValue of Struct
// values, one per datum; the response is always empty, matching
// spec.md's enqueue(batch) -> () contract at the transport boundary.
func (s *Server) Send(ctx context.Context, batch *structpb.ListValue) (*emptypb.Empty, error) {
	datums := make([]metricsmodel.Datum, 0, len(batch.GetValues()))
	for _, v := range batch.GetValues() {
		d, err := datumFromStruct(v.GetStructValue())
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "decode datum: %v", err)
		}
		datums = append(datums, d)
	}
	s.sink.Enqueue(datums)
	return &emptypb.Empty{}, nil
}

// Run listens and serves until ctx is done, then drains and gracefully
// stops the way the rest of this project's servers do: mark NOT_SERVING,
// wait out the drain delay, then GracefulStop bounded by a timeout.
func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.ListenAddress, err)
	}

	maxRecv := s.cfg.GRPCMaxRecvMsgSizeBytes
	if maxRecv <= 0 {
		maxRecv = 10 * 1024 * 1024
	}
	grpcServer := grpc.NewServer(
		grpc.MaxRecvMsgSize(maxRecv),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			MaxConnectionIdle:     5 * time.Minute,
			MaxConnectionAgeGrace: 30 * time.Second,
			Time:                  2 * time.Minute,
			Timeout:               20 * time.Second,
		}),
	)

	RegisterIngestServiceServer(grpcServer, s)
	healthpb.RegisterHealthServer(grpcServer, s.healthSrv)
	reflection.Register(grpcServer)

	serveErrCh := make(chan error, 1)
	go func() {
		serveErrCh <- grpcServer.Serve(lis)
	}()

	s.healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	select {
	case <-ctx.Done():
		s.healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
		if s.cfg.DrainDelay > 0 {
			time.Sleep(s.cfg.DrainDelay)
		}
		done := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(done)
		}()
		timeout := s.cfg.GracefulShutdownTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		select {
		case <-done:
			return nil
		case <-time.After(timeout):
			grpcServer.Stop()
			return ctx.Err()
		}
	case err := <-serveErrCh:
		return err
	}
}

// IsReady reports whether the ingest service's gRPC health status is
// SERVING.
func (s *Server) IsReady(ctx context.Context) bool {
	resp, err := s.healthSrv.Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		return false
	}
	return resp.Status == healthpb.HealthCheckResponse_SERVING
}
