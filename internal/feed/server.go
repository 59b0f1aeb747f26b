package feed

import (
	"context"
	"fmt"
	"log"
	"math"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName = "handwarp.feed.v1.TickFeed"
	watchMethod = "/" + ServiceName + "/Watch"
)

// TickFeedServer is the server API of the feed service.
type TickFeedServer interface {
	Watch(req *structpb.Struct, stream grpc.ServerStream) error
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TickFeedServer)(nil),
	Streams: []grpc.StreamDesc{{
		StreamName:    "Watch",
		Handler:       watchHandler,
		ServerStreams: true,
	}},
	Metadata: "handwarp/feed/v1/feed.proto",
}

func watchHandler(srv any, stream grpc.ServerStream) error {
	req := new(structpb.Struct)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(TickFeedServer).Watch(req, stream)
}

// Register mounts the feed service on s.
func Register(s grpc.ServiceRegistrar, srv TickFeedServer) {
	s.RegisterService(&serviceDesc, srv)
}

// Server streams a Publisher's events to each caller of Watch.
type Server struct {
	pub *Publisher
}

func NewServer(pub *Publisher) *Server {
	return &Server{pub: pub}
}

// Watch subscribes the caller and sends events until it disconnects.
func (s *Server) Watch(req *structpb.Struct, stream grpc.ServerStream) error {
	every, err := everyFrom(req)
	if err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}

	id, events := s.pub.subscribe(every)
	defer s.pub.unsubscribe(id)
	log.Printf("[feed] watcher %d connected, every %d ticks", id, every)

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			log.Printf("[feed] watcher %d disconnected", id)
			return ctx.Err()
		case ev := <-events:
			if err := stream.SendMsg(ev); err != nil {
				return err
			}
		}
	}
}

func everyFrom(req *structpb.Struct) (uint64, error) {
	v, ok := req.GetFields()["every"]
	if !ok {
		return 1, nil
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok || n.NumberValue < 1 || n.NumberValue != math.Trunc(n.NumberValue) {
		return 0, fmt.Errorf("every must be a positive integer, got %v", v.AsInterface())
	}
	return uint64(n.NumberValue), nil
}

// Serve runs the feed service for pub on lis until ctx is cancelled.
// Watchers still connected after the grace period are cut off.
func Serve(ctx context.Context, lis net.Listener, pub *Publisher) error {
	gs := grpc.NewServer()
	Register(gs, NewServer(pub))

	errCh := make(chan error, 1)
	go func() { errCh <- gs.Serve(lis) }()
	log.Printf("[feed] serving on %s", lis.Addr())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	stopped := make(chan struct{})
	go func() {
		gs.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		gs.Stop()
	}
	return nil
}
