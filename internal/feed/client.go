package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// Dial connects to a feed server without transport security.
func Dial(addr string) (*grpc.ClientConn, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial feed %s: %w", addr, err)
	}
	return conn, nil
}

// Watch calls fn with each event from the feed on conn, keeping one tick
// in every. It returns nil when the server ends the stream, and otherwise
// the first error from the stream or fn.
func Watch(ctx context.Context, conn grpc.ClientConnInterface, every int, fn func(*structpb.Struct) error) error {
	stream, err := conn.NewStream(ctx, &serviceDesc.Streams[0], watchMethod)
	if err != nil {
		return fmt.Errorf("open feed stream: %w", err)
	}
	req, err := structpb.NewStruct(map[string]any{"every": every})
	if err != nil {
		return err
	}
	if err := stream.SendMsg(req); err != nil {
		return fmt.Errorf("send feed request: %w", err)
	}
	if err := stream.CloseSend(); err != nil {
		return fmt.Errorf("send feed request: %w", err)
	}

	for {
		ev := new(structpb.Struct)
		if err := stream.RecvMsg(ev); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if err := fn(ev); err != nil {
			return err
		}
	}
}

// Describe renders an event as one line of text.
func Describe(ev *structpb.Struct) string {
	f := ev.GetFields()
	num := func(k string) float64 { return f[k].GetNumberValue() }

	switch f["kind"].GetStringValue() {
	case KindTick:
		return fmt.Sprintf("tick %d target=%d offset=%.1fmm depth=%.3f redirecting=%t",
			int64(num("frame")), int64(num("target_id")), num("offset_mm"), num("depth"),
			f["redirecting"].GetBoolValue())
	case KindPin:
		return fmt.Sprintf("pin %s input=%s success=%t %.0fms",
			digits(f["pin"]), digits(f["input"]), f["success"].GetBoolValue(), num("duration_ms"))
	case KindCondition:
		return fmt.Sprintf("condition %d step=%d keypad=%s curve=%s max_angle=%gdeg scale=%g",
			int64(num("condition_index")), int64(num("step")), f["keypad_size"].GetStringValue(),
			f["curve"].GetStringValue(), num("max_angle_deg"), num("keypad_scale"))
	}
	return fmt.Sprint(ev.AsMap())
}

func digits(v *structpb.Value) string {
	var b strings.Builder
	for _, d := range v.GetListValue().GetValues() {
		b.WriteString(strconv.FormatInt(int64(d.GetNumberValue()), 10))
	}
	return b.String()
}
