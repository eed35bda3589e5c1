package console

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/nodegrid/nodegrid/pkg/engine"
	"github.com/nodegrid/nodegrid/pkg/types"
)

// readBufferSize is the chunk size for container output forwarding.
const readBufferSize = 4096

// Frame is one message on a console stream. The first frame of a session
// must carry the target descriptor; subsequent frames carry stdin bytes.
type Frame struct {
	Descriptor types.Descriptor
	Data       []byte
}

// Stream is a duplex channel to the remote console client, implemented by
// each transport binding (websocket today). Recv and Send may block; Close
// must unblock both.
type Stream interface {
	Recv() (Frame, error)
	Send(data []byte) error
	Close() error
}

// Bridge pipes bytes between a remote console client and a running
// container's attached stdio. One bridge serves exactly one session, so no
// backpressure buffering is applied beyond what the transports provide: a
// slow consumer simply stalls the producing side.
type Bridge struct {
	engine engine.Engine
	log    zerolog.Logger
}

// NewBridge creates a console bridge over the given engine.
func NewBridge(eng engine.Engine, logger zerolog.Logger) *Bridge {
	return &Bridge{engine: eng, log: logger}
}

// Serve runs a console session until either direction terminates.
//
// The remote side's first frame must carry the target descriptor; a missing
// descriptor is a fatal precondition error. Once attached, container output
// is forwarded to the remote sink while remote input is written to the
// container's stdin. The two directions run concurrently and are torn down
// as a pair: end-of-stream, a write failure or a disconnect on either side
// immediately closes both.
func (b *Bridge) Serve(ctx context.Context, stream Stream) error {
	first, err := stream.Recv()
	if err != nil {
		return types.Precondition("console stream ended before the first message")
	}
	if first.Descriptor == "" {
		return types.Precondition("first console message must carry a descriptor")
	}

	attach, err := b.engine.Attach(ctx, first.Descriptor.ContainerName())
	if err != nil {
		return types.Internal("attach container", err)
	}

	log := b.log.With().Str("descriptor", string(first.Descriptor)).Logger()
	log.Info().Msg("console session attached")

	// Closing both ends unblocks whichever direction is still parked in a
	// read, so the first direction to finish drags the other down with it.
	var once sync.Once
	teardown := func() {
		once.Do(func() {
			attach.Close()
			stream.Close()
		})
	}
	defer teardown()

	g, gctx := errgroup.WithContext(ctx)

	// Honor cancellation of the surrounding request.
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-gctx.Done():
			teardown()
		case <-watchDone:
		}
	}()

	// container -> remote
	g.Go(func() error {
		defer teardown()
		buf := make([]byte, readBufferSize)
		for {
			n, err := attach.Reader.Read(buf)
			if n > 0 {
				if sendErr := stream.Send(buf[:n]); sendErr != nil {
					return sendErr
				}
			}
			if err != nil {
				return err
			}
		}
	})

	// remote -> container
	g.Go(func() error {
		defer teardown()
		for {
			frame, err := stream.Recv()
			if err != nil {
				return err
			}
			if len(frame.Data) == 0 {
				continue
			}
			if _, err := attach.Writer.Write(frame.Data); err != nil {
				return err
			}
		}
	})

	err = g.Wait()
	log.Info().Msg("console session closed")

	if isSessionEnd(err) {
		return nil
	}
	return err
}

// isSessionEnd filters the errors that just mean "the session is over":
// clean EOF from either side, or the unblocking close performed by the
// paired teardown.
func isSessionEnd(err error) bool {
	if err == nil || errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
		return true
	}
	if errors.Is(err, net.ErrClosed) || errors.Is(err, context.Canceled) {
		return true
	}
	return false
}
