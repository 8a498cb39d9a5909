//go:build linux

package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unsafe"

	"golang.org/x/sys/unix"
)

// readBufferSize fits at least 64 maximal events per read.
const readBufferSize = 64 * (unix.SizeofInotifyEvent + unix.NAME_MAX + 1)

// inotifyNotifier implements Notifier on a single inotify instance.
// A pipe is polled next to the inotify descriptor so that a blocked Next can
// be woken when its context is cancelled.
type inotifyNotifier struct {
	logger *slog.Logger
	queue  []Event
	buf    []byte
	fd     int
	wakeR  int
	wakeW  int
	closed bool
}

func newNotifier(logger *slog.Logger) (Notifier, error) {
	return newInotifyNotifier(logger)
}

// newInotifyNotifier initializes inotify and the wake pipe.
func newInotifyNotifier(logger *slog.Logger) (*inotifyNotifier, error) {
	fd, err := unix.InotifyInit1(unix.IN_CLOEXEC | unix.IN_NONBLOCK)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize inotify: %w", err)
	}

	var p [2]int
	if err := unix.Pipe2(p[:], unix.O_CLOEXEC|unix.O_NONBLOCK); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("failed to create wake pipe: %w", err)
	}

	return &inotifyNotifier{
		logger: logger,
		buf:    make([]byte, readBufferSize),
		fd:     fd,
		wakeR:  p[0],
		wakeW:  p[1],
	}, nil
}

// Add adds an inotify watch for a directory.
func (n *inotifyNotifier) Add(path string, mask Mask) (int, error) {
	if n.closed {
		return -1, ErrClosed
	}

	wd, err := unix.InotifyAddWatch(n.fd, path, uint32(mask)|unix.IN_ONLYDIR)
	if err != nil {
		return -1, fmt.Errorf("inotify_add_watch %s: %w", path, err)
	}

	n.logger.Debug("added watch", "path", path, "wd", wd, "mask", mask)
	return wd, nil
}

// Remove removes an inotify watch. The kernel answers with IN_IGNORED.
func (n *inotifyNotifier) Remove(wd int) error {
	if n.closed {
		return ErrClosed
	}

	//nolint:gosec // G115: wd is always a small non-negative int from inotify
	if _, err := unix.InotifyRmWatch(n.fd, uint32(wd)); err != nil {
		return fmt.Errorf("inotify_rm_watch %d: %w", wd, err)
	}
	return nil
}

// Next returns the next queued event, reading from the kernel when the
// queue is empty.
func (n *inotifyNotifier) Next(ctx context.Context) (Event, error) {
	for len(n.queue) == 0 {
		if n.closed {
			return Event{}, ErrClosed
		}
		if err := ctx.Err(); err != nil {
			return Event{}, err
		}
		if err := n.fill(ctx); err != nil {
			return Event{}, err
		}
	}

	ev := n.queue[0]
	n.queue = n.queue[1:]
	return ev, nil
}

// fill waits for the inotify descriptor or the wake pipe and reads whatever
// is available. Returning nil with an empty queue means "try again".
func (n *inotifyNotifier) fill(ctx context.Context) error {
	woken := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		_, _ = unix.Write(n.wakeW, []byte{0})
		close(woken)
	})
	// The wake write must finish before the caller may Close the pipe.
	defer func() {
		if !stop() {
			<-woken
		}
	}()

	fds := []unix.PollFd{
		{Fd: int32(n.fd), Events: unix.POLLIN},    //nolint:gosec // G115: fds fit in int32
		{Fd: int32(n.wakeR), Events: unix.POLLIN}, //nolint:gosec // G115: fds fit in int32
	}

	if _, err := unix.Poll(fds, -1); err != nil {
		if errors.Is(err, unix.EINTR) {
			return nil
		}
		return fmt.Errorf("failed to poll inotify: %w", err)
	}

	if fds[1].Revents != 0 {
		n.drainWake()
	}

	if fds[0].Revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
		return fmt.Errorf("inotify descriptor failed (revents=%#x)", fds[0].Revents)
	}
	if fds[0].Revents&unix.POLLIN == 0 {
		return nil
	}

	nr, err := unix.Read(n.fd, n.buf)
	if err != nil {
		if errors.Is(err, unix.EINTR) || errors.Is(err, unix.EAGAIN) {
			return nil
		}
		return fmt.Errorf("failed to read inotify events: %w", err)
	}
	if nr < unix.SizeofInotifyEvent {
		return nil
	}

	n.parse(n.buf[:nr])
	return nil
}

// parse appends the raw events in buf to the queue.
func (n *inotifyNotifier) parse(buf []byte) {
	offset := 0
	for offset+unix.SizeofInotifyEvent <= len(buf) {
		//nolint:gosec // G103: Legitimate use of unsafe for syscall interface with inotify
		raw := (*unix.InotifyEvent)(unsafe.Pointer(&buf[offset]))
		nameStart := offset + unix.SizeofInotifyEvent
		nameEnd := nameStart + int(raw.Len)
		if nameEnd > len(buf) {
			n.logger.Warn("truncated inotify event", "offset", offset, "len", raw.Len)
			return
		}

		name := ""
		if raw.Len > 0 {
			nameBytes := buf[nameStart:nameEnd]
			name = string(nameBytes[:clen(nameBytes)])
		}

		n.queue = append(n.queue, Event{
			WD:     int(raw.Wd),
			Mask:   Mask(raw.Mask),
			Cookie: raw.Cookie,
			Name:   name,
		})
		offset = nameEnd
	}
}

// drainWake empties the wake pipe.
func (n *inotifyNotifier) drainWake() {
	var b [64]byte
	for {
		if nr, err := unix.Read(n.wakeR, b[:]); err != nil || nr <= 0 {
			return
		}
	}
}

// Close closes the inotify instance, which drops every watch.
func (n *inotifyNotifier) Close() error {
	if n.closed {
		return nil
	}
	n.closed = true

	err := unix.Close(n.fd)
	_ = unix.Close(n.wakeR)
	_ = unix.Close(n.wakeW)
	n.queue = nil
	return err
}

// clen returns the length of a null-terminated byte slice.
func clen(n []byte) int {
	for i := 0; i < len(n); i++ {
		if n[i] == 0 {
			return i
		}
	}
	return len(n)
}
