//go:build linux

package core

import (
	"encoding/binary"
	"fmt"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"
)

// startFileNotifier watches the parent directory of path with inotify.
// Watching the directory (not the file) catches atomic renames: a writer
// that replaces the file through a temp file creates a new inode, which a
// file-level watch on the old inode would miss.
//
// Only IN_CLOSE_WRITE and IN_MOVED_TO on the target name count as
// modifications. The returned channel is closed once stop is closed and
// the inotify fd has been released.
func startFileNotifier(path string, _ time.Duration, stop <-chan struct{}) (<-chan struct{}, error) {
	fd, err := unix.InotifyInit1(unix.IN_NONBLOCK | unix.IN_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("inotify_init1: %w", err)
	}
	dir := filepath.Dir(path)
	if _, err := unix.InotifyAddWatch(fd, dir, unix.IN_CLOSE_WRITE|unix.IN_MOVED_TO); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("inotify_add_watch on %s: %w", dir, err)
	}

	changes := make(chan struct{}, 1)
	go inotifyLoop(fd, filepath.Base(path), changes, stop)
	return changes, nil
}

// inotifyLoop polls the inotify fd with a 100ms timeout so it stays
// responsive to stop without spinning.
func inotifyLoop(fd int, filename string, changes chan<- struct{}, stop <-chan struct{}) {
	defer close(changes)
	defer unix.Close(fd)

	buffer := make([]byte, 4096)
	for {
		select {
		case <-stop:
			return
		default:
		}

		fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		n, err := unix.Poll(fds, 100)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return
		}
		if n == 0 {
			continue
		}

		read, err := unix.Read(fd, buffer)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EINTR {
				continue
			}
			return
		}
		if !inotifyMatches(buffer[:read], filename) {
			continue
		}

		// Coalesce rapid successive writes.
		time.Sleep(debounceWindow)
		drainInotify(fd, buffer)
		signal(changes)
	}
}

// inotifyMatches reports whether any event in buffer names filename.
// Layout from inotify(7):
//
//	struct inotify_event {
//	    int32_t  wd;     // offset 0
//	    uint32_t mask;   // offset 4
//	    uint32_t cookie; // offset 8
//	    uint32_t len;    // offset 12
//	    char     name[]; // offset 16, null-padded
//	};
func inotifyMatches(buffer []byte, filename string) bool {
	offset := 0
	for offset+unix.SizeofInotifyEvent <= len(buffer) {
		nameLen := int(binary.NativeEndian.Uint32(buffer[offset+12 : offset+16]))
		size := unix.SizeofInotifyEvent + nameLen
		if offset+size > len(buffer) {
			break
		}
		if nameLen > 0 {
			name := buffer[offset+unix.SizeofInotifyEvent : offset+size]
			for i, b := range name {
				if b == 0 {
					name = name[:i]
					break
				}
			}
			if string(name) == filename {
				return true
			}
		}
		offset += size
	}
	return false
}

// drainInotify discards queued events after a debounce window.
func drainInotify(fd int, buffer []byte) {
	for {
		if _, err := unix.Read(fd, buffer); err != nil {
			return
		}
	}
}
