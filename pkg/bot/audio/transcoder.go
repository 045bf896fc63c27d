// Package audio normalizes voice notes for transcription: transcode an
// arbitrary compressed stream to mono 16 kHz MP3, submit it, clean up.
package audio

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// Transcoder converts a compressed audio byte stream into a normalized
// file on disk and returns its path. The caller owns the file.
type Transcoder interface {
	Transcode(ctx context.Context, audio []byte) (string, error)
}

// FFmpeg shells out to an ffmpeg binary, feeding the source stream on
// stdin. Output files are named from a nanosecond timestamp so concurrent
// transcodes never collide without any locking.
type FFmpeg struct {
	// Binary is the ffmpeg executable. Defaults to "ffmpeg" on PATH.
	Binary string

	// TempDir is where normalized files are written. Defaults to "temp".
	TempDir string
}

// Transcode writes a mono 16 kHz MP3 rendition of audio to a uniquely
// named file under TempDir and returns its path.
func (f *FFmpeg) Transcode(ctx context.Context, audio []byte) (string, error) {
	binary := f.Binary
	if binary == "" {
		binary = "ffmpeg"
	}
	dir := f.TempDir
	if dir == "" {
		dir = "temp"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}

	out := filepath.Join(dir, fmt.Sprintf("%d.mp3", time.Now().UnixNano()))

	cmd := exec.CommandContext(ctx, binary,
		"-i", "pipe:0",
		"-ar", "16000",
		"-ac", "1",
		"-f", "mp3",
		"-y", out,
	)
	cmd.Stdin = bytes.NewReader(audio)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		os.Remove(out)
		msg := bytes.TrimSpace(stderr.Bytes())
		if len(msg) > 0 {
			return "", fmt.Errorf("ffmpeg: %w: %s", err, msg)
		}
		return "", fmt.Errorf("ffmpeg: %w", err)
	}
	return out, nil
}
