package audio

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lium-dot/alpha/pkg/bot/stt"
)

// Pipeline turns a raw voice-note payload into text: transcode, submit to
// the transcription service, remove the scratch file.
type Pipeline struct {
	transcoder  Transcoder
	transcriber stt.Transcriber
	logger      *slog.Logger
}

// NewPipeline wires a transcoder and a transcription client together.
func NewPipeline(transcoder Transcoder, transcriber stt.Transcriber, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		transcoder:  transcoder,
		transcriber: transcriber,
		logger:      logger,
	}
}

// Transcribe normalizes and transcribes raw audio bytes. Once transcoding
// has produced a file, that file is removed before Transcribe returns,
// whether or not the transcription call succeeded. Any stage failure
// short-circuits to an error; no partial text is returned.
func (p *Pipeline) Transcribe(ctx context.Context, raw []byte) (string, error) {
	path, err := p.transcoder.Transcode(ctx, raw)
	if err != nil {
		return "", fmt.Errorf("transcode: %w", err)
	}
	defer func() {
		if err := os.Remove(path); err != nil {
			p.logger.Warn("remove transcode output failed", "path", path, "error", err)
		}
	}()

	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open transcode output: %w", err)
	}
	defer file.Close()

	text, err := p.transcriber.Transcribe(ctx, file, filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	return text, nil
}
