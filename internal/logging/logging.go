package logging

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	File       string
	MaxSizeMB  int
	MaxAgeDays int
	MaxBackups int
}

// Setup points the standard logger at stderr and, when opts.File is set, a
// rotating log file as well. The returned writer should also be handed to
// anything that logs on its own (gin). Call the returned closer on shutdown.
func Setup(opts Options) (io.Writer, func() error) {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if opts.File == "" {
		log.SetOutput(os.Stderr)
		return os.Stderr, func() error { return nil }
	}

	lj := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    opts.MaxSizeMB, // MB
		MaxAge:     opts.MaxAgeDays,
		MaxBackups: opts.MaxBackups,
		Compress:   true,
	}
	w := io.MultiWriter(os.Stderr, lj)
	log.SetOutput(w)
	return w, lj.Close
}
