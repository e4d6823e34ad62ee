package testutil

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	log "github.com/sirupsen/logrus"
)

var (
	logFile   = ""
	logLevel  = "debug"
	logStderr = false

	setupOnce sync.Once
)

func init() {
	flag.StringVar(&logFile, "log-file", logFile, "`file` to use for logging")
	flag.StringVar(&logLevel, "log-level", logLevel,
		"log level: trace, debug, info, warn, error, fatal, or panic")
	flag.BoolVar(&logStderr, "log-stderr", logStderr, "log to standard error")
	flag.BoolVar(&logStderr, "s", logStderr, "log to standard error")
}

// SetupLogger points the standard logger at file, unless -log-file or -log-stderr was given,
// and returns it. Only the first call in a test binary has any effect.
func SetupLogger(file string) *log.Logger {
	setupOnce.Do(func() {
		if !logStderr {
			if logFile != "" {
				file = logFile
			}

			err := os.MkdirAll(filepath.Dir(file), 0755)
			if err != nil {
				panic(err)
			}
			w, err := os.OpenFile(file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
			if err != nil {
				panic(err)
			}
			fmt.Fprintln(w)
			log.SetOutput(w)
		}

		ll, err := log.ParseLevel(logLevel)
		if err != nil {
			panic(err)
		}
		log.SetLevel(ll)

		log.WithField("pid", os.Getpid()).Info("tests starting")
	})
	return log.StandardLogger()
}
