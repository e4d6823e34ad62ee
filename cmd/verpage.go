package cmd

import (
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/leftmike/verpage/config"
	"github.com/leftmike/verpage/page"
)

var (
	verpageCmd = &cobra.Command{
		Use:          "verpage",
		Short:        "A multiversion page cache",
		Long:         "Verpage keeps versioned copies of pages in a buffer pool for concurrent readers.",
		SilenceUsage: true,
	}

	logFile   string
	logLevel  string
	logStderr = false
	logWriter io.WriteCloser

	configFile = "verpage.hcl"
	noConfig   = false

	cfg = config.NewConfig(verpageCmd.PersistentFlags())

	pageSize      int
	reservedBytes int
	capacity      int
	store         string
	dataDir       string
)

func init() {
	log.SetFormatter(&log.TextFormatter{
		DisableLevelTruncation: true,
	})

	verpageCmd.PersistentPreRunE = verpagePreRun
	verpageCmd.PersistentPostRun = verpagePostRun

	fs := verpageCmd.PersistentFlags()

	cfg.Var(&logFile, "log-file").Usage("`file` to use for logging").Env("VERPAGE_LOG_FILE").
		String("verpage.log")
	cfg.Var(&logLevel, "log-level").
		Usage("log level: trace, debug, info, warn, error, fatal, or panic").
		Env("VERPAGE_LOG_LEVEL").String("info")
	fs.BoolVarP(&logStderr, "log-stderr", "s", logStderr, "log to standard error")

	fs.StringVar(&configFile, "config-file", configFile, "`file` to load config from")
	fs.BoolVar(&noConfig, "no-config", noConfig, "don't load config file")

	cfg.Var(&pageSize, "page-size").Usage("size of a page in `bytes`").
		Env("VERPAGE_PAGE_SIZE").Int(page.DefaultPageSize)
	cfg.Var(&reservedBytes, "reserved-bytes").Usage("`bytes` reserved at the start of a page").
		Env("VERPAGE_RESERVED_BYTES").Int(page.DefaultReservedBytes)
	cfg.Var(&capacity, "capacity").Usage("`frames` in the buffer pool").
		Env("VERPAGE_CAPACITY").Int(page.DefaultCapacity)
	cfg.Var(&store, "store").Usage("page store: file, btree, bbolt, badger, or pebble").
		Env("VERPAGE_STORE").String("btree")
	cfg.Var(&dataDir, "data").Usage("`directory` containing the page store").
		Env("VERPAGE_DATA").String("testdata")
}

func Execute() error {
	return verpageCmd.Execute()
}

func verpagePreRun(cmd *cobra.Command, args []string) error {
	if configFile != "" && !noConfig {
		err := cfg.Load(configFile)
		if err != nil && !(os.IsNotExist(err) && !cmd.Flags().Changed("config-file")) {
			return fmt.Errorf("verpage: %s", err)
		}
	}
	err := cfg.Env()
	if err != nil {
		return fmt.Errorf("verpage: %s", err)
	}

	if !logStderr && logFile != "" {
		var err error
		logWriter, err = os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
		if err != nil {
			logWriter = nil
			return fmt.Errorf("verpage: %s", err)
		}
		log.SetOutput(logWriter)
	}

	ll, err := log.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("verpage: %s", err)
	}
	log.SetLevel(ll)

	log.WithField("pid", os.Getpid()).Info("verpage starting")
	return nil
}

func verpagePostRun(cmd *cobra.Command, args []string) {
	log.WithField("pid", os.Getpid()).Info("verpage done")

	if logWriter != nil {
		logWriter.Close()
	}
}
