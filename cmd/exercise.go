package cmd

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/leftmike/verpage/mvcc"
	"github.com/leftmike/verpage/page"
)

var (
	exerciseCmd = &cobra.Command{
		Use:   "exercise",
		Short: "Run a writer and concurrent readers against the page cache and verify what they see",
		RunE:  exerciseRun,
	}

	readers  int
	pages    int
	versions int
	seed     int64
	timeout  time.Duration
)

func init() {
	cfg.Var(&readers, "readers").Usage("number of concurrent `readers`").
		Env("VERPAGE_READERS").Int(4)
	cfg.Var(&pages, "pages").Usage("number of `pages` to write").Env("VERPAGE_PAGES").Int(16)
	cfg.Var(&versions, "versions").Usage("number of `versions` to write").
		Env("VERPAGE_VERSIONS").Int(100)
	cfg.Var(&seed, "seed").Usage("`seed` for choosing the version each reader reads at").
		Env("VERPAGE_SEED").Int64(1)
	cfg.Var(&timeout, "timeout").Usage("stop writing after `duration`; zero means no limit").
		Env("VERPAGE_TIMEOUT").Duration(0)

	verpageCmd.AddCommand(exerciseCmd)
}

type exerciseStats struct {
	versions uint64
	reads    uint64
	retries  uint64
	failures uint64
	elapsed  time.Duration
}

func exerciseRun(cmd *cobra.Command, args []string) error {
	if readers < 1 || pages < 1 || versions < 1 {
		return fmt.Errorf("verpage: exercise: readers, pages, and versions must be at least one")
	}

	mc, cntrs, err := openCache()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	stats, err := exercise(ctx, mc, pages, versions, readers, seed)
	if err != nil {
		closeCache(mc)
		return err
	}
	pruned := mc.Prune(stats.versions)

	tw := tablewriter.NewWriter(os.Stdout)
	tw.SetAutoFormatHeaders(false)
	tw.SetHeader([]string{"stat", "value"})
	tw.Append([]string{"versions", strconv.FormatUint(stats.versions, 10)})
	tw.Append([]string{"pages", strconv.Itoa(pages)})
	tw.Append([]string{"readers", strconv.Itoa(readers)})
	tw.Append([]string{"copied pages", strconv.FormatUint(cntrs.CopiedPages(), 10)})
	tw.Append([]string{"snapshots loaded", strconv.FormatUint(cntrs.SnapshotsLoaded(), 10)})
	tw.Append([]string{"reads", strconv.FormatUint(stats.reads, 10)})
	tw.Append([]string{"retries", strconv.FormatUint(stats.retries, 10)})
	tw.Append([]string{"failures", strconv.FormatUint(stats.failures, 10)})
	tw.Append([]string{"pruned snapshots", strconv.Itoa(pruned)})
	tw.Append([]string{"elapsed", stats.elapsed.String()})
	tw.Render()

	err = closeCache(mc)
	if err != nil {
		return err
	}
	if stats.failures > 0 {
		return fmt.Errorf("verpage: exercise: %d failures", stats.failures)
	}
	return nil
}

// exercise writes pages 0 to pages-1 under versions 1 to versions, one version at a time,
// while readers read every page as of a randomly chosen version that has been completely
// written. Every page carries its version at offsets 0 and 8, so a reader must see the version
// it reads at in both places.
func exercise(ctx context.Context, mc *mvcc.Cache, pages, versions, readers int,
	seed int64) (exerciseStats, error) {

	var stats exerciseStats
	var committed uint64
	done := make(chan struct{})
	errs := make(chan error, readers+1)
	start := time.Now()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(done)

		vc := mvcc.NewVersionContext()
		for ver := uint64(1); ver <= uint64(versions); ver += 1 {
			select {
			case <-ctx.Done():
				log.WithField("version", ver).Info("exercise interrupted")
				return
			default:
			}

			vc.SetWriteAndReadVersion(ver)
			cr, err := mc.OpenCursor(0, page.Write, vc)
			if err != nil {
				errs <- err
				return
			}
			for pid := 0; pid < pages; pid += 1 {
				_, err := cr.Next()
				if err != nil {
					cr.Close()
					errs <- err
					return
				}
				cr.PutLongAt(0, int64(ver))
				cr.PutLongAt(8, int64(ver))
			}
			cr.Close()
			atomic.StoreUint64(&committed, ver)
		}
	}()

	for r := 0; r < readers; r += 1 {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()

			rnd := rand.New(rand.NewSource(seed + int64(r)))
			vc := mvcc.NewVersionContext()
			for {
				select {
				case <-done:
					return
				default:
				}

				last := atomic.LoadUint64(&committed)
				if last == 0 {
					runtime.Gosched()
					continue
				}
				horizon := 1 + uint64(rnd.Int63n(int64(last)))
				vc.SetVersions(0, horizon, nil)
				err := readPages(mc, vc, pages, horizon, &stats)
				if err != nil {
					errs <- err
					return
				}
			}
		}(r)
	}

	wg.Wait()
	stats.versions = atomic.LoadUint64(&committed)
	stats.elapsed = time.Since(start)

	select {
	case err := <-errs:
		return stats, fmt.Errorf("verpage: exercise: %s", err)
	default:
	}
	return stats, nil
}

func readPages(mc *mvcc.Cache, vc *mvcc.VersionContext, pages int, horizon uint64,
	stats *exerciseStats) error {

	cr, err := mc.OpenCursor(0, page.Read, vc)
	if err != nil {
		return err
	}
	defer cr.Close()

	for pid := 0; pid < pages; pid += 1 {
		ok, err := cr.Next()
		if err != nil {
			return err
		} else if !ok {
			return fmt.Errorf("page %d does not exist", pid)
		}

		var v0, v8 int64
		for {
			v0 = cr.GetLongAt(0)
			v8 = cr.GetLongAt(8)
			if !cr.ShouldRetry() {
				break
			}
			atomic.AddUint64(&stats.retries, 1)
		}
		atomic.AddUint64(&stats.reads, 1)

		if uint64(v0) != horizon || uint64(v8) != horizon {
			atomic.AddUint64(&stats.failures, 1)
			log.WithFields(log.Fields{
				"page":    pid,
				"horizon": horizon,
				"value-0": v0,
				"value-8": v8,
			}).Error("exercise read wrong version")
		}
	}
	return nil
}
