package repl

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"

	"github.com/leftmike/verpage/mvcc"
	"github.com/leftmike/verpage/page"
)

var errQuit = errors.New("quit")

// LineReader returns one command line at a time; io.EOF ends the session.
type LineReader interface {
	ReadLine() (string, error)
}

// Shell runs commands against a multiversion page cache and writes the results to w.
type Shell struct {
	mc    *mvcc.Cache
	cntrs *mvcc.Counters
	w     io.Writer
}

type command struct {
	usage string
	run   func(sh *Shell, args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"write": {"write <page> <version> <offset>=<value>...", (*Shell).write},
		"zap":   {"zap <page> <version>", (*Shell).zap},
		"read": {"read <page> <version> [x=<version>,...] [w=<version>] <offset>...",
			(*Shell).read},
		"versions": {"versions <page>", (*Shell).versions},
		"prune":    {"prune <horizon>", (*Shell).prune},
		"flush":    {"flush", (*Shell).flush},
		"stats":    {"stats", (*Shell).stats},
		"help":     {"help", (*Shell).help},
		"quit":     {"quit", func(sh *Shell, args []string) error { return errQuit }},
	}
}

// NewShell returns a shell over mc; cntrs, if not nil, must be the tracer of mc.
func NewShell(mc *mvcc.Cache, cntrs *mvcc.Counters, w io.Writer) *Shell {
	return &Shell{
		mc:    mc,
		cntrs: cntrs,
		w:     w,
	}
}

// Run executes commands until lr is exhausted or a quit command.
func (sh *Shell) Run(lr LineReader) {
	for {
		line, err := lr.ReadLine()
		if err == io.EOF {
			return
		} else if err != nil {
			fmt.Fprintln(sh.w, err)
			return
		}

		err = sh.Execute(line)
		if err == errQuit {
			return
		} else if err != nil {
			fmt.Fprintln(sh.w, err)
		}
	}
}

// Execute runs a single command line; empty lines and lines starting with # are ignored.
func (sh *Shell) Execute(line string) error {
	args := strings.Fields(line)
	if len(args) == 0 || strings.HasPrefix(args[0], "#") {
		return nil
	}

	cmd, ok := commands[strings.ToLower(args[0])]
	if !ok {
		return fmt.Errorf("repl: unknown command: %s", args[0])
	}
	log.WithField("command", line).Debug("repl")

	err := cmd.run(sh, args[1:])
	if err != nil && err != errQuit {
		return fmt.Errorf("repl: %s: %s", args[0], err)
	}
	return err
}

func parsePageVersion(args []string, usage string) (page.PageID, uint64, error) {
	if len(args) < 2 {
		return 0, 0, fmt.Errorf("usage: %s", usage)
	}
	pid, err := strconv.ParseUint(args[0], 0, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("page: %s", err)
	}
	ver, err := strconv.ParseUint(args[1], 0, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("version: %s", err)
	}
	return page.PageID(pid), ver, nil
}

func (sh *Shell) openCursor(pid page.PageID, mode page.Mode, vc *mvcc.VersionContext) (
	*mvcc.Cursor, error) {

	cr, err := sh.mc.OpenCursor(pid, mode, vc)
	if err != nil {
		return nil, err
	}
	ok, err := cr.Next()
	if err != nil {
		cr.Close()
		return nil, err
	} else if !ok {
		cr.Close()
		return nil, fmt.Errorf("page %d does not exist", pid)
	}
	return cr, nil
}

func (sh *Shell) write(args []string) error {
	usage := commands["write"].usage
	pid, ver, err := parsePageVersion(args, usage)
	if err != nil {
		return err
	}

	type intAt struct {
		off int
		val int32
	}
	var ints []intAt
	for _, arg := range args[2:] {
		ss := strings.SplitN(arg, "=", 2)
		if len(ss) != 2 {
			return fmt.Errorf("usage: %s", usage)
		}
		off, err := strconv.Atoi(ss[0])
		if err != nil {
			return fmt.Errorf("offset: %s", err)
		}
		val, err := strconv.ParseInt(ss[1], 0, 32)
		if err != nil {
			return fmt.Errorf("value: %s", err)
		}
		ints = append(ints, intAt{off, int32(val)})
	}

	vc := mvcc.NewVersionContext()
	vc.SetWriteAndReadVersion(ver)
	cr, err := sh.openCursor(pid, page.Write, vc)
	if err != nil {
		return err
	}
	defer cr.Close()

	for _, ia := range ints {
		cr.PutIntAt(ia.off, ia.val)
	}
	if cr.CheckAndClearBoundsFlag() {
		return fmt.Errorf("offset out of bounds: payload is %d bytes", sh.mc.PayloadSize())
	}
	fmt.Fprintf(sh.w, "page %d: %d values written at version %d\n", pid, len(ints), ver)
	return nil
}

func (sh *Shell) zap(args []string) error {
	pid, ver, err := parsePageVersion(args, commands["zap"].usage)
	if err != nil {
		return err
	}

	vc := mvcc.NewVersionContext()
	vc.SetWriteAndReadVersion(ver)
	cr, err := sh.openCursor(pid, page.Write, vc)
	if err != nil {
		return err
	}
	cr.ZapPage()
	cr.Close()

	fmt.Fprintf(sh.w, "page %d: zapped at version %d\n", pid, ver)
	return nil
}

func (sh *Shell) read(args []string) error {
	usage := commands["read"].usage
	pid, ver, err := parsePageVersion(args, usage)
	if err != nil {
		return err
	}

	var excluded []uint64
	var write uint64
	var offs []int
	for _, arg := range args[2:] {
		if strings.HasPrefix(arg, "x=") {
			for _, s := range strings.Split(arg[2:], ",") {
				v, err := strconv.ParseUint(s, 0, 64)
				if err != nil {
					return fmt.Errorf("excluded: %s", err)
				}
				excluded = append(excluded, v)
			}
		} else if strings.HasPrefix(arg, "w=") {
			write, err = strconv.ParseUint(arg[2:], 0, 64)
			if err != nil {
				return fmt.Errorf("write version: %s", err)
			}
		} else {
			off, err := strconv.Atoi(arg)
			if err != nil {
				return fmt.Errorf("offset: %s", err)
			}
			offs = append(offs, off)
		}
	}
	if len(offs) == 0 {
		return fmt.Errorf("usage: %s", usage)
	}

	vc := mvcc.NewVersionContext()
	vc.SetVersions(write, ver, excluded)
	cr, err := sh.openCursor(pid, page.Read, vc)
	if err != nil {
		return err
	}
	defer cr.Close()

	vals := make([]int32, len(offs))
	for {
		for idx, off := range offs {
			vals[idx] = cr.GetIntAt(off)
		}
		if !cr.ShouldRetry() {
			break
		}
	}
	if cr.CheckAndClearBoundsFlag() {
		return fmt.Errorf("offset out of bounds: payload is %d bytes", sh.mc.PayloadSize())
	}

	tw := tablewriter.NewWriter(sh.w)
	tw.SetAutoFormatHeaders(false)
	tw.SetHeader([]string{"offset", "value"})
	for idx, off := range offs {
		tw.Append([]string{strconv.Itoa(off), strconv.FormatInt(int64(vals[idx]), 10)})
	}
	tw.Render()
	fmt.Fprintf(sh.w, "(%d values)\n", tw.NumLines())
	return nil
}

func (sh *Shell) versions(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: %s", commands["versions"].usage)
	}
	pid, err := strconv.ParseUint(args[0], 0, 64)
	if err != nil {
		return fmt.Errorf("page: %s", err)
	}

	head, written, chain := sh.mc.Versions(page.PageID(pid))
	if !written {
		fmt.Fprintf(sh.w, "page %d: not written\n", pid)
		return nil
	}
	fmt.Fprintf(sh.w, "page %d: head %d, chain %v\n", pid, head, chain)
	return nil
}

func (sh *Shell) prune(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: %s", commands["prune"].usage)
	}
	horizon, err := strconv.ParseUint(args[0], 0, 64)
	if err != nil {
		return fmt.Errorf("horizon: %s", err)
	}

	fmt.Fprintf(sh.w, "%d snapshots pruned\n", sh.mc.Prune(horizon))
	return nil
}

func (sh *Shell) flush(args []string) error {
	err := sh.mc.Pool().Flush()
	if err != nil {
		return err
	}
	fmt.Fprintln(sh.w, "flushed")
	return nil
}

func (sh *Shell) stats(args []string) error {
	st := sh.mc.Pool().Stats()

	tw := tablewriter.NewWriter(sh.w)
	tw.SetAutoFormatHeaders(false)
	tw.SetHeader([]string{"stat", "value"})
	if sh.cntrs != nil {
		tw.Append([]string{"copied pages", strconv.FormatUint(sh.cntrs.CopiedPages(), 10)})
		tw.Append([]string{"snapshots loaded",
			strconv.FormatUint(sh.cntrs.SnapshotsLoaded(), 10)})
	}
	tw.Append([]string{"frames", strconv.Itoa(st.Frames)})
	tw.Append([]string{"faults", strconv.FormatUint(st.Faults, 10)})
	tw.Append([]string{"evictions", strconv.FormatUint(st.Evictions, 10)})
	tw.Append([]string{"flushes", strconv.FormatUint(st.Flushes, 10)})
	tw.Render()
	return nil
}

func (sh *Shell) help(args []string) error {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(sh.w, "  %s\n", commands[name].usage)
	}
	return nil
}
