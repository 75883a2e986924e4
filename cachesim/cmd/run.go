package cmd

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sarchlab/cachesim/datarecording"
	"github.com/sarchlab/cachesim/mem/cache/hierarchy"
	"github.com/sarchlab/cachesim/mem/cache/stats"
	"github.com/sarchlab/cachesim/mem/trace"
	"github.com/sarchlab/cachesim/simulation"
)

type runFlags struct {
	configFlags

	record       bool
	recordPath   string
	recordAccess bool
	clickHouse   datarecording.ClickHouseOptions
	csvTrace     string
	logAccesses  bool
	hotBlocks    int

	monitor     bool
	monitorPort int
	openBrowser bool
}

func newRunCommand() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run [trace-file]",
		Short: "Replay a trace through the cache hierarchy.",
		Long: `Replay a trace through the cache hierarchy and print the ` +
			`statistics. Each trace line is "r <address>" or "w <address>" ` +
			`with a hexadecimal address such as 0x1f40. Other lines are ` +
			`ignored. The trace is read from standard input when no file ` +
			`or "-" is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd, args, &flags)
		},
	}

	flags.register(cmd.Flags())

	f := cmd.Flags()
	f.BoolVar(&flags.record, "record", false,
		"Record the run summary into a new SQLite database")
	f.StringVar(&flags.recordPath, "record-path", "",
		"Path of the SQLite database, without extension (implies --record)")
	f.StringVar(&flags.clickHouse.Addr, "record-clickhouse", "",
		"Record into the ClickHouse server at this host:port")
	f.StringVar(&flags.clickHouse.Database, "clickhouse-database", "default",
		"ClickHouse database to record into")
	f.StringVar(&flags.clickHouse.Username, "clickhouse-user", "default",
		"ClickHouse user name")
	f.StringVar(&flags.clickHouse.Password, "clickhouse-password", "",
		"ClickHouse password")
	f.BoolVar(&flags.recordAccess, "record-accesses", false,
		"Also record every access (requires --record or --record-clickhouse)")
	f.StringVar(&flags.csvTrace, "csv-trace", "",
		"Write every access to this CSV file")
	f.BoolVar(&flags.logAccesses, "log-accesses", false,
		"Log every access to standard error")
	f.IntVar(&flags.hotBlocks, "hot-blocks", 0,
		"Print the N most accessed blocks after the report")
	f.BoolVar(&flags.monitor, "monitor", false,
		"Serve the progress of the replay over HTTP")
	f.IntVar(&flags.monitorPort, "monitor-port", 0,
		"Port of the monitoring server (random when 0)")
	f.BoolVar(&flags.openBrowser, "open-browser", false,
		"Open the monitoring page in a browser")

	return cmd
}

type traceInput struct {
	r    io.Reader
	size uint64
	file *os.File
}

func openTrace(args []string, stdin io.Reader) (traceInput, error) {
	if len(args) == 0 || args[0] == "-" {
		return traceInput{r: stdin}, nil
	}

	file, err := os.Open(args[0])
	if err != nil {
		return traceInput{}, fmt.Errorf("opening trace: %w", err)
	}

	input := traceInput{r: file, file: file}

	info, err := file.Stat()
	if err == nil && info.Mode().IsRegular() {
		input.size = uint64(info.Size())
	}

	return input, nil
}

func (t traceInput) Close() error {
	if t.file == nil {
		return nil
	}

	return t.file.Close()
}

func runReplay(cmd *cobra.Command, args []string, flags *runFlags) error {
	c, err := flags.load(cmd.Flags())
	if err != nil {
		return err
	}

	if flags.recordPath != "" {
		flags.record = true
	}

	if flags.record && flags.clickHouse.Addr != "" {
		return errors.New("--record and --record-clickhouse cannot be combined")
	}

	if flags.recordAccess && !flags.record && flags.clickHouse.Addr == "" {
		return errors.New(
			"--record-accesses requires --record or --record-clickhouse")
	}

	if !flags.monitor &&
		(flags.monitorPort != 0 || flags.openBrowser) {
		return errors.New("--monitor-port and --open-browser require --monitor")
	}

	input, err := openTrace(args, cmd.InOrStdin())
	if err != nil {
		return err
	}
	defer input.Close()

	builder := simulation.MakeBuilder().
		WithGeometry(c.Geometry).
		WithLatency(c.Latency)

	builder, closers, err := flags.withSideChannels(builder, cmd.ErrOrStderr())
	for _, closer := range closers {
		defer closer.Close()
	}

	if err != nil {
		return err
	}

	s := builder.Build()

	out := cmd.OutOrStdout()

	printHeading(out, "Cache Settings")
	err = stats.WriteSettings(out, c.Geometry)
	if err != nil {
		return err
	}

	fmt.Fprintln(out)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	err = s.Run(ctx, input.r, input.size)
	if err != nil {
		s.Terminate()

		if errors.Is(err, hierarchy.ErrClockOverflow) {
			return fmt.Errorf("the trace has more accesses than the "+
				"simulation clock can count: %w", err)
		}

		return err
	}

	err = s.Terminate()
	if err != nil {
		return fmt.Errorf("closing recording: %w", err)
	}

	statistics := s.Statistics()

	printHeading(out, "Cache Statistics")
	err = stats.WriteStatistics(out, &statistics)
	if err != nil {
		return err
	}

	if flags.hotBlocks > 0 {
		fmt.Fprintln(out)
		printHeading(out, "Hottest Blocks")
		printHotBlocks(out, s, flags.hotBlocks)
	}

	return nil
}

func (flags *runFlags) withSideChannels(
	b simulation.Builder,
	logOut io.Writer,
) (simulation.Builder, []io.Closer, error) {
	var closers []io.Closer

	recording := flags.record || flags.clickHouse.Addr != ""

	if flags.hotBlocks > 0 || recording {
		b = b.WithBlockProfile()
	}

	if recording {
		recorder, err := flags.openRecorder()
		if err != nil {
			return b, closers, err
		}

		closers = append(closers, recorder)
		b = b.WithDataRecorder(recorder)

		if flags.recordAccess {
			b = b.WithAccessLog()
		}
	}

	if flags.csvTrace != "" {
		w := trace.NewCSVTraceWriter(flags.csvTrace)

		err := w.Init()
		if err != nil {
			return b, closers, err
		}

		closers = append(closers, w)
		b = b.WithHook(w)
	}

	if flags.logAccesses {
		b = b.WithHook(trace.NewTracer(log.New(logOut, "", 0)))
	}

	if flags.monitor {
		b = b.WithMonitoring().WithMonitorPort(flags.monitorPort)
		if flags.openBrowser {
			b = b.WithBrowser()
		}
	}

	return b, closers, nil
}

func (flags *runFlags) openRecorder() (datarecording.DataRecorder, error) {
	if flags.clickHouse.Addr != "" {
		return datarecording.OpenClickHouse(flags.clickHouse)
	}

	return datarecording.Open(flags.recordPath)
}

func printHotBlocks(w io.Writer, s *simulation.Simulation, n int) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Address\tAccesses\tReads\tWrites\tL1 misses\t"+
		"L2 misses\tWrite backs\t")

	for _, r := range s.BlockProfile().Hottest(n) {
		fmt.Fprintf(tw, "0x%x\t%d\t%d\t%d\t%d\t%d\t%d\t\n",
			r.Address, r.Accesses, r.Reads, r.Writes,
			r.L1Misses, r.L2Misses, r.WriteBacks)
	}

	tw.Flush()
}
