// Command respcat decodes a stream of RESP replies into a human readable form,
// one reply per line, or packs commands into RESP requests.
//
//	respcat [-c conf.toml] [-chunk N] [-encoding name] [-lenient] [-metrics] [file]
//	respcat pack ARG...
//
// When pack is given no arguments it reads commands from stdin, one per line,
// and packs them all as a pipeline.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mediocregopher/respfeed/metrics"
	"github.com/mediocregopher/respfeed/resp"
	"github.com/mediocregopher/respfeed/trace"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) > 0 && args[0] == "pack" {
		return runPack(args[1:], stdin, stdout, stderr)
	}

	var (
		confPath string
		chunk    int
		encName  string
		lenient  bool
		showMets bool
	)
	fs := flag.NewFlagSet("respcat", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&confPath, "c", "", "conf file path")
	fs.IntVar(&chunk, "chunk", 0, "bytes fed to the decoder at a time, 0 for the whole input at once")
	fs.StringVar(&encName, "encoding", "", "text encoding bulk strings are transcoded from")
	fs.BoolVar(&lenient, "lenient", false, "parse malformed numbers the way atoi does")
	fs.BoolVar(&showMets, "metrics", false, "print decoder metrics to stderr once the input is exhausted")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	config, err := LoadConfig(confPath)
	if err != nil {
		fmt.Fprintf(stderr, "unmarshal config file failed, %s\n", err)
		return 1
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "chunk":
			config.Decoder.Chunk = chunk
		case "encoding":
			config.Decoder.Encoding = encName
		case "lenient":
			config.Decoder.Lenient = lenient
		case "metrics":
			config.Metrics.Enable = showMets
		}
	})

	mets := metrics.NewDecoderMetrics(config.Metrics.Namespace)
	logger, err := ConfigureZap(config.Logger.Name, config.Logger.Level, stderr, mets.Measure)
	if err != nil {
		fmt.Fprintf(stderr, "create logger failed, %s\n", err)
		return 1
	}
	zap.ReplaceGlobals(logger)
	defer logger.Sync()

	in := stdin
	if fs.NArg() > 0 {
		f, err := os.Open(fs.Arg(0))
		if err != nil {
			zap.L().Error("open input failed", zap.String("path", fs.Arg(0)), zap.Error(err))
			return 1
		}
		defer f.Close()
		in = f
	}

	code := decode(config, mets, in, stdout)

	if config.Metrics.Enable {
		reg := prometheus.NewRegistry()
		if err := mets.Register(reg); err != nil {
			zap.L().Error("register metrics failed", zap.Error(err))
			return 1
		}
		if err := metrics.WriteText(stderr, reg); err != nil {
			zap.L().Error("write metrics failed", zap.Error(err))
			return 1
		}
	}
	return code
}

func decoderTrace() trace.DecoderTrace {
	return trace.DecoderTrace{
		Suspended: func(s trace.DecoderSuspended) {
			zap.L().Debug("decoder suspended",
				zap.Int("buffered", s.Buffered), zap.Int("depth", s.Depth), zap.Int("need", s.Need))
		},
		Completed: func(c trace.DecoderCompleted) {
			zap.L().Debug("reply decoded",
				zap.String("type", c.Type), zap.Int("size", c.Size), zap.Int("suspensions", c.Suspensions))
		},
		ProtocolError: func(p trace.DecoderProtocolError) {
			zap.L().Error("protocol error",
				zap.Int("discarded", p.Discarded), zap.Int("depth", p.Depth), zap.Error(p.Err))
		},
	}
}

// decode feeds everything read from in into a Decoder, writing each reply to
// out as it is completed. It returns the process exit code.
func decode(config *Config, mets *metrics.DecoderMetrics, in io.Reader, out io.Writer) int {
	opts := []resp.DecoderOpt{
		resp.DecoderWithTrace(trace.MergeDecoderTraces(decoderTrace(), mets.Trace())),
	}
	if config.Decoder.Lenient {
		opts = append(opts, resp.DecoderLenientNumbers())
	}
	d := resp.NewDecoder(opts...)
	if err := d.SetTextEncoding(config.Decoder.Encoding); err != nil {
		zap.L().Error("set text encoding failed", zap.Error(err))
		return 1
	}

	w := bufio.NewWriter(out)
	defer w.Flush()

	drain := func() bool {
		for {
			r, err := d.Reply()
			if err == resp.ErrIncomplete {
				return true
			} else if err != nil {
				// already logged by the trace
				return false
			}
			fmt.Fprintln(w, r)
		}
	}

	if config.Decoder.Chunk <= 0 {
		b, err := ioutil.ReadAll(in)
		if err != nil {
			zap.L().Error("read input failed", zap.Error(err))
			return 1
		}
		d.Feed(b)
		if !drain() {
			return 1
		}
	} else {
		buf := make([]byte, config.Decoder.Chunk)
		for {
			n, err := in.Read(buf)
			d.Feed(buf[:n])
			if !drain() {
				return 1
			} else if err == io.EOF {
				break
			} else if err != nil {
				zap.L().Error("read input failed", zap.Error(err))
				return 1
			}
		}
	}

	if d.Pending() || d.Buffered() > 0 {
		zap.L().Warn("input ended part way through a reply", zap.Stringer("decoder", d))
		return 1
	}
	return 0
}

func runPack(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var b []byte
	var err error
	if len(args) > 0 {
		cmd := make([]interface{}, len(args))
		for i := range args {
			cmd[i] = args[i]
		}
		b, err = resp.Pack(cmd...)
	} else {
		var cmds [][]interface{}
		sc := bufio.NewScanner(stdin)
		for sc.Scan() {
			fields := strings.Fields(sc.Text())
			if len(fields) == 0 {
				continue
			}
			cmd := make([]interface{}, len(fields))
			for i := range fields {
				cmd[i] = fields[i]
			}
			cmds = append(cmds, cmd)
		}
		if err = sc.Err(); err == nil {
			b, err = resp.PackPipeline(cmds...)
		}
	}

	if err != nil {
		fmt.Fprintf(stderr, "pack failed, %s\n", err)
		return 1
	} else if _, err := stdout.Write(b); err != nil {
		fmt.Fprintf(stderr, "write failed, %s\n", err)
		return 1
	}
	return 0
}

// ConfigureZap creates a zap logger writing console-encoded entries to w,
// with each entry also passed to the given hooks. level is any of zap's level
// names, e.g. "debug" or "warn".
func ConfigureZap(name, level string, w io.Writer, hooks ...func(zapcore.Entry) error) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("unknown log level(%s)", level)
	}

	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.NameKey = "Name"
	encoderCfg.MessageKey = "Message"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.AddSync(w), zap.NewAtomicLevelAt(lvl))
	logger := zap.New(core, zap.AddCaller(), zap.Hooks(hooks...))
	return logger.Named(name), nil
}
