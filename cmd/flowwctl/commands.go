package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/danmuck/floww/internal/config"
	"github.com/danmuck/floww/internal/logging"
	"github.com/danmuck/floww/internal/midiimport"
	"github.com/danmuck/floww/internal/model"
	"github.com/danmuck/floww/internal/sheetfile"
	"github.com/danmuck/floww/internal/stream"
)

const usage = `usage: flowwctl <command> [flags]

commands:
  import   convert a Standard MIDI File into a stream (-sheet writes TOML instead)
  encode   encode a TOML sheet into a stream
  decode   decode a stream into a TOML sheet
  dump     print the events of a stream
`

var errUsage = errors.New("invalid usage")

func run(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stdout, usage)
		return errUsage
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch args[0] {
	case "import":
		return runImport(args[1:])
	case "encode":
		return runEncode(args[1:])
	case "decode":
		return runDecode(ctx, args[1:])
	case "dump":
		return runDump(ctx, args[1:], stdout)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		fmt.Fprint(stdout, usage)
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
}

type ioFlags struct {
	fs         *flag.FlagSet
	configPath *string
	input      *string
	output     *string
}

func newIOFlags(name string) ioFlags {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	return ioFlags{
		fs:         fs,
		configPath: fs.String("config", "", "floww config path (defaults apply when empty)"),
		input:      fs.String("in", "", "input path"),
		output:     fs.String("out", "", "output path"),
	}
}

func (f ioFlags) parse(args []string) (config.Config, error) {
	if err := f.fs.Parse(args); err != nil {
		return config.Config{}, err
	}
	if *f.input == "" {
		return config.Config{}, fmt.Errorf("%w: %s requires -in", errUsage, f.fs.Name())
	}
	if *f.configPath == "" {
		return config.Default(), nil
	}
	return config.Load(*f.configPath)
}

func (f ioFlags) requireOutput() error {
	if *f.output == "" {
		return fmt.Errorf("%w: %s requires -out", errUsage, f.fs.Name())
	}
	return nil
}

func runImport(args []string) error {
	logger := logging.For("flowwctl")
	f := newIOFlags("import")
	asSheet := f.fs.Bool("sheet", false, "write a TOML sheet instead of a stream")
	cfg, err := f.parse(args)
	if err != nil {
		return err
	}
	if err := f.requireOutput(); err != nil {
		return err
	}

	in, err := os.Open(*f.input)
	if err != nil {
		return err
	}
	defer in.Close()

	if *asSheet {
		s, err := midiimport.Import(bufio.NewReader(in), cfg.ImportOptions(), cfg.SheetOptions()...)
		if err != nil {
			return err
		}
		if err := sheetfile.Save(*f.output, s); err != nil {
			return err
		}
		logger.Info().Str("in", *f.input).Str("out", *f.output).Int("tracks", s.Len()).Msg("midi imported to sheet")
		return nil
	}

	return writeFile(*f.output, func(w io.Writer) error {
		enc, err := midiimport.Stream(bufio.NewReader(in), w, cfg.StreamEncoder(), cfg.ImportOptions())
		if err != nil {
			return err
		}
		logger.Info().Str("in", *f.input).Str("out", *f.output).Int64("bytes", enc.Written()).
			Uint32("checksum", enc.Checksum()).Msg("midi imported to stream")
		return nil
	})
}

func runEncode(args []string) error {
	logger := logging.For("flowwctl")
	f := newIOFlags("encode")
	cfg, err := f.parse(args)
	if err != nil {
		return err
	}
	if err := f.requireOutput(); err != nil {
		return err
	}
	s, err := sheetfile.Load(*f.input, cfg.SheetOptions()...)
	if err != nil {
		return err
	}
	if err := writeFile(*f.output, func(w io.Writer) error {
		return stream.EncodeSheet(w, s, cfg.StreamEncoder())
	}); err != nil {
		return err
	}
	logger.Info().Str("in", *f.input).Str("out", *f.output).Int("tracks", s.Len()).Msg("sheet encoded")
	return nil
}

func runDecode(ctx context.Context, args []string) error {
	logger := logging.For("flowwctl")
	f := newIOFlags("decode")
	cfg, err := f.parse(args)
	if err != nil {
		return err
	}
	if err := f.requireOutput(); err != nil {
		return err
	}
	in, err := os.Open(*f.input)
	if err != nil {
		return err
	}
	defer in.Close()

	s, err := stream.ReadSheet(ctx, in, cfg.StreamDecoder(), cfg.SheetOptions()...)
	if err != nil {
		return err
	}
	if err := sheetfile.Save(*f.output, s); err != nil {
		return err
	}
	logger.Info().Str("in", *f.input).Str("out", *f.output).Int("tracks", s.Len()).Msg("stream decoded")
	return nil
}

func runDump(ctx context.Context, args []string, stdout io.Writer) error {
	f := newIOFlags("dump")
	cfg, err := f.parse(args)
	if err != nil {
		return err
	}
	in, err := os.Open(*f.input)
	if err != nil {
		return err
	}
	defer in.Close()

	out := bufio.NewWriter(stdout)
	defer out.Flush()

	headerShown := false
	d, err := stream.DecodeReader(ctx, in, cfg.StreamDecoder(), func(d *stream.Decoder, ev model.StreamEvent) error {
		if !headerShown {
			fmt.Fprintf(out, "header version=%d ticks_per_beat=%d\n", d.Version(), d.TicksPerBeat())
			headerShown = true
		}
		_, err := fmt.Fprintf(out, "%08d %s\n", d.Offset(), describe(ev))
		return err
	})
	if err != nil {
		return err
	}
	if d.Skipped() > 0 {
		fmt.Fprintf(out, "skipped %d extension frames\n", d.Skipped())
	}
	return nil
}

func describe(ev model.StreamEvent) string {
	switch v := ev.(type) {
	case model.TrackStart:
		return fmt.Sprintf("track_start id=%q", v.ID)
	case model.TrackEnd:
		return "track_end"
	case model.StreamEnd:
		return fmt.Sprintf("stream_end checksum=%08x verified=%t", v.Checksum, v.Verified)
	case model.Note:
		return fmt.Sprintf("note at=%d duration=%d pitch=%d velocity=%d", v.Onset, v.Duration, v.Pitch, v.Velocity)
	case model.ControlChange:
		return fmt.Sprintf("%s at=%d channel=%d controller=%d value=%d", v.Kind(), v.Time, v.Channel, v.Controller, v.Value)
	case model.ProgramChange:
		return fmt.Sprintf("%s at=%d channel=%d program=%d", v.Kind(), v.Time, v.Channel, v.Program)
	case model.PitchBend:
		return fmt.Sprintf("%s at=%d channel=%d value=%d", v.Kind(), v.Time, v.Channel, v.Value)
	case model.Tempo:
		return fmt.Sprintf("%s at=%d micros_per_beat=%d", v.Kind(), v.Time, v.MicrosPerBeat)
	case model.Marker:
		return fmt.Sprintf("%s at=%d text=%q", v.Kind(), v.Time, v.Text)
	default:
		return fmt.Sprintf("%T", ev)
	}
}

// writeFile removes a partially written output when fn fails.
func writeFile(path string, fn func(io.Writer) error) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(out)
	err = fn(w)
	if err == nil {
		err = w.Flush()
	}
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return err
	}
	return nil
}
