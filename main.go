package main

import (
	"context"
	"flag"
	"os"
	"runtime/pprof"

	"log/slog"

	"github.com/bonnefoa/mmap_readahead/app"
	"github.com/bonnefoa/mmap_readahead/relation"
	"github.com/jackc/pgx/v5"
)

type QueryTracer struct{}

func (q QueryTracer) TraceQueryStart(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	slog.Debug("Running query", "SQL", data.SQL, "args", data.Args)
	return ctx
}

func (q QueryTracer) TraceQueryEnd(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryEndData) {
}

func main() {
	os.Exit(run())
}

func run() int {
	ctx := context.Background()
	flag.Parse()

	cliArgs, err := app.ParseCliArgs()
	if err != nil {
		slog.Error("Error while parsing arguments", "error", err)
		flag.Usage()
		return app.ExitCode(err)
	}

	if cliArgs.Cpuprofile != "" {
		f, err := os.Create(cliArgs.Cpuprofile)
		if err != nil {
			slog.Error("could not create CPU profile", "error", err)
			return app.ExitCode(err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			slog.Error("could not start CPU profile", "error", err)
			return app.ExitCode(err)
		}
		defer pprof.StopCPUProfile()
	}

	// The db connection is only needed to resolve relations
	var querier relation.Querier
	if len(cliArgs.Relations) > 0 {
		config, err := pgx.ParseConfig(cliArgs.ConnectString)
		if err != nil {
			slog.Error("Error parsing connection string", "error", err)
			return app.ExitCode(app.ErrUsage)
		}
		config.Tracer = QueryTracer{}
		conn, err := pgx.ConnectConfig(ctx, config)
		if err != nil {
			slog.Error("Unable to connect to database", "error", err)
			return app.ExitCode(err)
		}
		defer conn.Close(ctx)
		querier = conn
	}

	readahead, err := app.NewReadahead(cliArgs, querier)
	if err != nil {
		slog.Error("New Readahead error", "error", err)
		return app.ExitCode(err)
	}

	err = readahead.Run(ctx)
	if err != nil {
		slog.Error("Run error", "error", err)
		return app.ExitCode(err)
	}
	return 0
}
