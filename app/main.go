package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/umputun/go-flags"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/tepuyroraima/roster/app/roster"
	"github.com/tepuyroraima/roster/app/web"
	"github.com/tepuyroraima/roster/app/web/persistence"
)

var opts struct {
	Listen    string        `short:"l" long:"listen" env:"ROSTER_LISTEN" default:":8080" description:"web server listen address"`
	Store     string        `long:"store" env:"ROSTER_STORE" choice:"sqlite" choice:"mongo" default:"sqlite" description:"roster storage"`
	DB        string        `long:"db" env:"ROSTER_DB" default:"roster.db" description:"sqlite database file"`
	Seed      string        `long:"seed" env:"ROSTER_SEED" description:"yaml file with initial students for an empty store"`
	BaseURL   string        `long:"base-url" env:"ROSTER_BASE_URL" description:"base URL path for reverse proxy (e.g., /banda)"`
	LoadDelay time.Duration `long:"load-delay" env:"ROSTER_LOAD_DELAY" default:"1s" description:"dashboard delay before loading the roster"`
	ExportMax float64       `long:"export-limit" env:"ROSTER_EXPORT_LIMIT" default:"10" description:"max exports per minute per client"`

	Mongo struct {
		URI        string        `long:"uri" env:"URI" default:"mongodb://localhost:27017" description:"mongo connection string"`
		DB         string        `long:"db" env:"DB" default:"banda" description:"mongo database"`
		Collection string        `long:"collection" env:"COLLECTION" default:"students" description:"mongo collection"`
		Timeout    time.Duration `long:"timeout" env:"TIMEOUT" default:"10s" description:"mongo operation timeout"`
		Attempts   int           `long:"attempts" env:"ATTEMPTS" default:"3" description:"connection attempts on start"`
	} `group:"mongo" namespace:"mongo" env-namespace:"ROSTER_MONGO"`

	Log struct {
		Enabled         bool   `long:"enabled" env:"ENABLED" description:"enable logging to file"`
		Filename        string `long:"filename" env:"FILENAME" default:"roster.log" description:"log file name"`
		MaxSize         int    `long:"max-size" env:"MAX_SIZE" default:"100" description:"max log file size in MB"`
		MaxBackups      int    `long:"max-backups" env:"MAX_BACKUPS" default:"7" description:"max number of rotated files"`
		MaxAge          int    `long:"max-age" env:"MAX_AGE" default:"0" description:"max days to keep rotated files"`
		EnabledCompress bool   `long:"enabled-compress" env:"ENABLED_COMPRESS" description:"compress rotated files"`
	} `group:"log" namespace:"log" env-namespace:"ROSTER_LOG"`

	Dbg bool `long:"dbg" env:"ROSTER_DEBUG" description:"debug mode"`
}

var revision = "unknown"

// Store combines web persistence with the ability to release its resources
type Store interface {
	web.Persistence
	Close() error
}

func main() {
	fmt.Printf("roster %s\n", revision)

	if _, err := flags.Parse(&opts); err != nil {
		os.Exit(2)
	}

	out := setupLogs()
	if lj, ok := out.(*lumberjack.Logger); ok {
		defer lj.Close()
	}

	defer func() {
		if x := recover(); x != nil {
			log.Printf("[WARN] run time panic:\n%v", x)
			panic(x)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	signals() // handle SIGQUIT

	if err := run(ctx); err != nil {
		log.Printf("[ERROR] %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	store, err := makeStore(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("[WARN] failed to close store: %v", err)
		}
	}()

	srv, err := web.New(web.Config{
		Store:        store,
		BaseURL:      validateBaseURL(opts.BaseURL),
		Version:      revision,
		LoadDelay:    opts.LoadDelay,
		ExportPerMin: opts.ExportMax,
	})
	if err != nil {
		return fmt.Errorf("failed to create web server: %w", err)
	}
	return srv.Run(ctx, opts.Listen)
}

// makeStore opens the configured roster storage
func makeStore(ctx context.Context) (Store, error) {
	switch opts.Store {
	case "mongo":
		log.Printf("[INFO] using mongo store %s/%s", opts.Mongo.DB, opts.Mongo.Collection)
		st, err := persistence.NewMongoStore(ctx, persistence.MongoParams{
			URI:             opts.Mongo.URI,
			Database:        opts.Mongo.DB,
			Collection:      opts.Mongo.Collection,
			Timeout:         opts.Mongo.Timeout,
			ConnectAttempts: opts.Mongo.Attempts,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open mongo store: %w", err)
		}
		return st, nil
	case "sqlite", "":
		var seed []roster.Student
		if opts.Seed != "" {
			s, err := roster.LoadSeed(opts.Seed)
			if err != nil {
				return nil, err
			}
			seed = s
			log.Printf("[INFO] loaded %d seed students from %s", len(seed), opts.Seed)
		}
		log.Printf("[INFO] using sqlite store %s", opts.DB)
		st, err := persistence.NewSQLiteStore(opts.DB, seed)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return st, nil
	default:
		return nil, errors.New("unknown store " + opts.Store)
	}
}

// validateBaseURL normalizes base URL, drops trailing slash and treats "/" as empty
func validateBaseURL(u string) string {
	u = strings.TrimSpace(u)
	if u == "" || u == "/" {
		return ""
	}
	if !strings.HasPrefix(u, "/") {
		u = "/" + u
	}
	return strings.TrimRight(u, "/")
}

// setupLogs configures lgr and returns the writer used for logs
func setupLogs() io.Writer {
	var out io.Writer = os.Stdout
	if opts.Log.Enabled {
		out = &lumberjack.Logger{
			Filename:   opts.Log.Filename,
			MaxSize:    opts.Log.MaxSize,
			MaxBackups: opts.Log.MaxBackups,
			MaxAge:     opts.Log.MaxAge,
			Compress:   opts.Log.EnabledCompress,
		}
	}

	if opts.Dbg {
		log.Setup(log.Debug, log.Msec, log.CallerFunc, log.CallerPkg, log.CallerFile, log.Out(out), log.Err(out))
		return out
	}
	log.Setup(log.Msec, log.Out(out), log.Err(out))
	return out
}

func signals() {
	// catch SIGQUIT and print stack traces
	sigChan := make(chan os.Signal, 1)
	go func() {
		stacktrace := make([]byte, 8192)
		for range sigChan {
			length := runtime.Stack(stacktrace, true)
			fmt.Println(string(stacktrace[:length]))
		}
	}()
	signal.Notify(sigChan, syscall.SIGQUIT)
}
