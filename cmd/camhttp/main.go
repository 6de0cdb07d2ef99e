package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/go-chi/chi"
	"github.com/knadh/koanf"
	"go.uber.org/zap"

	"github.com/MarcOnTheMoon/imaging-learners/camera"
	"github.com/MarcOnTheMoon/imaging-learners/cameras"
	"github.com/MarcOnTheMoon/imaging-learners/cmdutil"
	"github.com/MarcOnTheMoon/imaging-learners/generichttp"
	camhttp "github.com/MarcOnTheMoon/imaging-learners/generichttp/camera"
	"github.com/MarcOnTheMoon/imaging-learners/imgrec"
	"github.com/MarcOnTheMoon/imaging-learners/server/middleware/locker"
)

var (
	// Version is the version number.  Typically injected via ldflags with git build
	Version = "1"

	// ConfigFileName is what it sounds like
	ConfigFileName = "camhttp.yml"
	k              = koanf.New(".")
)

type recorder struct {
	// Root is the root folder to write to
	Root string `koanf:"Root" yaml:"Root"`

	// Prefix is the filename prefix to use
	Prefix string `koanf:"Prefix" yaml:"Prefix"`

	// Format is png, jpg or fits
	Format string `koanf:"Format" yaml:"Format"`

	Enabled bool `koanf:"Enabled" yaml:"Enabled"`
}

type config struct {
	Addr     string         `koanf:"Addr" yaml:"Addr"`
	Root     string         `koanf:"Root" yaml:"Root"`
	MaxFPS   float64        `koanf:"MaxFPS" yaml:"MaxFPS"`
	LogJSON  bool           `koanf:"LogJSON" yaml:"LogJSON"`
	Camera   cameras.Config `koanf:"Camera" yaml:"Camera"`
	Recorder recorder       `koanf:"Recorder" yaml:"Recorder"`
}

func setupconfig() {
	err := cmdutil.LoadConfig(k, config{
		Addr:   ":8000",
		Root:   "/",
		MaxFPS: 10,
		Camera: cameras.Config{
			Vendor:        "opencv",
			PixelFormat:   camera.BGR8,
			OpenRetries:   3,
			RetryInterval: 2 * time.Second,
		},
		Recorder: recorder{Prefix: "img", Format: "png"},
	}, ConfigFileName)
	if err != nil {
		log.Fatalf("error loading config: %v", err)
	}
}

func root() {
	str := `camhttp exposes control of a camera over HTTP
This enables a server-client architecture,
and the clients can leverage the excellent HTTP
libraries for any programming language,
instead of the vendor SDKs.

Usage:
	camhttp <command>

Commands:
	run
	help
	mkconf
	conf
	version`
	fmt.Println(str)
}

func help() {
	str := `camhttp is amenable to configuration via its .yml file.  For a primer on YAML, see
https://yaml.org/start.html

When no configuration is provided, the defaults are used.
The command mkconf generates the configuration file with the default values.
There is no need to do this unless you want to start from the prepopulated defaults when making
a config file.

Every key may be overridden by an environment variable prefixed IMAGING_, with _
separating nested keys, e.g. IMAGING_CAMERA_VENDOR=basler.

Camera.Vendor is one of
	` + strings.Join(cameras.Vendors(), ", ") + `
The vendor SDKs are only compiled in with the build tags pylon, vimba and galaxy.

The image route is limited to MaxFPS requests per second.  When Recorder.Enabled
is true, every image served is also written below Recorder.Root.

GET /endpoints lists the routes.  POST /lock {"bool": true} locks the camera;
all routes but /lock and /endpoints then return 423.`
	fmt.Println(str)
}

func mkconf() {
	if err := cmdutil.WriteConfig(k, &config{}, ConfigFileName); err != nil {
		log.Fatal(err)
	}
}

func printconf() {
	if err := cmdutil.WriteConfig(k, &config{}, ""); err != nil {
		log.Fatal(err)
	}
}

func pversion() {
	fmt.Printf("camhttp version %v\n", Version)
}

func run() {
	cfg := config{}
	if err := k.Unmarshal("", &cfg); err != nil {
		log.Fatal(err)
	}
	logger, err := cmdutil.Logger(cfg.LogJSON)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	var cam camera.Camera
	err = cmdutil.Spin("opening "+cfg.Camera.Vendor+" camera", func() error {
		var err error
		cam, err = cameras.Open(cfg.Camera, logger)
		return err
	})
	if err != nil {
		logger.Fatalw("could not open camera", "error", err)
	}
	defer func() {
		if err := cam.Release(); err != nil {
			logger.Warnw("release camera", "error", err)
		}
	}()
	logger.Infow("camera ready", "camera", camera.Describe(cam))

	var rec *imgrec.Recorder
	if args := cfg.Recorder; args.Root != "" {
		rec = imgrec.New(args.Root, args.Prefix, args.Format)
		rec.Enabled = args.Enabled
	}
	w := camhttp.NewHTTPCamera(cam, rec, cfg.MaxFPS, logger)
	l := locker.New()
	locker.Inject(w, l)

	// clean up the submux string
	hndlrS := generichttp.SubMuxSanitize(cfg.Root)
	rootR := chi.NewRouter()
	mux := chi.NewRouter()
	mux.Use(l.Check, l.Serialize)
	w.RT().Bind(mux)
	rootR.Mount(hndlrS, mux)

	srv := &http.Server{Addr: cfg.Addr, Handler: rootR}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	go shutdown(ctx, srv, logger)
	logger.Infow("now listening for requests", "addr", cfg.Addr, "root", hndlrS)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Errorw("server stopped", "error", err)
	}
}

func shutdown(ctx context.Context, srv *http.Server, logger *zap.SugaredLogger) {
	<-ctx.Done()
	logger.Info("shutting down")
	c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(c); err != nil {
		logger.Warnw("shutdown", "error", err)
	}
}

func main() {
	var cmd string
	args := os.Args
	if len(args) == 1 {
		root()
		return
	}
	setupconfig()
	cmd = args[1]
	cmd = strings.ToLower(cmd)
	switch cmd {
	case "help":
		help()
		return
	case "mkconf":
		mkconf()
		return
	case "conf":
		printconf()
		return
	case "run":
		run()
		return
	case "version":
		pversion()
		return
	default:
		log.Fatal("unknown command")
	}
}
