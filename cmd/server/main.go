package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"

	"scenefacts.ai/internal/config"
	persistlog "scenefacts.ai/internal/persistence/log"
	"scenefacts.ai/internal/scene"
	"scenefacts.ai/internal/service"
	"scenefacts.ai/internal/transport/rest"
	"scenefacts.ai/internal/transport/ws"
)

func main() {
	var (
		addr        = flag.String("addr", ":8080", "http listen address (websocket + metrics)")
		restAddr    = flag.String("rest_addr", "", "hertz REST listen address (empty to disable)")
		episodePath = flag.String("config", "./configs/episode.yaml", "episode config path")
		dataDir     = flag.String("data", "./data", "runtime data directory")
		disableDB   = flag.Bool("disable_db", false, "disable the sqlite step/entity index")
		parallelism = flag.Int("parallelism", 0, "max agents described concurrently per step (0: GOMAXPROCS)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := config.Load(*episodePath)
	if err != nil {
		logger.Fatalf("load episode config: %v", err)
	}
	gen, err := cfg.Generator(scene.WithParallelism(*parallelism))
	if err != nil {
		logger.Fatalf("build generator: %v", err)
	}
	logger.Printf("substrate=%s entities=%d players=%d", gen.Kind(), len(gen.Entities()), len(cfg.Players))

	episodeDir := filepath.Join(*dataDir, "episodes", gen.Kind().String())
	_ = os.MkdirAll(episodeDir, 0o755)

	ctx, cancel := signalContext()
	defer cancel()

	// Optional: read-model index (does not affect the facts produced).
	idx, err := openRuntimeIndex(episodeDir, *disableDB)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	counter := &stepCounter{}
	var steps rest.StepLister
	if idx != nil {
		defer idx.Close()
		if err := idx.RecordEntities(ctx, gen.Kind(), gen.Entities()); err != nil {
			logger.Printf("index backend: record entities: %v", err)
		}
		counter.next = idx
		steps = idx
	}

	factLog := persistlog.NewFactLogger(episodeDir)
	defer factLog.Close()

	svc := service.New(gen, service.Options{
		Players:       cfg.Players,
		LocalSelf:     cfg.LocalSelfPoint(),
		RemovedPrefix: cfg.RemovedPrefix,
		Facts:         factLog,
		Index:         counter,
		Logger:        logger,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		kind := gen.Kind().String()

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP scenefacts_steps_total Described steps.\n")
		fmt.Fprintf(rw, "# TYPE scenefacts_steps_total counter\n")
		fmt.Fprintf(rw, "scenefacts_steps_total{substrate=%q} %d\n", kind, counter.steps.Load())

		fmt.Fprintf(rw, "# HELP scenefacts_agents_total Agent observations described.\n")
		fmt.Fprintf(rw, "# TYPE scenefacts_agents_total counter\n")
		fmt.Fprintf(rw, "scenefacts_agents_total{substrate=%q} %d\n", kind, counter.agents.Load())
		fmt.Fprintf(rw, "scenefacts_agents_total{substrate=%q,state=%q} %d\n", kind, "removed", counter.removed.Load())

		fmt.Fprintf(rw, "# HELP scenefacts_facts_total Fact sentences produced.\n")
		fmt.Fprintf(rw, "# TYPE scenefacts_facts_total counter\n")
		fmt.Fprintf(rw, "scenefacts_facts_total{substrate=%q} %d\n", kind, counter.facts.Load())

		fmt.Fprintf(rw, "# HELP scenefacts_entities Persistent entities on the episode map.\n")
		fmt.Fprintf(rw, "# TYPE scenefacts_entities gauge\n")
		fmt.Fprintf(rw, "scenefacts_entities{substrate=%q} %d\n", kind, len(gen.Entities()))

		if idx != nil {
			st := idx.Stats()
			fmt.Fprintf(rw, "# HELP scenefacts_index_queue_depth Index writer backlog.\n")
			fmt.Fprintf(rw, "# TYPE scenefacts_index_queue_depth gauge\n")
			fmt.Fprintf(rw, "scenefacts_index_queue_depth %d\n", st.QueueDepth)
			fmt.Fprintf(rw, "# HELP scenefacts_index_dropped_total Steps dropped because the index writer fell behind.\n")
			fmt.Fprintf(rw, "# TYPE scenefacts_index_dropped_total counter\n")
			fmt.Fprintf(rw, "scenefacts_index_dropped_total %d\n", st.DropStepTotal)
		}
	})
	if envBool("SF_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	} else {
		logger.Printf("pprof endpoints disabled (SF_ENABLE_PPROF_HTTP=false)")
	}
	mux.HandleFunc("/v1/ws", ws.NewServer(svc, logger).Handler())

	if ra := strings.TrimSpace(*restAddr); ra != "" {
		h := server.Default(server.WithHostPorts(ra))
		rest.Handler{Service: svc, Steps: steps}.RegisterRoutes(h)
		go func() {
			if err := h.Run(); err != nil {
				logger.Printf("rest server stopped: %v", err)
			}
		}()
		go func() {
			<-ctx.Done()
			ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel2()
			_ = h.Shutdown(ctx2)
		}()
		logger.Printf("rest listening on %s", ra)
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
