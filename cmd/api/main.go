package main

import (
	"context"
	"github.com/ariefcatur/go-bar-pos/internal/cart"
	"github.com/ariefcatur/go-bar-pos/internal/config"
	"github.com/ariefcatur/go-bar-pos/internal/dispatch"
	"github.com/ariefcatur/go-bar-pos/internal/events"
	"github.com/ariefcatur/go-bar-pos/internal/fulfillment"
	"github.com/ariefcatur/go-bar-pos/internal/httpx"
	kafkax "github.com/ariefcatur/go-bar-pos/internal/kafka"
	"github.com/ariefcatur/go-bar-pos/internal/metrics"
	"github.com/ariefcatur/go-bar-pos/internal/postgres"
	"github.com/ariefcatur/go-bar-pos/internal/redisx"
	"github.com/ariefcatur/go-bar-pos/internal/register"
	"github.com/ariefcatur/go-bar-pos/internal/sqlite"
	"github.com/joho/godotenv"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// stores is the persistence backend picked by DB_DRIVER.
type stores struct {
	sales    fulfillment.Store
	register register.Store
	jobs     dispatch.JobStore
	close    func()
}

func openStores(ctx context.Context, cfg config.Config) (stores, error) {
	if cfg.DBDriver == "sqlite" {
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return stores{}, err
		}
		return stores{
			sales:    &fulfillment.SQLiteStore{DB: db},
			register: &register.SQLiteStore{DB: db},
			jobs:     &dispatch.SQLiteStore{DB: db},
			close:    func() { db.Close() },
		}, nil
	}

	pool, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		return stores{}, err
	}
	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return stores{}, err
	}
	return stores{
		sales:    &fulfillment.PGStore{DB: pool},
		register: &register.PGStore{DB: pool},
		jobs:     &dispatch.PGStore{DB: pool},
		close:    pool.Close,
	}, nil
}

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sectors, err := config.LoadSectors(cfg.SectorsFile)
	if err != nil {
		log.Fatalf("sectors: %v", err)
	}

	// DB
	st, err := openStores(ctx, cfg)
	if err != nil {
		log.Fatalf("db (%s): %v", cfg.DBDriver, err)
	}
	defer st.close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	m := metrics.New()

	// Event buffer
	buf := events.NewBuffer(events.Options{
		OnHandlerError: func(error) { m.EventHandlerFailures.Inc() },
	})
	buf.Start(ctx)
	buf.Subscribe(func(events.Event) error {
		m.EventsRecorded.Inc()
		return nil
	})

	notifiers := []fulfillment.Notifier{m.Notifier()}

	// Kafka (opsional): fan-out antar replica + topic status item
	instance := cfg.ServiceName + "@" + cfg.InstanceID
	var producers []*kafkax.Producer
	if len(cfg.KafkaBrokers) > 0 {
		saleProd := kafkax.NewProducer(cfg.KafkaBrokers, kafkax.TopicSaleUpdated, 1024)
		saleProd.Start(ctx)
		statusProd := kafkax.NewProducer(cfg.KafkaBrokers, kafkax.TopicItemStatusChanged, 1024)
		statusProd.Start(ctx)
		producers = append(producers, saleProd, statusProd)

		relay := &events.Relay{Buffer: buf, Producer: saleProd, Redis: rdb, Instance: instance}
		relay.Attach()
		// group per instance: setiap replica harus lihat semua event
		cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.ServiceName+"-relay-"+cfg.InstanceID, kafkax.TopicSaleUpdated, 2)
		go func() {
			if err := cons.Start(ctx, relay.HandleRemote); err != nil {
				log.Printf("relay consumer stopped: %v", err)
			}
		}()

		notifiers = append(notifiers, &events.StatusPublisher{Producer: statusProd, Instance: instance})
	}

	// Dispatch workers
	queue := dispatch.NewQueue(st.jobs, map[dispatch.Kind]dispatch.Transport{
		dispatch.KindPrint: &dispatch.NetPrinter{Timeout: cfg.PrinterTimeout},
		dispatch.KindWhatsApp: &dispatch.WhatsAppClient{
			APIURL:  cfg.WhatsApp.APIURL,
			PhoneID: cfg.WhatsApp.PhoneID,
			Token:   cfg.WhatsApp.Token,
		},
	}, dispatch.Options{
		Workers:  cfg.DispatchWorkers,
		Instance: instance, // lease job, replica lain tidak ikut recover
		LeaseTTL: cfg.DispatchLeaseTTL,
		OnSettled: func(j dispatch.Job) {
			m.DispatchSettled.WithLabelValues(string(j.Kind), string(j.Status)).Inc()
		},
	})
	queue.Start(ctx)
	notifiers = append(notifiers, &dispatch.Trigger{Queue: queue, Sectors: sectors, Location: cfg.Location})

	// Services & handlers
	api := &httpx.API{
		Sales: &fulfillment.Service{
			Store:     st.sales,
			Events:    buf,
			Notifiers: notifiers,
			Location:  cfg.Location,
		},
		Sectors: sectors,
		Events:  buf,
		Carts:   &cart.OpenCarts{Redis: rdb},
		Register: &register.Service{
			Store:           st.register,
			Redis:           rdb,
			DefaultOperator: cfg.DefaultOperator,
		},
		Dispatch: queue,
		Metrics:  m,
	}
	var metricsHandler http.Handler
	if cfg.MetricsEnabled {
		metricsHandler = m.Handler()
	}
	router := httpx.NewRouter(metricsHandler)
	api.Mount(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	// graceful shutdown
	go func() {
		log.Printf("HTTP listening at %s (db=%s, sectors=%d, kafka=%v)", cfg.HTTPAddr, cfg.DBDriver, len(sectors), len(cfg.KafkaBrokers) > 0)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	api.CloseClients()
	cancel()      // stop sweeper, janitor, relay consumer
	queue.Close() // tunggu job yang sedang jalan
	buf.Close()
	for _, p := range producers {
		p.Close() // tutup inbox -> flush & close writer
		p.WaitClosed()
	}
}
