package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/config"
	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/db"
	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/dedup"
	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/events"
	httpapi "github.com/andreasstove999/ecommerce-system/pos-service-go/internal/http"
	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/inventory"
	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/logging"
	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/sale"
	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/sequence"
	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/telemetry"
)

func main() {
	cfg := config.Load()

	otelShutdown, err := telemetry.Setup(context.Background(), telemetry.Options{
		ServiceName:    logging.ServiceName,
		ServiceVersion: serviceVersion,
		Endpoint:       cfg.OTelEndpoint,
		Insecure:       cfg.OTelInsecure,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "telemetry: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}

	runErr := run(cfg, logger)

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := otelShutdown(flushCtx); err != nil {
		logger.Warn("telemetry shutdown", zap.Error(err))
	}
	_ = logger.Sync()

	if runErr != nil {
		logger.Fatal("pos-service stopped", zap.Error(runErr))
	}
}

const serviceVersion = "0.1.0"

type stores struct {
	products    inventory.ProductRepository
	sales       sale.Repository
	sequencer   events.Sequencer
	checkpoints events.Checkpoints
	close       func()
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- storage ---
	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()

	// --- AMQP ---
	var opts []sale.Option
	if cfg.UsesRabbit() {
		conn, err := events.DialRabbit(cfg.RabbitURL)
		if err != nil {
			return fmt.Errorf("rabbitmq connect: %w", err)
		}
		defer conn.Close()

		if cfg.PublishEvents {
			pub, err := events.NewPublisher(conn, st.sequencer, events.PublisherOptions{StoreID: cfg.StoreID})
			if err != nil {
				return fmt.Errorf("create publisher: %w", err)
			}
			defer pub.Close()
			opts = append(opts, sale.WithPublisher(pub))
		}

		if cfg.ConsumeProductEvents {
			handler := events.ProductUpsertedHandler(st.products, st.checkpoints, logger, events.ProductUpsertedConsumerName)
			stop, err := events.StartProductUpsertedConsumer(ctx, conn, handler, logger)
			if err != nil {
				return fmt.Errorf("start consumer: %w", err)
			}
			defer stop()
		}
	}

	// --- services ---
	inv := inventory.NewService(st.products, logger)
	sales := sale.NewService(inv, st.sales, logger, opts...)

	// --- HTTP ---
	h := httpapi.NewHandler(st.products, sales, st.sales, logger)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(h),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", zap.String("addr", cfg.HTTPAddr), zap.String("storage", cfg.Storage))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal", zap.String("signal", sig.String()))
	case runErr = <-errCh:
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	cancel()

	logger.Info("shutdown complete")
	return runErr
}

func openStores(ctx context.Context, cfg config.Config, logger *zap.Logger) (stores, error) {
	if cfg.Storage != config.StoragePostgres {
		products := inventory.NewMemoryRepository()
		if cfg.SeedDemoData {
			if err := products.SeedDemoData(ctx); err != nil {
				return stores{}, fmt.Errorf("seed demo data: %w", err)
			}
		}
		return stores{
			products:    products,
			sales:       sale.NewMemoryRepository(),
			sequencer:   sequence.NewMemory(),
			checkpoints: dedup.NewMemory(),
			close:       func() {},
		}, nil
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
	if err != nil {
		return stores{}, fmt.Errorf("db connect: %w", err)
	}

	if cfg.RunMigrations {
		if err := db.RunMigrations(cfg.DatabaseDSN, logger); err != nil {
			pool.Close()
			return stores{}, fmt.Errorf("db migrate: %w", err)
		}
	}

	products := inventory.NewPostgresRepository(pool)
	if cfg.SeedDemoData {
		for _, p := range inventory.DemoProducts() {
			_, err := products.FindByCode(ctx, p.Code)
			if err == nil {
				continue
			}
			if !errors.Is(err, inventory.ErrNotFound) {
				pool.Close()
				return stores{}, fmt.Errorf("seed demo data: %w", err)
			}
			if err := products.Save(ctx, p); err != nil {
				pool.Close()
				return stores{}, fmt.Errorf("seed demo data: %w", err)
			}
		}
	}

	return stores{
		products:    products,
		sales:       sale.NewPostgresRepository(pool),
		sequencer:   sequence.NewRepository(pool),
		checkpoints: dedup.NewRepository(pool),
		close:       pool.Close,
	}, nil
}
