package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/efreitasn/matchd/internal/adminhttp"
	"github.com/efreitasn/matchd/internal/config"
	"github.com/efreitasn/matchd/internal/dispatch"
	"github.com/efreitasn/matchd/internal/marketdata"
	"github.com/efreitasn/matchd/internal/metrics"
	"github.com/efreitasn/matchd/internal/orderbook"
	"github.com/efreitasn/matchd/internal/pool"
	"github.com/efreitasn/matchd/internal/session"
	"github.com/efreitasn/matchd/internal/wire"
)

func main() {
	healthcheck := flag.Bool("healthcheck", false, "Run health check against running server")
	flag.Parse()

	if *healthcheck {
		port := os.Getenv("MATCHD_ADMIN_PORT")
		if port == "" {
			port = "9090"
		}
		resp, err := http.Get(fmt.Sprintf("http://localhost:%s/healthz", port))
		if err != nil {
			os.Exit(1)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)
	defer logger.Sync()

	p := pool.New[orderbook.Order](cfg.PoolBlockBytes, cfg.PoolMaxBlocks)
	registry := session.NewRegistry(p)
	metricsReg := metrics.New(prometheus.DefaultRegisterer)

	var emitter *marketdata.Emitter
	if cfg.MulticastAddr != "" {
		sink, err := marketdata.NewUDPMulticastSink(cfg.MulticastAddr, cfg.MulticastPort)
		if err != nil {
			logger.Error("failed to open multicast sink", zap.Error(err))
			os.Exit(1)
		}
		defer sink.Close()
		emitter = marketdata.NewEmitter(sink)
	}

	onChange := func(sessionID, symbol string) {
		sess, ok := registry.Get(sessionID)
		if !ok {
			return
		}
		book, ok := sess.Book(symbol)
		if !ok {
			return
		}
		bestBid, bestAsk, bidSize, askSize := book.TopOfBook()
		metricsReg.SetTopOfBook(symbol, bestBid, bestAsk)
		if emitter != nil {
			if err := emitter.Publish(symbol, bestBid, bestAsk, bidSize, askSize); err != nil {
				logger.Warn("market data publish failed", zap.String("symbol", symbol), zap.Error(err))
			}
		}
	}

	d := dispatch.New(registry, p, logger, onChange, cfg.SeedBalance)
	d.SetOrderMetrics(metricsReg.RecordOrder)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go reportPoolStats(ctx, p, registry, metricsReg)

	adminRouter := adminhttp.NewRouter(registry, logger)
	adminSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.AdminPort),
		Handler: adminRouter,
	}
	go func() {
		logger.Info("admin server starting", zap.Int("port", cfg.AdminPort))
		if err := adminSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("admin server error", zap.Error(err))
		}
	}()

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		logger.Error("failed to listen", zap.Error(err))
		os.Exit(1)
	}

	var codec wire.Codec
	if cfg.BinaryProtocol {
		codec = wire.BinaryCodec{}
	} else {
		codec = wire.JSONCodec{}
	}

	var wg sync.WaitGroup
	go acceptLoop(ctx, ln, codec, d, logger, &wg)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutdown signal received", zap.String("signal", sig.String()))

	cancel()
	_ = ln.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := adminSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("admin server shutdown error", zap.Error(err))
	}

	wg.Wait()
	logger.Info("server stopped")
}

func newLogger(level string) *zap.Logger {
	var zapLevel zap.AtomicLevel
	switch level {
	case "debug":
		zapLevel = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "warn":
		zapLevel = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapLevel = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		zapLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zapLevel
	logger, err := cfg.Build()
	if err != nil {
		logger = zap.NewNop()
	}
	return logger
}

// acceptLoop accepts connections until ctx is cancelled, spawning one
// goroutine per connection rather than a bounded thread pool — Go's
// scheduler makes that the idiomatic equivalent.
func acceptLoop(ctx context.Context, ln net.Listener, codec wire.Codec, d *dispatch.Dispatcher, logger *zap.Logger, wg *sync.WaitGroup) {
	var connID uint64
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				logger.Warn("accept error", zap.Error(err))
				continue
			}
		}
		connID++
		id := connID
		wg.Add(1)
		go func() {
			defer wg.Done()
			handleConn(ctx, id, conn, codec, d, logger)
		}()
	}
}

// handleConn reads frames from conn using codec, routes them through d,
// and writes back the encoded response for each. It returns once the
// connection closes or ctx is cancelled, releasing the session's claim
// on the connecting user.
func handleConn(ctx context.Context, connID uint64, conn net.Conn, codec wire.Codec, d *dispatch.Dispatcher, logger *zap.Logger) {
	defer conn.Close()
	defer d.HandleDisconnect(connID)

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	reader := bufio.NewReader(conn)
	buf := make([]byte, 0, 4096)

	for {
		chunk := make([]byte, 4096)
		n, err := reader.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
		}
		if err != nil {
			return
		}

		for {
			msg, consumed, ok, decodeErr := codec.Decode(buf)
			if decodeErr != nil {
				logger.Warn("decode error", zap.Uint64("conn", connID), zap.Error(decodeErr))
				buf = buf[:0]
				if _, werr := conn.Write(codec.EncodeOrderAck(0, 0, false, decodeErr.Error())); werr != nil {
					return
				}
				break
			}
			if !ok {
				break
			}

			resp := route(connID, msg, d, codec)
			if resp != nil {
				if _, werr := conn.Write(resp); werr != nil {
					return
				}
			}
			buf = buf[consumed:]
		}
	}
}

func route(connID uint64, msg wire.DecodedMessage, d *dispatch.Dispatcher, codec wire.Codec) []byte {
	switch msg.Type {
	case wire.MessageJoin:
		if msg.Join == nil {
			return nil
		}
		res := d.HandleJoin(connID, *msg.Join)
		return codec.EncodeOrderAck(msg.Join.SeqNum, 0, res.Success, res.Message)
	case wire.MessageNewOrder:
		if msg.NewOrder == nil {
			return nil
		}
		res := d.HandleNewOrder(connID, *msg.NewOrder)
		return codec.EncodeOrderAck(msg.NewOrder.SeqNum, res.OrderID, res.Success, res.Message)
	default:
		return nil
	}
}

// reportPoolStats periodically feeds pool/registry utilization into the
// metrics registry; there's no hook that pushes this on every mutation,
// so a short poll loop is the simplest accurate source.
func reportPoolStats(ctx context.Context, p *pool.Pool[orderbook.Order], registry *session.Registry, m *metrics.Registry) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.SetPoolStats(p.ActiveCount(), p.BlockCount())
			ids := registry.IDs()
			users := 0
			for _, id := range ids {
				if sess, ok := registry.Get(id); ok {
					users += sess.ActiveUserCount()
				}
			}
			m.SetSessionStats(len(ids), users)
		}
	}
}
