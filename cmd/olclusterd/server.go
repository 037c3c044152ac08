package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/greentheorystudio/openlayers/cluster"
	"github.com/greentheorystudio/openlayers/format/geojson"
	"github.com/greentheorystudio/openlayers/geom"
	"github.com/greentheorystudio/openlayers/source"
)

type serveConfig struct {
	addr     string
	data     string
	distance float64
	groupKey string
	indexKey string
	logLevel string
}

func runServe(ctx context.Context, cfg serveConfig) error {
	level, err := parseLogLevel(cfg.logLevel)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	var loader source.Loader
	if strings.HasPrefix(cfg.data, "http://") || strings.HasPrefix(cfg.data, "https://") {
		loader = source.NewURLLoader(cfg.data)
	} else {
		loader = source.NewFileLoader(cfg.data)
	}

	store := source.NewVector(source.WithLoader(loader))
	clustered, err := cluster.New(store,
		cluster.WithDistance(cfg.distance),
		cluster.WithGroupKey(cfg.groupKey),
		cluster.WithIndexKey(cfg.indexKey),
		cluster.WithLogLevel(level),
	)
	if err != nil {
		return err
	}
	defer clustered.Close()

	if level > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "features": store.Len()})
	})
	router.GET("/features", handleFeatures(store))
	router.GET("/clusters", handleClusters(clustered))

	srv := &http.Server{
		Addr:              cfg.addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", slog.String("addr", cfg.addr), slog.String("data", cfg.data))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func handleFeatures(store *source.Vector) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := store.LoadFeatures(c.Request.Context(), geom.InfiniteExtent(), 0); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}

		data, err := geojson.Encode(store.GetFeatures())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Data(http.StatusOK, "application/geo+json", data)
	}
}

func handleClusters(clustered *cluster.Source) gin.HandlerFunc {
	return func(c *gin.Context) {
		resolution, err := strconv.ParseFloat(c.DefaultQuery("resolution", "1"), 64)
		if err != nil || resolution <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "resolution must be a positive number"})
			return
		}

		extent := geom.InfiniteExtent()
		if bbox := c.Query("bbox"); bbox != "" {
			extent, err = parseBBox(bbox)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}

		if err := clustered.LoadFeatures(c.Request.Context(), extent, resolution); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}

		data, err := geojson.Encode(clustered.GetFeatures())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Data(http.StatusOK, "application/geo+json", data)
	}
}

func parseBBox(s string) (geom.Extent, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return geom.Extent{}, errors.New("bbox must be minx,miny,maxx,maxy")
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geom.Extent{}, errors.New("bbox must be minx,miny,maxx,maxy")
		}
		vals[i] = v
	}
	return geom.NewExtent(vals[0], vals[1], vals[2], vals[3]), nil
}
