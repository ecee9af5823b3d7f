package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/meteorsfall/voxelcraft/internal/api"
	"github.com/meteorsfall/voxelcraft/internal/config"
	"github.com/meteorsfall/voxelcraft/internal/logging"
	"github.com/meteorsfall/voxelcraft/internal/metrics"
	"github.com/meteorsfall/voxelcraft/internal/terrain"
	"github.com/meteorsfall/voxelcraft/internal/world"
	"github.com/meteorsfall/voxelcraft/internal/world/block"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML-конфигурации (или VOXEL_CONFIG)")
	flag.Parse()

	// === КОНФИГУРАЦИЯ ===
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	consoleLevel, _ := logging.ParseLevel(cfg.Log.ConsoleLevel)
	fileLevel, _ := logging.ParseLevel(cfg.Log.FileLevel)
	logging.Configure(logging.Options{
		Dir:          cfg.Log.Dir,
		ConsoleLevel: consoleLevel,
		FileLevel:    fileLevel,
	})
	if err := logging.GetLoggerManager().ApplyLevels(cfg.Log.Components); err != nil {
		log.Fatalf("❌ Ошибка настройки уровней логирования: %v", err)
	}

	if err := logging.InitDefaultLogger("server"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()
	defer logging.GetLoggerManager().CloseAll()

	if err := run(cfg); err != nil {
		logging.Error("❌ %v", err)
		logging.CloseDefaultLogger()
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	logging.Info("🎮 Запуск воксельного сервера мира...")

	// Дополнительные типы блоков
	if cfg.World.BlockCatalog != "" {
		n, err := block.LoadCatalog(cfg.World.BlockCatalog)
		if err != nil {
			return fmt.Errorf("каталог блоков %s: %w", cfg.World.BlockCatalog, err)
		}
		logging.Info("Загружено %d типов блоков из %s", n, cfg.World.BlockCatalog)
	}

	// === ИНИЦИАЛИЗАЦИЯ КОМПОНЕНТОВ ===
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	w := world.NewWorld(cfg.World.Seed,
		world.WithMetrics(metrics.NewWorldMetrics("voxel", registry)),
		world.WithCompression(cfg.Storage.Compression),
	)

	store, err := newPersistence(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.close(); err != nil {
			logging.Error("Ошибка закрытия хранилища: %v", err)
		}
	}()

	found, err := store.load(w)
	if err != nil {
		// Повреждённое сохранение не перезаписываем генерацией
		return fmt.Errorf("загрузка мира из %s: %w", store.describe(), err)
	}
	if found {
		logging.Info("📦 Мир %s загружен из %s: %d мегачанков", w.ID(), store.describe(), w.MegaChunkCount())
	} else {
		logging.Info("Сохранение %s не найдено, создаётся новый мир", store.describe())
	}

	gen := terrain.NewGenerator(w.Seed(), logging.For(logging.ComponentTerrain))
	if _, err := gen.GenerateSpawn(w, cfg.World.SpawnRadiusChunks); err != nil {
		return fmt.Errorf("генерация точки появления: %w", err)
	}

	// Устанавливаем режим релиза для gin
	gin.SetMode(gin.ReleaseMode)

	port := fmt.Sprintf(":%d", cfg.Server.GetHTTPPort())
	server := api.NewRestServer(api.Config{
		Port:     port,
		World:    w,
		Save:     store.save,
		Registry: registry,

		MaxRaycastDistance: cfg.Server.MaxRaycastDistance,
		MaxCollideExtent:   cfg.Server.MaxCollideExtent,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logging.Info("✅ Сервер готов")
	logging.Info("   🌐 HTTP API: http://localhost%s", port)
	logging.Info("   ❤️  Health check: http://localhost%s/health", port)

	// Канал для получения сигналов ОС
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logging.Info("📡 Получен сигнал %v, завершение работы...", sig)
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP API: %w", err)
		}
	}

	// === GRACEFUL SHUTDOWN ===
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		logging.Error("❌ Ошибка остановки HTTP API: %v", err)
	}

	var saveErr error
	server.WithWorld(func(w *world.World) {
		saveErr = store.save(w)
	})
	if saveErr != nil {
		return fmt.Errorf("сохранение мира: %w", saveErr)
	}

	logging.Info("👋 Мир сохранён в %s, сервер остановлен", store.describe())
	return nil
}
