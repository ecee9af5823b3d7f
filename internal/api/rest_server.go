package api

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/meteorsfall/voxelcraft/internal/logging"
	"github.com/meteorsfall/voxelcraft/internal/middleware"
	"github.com/meteorsfall/voxelcraft/internal/physics"
	"github.com/meteorsfall/voxelcraft/internal/vec"
	"github.com/meteorsfall/voxelcraft/internal/world"
	"github.com/meteorsfall/voxelcraft/internal/world/block"
)

// SaveFunc сохраняет мир. Вызывается под блокировкой сервера.
type SaveFunc func(w *world.World) error

// Пределы по умолчанию для запросов геометрии
const (
	DefaultMaxRaycastDistance = 256
	DefaultMaxCollideExtent   = 64

	// maxWorldCoord: за этой границей float-координаты не переводятся в ячейки
	maxWorldCoord = 1 << 30
)

// RestServer представляет HTTP API для осмотра и правки мира
type RestServer struct {
	router     *gin.Engine
	httpServer *http.Server
	port       string
	metrics    *ServerMetrics
	logger     *logging.Logger

	// mu сериализует любой доступ к миру: World не потокобезопасен
	mu    sync.Mutex
	world *world.World
	save  SaveFunc

	maxRaycastDistance float64
	maxCollideExtent   float64
}

// Config содержит конфигурацию для REST сервера
type Config struct {
	Port     string               // порт для запуска сервера
	World    *world.World         // обслуживаемый мир
	Save     SaveFunc             // nil отключает POST /api/save
	Registry *prometheus.Registry // реестр для HTTP-метрик и /metrics
	Logger   *logging.Logger

	MaxRaycastDistance float64 // 0: DefaultMaxRaycastDistance
	MaxCollideExtent   float64 // 0: DefaultMaxCollideExtent
}

// NewRestServer создает новый REST API сервер
func NewRestServer(config Config) *RestServer {
	if config.Port == "" {
		config.Port = ":8088"
	}
	if config.Registry == nil {
		config.Registry = prometheus.NewRegistry()
	}
	if config.Logger == nil {
		config.Logger = logging.For(logging.ComponentHTTP)
	}
	if config.MaxRaycastDistance <= 0 {
		config.MaxRaycastDistance = DefaultMaxRaycastDistance
	}
	if config.MaxCollideExtent <= 0 {
		config.MaxCollideExtent = DefaultMaxCollideExtent
	}

	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery

	// === Observability middleware ===
	router.Use(middleware.NewRequestLogger(config.Logger).Handler())

	apiMetrics := middleware.NewAPIMetrics("voxel", config.Registry)
	router.Use(apiMetrics.Handler())
	apiMetrics.Mount(router, config.Registry)

	server := &RestServer{
		router:  router,
		port:    config.Port,
		metrics: NewServerMetrics(),
		logger:  config.Logger,
		world:   config.World,
		save:    config.Save,

		maxRaycastDistance: config.MaxRaycastDistance,
		maxCollideExtent:   config.MaxCollideExtent,
	}

	server.setupRoutes()
	return server
}

// Handler возвращает http.Handler сервера (используется в тестах)
func (rs *RestServer) Handler() http.Handler {
	return rs.router
}

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	// Middleware для CORS
	rs.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, X-Trace-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	api := rs.router.Group("/api")
	{
		api.GET("/block", rs.handleGetBlock)
		api.PUT("/block", rs.handleSetBlock)
		api.POST("/dig", rs.handleDig)
		api.POST("/raycast", rs.handleRaycast)
		api.POST("/collide", rs.handleCollide)
		api.GET("/chunk", rs.handleGetChunk)
		api.POST("/save", rs.handleSave)
	}

	// Health check
	rs.router.GET("/health", rs.handleHealth)
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: message})
}

// queryVec разбирает целочисленные параметры x, y, z
func queryVec(c *gin.Context) (vec.Vec3, error) {
	var out [3]int
	for i, name := range []string{"x", "y", "z"} {
		raw, ok := c.GetQuery(name)
		if !ok {
			return vec.Vec3{}, fmt.Errorf("параметр %s обязателен", name)
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return vec.Vec3{}, fmt.Errorf("параметр %s: %q не целое число", name, raw)
		}
		out[i] = v
	}
	return vec.Vec3{X: out[0], Y: out[1], Z: out[2]}, nil
}

// checkVec отклоняет NaN, бесконечности и координаты далеко за пределами мира
func checkVec(name string, v [3]float64) error {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) || math.Abs(c) > maxWorldCoord {
			return fmt.Errorf("%s: недопустимое значение %v", name, c)
		}
	}
	return nil
}

// BlockInfo описывает блок в ответах API
type BlockInfo struct {
	Position [3]int  `json:"position"`
	Type     uint16  `json:"type"`
	Name     string  `json:"name"`
	Damage   float32 `json:"damage"`
	Faces    uint8   `json:"faces"`
}

func (rs *RestServer) blockInfo(pos vec.Vec3) BlockInfo {
	info := BlockInfo{Position: [3]int{pos.X, pos.Y, pos.Z}, Name: "air"}
	b := rs.world.GetBlock(pos)
	if b == nil {
		return info
	}
	info.Type = uint16(b.Type)
	info.Damage = b.Damage
	if props, ok := b.Properties(); ok {
		info.Name = props.Name
	} else {
		info.Name = "unknown"
	}
	info.Faces = uint8(rs.world.VisibleFaces(pos) & world.FacesAll)
	return info
}

// handleGetBlock возвращает блок по глобальной координате
func (rs *RestServer) handleGetBlock(c *gin.Context) {
	pos, err := queryVec(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	rs.mu.Lock()
	info := rs.blockInfo(pos)
	rs.mu.Unlock()

	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Блок получен", Data: info})
}

// SetBlockRequest представляет запрос на запись блока.
// Тип задаётся либо числом, либо именем из реестра.
type SetBlockRequest struct {
	X    int     `json:"x"`
	Y    int     `json:"y"`
	Z    int     `json:"z"`
	Type *uint16 `json:"type"`
	Name string  `json:"name"`
}

func (req SetBlockRequest) blockID() (block.BlockID, error) {
	if req.Name != "" {
		return block.Lookup(req.Name)
	}
	if req.Type == nil {
		return 0, errors.New("нужно указать type или name")
	}
	id := block.BlockID(*req.Type)
	if !block.IsValidBlockID(id) {
		return 0, fmt.Errorf("неизвестный тип блока %d", id)
	}
	return id, nil
}

// handleSetBlock записывает блок
func (rs *RestServer) handleSetBlock(c *gin.Context) {
	var req SetBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Неверный формат запроса: "+err.Error())
		return
	}
	id, err := req.blockID()
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	pos := vec.Vec3{X: req.X, Y: req.Y, Z: req.Z}

	rs.mu.Lock()
	err = rs.world.SetBlock(pos, id)
	info := rs.blockInfo(pos)
	rs.mu.Unlock()

	if err != nil {
		rs.logger.Warn("Не удалось записать блок %s: %v", pos, err)
		c.JSON(http.StatusInternalServerError, GenericResponse{Success: false, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Блок записан", Data: info})
}

// DigRequest представляет удар по блоку
type DigRequest struct {
	X      int     `json:"x"`
	Y      int     `json:"y"`
	Z      int     `json:"z"`
	Amount float32 `json:"amount"`
}

// handleDig наносит урон блоку
func (rs *RestServer) handleDig(c *gin.Context) {
	var req DigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Неверный формат запроса: "+err.Error())
		return
	}
	if req.Amount <= 0 {
		badRequest(c, "amount должен быть положительным")
		return
	}
	pos := vec.Vec3{X: req.X, Y: req.Y, Z: req.Z}

	rs.mu.Lock()
	broken, err := rs.world.DamageBlock(pos, req.Amount)
	info := rs.blockInfo(pos)
	rs.mu.Unlock()

	if err != nil {
		c.JSON(http.StatusInternalServerError, GenericResponse{Success: false, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Урон нанесён",
		Data: gin.H{
			"broken": broken,
			"block":  info,
		},
	})
}

// RaycastRequest представляет запрос трассировки луча
type RaycastRequest struct {
	Origin      [3]float64 `json:"origin"`
	Direction   [3]float64 `json:"direction"`
	MaxDistance float64    `json:"max_distance"`
	Previous    bool       `json:"previous"`
}

// validateRaycast ограничивает длину луча: трассировка идёт под блокировкой мира
func (rs *RestServer) validateRaycast(req RaycastRequest) error {
	if err := checkVec("origin", req.Origin); err != nil {
		return err
	}
	if err := checkVec("direction", req.Direction); err != nil {
		return err
	}
	d := req.MaxDistance
	if math.IsNaN(d) || d > rs.maxRaycastDistance {
		return fmt.Errorf("max_distance должен быть не больше %v", rs.maxRaycastDistance)
	}
	return nil
}

// handleRaycast ищет первый твёрдый блок вдоль луча
func (rs *RestServer) handleRaycast(c *gin.Context) {
	var req RaycastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Неверный формат запроса: "+err.Error())
		return
	}
	if err := rs.validateRaycast(req); err != nil {
		badRequest(c, err.Error())
		return
	}

	rs.mu.Lock()
	pos, hit := rs.world.Raycast(mgl64.Vec3(req.Origin), mgl64.Vec3(req.Direction), req.MaxDistance, req.Previous)
	rs.mu.Unlock()

	data := gin.H{"hit": hit}
	if hit {
		data["block"] = [3]int{pos.X, pos.Y, pos.Z}
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Трассировка выполнена", Data: data})
}

// CollideRequest задаёт AABB для проверки столкновений
type CollideRequest struct {
	Min [3]float64 `json:"min"`
	Max [3]float64 `json:"max"`
}

// validateCollide ограничивает размер AABB: число проверяемых ячеек растёт как куб ребра
func (rs *RestServer) validateCollide(req CollideRequest) error {
	if err := checkVec("min", req.Min); err != nil {
		return err
	}
	if err := checkVec("max", req.Max); err != nil {
		return err
	}
	for axis := 0; axis < 3; axis++ {
		if math.Abs(req.Max[axis]-req.Min[axis]) > rs.maxCollideExtent {
			return fmt.Errorf("ребро AABB по оси %d больше %v", axis, rs.maxCollideExtent)
		}
	}
	return nil
}

// handleCollide выталкивает AABB из твёрдых блоков
func (rs *RestServer) handleCollide(c *gin.Context) {
	var req CollideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Неверный формат запроса: "+err.Error())
		return
	}
	if err := rs.validateCollide(req); err != nil {
		badRequest(c, err.Error())
		return
	}
	box := physics.NewAABB(mgl64.Vec3(req.Min), mgl64.Vec3(req.Max))

	rs.mu.Lock()
	push, collided := rs.world.Collide(box, nil)
	rs.mu.Unlock()

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Проверка столкновений выполнена",
		Data: gin.H{
			"collided": collided,
			"push":     [3]float64(push),
		},
	})
}

// ChunkInfo описывает чанк и его метаданные
type ChunkInfo struct {
	Coord       [3]int `json:"coord"`
	Generated   bool   `json:"generated"`
	Priority    int    `json:"priority"`
	LastTouched uint64 `json:"last_touched"`
	Solid       int    `json:"solid"`
	Cached      bool   `json:"cached"`
}

// handleGetChunk возвращает метаданные чанка по координате чанка
func (rs *RestServer) handleGetChunk(c *gin.Context) {
	coord, err := queryVec(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	rs.mu.Lock()
	data := rs.world.GetChunk(coord)
	var info ChunkInfo
	if data != nil {
		info = ChunkInfo{
			Coord:       [3]int{coord.X, coord.Y, coord.Z},
			Generated:   data.Generated,
			Priority:    data.Priority,
			LastTouched: data.LastTouched,
			Solid:       data.Chunk.CountSolid(),
			Cached:      data.Chunk.IsCached(),
		}
	}
	rs.mu.Unlock()

	if data == nil {
		c.JSON(http.StatusNotFound, GenericResponse{Success: false, Message: "Чанк не загружен"})
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Чанк получен", Data: info})
}

// handleSave сохраняет мир через настроенный SaveFunc
func (rs *RestServer) handleSave(c *gin.Context) {
	if rs.save == nil {
		c.JSON(http.StatusServiceUnavailable, GenericResponse{Success: false, Message: "Сохранение не настроено"})
		return
	}

	rs.mu.Lock()
	err := rs.save(rs.world)
	megachunks := rs.world.MegaChunkCount()
	rs.mu.Unlock()

	if err != nil {
		rs.logger.Error("Ошибка сохранения мира: %v", err)
		c.JSON(http.StatusInternalServerError, GenericResponse{Success: false, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Мир сохранён",
		Data:    gin.H{"megachunks": megachunks},
	})
}

// handleHealth возвращает состояние процесса и размер загруженного мира
func (rs *RestServer) handleHealth(c *gin.Context) {
	rs.mu.Lock()
	megachunks := rs.world.MegaChunkCount()
	chunks := rs.world.ChunkCount()
	tick := rs.world.Tick()
	rs.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"time":       time.Now().Unix(),
		"process":    rs.metrics.Snapshot(),
		"megachunks": megachunks,
		"chunks":     chunks,
		"tick":       tick,
	})
}

// WithWorld выполняет fn под блокировкой сервера. Нужен хосту для фоновых задач.
func (rs *RestServer) WithWorld(fn func(w *world.World)) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	fn(rs.world)
}

// Start запускает REST сервер и блокируется до Stop
func (rs *RestServer) Start() error {
	rs.mu.Lock()
	rs.httpServer = &http.Server{
		Addr:              rs.port,
		Handler:           rs.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	srv := rs.httpServer
	rs.mu.Unlock()

	rs.logger.Info("HTTP API слушает %s", rs.port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop корректно останавливает сервер, дожидаясь текущих запросов
func (rs *RestServer) Stop(ctx context.Context) error {
	rs.mu.Lock()
	srv := rs.httpServer
	rs.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
