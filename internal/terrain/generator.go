package terrain

import (
	"fmt"
	"math/rand"

	"github.com/meteorsfall/voxelcraft/internal/logging"
	"github.com/meteorsfall/voxelcraft/internal/vec"
	"github.com/meteorsfall/voxelcraft/internal/world/block"
)

// Target: всё, что генератору нужно от мира
type Target interface {
	SetBlock(pos vec.Vec3, id block.BlockID) error
	MarkGenerated(chunk vec.Vec3)
	IsGenerated(chunk vec.Vec3) bool
}

// BiomeType представляет тип биома
type BiomeType int

const (
	BiomePlains BiomeType = iota
	BiomeDesert
	BiomeForest
	BiomeMountains
	BiomeWater
)

// Пороги нормализованной высоты для биомов
const (
	waterMax      = 0.30 // Ниже - водоём
	mountainStart = 0.75 // Выше - горы
)

// Generator генерирует рельеф по карте высот из шума Перлина
type Generator struct {
	Seed          int64   // Сид для генерации шума
	NoiseScale    float64 // Масштаб основного шума (высота)
	BiomeScale    float64 // Масштаб шума биомов
	ForestDensity float64 // Плотность деревьев на равнинах (от 0 до 1)
	BaseHeight    int     // Средняя высота поверхности
	Amplitude     int     // Размах рельефа вокруг BaseHeight
	WaterLevel    int     // Уровень воды

	height noise2D
	biome  noise2D
	logger *logging.Logger
}

// NewGenerator создаёт генератор с настройками по умолчанию
func NewGenerator(seed int64, logger *logging.Logger) *Generator {
	return &Generator{
		Seed:          seed,
		NoiseScale:    0.05, // Настройка сглаженности ландшафта
		BiomeScale:    0.02, // Настройка размера биомов
		ForestDensity: 0.05, // 5% шанс появления деревьев на равнинах
		BaseHeight:    24,
		Amplitude:     16,
		WaterLevel:    20,
		height:        newNoise2D(seed),
		biome:         newNoise2D(seed + 42),
		logger:        logger,
	}
}

func (g *Generator) heightNoise(x, z int) float64 {
	return g.height.At(float64(x)*g.NoiseScale, float64(z)*g.NoiseScale)
}

// HeightAt возвращает высоту верхнего твёрдого блока колонки (x, z)
func (g *Generator) HeightAt(x, z int) int {
	n := g.heightNoise(x, z)
	h := g.BaseHeight + int((n-0.5)*2*float64(g.Amplitude))
	if h < 1 {
		h = 1
	}
	return h
}

// BiomeAt определяет биом колонки по высоте и шуму биомов
func (g *Generator) BiomeAt(x, z int) BiomeType {
	height := g.heightNoise(x, z)
	if height < waterMax {
		return BiomeWater
	}
	if height > mountainStart {
		return BiomeMountains
	}

	biomeValue := g.biome.At(float64(x)*g.BiomeScale, float64(z)*g.BiomeScale)
	if biomeValue < 0.35 {
		return BiomeDesert
	} else if biomeValue > 0.65 {
		return BiomeForest
	}
	return BiomePlains
}

// MaxHeight: верхняя граница генерации, включая кроны деревьев
func (g *Generator) MaxHeight() int {
	return g.BaseHeight + g.Amplitude + maxTreeHeight + 2
}

// blockAt возвращает тип блока на высоте y колонки с поверхностью top
func (g *Generator) blockAt(y, top int, biome BiomeType) block.BlockID {
	switch {
	case y == 0:
		return block.BedrockBlockID
	case y > top:
		if y <= g.WaterLevel {
			return block.WaterBlockID
		}
		return block.AirBlockID
	case y < top-3:
		return block.StoneBlockID
	}

	switch biome {
	case BiomeDesert, BiomeWater:
		return block.SandBlockID
	case BiomeMountains:
		return block.StoneBlockID
	}
	if y == top && top >= g.WaterLevel {
		return block.GrassBlockID
	}
	return block.DirtBlockID
}

// GenerateChunk заполняет чанк, если он ещё не сгенерирован.
// Возвращает false, если чанк уже был помечен ранее.
func (g *Generator) GenerateChunk(t Target, chunk vec.Vec3) (bool, error) {
	if t.IsGenerated(chunk) {
		return false, nil
	}

	// Детерминированный генератор случайных чисел для каждого чанка
	chunkSeed := g.Seed + int64(chunk.X*31) + int64(chunk.Y*13) + int64(chunk.Z*17)
	rng := rand.New(rand.NewSource(chunkSeed))

	origin := chunk.Scale(vec.ChunkSize)
	for x := 0; x < vec.ChunkSize; x++ {
		for z := 0; z < vec.ChunkSize; z++ {
			gx, gz := origin.X+x, origin.Z+z
			top := g.HeightAt(gx, gz)
			biome := g.BiomeAt(gx, gz)

			for y := 0; y < vec.ChunkSize; y++ {
				gy := origin.Y + y
				if gy < 0 {
					continue
				}
				id := g.blockAt(gy, top, biome)
				if id == block.AirBlockID {
					continue
				}
				if err := t.SetBlock(vec.Vec3{X: gx, Y: gy, Z: gz}, id); err != nil {
					return false, fmt.Errorf("generate chunk %s: %w", chunk, err)
				}
			}

			// Дерево сажает тот чанк, в котором лежит поверхность колонки
			if top < g.WaterLevel || vec.FloorDiv(top, vec.ChunkSize) != chunk.Y {
				continue
			}
			if g.wantsTree(biome, rng) {
				if err := g.placeTree(t, vec.Vec3{X: gx, Y: top + 1, Z: gz}, rng); err != nil {
					return false, fmt.Errorf("generate chunk %s: %w", chunk, err)
				}
			}
		}
	}

	t.MarkGenerated(chunk)
	g.logger.Trace("Сгенерирован чанк %s", chunk)
	return true, nil
}

func (g *Generator) wantsTree(biome BiomeType, rng *rand.Rand) bool {
	switch biome {
	case BiomeForest:
		return rng.Float64() < 0.15 // 15% шанс дерева в лесу
	case BiomePlains:
		return rng.Float64() < g.ForestDensity
	}
	return false
}

const maxTreeHeight = 5

// placeTree ставит ствол высотой 3-5 блоков и крону вокруг верхушки
func (g *Generator) placeTree(t Target, base vec.Vec3, rng *rand.Rand) error {
	height := 3 + rng.Intn(maxTreeHeight-2)
	for i := 0; i < height; i++ {
		if err := t.SetBlock(base.Add(vec.Vec3{Y: i}), block.LogBlockID); err != nil {
			return err
		}
	}

	crown := base.Add(vec.Vec3{Y: height})
	if err := t.SetBlock(crown, block.LeavesBlockID); err != nil {
		return err
	}
	for _, off := range vec.FaceOffsets {
		if off.Y < 0 {
			continue
		}
		if err := t.SetBlock(crown.Add(off), block.LeavesBlockID); err != nil {
			return err
		}
	}
	return nil
}

// GenerateSpawn генерирует колонны чанков в квадрате radius вокруг (0, 0).
// Возвращает число заново сгенерированных чанков.
func (g *Generator) GenerateSpawn(t Target, radius int) (int, error) {
	topChunk := vec.FloorDiv(g.MaxHeight(), vec.ChunkSize)
	generated := 0

	for cx := -radius; cx <= radius; cx++ {
		for cz := -radius; cz <= radius; cz++ {
			for cy := 0; cy <= topChunk; cy++ {
				ok, err := g.GenerateChunk(t, vec.Vec3{X: cx, Y: cy, Z: cz})
				if err != nil {
					return generated, err
				}
				if ok {
					generated++
				}
			}
		}
	}

	g.logger.Info("Сгенерировано %d чанков вокруг точки появления (радиус %d)", generated, radius)
	return generated, nil
}
