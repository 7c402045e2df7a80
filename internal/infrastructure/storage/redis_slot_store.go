package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/klauspost/compress/zstd"
	"github.com/redis/go-redis/v9"

	"tif-patch/internal/domain/entity"
	"tif-patch/internal/domain/port"
)

// DefaultSlotPrefix префикс ключей слотов в Redis
const DefaultSlotPrefix = "tifpatch:quickload"

// RedisSlotStore слоты быстрого сохранения в Redis.
//
// Значение слота: JSON снимка, сжатый zstd. Номера занятых слотов лежат
// в отдельном множестве <prefix>:slots.
type RedisSlotStore struct {
	client *redis.Client
	prefix string
	enc    *zstd.Encoder
	dec    *zstd.Decoder
}

// NewRedisSlotStore создаёт хранилище поверх готового клиента.
func NewRedisSlotStore(client *redis.Client, prefix string) (*RedisSlotStore, error) {
	if prefix == "" {
		prefix = DefaultSlotPrefix
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &RedisSlotStore{
		client: client,
		prefix: prefix,
		enc:    enc,
		dec:    dec,
	}, nil
}

func (s *RedisSlotStore) slotKey(slot int) string {
	return s.prefix + ":slot:" + strconv.Itoa(slot)
}

func (s *RedisSlotStore) indexKey() string {
	return s.prefix + ":slots"
}

// Save записывает снимок в слот
func (s *RedisSlotStore) Save(ctx context.Context, slot int, snapshot *entity.SessionSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode slot %d: %w", slot, err)
	}
	compressed := s.enc.EncodeAll(data, nil)

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.slotKey(slot), compressed, 0)
	pipe.SAdd(ctx, s.indexKey(), slot)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: save slot %d: %v", entity.ErrIO, slot, err)
	}
	return nil
}

// Load читает снимок из слота
func (s *RedisSlotStore) Load(ctx context.Context, slot int) (*entity.SessionSnapshot, bool, error) {
	compressed, err := s.client.Get(ctx, s.slotKey(slot)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: load slot %d: %v", entity.ErrIO, slot, err)
	}

	data, err := s.dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, false, fmt.Errorf("decompress slot %d: %w", slot, err)
	}

	var snapshot entity.SessionSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, false, fmt.Errorf("decode slot %d: %w", slot, err)
	}
	return &snapshot, true, nil
}

// Clear очищает слот
func (s *RedisSlotStore) Clear(ctx context.Context, slot int) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.slotKey(slot))
	pipe.SRem(ctx, s.indexKey(), slot)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: clear slot %d: %v", entity.ErrIO, slot, err)
	}
	return nil
}

// List занятые слоты по возрастанию
func (s *RedisSlotStore) List(ctx context.Context) ([]int, error) {
	members, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: list slots: %v", entity.ErrIO, err)
	}

	out := make([]int, 0, len(members))
	for _, m := range members {
		slot, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		out = append(out, slot)
	}
	sort.Ints(out)
	return out, nil
}

// Close освобождает кодеки; клиент закрывает владелец.
func (s *RedisSlotStore) Close() {
	s.enc.Close()
	s.dec.Close()
}

// Проверка реализации интерфейса
var _ port.SlotStore = (*RedisSlotStore)(nil)
