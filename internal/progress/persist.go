package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/redis/go-redis/v9"
)

const (
	stateKey     = "chess-progress"
	blobVersion  = 1
	fileTempMode = 0o644
)

// Persister stores the serialized progress state. Load returns a nil slice
// when no blob exists yet.
type Persister interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, raw []byte) error
	Close() error
}

type persistedState struct {
	Version int `json:"version"`
	Snapshot
}

func encodeState(state Snapshot) ([]byte, error) {
	return json.Marshal(persistedState{Version: blobVersion, Snapshot: state})
}

func decodeState(raw []byte) (Snapshot, error) {
	var blob persistedState
	if err := json.Unmarshal(raw, &blob); err != nil {
		return Snapshot{}, fmt.Errorf("decode progress blob: %w", err)
	}
	if blob.Version != blobVersion {
		return Snapshot{}, fmt.Errorf("unsupported progress blob version %d", blob.Version)
	}
	state := blob.Snapshot
	if state.Games == nil {
		state.Games = []GameRecord{}
	}
	if state.DailyGames == nil {
		state.DailyGames = []DailyGame{}
	}
	if state.PuzzleHistory == nil {
		state.PuzzleHistory = []PuzzleHistory{}
	}
	return state, nil
}

// RedisPersister keeps the state blob under a single key, no TTL.
type RedisPersister struct {
	rdb *redis.Client
	key string
}

// NewRedisPersister connects using a Redis URL (redis://host:port/db) and
// verifies the connection with a ping.
func NewRedisPersister(ctx context.Context, redisURL string) (*RedisPersister, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisPersister{rdb: rdb, key: stateKey}, nil
}

// NewRedisPersisterFromClient wraps an existing client; tests use this with
// miniredis.
func NewRedisPersisterFromClient(rdb *redis.Client) *RedisPersister {
	return &RedisPersister{rdb: rdb, key: stateKey}
}

func (p *RedisPersister) Load(ctx context.Context) ([]byte, error) {
	raw, err := p.rdb.Get(ctx, p.key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", p.key, err)
	}
	return raw, nil
}

func (p *RedisPersister) Save(ctx context.Context, raw []byte) error {
	if err := p.rdb.Set(ctx, p.key, raw, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", p.key, err)
	}
	return nil
}

func (p *RedisPersister) Close() error {
	return p.rdb.Close()
}

// FilePersister writes the state blob zstd-compressed to a single file.
// Saves go through a temp file plus rename so a crash never leaves a
// half-written blob behind.
type FilePersister struct {
	path    string
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func NewFilePersister(path string) (*FilePersister, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	return &FilePersister{path: path, encoder: enc, decoder: dec}, nil
}

func (p *FilePersister) Load(_ context.Context) ([]byte, error) {
	compressed, err := os.ReadFile(p.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p.path, err)
	}
	raw, err := p.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress %s: %w", p.path, err)
	}
	return raw, nil
}

func (p *FilePersister) Save(_ context.Context, raw []byte) error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return fmt.Errorf("ensure state dir: %w", err)
	}
	compressed := p.encoder.EncodeAll(raw, nil)
	tmp := p.path + ".tmp"
	if err := os.WriteFile(tmp, compressed, fileTempMode); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, p.path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

func (p *FilePersister) Close() error {
	p.encoder.Close()
	p.decoder.Close()
	return nil
}
