package model

import (
	"bytes"
	"encoding/gob"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/YuminosukeSato/bikecast/pkg/errors"
)

// FormatVersion は保存ファイルの形式バージョン
const FormatVersion = 1

// Factory は空のモデルを生成する関数。Load がデコード先として使う。
type Factory func() Regressor

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register はモデルファミリー名とデコード先のファクトリを登録する。
// 各モデルパッケージの init から呼ばれる。
func Register(family string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[family] = factory
}

// RegisteredFamilies は登録済みのファミリー名をソートして返す
func RegisteredFamilies() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Metadata は学習済みモデルと一緒に保存される付随情報
type Metadata struct {
	Family       string
	FeatureNames []string
	TrainedAt    time.Time
	Metrics      map[string]float64
}

// envelope は保存ファイルの中身。Payload は具象モデルの gob 表現。
type envelope struct {
	Version  int
	Metadata Metadata
	Payload  []byte
}

// Save はモデルを path に保存する
//
// 同じディレクトリに一時ファイルを書いてから rename で置き換えるため、
// 途中まで書かれたファイルが path に残ることはない。親ディレクトリが
// なければ作成する。失敗はすべて IOError として返す。
//
// 使用例:
//
//	meta := model.Metadata{Family: "xgboost", FeatureNames: names}
//	err := model.Save("models/xgboost_bike_predictor.gob", reg, meta)
func Save(path string, m Regressor, meta Metadata) error {
	if m == nil || !m.IsFitted() {
		return errors.NewNotFittedError(meta.Family, "Save")
	}

	var payload bytes.Buffer
	if err := gob.NewEncoder(&payload).Encode(m); err != nil {
		return errors.NewIOError("encode model", path, err)
	}
	var buf bytes.Buffer
	env := envelope{Version: FormatVersion, Metadata: meta, Payload: payload.Bytes()}
	if err := gob.NewEncoder(&buf).Encode(env); err != nil {
		return errors.NewIOError("encode model", path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.NewIOError("create directory", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".bikecast-*.tmp")
	if err != nil {
		return errors.NewIOError("create temp file", dir, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		cleanup()
		return errors.NewIOError("write", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return errors.NewIOError("sync", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return errors.NewIOError("close", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return errors.NewIOError("rename", path, err)
	}
	return nil
}

// Load は Save で保存したモデルを読み込む
//
// Metadata.Family に対応するファクトリが Register されている必要がある。
func Load(path string) (Regressor, Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Metadata{}, errors.NewIOError("read", path, err)
	}

	var env envelope
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&env); err != nil {
		return nil, Metadata{}, errors.NewIOError("decode model", path, err)
	}
	if env.Version != FormatVersion {
		return nil, env.Metadata, errors.NewIOError("decode model", path,
			errors.Newf("unsupported format version %d (want %d)", env.Version, FormatVersion))
	}

	registryMu.RLock()
	factory, ok := registry[env.Metadata.Family]
	registryMu.RUnlock()
	if !ok {
		return nil, env.Metadata, errors.NewUnsupportedModelError(env.Metadata.Family, RegisteredFamilies())
	}

	m := factory()
	if err := gob.NewDecoder(bytes.NewReader(env.Payload)).Decode(m); err != nil {
		return nil, env.Metadata, errors.NewIOError("decode model", path, err)
	}
	return m, env.Metadata, nil
}
