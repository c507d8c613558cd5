package artifact

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/wonny/ifrs9-ccf/internal/contracts"
	"github.com/wonny/ifrs9-ccf/internal/model"
)

// Provenance 학습 실행 메타데이터 (모든 아티팩트에 기록)
type Provenance struct {
	FeatureVersion string    `json:"feature_version"`
	ConfigHash     string    `json:"config_hash"`
	RunID          string    `json:"run_id"`
	TrainedAt      time.Time `json:"trained_at"`
}

// FeatureSetRecord 세그먼트 선택 피처 저장 형식
type FeatureSetRecord struct {
	contracts.SelectedFeatureSet
	Provenance
}

// Bundle 학습된 모델 + 학습에 사용한 피처 목록
type Bundle struct {
	Segment  int                   `json:"segment"`
	Family   contracts.ModelFamily `json:"family"`
	Features []string              `json:"features"`
	Provenance
	Model json.RawMessage `json:"model"`
}

// Repository 세그먼트 아티팩트 읽기/쓰기 (계열 무관)
type Repository struct {
	store Store
}

// NewRepository creates a repository over a store handle
func NewRepository(store Store) *Repository {
	return &Repository{store: store}
}

// Store returns the underlying store
func (r *Repository) Store() Store {
	return r.store
}

// SaveSegment persists the feature set once and every fitted model
func (r *Repository) SaveSegment(ctx context.Context, set contracts.SelectedFeatureSet, prov Provenance, models ...model.Model) error {
	data, err := json.MarshalIndent(FeatureSetRecord{SelectedFeatureSet: set, Provenance: prov}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode feature set: %w", err)
	}
	if err := r.store.Put(ctx, FeatureSetKey(set.Segment), data); err != nil {
		return err
	}

	for _, m := range models {
		raw, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("encode %s model: %w", m.Family(), err)
		}
		b := Bundle{
			Segment:    set.Segment,
			Family:     m.Family(),
			Features:   set.Features,
			Provenance: prov,
			Model:      raw,
		}
		data, err := json.Marshal(b)
		if err != nil {
			return fmt.Errorf("encode %s bundle: %w", m.Family(), err)
		}
		if err := r.store.Put(ctx, ModelKey(m.Family(), set.Segment), data); err != nil {
			return err
		}
	}
	return nil
}

// LoadFeatureSet reads the feature set and checks the engine version
func (r *Repository) LoadFeatureSet(ctx context.Context, segment int, featureVersion string) (contracts.SelectedFeatureSet, error) {
	rec, err := r.loadFeatureRecord(ctx, segment, featureVersion)
	if err != nil {
		return contracts.SelectedFeatureSet{}, err
	}
	return rec.SelectedFeatureSet, nil
}

func (r *Repository) loadFeatureRecord(ctx context.Context, segment int, featureVersion string) (FeatureSetRecord, error) {
	key := FeatureSetKey(segment)
	var rec FeatureSetRecord
	if err := r.load(ctx, segment, key, &rec); err != nil {
		return FeatureSetRecord{}, err
	}
	if err := checkVersion(segment, key, rec.FeatureVersion, featureVersion); err != nil {
		return FeatureSetRecord{}, err
	}
	if rec.Empty() {
		return FeatureSetRecord{}, &contracts.ArtifactError{Segment: segment, Key: key, Err: contracts.ErrEmptyFeatureSet}
	}
	return rec, nil
}

// SegmentArtifacts 한 학습 실행이 남긴 세그먼트 아티팩트
type SegmentArtifacts struct {
	Set    contracts.SelectedFeatureSet
	Models map[contracts.ModelFamily]model.Model
	Provenance
}

// LoadSegment loads the feature set and the given families as one unit.
// ⭐ SSOT: 모든 번들은 피처셋과 같은 run id + 피처 목록이어야 함 (부분 저장된 실행 혼용 방지)
func (r *Repository) LoadSegment(ctx context.Context, segment int, featureVersion string, families ...contracts.ModelFamily) (*SegmentArtifacts, error) {
	rec, err := r.loadFeatureRecord(ctx, segment, featureVersion)
	if err != nil {
		return nil, err
	}

	out := &SegmentArtifacts{
		Set:        rec.SelectedFeatureSet,
		Models:     make(map[contracts.ModelFamily]model.Model, len(families)),
		Provenance: rec.Provenance,
	}
	for _, family := range families {
		m, b, err := r.LoadModel(ctx, segment, family, featureVersion)
		if err != nil {
			return nil, err
		}
		key := ModelKey(family, segment)
		if b.RunID != rec.RunID {
			return nil, &contracts.ArtifactError{Segment: segment, Key: key,
				Err: fmt.Errorf("%w: bundle from run %q, feature set from run %q", contracts.ErrArtifactMismatch, b.RunID, rec.RunID)}
		}
		if !slices.Equal(b.Features, rec.Features) {
			return nil, &contracts.ArtifactError{Segment: segment, Key: key,
				Err: fmt.Errorf("%w: bundle features differ from the selected feature set", contracts.ErrArtifactMismatch)}
		}
		out.Models[family] = m
	}
	return out, nil
}

// LoadModel reads a bundle, checks the engine version and decodes the model
func (r *Repository) LoadModel(ctx context.Context, segment int, family contracts.ModelFamily, featureVersion string) (model.Model, Bundle, error) {
	key := ModelKey(family, segment)
	var b Bundle
	if err := r.load(ctx, segment, key, &b); err != nil {
		return nil, Bundle{}, err
	}
	if err := checkVersion(segment, key, b.FeatureVersion, featureVersion); err != nil {
		return nil, Bundle{}, err
	}
	if b.Family != family || b.Segment != segment {
		return nil, Bundle{}, &contracts.ArtifactError{Segment: segment, Key: key,
			Err: fmt.Errorf("%w: bundle holds %s segment %d", contracts.ErrArtifactMismatch, b.Family, b.Segment)}
	}
	m, err := model.Decode(family, b.Model)
	if err != nil {
		return nil, Bundle{}, &contracts.ArtifactError{Segment: segment, Key: key, Err: fmt.Errorf("%w: %v", contracts.ErrArtifactMismatch, err)}
	}
	return m, b, nil
}

func (r *Repository) load(ctx context.Context, segment int, key string, dest interface{}) error {
	data, err := r.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, contracts.ErrArtifactMissing) {
			return &contracts.ArtifactError{Segment: segment, Key: key, Err: err}
		}
		return fmt.Errorf("load artifact %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return &contracts.ArtifactError{Segment: segment, Key: key, Err: fmt.Errorf("%w: %v", contracts.ErrArtifactMismatch, err)}
	}
	return nil
}

func checkVersion(segment int, key, got, want string) error {
	if want == "" || got == want {
		return nil
	}
	return &contracts.ArtifactError{Segment: segment, Key: key,
		Err: fmt.Errorf("%w: feature version %s, engine is %s", contracts.ErrArtifactMismatch, got, want)}
}
