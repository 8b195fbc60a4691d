package scheduler

import (
	"context"
	"sync"
	"time"

	"riverwatch/internal/catalog"
	"riverwatch/internal/types"
)

func f64(v float64) *float64 { return &v }

// --- catalog stub ---

type stubCatalog struct {
	cat  *catalog.Catalog
	part *catalog.Partition
	err  error
}

func (s *stubCatalog) Discover(context.Context) (*catalog.Catalog, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.cat != nil {
		return s.cat, nil
	}
	return &s.part.Catalog, nil
}

func (s *stubCatalog) Partition(context.Context) (*catalog.Partition, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.part, nil
}

// --- fetcher stubs ---

type stubFetcher struct {
	mu       sync.Mutex
	readings map[string][]types.Reading
	errs     map[string]error
	calls    []string
}

func (s *stubFetcher) LatestReadings(_ context.Context, stationID string, _ int) ([]types.Reading, error) {
	s.mu.Lock()
	s.calls = append(s.calls, stationID)
	s.mu.Unlock()
	if err := s.errs[stationID]; err != nil {
		return nil, err
	}
	return s.readings[stationID], nil
}

type stubHistory struct {
	info    map[string]types.StationMetadata
	infoErr map[string]error
	history map[string]types.DailyReadings
	histErr map[string]error
}

func (s *stubHistory) StationInfo(_ context.Context, stationID string) (types.StationMetadata, error) {
	if err := s.infoErr[stationID]; err != nil {
		return types.StationMetadata{}, err
	}
	if meta, ok := s.info[stationID]; ok {
		return meta, nil
	}
	return types.StationMetadata{
		StationID:   stationID,
		Provider:    types.ProviderEnvironmentCanada,
		StationName: "Station " + stationID,
	}, nil
}

func (s *stubHistory) Historical(_ context.Context, stationID string, _ int) (types.DailyReadings, error) {
	if err := s.histErr[stationID]; err != nil {
		return nil, err
	}
	return s.history[stationID], nil
}

// --- store stubs ---

type stubCurrent struct {
	mu     sync.Mutex
	cached map[string]*types.CurrentConditions
	getErr map[string]error
	putErr map[string]error
	puts   []types.CurrentConditions
}

func (s *stubCurrent) Put(_ context.Context, cc types.CurrentConditions) error {
	if err := s.putErr[cc.StationID]; err != nil {
		return err
	}
	s.mu.Lock()
	s.puts = append(s.puts, cc)
	s.mu.Unlock()
	return nil
}

func (s *stubCurrent) Get(_ context.Context, _ types.Provider, stationID string) (*types.CurrentConditions, error) {
	if err := s.getErr[stationID]; err != nil {
		return nil, err
	}
	return s.cached[stationID], nil
}

func (s *stubCurrent) putFor(stationID string) *types.CurrentConditions {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.puts {
		if s.puts[i].StationID == stationID {
			return &s.puts[i]
		}
	}
	return nil
}

type stubMetadata struct {
	touches  []string
	touchErr map[string]error
}

func (s *stubMetadata) Touch(_ context.Context, _ types.Provider, stationID string, _ time.Time) error {
	if err := s.touchErr[stationID]; err != nil {
		return err
	}
	s.touches = append(s.touches, stationID)
	return nil
}

type mergeCall struct {
	stationID string
	year      int
	readings  types.DailyReadings
}

type stubYearly struct {
	merges   []mergeCall
	mergeErr map[string]error
}

func (s *stubYearly) Merge(_ context.Context, _ types.Provider, stationID string, year int, readings types.DailyReadings, _ time.Time) error {
	if err := s.mergeErr[stationID]; err != nil {
		return err
	}
	s.merges = append(s.merges, mergeCall{stationID: stationID, year: year, readings: readings})
	return nil
}

// --- batch stub ---

type stubBatch struct {
	creates  []types.StationMetadata
	touches  []string
	merges   []mergeCall
	flushes  int
	flushErr error
	queueErr error
}

func (s *stubBatch) QueueCreateMetadata(_ context.Context, meta types.StationMetadata) error {
	if s.queueErr != nil {
		return s.queueErr
	}
	s.creates = append(s.creates, meta)
	return nil
}

func (s *stubBatch) QueueTouchMetadata(_ context.Context, _ types.Provider, stationID string, _ time.Time) error {
	if s.queueErr != nil {
		return s.queueErr
	}
	s.touches = append(s.touches, stationID)
	return nil
}

func (s *stubBatch) QueueMergeYearly(_ context.Context, _ types.Provider, stationID string, year int, readings types.DailyReadings, _ time.Time) error {
	if s.queueErr != nil {
		return s.queueErr
	}
	s.merges = append(s.merges, mergeCall{stationID: stationID, year: year, readings: readings})
	return nil
}

func (s *stubBatch) Flush(context.Context) error {
	s.flushes++
	return s.flushErr
}

func (s *stubBatch) Committed() int {
	return len(s.creates) + len(s.touches) + len(s.merges)
}

func catalogOf(stations ...string) *catalog.Catalog {
	return &catalog.Catalog{
		Provider: types.ProviderEnvironmentCanada,
		Stations: stations,
		RunIDs:   map[string][]string{},
	}
}
