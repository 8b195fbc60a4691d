// Package catalog derives the authoritative set of monitoring stations from
// the river-run metadata collection and classifies each station as new or
// existing by probing the store. The partition is computed fresh on every
// run; the store is the only durable record of which stations have been
// processed before.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"riverwatch/internal/types"
)

// RunSource lists the river-run documents that reference gauge stations.
type RunSource interface {
	List(ctx context.Context) ([]types.RiverRun, error)
}

// MetadataSource reports which stations already have metadata stored.
type MetadataSource interface {
	ListKnown(ctx context.Context, provider types.Provider) ([]string, error)
}

// Catalog is the discovered station set for one provider, with the run
// documents that reference each station.
type Catalog struct {
	Provider types.Provider
	Stations []string
	RunIDs   map[string][]string
}

// Partition splits a discovered catalog by stored history.
type Partition struct {
	Catalog
	New      []string
	Existing []string
}

// Reconciler builds catalogs and partitions from the run collection and the
// store.
type Reconciler struct {
	runs     RunSource
	metadata MetadataSource
	logger   *slog.Logger
}

// NewReconciler creates a Reconciler. The logger may be nil.
func NewReconciler(runs RunSource, metadata MetadataSource, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{runs: runs, metadata: metadata, logger: logger}
}

// Discover extracts every distinct station code referenced by the run
// collection. A run may name the same code in both its stationId field and
// its nested gauge-station code; both are read and deduplicated. Codes that
// already carry the provider prefix are legacy malformed data and are
// skipped.
func (r *Reconciler) Discover(ctx context.Context) (*Catalog, error) {
	runs, err := r.runs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing river runs: %w", err)
	}

	provider := types.ProviderEnvironmentCanada
	malformedPrefix := string(provider) + "_"

	runIDs := make(map[string]map[string]struct{})
	add := func(code, runID string) {
		if code == "" || strings.HasPrefix(code, malformedPrefix) {
			return
		}
		if runIDs[code] == nil {
			runIDs[code] = make(map[string]struct{})
		}
		runIDs[code][runID] = struct{}{}
	}

	for _, run := range runs {
		add(run.StationID, run.ID)
		add(run.GaugeStationCode, run.ID)
	}

	cat := &Catalog{
		Provider: provider,
		Stations: make([]string, 0, len(runIDs)),
		RunIDs:   make(map[string][]string, len(runIDs)),
	}
	for station, ids := range runIDs {
		cat.Stations = append(cat.Stations, station)
		sorted := make([]string, 0, len(ids))
		for id := range ids {
			sorted = append(sorted, id)
		}
		sort.Strings(sorted)
		cat.RunIDs[station] = sorted
	}
	sort.Strings(cat.Stations)

	r.logger.InfoContext(ctx, "discovered stations from river runs",
		"provider", provider,
		"runs", len(runs),
		"stations", len(cat.Stations),
	)
	return cat, nil
}

// Partition discovers the catalog and splits it into stations with and
// without stored metadata. Every station lands in exactly one side.
func (r *Reconciler) Partition(ctx context.Context) (*Partition, error) {
	cat, err := r.Discover(ctx)
	if err != nil {
		return nil, err
	}

	known, err := r.metadata.ListKnown(ctx, cat.Provider)
	if err != nil {
		return nil, fmt.Errorf("listing known stations: %w", err)
	}
	knownSet := make(map[string]struct{}, len(known))
	for _, id := range known {
		knownSet[id] = struct{}{}
	}

	p := &Partition{Catalog: *cat}
	for _, station := range cat.Stations {
		if _, ok := knownSet[station]; ok {
			p.Existing = append(p.Existing, station)
		} else {
			p.New = append(p.New, station)
		}
	}

	r.logger.InfoContext(ctx, "partitioned station catalog",
		"provider", cat.Provider,
		"new", len(p.New),
		"existing", len(p.Existing),
	)
	return p, nil
}
