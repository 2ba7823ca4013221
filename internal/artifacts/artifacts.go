// Package artifacts loads the optional OD/cluster side inputs that
// drive hub and corridor classification. Both files are plain CSV in
// the configured artifacts directory; a missing file is a degraded
// mode, not an error.
package artifacts

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const (
	// ODFile lists recurring origin-destination links.
	ODFile = "od_top.csv"
	// ClusterFile lists candidate hub cluster sites.
	ClusterFile = "stop_clusters.csv"
)

// ODPair is one recurring origin-destination link between two cells.
type ODPair struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	Trips       int    `json:"trips"`
}

// ClusterSite is one candidate hub location.
type ClusterSite struct {
	ClusterID string  `json:"cluster_id"`
	Lat       float64 `json:"lat_mean"`
	Lng       float64 `json:"lng_mean"`
	Count     int     `json:"count"`
}

// Catalog holds the loaded artifact sets. Zero value means nothing
// loaded; classification then yields all-false labels.
type Catalog struct {
	ODPairs  []ODPair
	Clusters []ClusterSite
}

// Status describes artifact availability for the intel status view.
type Status struct {
	Dir             string `json:"dir"`
	ODPresent       bool   `json:"od_present"`
	ODRows          int    `json:"od_rows"`
	ClustersPresent bool   `json:"clusters_present"`
	ClustersRows    int    `json:"clusters_rows"`
}

// Load reads both artifact files from dir. Missing files are skipped
// with a log line; malformed files fail the load.
func Load(dir string) (*Catalog, error) {
	cat := &Catalog{}

	odPath := filepath.Join(dir, ODFile)
	if f, err := os.Open(odPath); err == nil {
		pairs, err := readODPairs(f)
		f.Close()
		if err != nil {
			return nil, eris.Wrapf(err, "artifacts: parse %s", odPath)
		}
		cat.ODPairs = pairs
	} else if os.IsNotExist(err) {
		zap.L().Info("od artifact absent, corridors disabled", zap.String("path", odPath))
	} else {
		return nil, eris.Wrapf(err, "artifacts: open %s", odPath)
	}

	clPath := filepath.Join(dir, ClusterFile)
	if f, err := os.Open(clPath); err == nil {
		sites, err := readClusters(f)
		f.Close()
		if err != nil {
			return nil, eris.Wrapf(err, "artifacts: parse %s", clPath)
		}
		cat.Clusters = sites
	} else if os.IsNotExist(err) {
		zap.L().Info("cluster artifact absent, hubs disabled", zap.String("path", clPath))
	} else {
		return nil, eris.Wrapf(err, "artifacts: open %s", clPath)
	}

	return cat, nil
}

// StatusOf reports what a directory currently holds without keeping
// the data around.
func StatusOf(dir string) Status {
	st := Status{Dir: dir}
	if cat, err := Load(dir); err == nil {
		st.ODRows = len(cat.ODPairs)
		st.ClustersRows = len(cat.Clusters)
	}
	if _, err := os.Stat(filepath.Join(dir, ODFile)); err == nil {
		st.ODPresent = true
	}
	if _, err := os.Stat(filepath.Join(dir, ClusterFile)); err == nil {
		st.ClustersPresent = true
	}
	return st
}

// TopOD returns up to limit OD pairs ordered by trip volume.
func (c *Catalog) TopOD(limit int) []ODPair {
	pairs := make([]ODPair, len(c.ODPairs))
	copy(pairs, c.ODPairs)
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Trips > pairs[j].Trips })
	if limit > 0 && limit < len(pairs) {
		pairs = pairs[:limit]
	}
	return pairs
}

// TopClusters returns up to limit cluster sites ordered by count.
func (c *Catalog) TopClusters(limit int) []ClusterSite {
	sites := make([]ClusterSite, len(c.Clusters))
	copy(sites, c.Clusters)
	sort.Slice(sites, func(i, j int) bool { return sites[i].Count > sites[j].Count })
	if limit > 0 && limit < len(sites) {
		sites = sites[:limit]
	}
	return sites
}

func readODPairs(r io.Reader) ([]ODPair, error) {
	rows, idx, err := readCSV(r, "origin", "destination", "trips")
	if err != nil {
		return nil, err
	}
	pairs := make([]ODPair, 0, len(rows))
	for i, rec := range rows {
		trips, err := strconv.Atoi(rec[idx["trips"]])
		if err != nil {
			return nil, eris.Wrapf(err, "bad trips on row %d", i+2)
		}
		pairs = append(pairs, ODPair{
			Origin:      rec[idx["origin"]],
			Destination: rec[idx["destination"]],
			Trips:       trips,
		})
	}
	return pairs, nil
}

func readClusters(r io.Reader) ([]ClusterSite, error) {
	rows, idx, err := readCSV(r, "cluster_id", "lat_mean", "lng_mean", "count")
	if err != nil {
		return nil, err
	}
	sites := make([]ClusterSite, 0, len(rows))
	for i, rec := range rows {
		lat, err := strconv.ParseFloat(rec[idx["lat_mean"]], 64)
		if err != nil {
			return nil, eris.Wrapf(err, "bad lat_mean on row %d", i+2)
		}
		lng, err := strconv.ParseFloat(rec[idx["lng_mean"]], 64)
		if err != nil {
			return nil, eris.Wrapf(err, "bad lng_mean on row %d", i+2)
		}
		count, err := strconv.Atoi(rec[idx["count"]])
		if err != nil {
			return nil, eris.Wrapf(err, "bad count on row %d", i+2)
		}
		sites = append(sites, ClusterSite{
			ClusterID: rec[idx["cluster_id"]],
			Lat:       lat,
			Lng:       lng,
			Count:     count,
		})
	}
	return sites, nil
}

func readCSV(r io.Reader, required ...string) ([][]string, map[string]int, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, nil, eris.Wrap(err, "read header")
	}
	idx := map[string]int{}
	for i, name := range header {
		idx[strings.TrimSpace(strings.ToLower(name))] = i
	}
	for _, col := range required {
		if _, ok := idx[col]; !ok {
			return nil, nil, eris.Errorf("missing column %q", col)
		}
	}
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, nil, eris.Wrap(err, "read rows")
	}
	return rows, idx, nil
}
