package sniff

import (
	"archive/zip"
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/data-qa/internal/model"
	"github.com/sells-group/data-qa/internal/registry"
)

// gtfsFilenames is the filename set that identifies a GTFS feed.
var gtfsFilenames = []string{
	"agency.txt", "stops.txt", "routes.txt", "trips.txt",
	"stop_times.txt", "calendar.txt",
}

// InspectZip determines the format of the files inside a zip archive.
// A Shapefile or GTFS entry set wins outright; otherwise entries vote
// by extension, weighted by openness score, and the winning inner
// format is annotated with container ZIP. Returns nil when the
// archive cannot be opened (non-fatal: the caller tries other
// strategies).
func InspectZip(filepath string, formats *registry.Formats, scores *registry.Scores) *model.SniffResult {
	r, err := zip.OpenReader(filepath)
	if err != nil {
		zap.L().Debug("sniff: zip open failed",
			zap.String("path", filepath),
			zap.Error(err),
		)
		return nil
	}
	defer r.Close() //nolint:errcheck

	var names []string
	for _, f := range r.File {
		if !f.FileInfo().IsDir() {
			names = append(names, f.Name)
		}
	}

	// A Shapefile is a zip holding .shp, .dbf and .shx amongst others.
	exts := make(map[string]bool, len(names))
	for _, n := range names {
		exts[entryExt(n)] = true
	}
	if exts["shp"] && exts["dbf"] && exts["shx"] {
		zap.L().Debug("sniff: shapefile detected in zip")
		return &model.SniffResult{Format: "SHP"}
	}

	// A GTFS feed is a zip holding a fixed set of filenames.
	basenames := make(map[string]bool, len(names))
	for _, n := range names {
		basenames[path.Base(n)] = true
	}
	gtfs := true
	for _, want := range gtfsFilenames {
		if !basenames[want] {
			gtfs = false
			break
		}
	}
	if gtfs {
		zap.L().Debug("sniff: GTFS detected in zip")
		return &model.SniffResult{Format: "GTFS"}
	}

	// Vote: keep only the extensions tied for the highest openness
	// score, then the most frequent of those wins.
	topScore := 0
	counts := map[string]int{}
	for _, n := range names {
		ext := entryExt(n)
		entry, ok := formats.Get(ext)
		if !ok {
			zap.L().Debug("sniff: zipped file of unknown extension",
				zap.String("extension", ext),
				zap.String("name", n),
			)
			continue
		}
		score, ok := scores.Get(entry.ShortName)
		if !ok {
			continue
		}
		if score > topScore {
			topScore = score
			counts = map[string]int{}
		}
		if score == topScore {
			counts[ext]++
		}
	}
	if len(counts) == 0 {
		zap.L().Debug("sniff: zip has no known extensions", zap.String("path", filepath))
		return &model.SniffResult{Format: "ZIP"}
	}

	ranked := make([]string, 0, len(counts))
	for ext := range counts {
		ranked = append(ranked, ext)
	}
	// highest count first; equal counts break alphabetically
	sort.Slice(ranked, func(i, j int) bool {
		if counts[ranked[i]] != counts[ranked[j]] {
			return counts[ranked[i]] > counts[ranked[j]]
		}
		return ranked[i] < ranked[j]
	})
	top := ranked[0]

	entry, _ := formats.Get(top)
	zap.L().Debug("sniff: zipped file format detected",
		zap.String("extension", top),
		zap.String("format", entry.ShortName),
	)
	return &model.SniffResult{Format: entry.ShortName, Container: model.ContainerZIP}
}

// entryExt returns the lowercase extension of a zip entry name,
// without the dot.
func entryExt(name string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
}
