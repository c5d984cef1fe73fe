package qa

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/data-qa/internal/fetcher"
	"github.com/sells-group/data-qa/internal/model"
	"github.com/sells-group/data-qa/internal/registry"
	"github.com/sells-group/data-qa/internal/sniff"
)

// RecordStore is the slice of the persistence layer the scorer needs:
// reading back the previously stored format for a resource and saving
// new results.
type RecordStore interface {
	GetQA(ctx context.Context, resourceID string) (*model.QARecord, error)
	SaveQA(ctx context.Context, resourceID string, result *model.ScoreResult) (*model.QARecord, error)
}

// Scorer calculates openness scores for resources. Each call is a
// pure function of the resource and archival snapshots plus the
// injected registry and score table; it is safe for concurrent use.
type Scorer struct {
	Formats *registry.Formats
	Scores  *registry.Scores
	Sniffer *sniff.Sniffer
	Fetcher fetcher.Fetcher
	// Store is optional; without it the scorer cannot recall a
	// previously stored format for broken or unscoreable resources.
	Store RecordStore
	// Policy is an optional post-processing hook that may override
	// the final result.
	Policy Policy
}

// Score rates a resource on the five stars of openness. Strategies
// are tried in order of trustworthiness: the archiver's broken-link
// verdict, the sniffed content, the URL extension, and finally the
// publisher's declared format. Every strategy attempted contributes a
// fragment to the reason, not just the winning one.
func (s *Scorer) Score(ctx context.Context, res *model.Resource, archival *model.Archival) (*model.ScoreResult, error) {
	var reasons []string

	score, format, scored := s.scoreIfLinkBroken(ctx, archival, res, &reasons)
	if !scored {
		// The publisher's word is not taken for it, in case the URL
		// only leads to a landing page, so the sniffed content has
		// the highest priority after link health.
		var err error
		score, format, scored, err = s.scoreBySniffing(ctx, archival, &reasons)
		if err != nil {
			return nil, err
		}
		if !scored {
			score, format, scored = s.scoreByURLExtension(res, &reasons)
			if !scored {
				score, format, scored = s.scoreByFormatField(res, &reasons)
				if !scored {
					zap.L().Warn("could not score resource",
						zap.String("resource_id", res.ID),
						zap.String("url", res.URL),
					)
					reasons = append(reasons, "Could not understand the file format, therefore score is 1.")
					score = 1
					if format == "" {
						format = s.previousFormat(ctx, res.ID)
					}
				}
			}
		}
	}

	reason := strings.Join(reasons, " ")

	// License health is checked after link health so a broken link
	// still gets reported as broken.
	if score > 0 && !res.LicenseOpen {
		reason = "License not open"
		score = 0
	}

	zap.L().Info("resource scored",
		zap.String("resource_id", res.ID),
		zap.Int("score", score),
		zap.String("format", format),
		zap.String("reason", reason),
	)

	result := &model.ScoreResult{
		OpennessScore:       score,
		OpennessScoreReason: reason,
		Format:              format,
	}
	if archival != nil {
		result.ArchivalTimestamp = archival.Updated
	}

	if s.Policy != nil {
		overridden, err := s.Policy.Override(ctx, res, result)
		if err != nil {
			return nil, eris.Wrapf(err, "qa: policy override for resource %s", res.ID)
		}
		if overridden != nil {
			result = overridden
		}
	}
	return result, nil
}

// scoreIfLinkBroken forces a zero score when the archiver has
// positively marked the link as broken, keeping any previously
// stored format.
func (s *Scorer) scoreIfLinkBroken(ctx context.Context, archival *model.Archival, res *model.Resource, reasons *[]string) (int, string, bool) {
	if !archival.Broken() {
		return 0, "", false
	}
	*reasons = append(*reasons, brokenLinkMessage(archival))
	format := s.previousFormat(ctx, res.ID)
	zap.L().Info("archiver says link is broken",
		zap.String("resource_id", res.ID),
		zap.String("previous_format", format),
	)
	return 0, format, true
}

// scoreBySniffing looks inside the cached copy of the file to
// determine its format. When only a remote cache URL is known the
// file is fetched transiently and removed afterwards.
func (s *Scorer) scoreBySniffing(ctx context.Context, archival *model.Archival, reasons *[]string) (int, string, bool, error) {
	if archival == nil || (archival.CacheFilepath == "" && archival.CacheURL == "") {
		switch {
		case archival != nil && archival.Status == model.ArchivalStatusChoseNotToDownload:
			*reasons = append(*reasons, fmt.Sprintf(
				"File was not downloaded deliberately. Reason: %s. Using other methods to determine file openness.",
				archival.Reason))
		case archival != nil && archival.IsBroken == nil && archival.Status != "":
			*reasons = append(*reasons, fmt.Sprintf(
				"A system error occurred during downloading this file. Reason: %s. Using other methods to determine file openness.",
				archival.Reason))
		default:
			*reasons = append(*reasons, "This file had not been downloaded at the time of scoring it.")
		}
		return 0, "", false, nil
	}

	filepath := archival.CacheFilepath
	deleteFile := false
	if _, err := os.Stat(filepath); err != nil {
		zap.L().Debug("cache copy not on disk, fetching",
			zap.String("filepath", filepath),
			zap.String("cache_url", archival.CacheURL),
		)
		filepath, err = s.Fetcher.FetchToTemp(ctx, archival.CacheURL)
		if err != nil {
			*reasons = append(*reasons, fmt.Sprintf(
				"A system error occurred during downloading this file. %s", err))
			return 0, "", false, nil
		}
		deleteFile = true
	}
	if deleteFile {
		defer func() {
			if err := os.Remove(filepath); err != nil {
				zap.L().Warn("unable to remove temporary file",
					zap.String("filepath", filepath),
					zap.Error(err),
				)
			}
		}()
	}

	sniffed, err := s.Sniffer.Sniff(filepath)
	if err != nil {
		return 0, "", false, eris.Wrapf(err, "qa: sniff %s", filepath)
	}
	if sniffed == nil {
		*reasons = append(*reasons, "The format of the file was not recognized from its contents.")
		return 0, "", false, nil
	}

	score, ok := s.Scores.Get(sniffed.Format)
	if !ok {
		*reasons = append(*reasons, fmt.Sprintf(
			"Content of file appeared to be format %q but no openness score is configured for it.",
			sniffed.Format))
		return 0, "", false, nil
	}
	*reasons = append(*reasons, fmt.Sprintf(
		"Content of file appeared to be format %q which receives openness score: %d.",
		sniffed.Format, score))
	return score, sniffed.Format, true, nil
}

// scoreByURLExtension maps the URL's file extension to a format,
// trying the compound extension before the simple one.
func (s *Scorer) scoreByURLExtension(res *model.Resource, reasons *[]string) (int, string, bool) {
	variants := ExtensionVariants(strings.TrimSpace(res.URL))
	if len(variants) == 0 {
		*reasons = append(*reasons, "Could not determine a file extension in the URL.")
		return 0, "", false
	}
	for _, ext := range variants {
		entry, ok := s.Formats.Get(ext)
		if !ok {
			*reasons = append(*reasons, fmt.Sprintf("URL extension %q is an unknown format.", ext))
			continue
		}
		score, scored := s.Scores.Get(entry.ShortName)
		if scored && score > 0 {
			*reasons = append(*reasons, fmt.Sprintf(
				"URL extension %q relates to format %q and receives score: %d.",
				ext, entry.ShortName, score))
			return score, entry.ShortName, true
		}
		*reasons = append(*reasons, fmt.Sprintf(
			"URL extension %q relates to format %q but a score for that format is not configured, so giving it default score 1.",
			ext, entry.ShortName))
		return 1, entry.ShortName, true
	}
	return 0, "", false
}

// scoreByFormatField falls back to the publisher's self-declared
// format string, normalizing it before the registry lookup.
func (s *Scorer) scoreByFormatField(res *model.Resource, reasons *[]string) (int, string, bool) {
	field := res.Format
	if field == "" {
		*reasons = append(*reasons, "Format field is blank.")
		return 0, "", false
	}
	entry, ok := s.Formats.Get(field)
	if !ok {
		entry, ok = s.Formats.Get(registry.MungeFormat(field))
	}
	if !ok {
		*reasons = append(*reasons, fmt.Sprintf(
			"Format field %q does not correspond to a known format.", field))
		return 0, "", false
	}
	score, scored := s.Scores.Get(entry.ShortName)
	if !scored {
		*reasons = append(*reasons, fmt.Sprintf(
			"Format field %q recognized as format %q but no openness score is configured for it.",
			field, entry.ShortName))
		return 0, entry.ShortName, false
	}
	*reasons = append(*reasons, fmt.Sprintf("Format field %q receives score: %d.", field, score))
	return score, entry.ShortName, true
}

// previousFormat returns the format stored by an earlier scoring
// pass, if any.
func (s *Scorer) previousFormat(ctx context.Context, resourceID string) string {
	if s.Store == nil {
		return ""
	}
	record, err := s.Store.GetQA(ctx, resourceID)
	if err != nil {
		zap.L().Warn("could not load previous qa record",
			zap.String("resource_id", resourceID),
			zap.Error(err),
		)
		return ""
	}
	if record == nil {
		return ""
	}
	return record.Format
}
