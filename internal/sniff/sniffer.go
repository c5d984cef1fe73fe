package sniff

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/sells-group/data-qa/internal/model"
	"github.com/sells-group/data-qa/internal/registry"
)

// Buffer sizes for the secondary content probes. Fixed read sizes
// bound the cost of the recognizers on adversarial input.
const (
	xmlProbeBytes  = 5000
	htmlProbeBytes = 500
	tagProbeBytes  = 100
	textProbeBytes = 10000
	rdfaProbeBytes = 100000
)

// Sniffer works out the concrete format of a data file from its
// bytes. It is stateless across calls and safe for concurrent use.
type Sniffer struct {
	formats   *registry.Formats
	scores    *registry.Scores
	signature SignatureClassifier

	// excelProbe is swappable in tests; defaults to IsExcel.
	excelProbe func(string) bool
}

// NewSniffer builds a Sniffer. A nil signature classifier gets the
// default chain: native shapefile probe, then the OS file tool.
func NewSniffer(formats *registry.Formats, scores *registry.Scores, signature SignatureClassifier) *Sniffer {
	if signature == nil {
		signature = ClassifierChain{
			ShapefileProbe{},
			&FileTool{Formats: formats},
		}
	}
	return &Sniffer{
		formats:    formats,
		scores:     scores,
		signature:  signature,
		excelProbe: IsExcel,
	}
}

// mimeProbe pairs a MIME-type predicate with the content probe that
// resolves it, tried in priority order.
type mimeProbe struct {
	match func(mime string) bool
	probe func(s *Sniffer, filepath string) *model.SniffResult
}

var mimeProbes = []mimeProbe{
	{
		// some systems report XML as text/xml
		match: oneOf("application/xml", "text/xml"),
		probe: (*Sniffer).probeXML,
	},
	{
		match: oneOf("application/zip"),
		probe: (*Sniffer).probeZip,
	},
	{
		// MIME detection lumps Word and other legacy Office files
		// together, so ask the signature classifier which it is
		match: oneOf("application/msword", "application/vnd.ms-office", "application/x-ole-storage"),
		probe: (*Sniffer).probeOffice,
	},
	{
		match: oneOf("application/octet-stream"),
		probe: (*Sniffer).probeOctetStream,
	},
	{
		// IATI files are regularly mistaken for HTML
		match: oneOf("text/html"),
		probe: (*Sniffer).probeHTML,
	},
	{
		// script-heavy HTML pages come back as JavaScript
		match: oneOf("application/javascript", "text/javascript"),
		probe: (*Sniffer).probeJavaScript,
	},
}

func oneOf(mimes ...string) func(string) bool {
	return func(mime string) bool {
		for _, m := range mimes {
			if mime == m {
				return true
			}
		}
		return false
	}
}

// Sniff works out what file format the file at filepath is, returning
// the registry's canonical short name plus an optional container
// annotation. A nil result with nil error means the format could not
// be determined; callers must treat that as "format unknown", not an
// error.
func (s *Sniffer) Sniff(filepath string) (*model.SniffResult, error) {
	zap.L().Info("sniffing file format", zap.String("path", filepath))

	mtype, err := mimetype.DetectFile(filepath)
	if err != nil {
		return nil, err
	}
	mime := mtype.String()
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	zap.L().Info("content MIME type detected", zap.String("mime", mime))

	var result *model.SniffResult
	for _, p := range mimeProbes {
		if p.match(mime) {
			result = p.probe(s, filepath)
			break
		}
	}

	if result == nil {
		if short := s.formats.ShortName(mime); short != "" {
			result = &model.SniffResult{Format: short}
		}
	}

	if result == nil && textLike(mime) {
		result = s.probeText(filepath)
	}

	if result == nil {
		zap.L().Warn("MIME type not recognised as a data format", zap.String("mime", mime))
	}

	// Excel files are sometimes not picked up by MIME detection.
	if result == nil && s.excelProbe(filepath) {
		result = &model.SniffResult{Format: "XLS"}
	}

	// The signature tool picks up some files MIME detection misses.
	if result == nil {
		result = s.signatureResult(filepath)
	}

	if result == nil {
		zap.L().Warn("could not detect format of file", zap.String("path", filepath))
		return nil, nil
	}

	result = s.refine(filepath, result)
	zap.L().Info("file format detected", zap.String("format", result.Format))
	return result, nil
}

// refine re-examines generic verdicts: the TXT bucket hides JSON,
// delimited tables, undeclared XML, and Turtle; HTML may carry RDFa.
func (s *Sniffer) refine(filepath string, result *model.SniffResult) *model.SniffResult {
	switch result.Format {
	case "TXT":
		buf, err := readText(filepath, textProbeBytes)
		if err != nil {
			return result
		}
		switch {
		case IsJSON(buf):
			return &model.SniffResult{Format: "JSON"}
		case IsPSV(buf):
			return &model.SniffResult{Format: "PSV"}
		case IsCSV(buf):
			return &model.SniffResult{Format: "CSV"}
		case IsXMLWithoutDeclaration(buf):
			// XML files missing the "<?xml ... ?>" tag end up as TXT
			return XMLVariant(buf, s.formats)
		case IsTurtle(buf):
			return &model.SniffResult{Format: "TTL"}
		}
	case "HTML":
		buf, err := readText(filepath, rdfaProbeBytes)
		if err != nil {
			return result
		}
		if HasRDFa(buf) {
			return &model.SniffResult{Format: "RDFa"}
		}
	}
	return result
}

func (s *Sniffer) probeXML(filepath string) *model.SniffResult {
	buf, err := readText(filepath, xmlProbeBytes)
	if err != nil {
		return nil
	}
	return XMLVariant(buf, s.formats)
}

func (s *Sniffer) probeZip(filepath string) *model.SniffResult {
	return InspectZip(filepath, s.formats, s.scores)
}

func (s *Sniffer) probeOffice(filepath string) *model.SniffResult {
	if result := s.signatureResult(filepath); result != nil {
		return result
	}
	if s.excelProbe(filepath) {
		return &model.SniffResult{Format: "XLS"}
	}
	return nil
}

func (s *Sniffer) probeOctetStream(filepath string) *model.SniffResult {
	var result *model.SniffResult
	if s.excelProbe(filepath) {
		result = &model.SniffResult{Format: "XLS"}
	} else {
		// e.g. a bare shapefile member
		result = s.signatureResult(filepath)
	}
	if result == nil {
		raw, err := readBytes(filepath, htmlProbeBytes)
		if err == nil && IsHTML(decodeText(raw)) {
			result = &model.SniffResult{Format: "HTML"}
		}
	}
	return result
}

func (s *Sniffer) probeHTML(filepath string) *model.SniffResult {
	buf, err := readText(filepath, tagProbeBytes)
	if err != nil {
		return nil
	}
	if IsIATI(buf) {
		return &model.SniffResult{Format: "IATI"}
	}
	return nil
}

func (s *Sniffer) probeJavaScript(filepath string) *model.SniffResult {
	buf, err := readText(filepath, tagProbeBytes)
	if err != nil {
		return nil
	}
	if ContainsHTMLTag(buf) {
		return &model.SniffResult{Format: "HTML"}
	}
	return nil
}

func (s *Sniffer) probeText(filepath string) *model.SniffResult {
	buf, err := readText(filepath, textProbeBytes)
	if err != nil {
		return nil
	}
	switch {
	case IsJSON(buf):
		return &model.SniffResult{Format: "JSON"}
	case IsCSV(buf):
		return &model.SniffResult{Format: "CSV"}
	case IsPSV(buf):
		return &model.SniffResult{Format: "PSV"}
	}
	return nil
}

func (s *Sniffer) signatureResult(filepath string) *model.SniffResult {
	result, err := s.signature.Classify(filepath)
	if err != nil {
		zap.L().Debug("signature classification failed",
			zap.String("path", filepath),
			zap.Error(err),
		)
		return nil
	}
	return result
}

func textLike(mime string) bool {
	return strings.HasPrefix(mime, "text/") || mime == "application/csv"
}
