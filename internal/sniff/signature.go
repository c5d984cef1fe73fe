package sniff

import (
	"os/exec"
	"regexp"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/data-qa/internal/model"
	"github.com/sells-group/data-qa/internal/registry"
)

// SignatureClassifier identifies legacy binary formats that MIME
// detection reports only generically. Implementations return nil with
// no error when they simply cannot tell; errors are reserved for the
// probe itself failing and are treated by callers as "no result".
type SignatureClassifier interface {
	Classify(filepath string) (*model.SniffResult, error)
}

// creatingAppFormats maps the "Creating Application" names reported
// for OLE compound documents to format extensions.
var creatingAppFormats = map[string]string{
	"Microsoft Office PowerPoint": "ppt",
	"Microsoft PowerPoint":        "ppt",
	"Microsoft Excel":             "xls",
	"Microsoft Office Word":       "doc",
	"Microsoft Word 10.0":         "doc",
	"Microsoft Macintosh Word":    "doc",
}

var (
	creatingAppRe = regexp.MustCompile(`Name of Creating Application: ([^,]*),`)
	shapefileRe   = regexp.MustCompile(`: ESRI Shapefile`)
)

// FileTool classifies via the OS "file" utility, parsing its stdout
// for a known creating application or the ESRI Shapefile marker.
type FileTool struct {
	// Path to the file binary; "file" when empty.
	Path    string
	Formats *registry.Formats
}

// Classify runs the file tool against filepath. A non-zero exit is a
// generic failure.
func (t *FileTool) Classify(filepath string) (*model.SniffResult, error) {
	bin := t.Path
	if bin == "" {
		bin = "file"
	}
	out, err := exec.Command(bin, filepath).Output()
	if err != nil {
		return nil, eris.Wrapf(err, "sniff: run %s", bin)
	}

	if m := creatingAppRe.FindSubmatch(out); m != nil {
		if ext, ok := creatingAppFormats[string(m[1])]; ok {
			entry, found := t.Formats.Get(ext)
			if found {
				zap.L().Debug("sniff: file tool detected format",
					zap.String("format", entry.Title),
				)
				return &model.SniffResult{Format: entry.ShortName}, nil
			}
		}
	}
	if shapefileRe.Match(out) {
		zap.L().Debug("sniff: file tool detected ESRI Shapefile")
		return &model.SniffResult{Format: "SHP"}, nil
	}

	zap.L().Debug("sniff: file tool could not determine format",
		zap.String("path", filepath),
		zap.ByteString("output", out),
	)
	return nil, nil
}

// ShapefileProbe natively opens the file as an ESRI shapefile member,
// catching .shp payloads that arrive as application/octet-stream.
type ShapefileProbe struct{}

// Classify attempts to read the file as a shapefile.
func (ShapefileProbe) Classify(filepath string) (*model.SniffResult, error) {
	r, err := shp.Open(filepath)
	if err != nil {
		return nil, nil
	}
	defer r.Close() //nolint:errcheck
	zap.L().Debug("sniff: shapefile opened natively", zap.String("path", filepath))
	return &model.SniffResult{Format: "SHP"}, nil
}

// ClassifierChain tries each classifier in order, returning the first
// verdict. Individual probe failures are logged and skipped.
type ClassifierChain []SignatureClassifier

// Classify runs the chain.
func (c ClassifierChain) Classify(filepath string) (*model.SniffResult, error) {
	for _, classifier := range c {
		result, err := classifier.Classify(filepath)
		if err != nil {
			zap.L().Debug("sniff: signature classifier failed",
				zap.String("path", filepath),
				zap.Error(err),
			)
			continue
		}
		if result != nil {
			return result, nil
		}
	}
	return nil, nil
}
