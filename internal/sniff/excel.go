package sniff

import (
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"
)

// IsExcel reports whether the file opens as an Excel workbook. Any
// open failure means "not Excel", never an error: the caller falls
// back to other probes.
func IsExcel(filepath string) bool {
	if _, err := xlsx.OpenFile(filepath); err != nil {
		zap.L().Debug("sniff: not Excel, workbook open failed",
			zap.String("path", filepath),
			zap.Error(err),
		)
		return false
	}
	zap.L().Debug("sniff: Excel workbook opened successfully", zap.String("path", filepath))
	return true
}
