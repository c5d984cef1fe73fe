package qa

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtensionVariants(t *testing.T) {
	tests := []struct {
		url  string
		want []string
	}{
		{"http://dept.gov.uk/coins.data.1996.csv.zip", []string{"csv.zip", "zip"}},
		{"http://dept.gov.uk/data.csv?callback=1", []string{"csv"}},
		{"http://dept.gov.uk/coins-data-1996", nil},
		{"http://dept.gov.uk/data.xls", []string{"xls"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtensionVariants(tt.url), tt.url)
	}
}
