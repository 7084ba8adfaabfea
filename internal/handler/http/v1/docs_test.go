package v1

import (
	"encoding/json"
	"regexp"
	"strings"
	"testing"

	_ "github.com/shenikar/relief_locator/docs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swaggo/swag"
)

var ginParam = regexp.MustCompile(`:(\w+)`)

// Каждый маршрут роутера должен быть описан в swagger, и наоборот
func TestSwaggerDocumentsEveryRoute(t *testing.T) {
	_, router := newTestHandler(t)

	raw, err := swag.ReadDoc()
	require.NoError(t, err)

	var doc struct {
		BasePath    string                                `json:"basePath"`
		Paths       map[string]map[string]json.RawMessage `json:"paths"`
		Definitions map[string]json.RawMessage            `json:"definitions"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))

	documented := make(map[string]bool)
	for path, ops := range doc.Paths {
		for method := range ops {
			documented[strings.ToUpper(method)+" "+path] = true
		}
	}

	registered := make(map[string]bool)
	for _, route := range router.Routes() {
		path := ginParam.ReplaceAllString(strings.TrimPrefix(route.Path, doc.BasePath), "{$1}")
		registered[route.Method+" "+path] = true
	}

	assert.Equal(t, registered, documented)
	assert.Contains(t, doc.Definitions, "v1.UpdateDetailsRequest")
	assert.Contains(t, doc.Definitions, "v1.ErrorBody")
}
