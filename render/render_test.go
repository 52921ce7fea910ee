package render

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/use-agent/smartpick/models"
)

func sampleDevices() []models.Device {
	p := 420.0
	return []models.Device{
		{
			Name: "Samsung Galaxy A55", Price: "About 420 EUR", Display: "6.6 inches",
			Processor: "Exynos 1480", RAM: "8GB/12GB", Storage: "128GB/256GB",
			MainCamera: "50 MP", Battery: "5000 mAh",
			URL: "https://www.gsmarena.com/samsung_galaxy_a55-12824.php", PriceValue: &p,
		},
		{Name: "Nokia 3310", Battery: "900 mAh"},
	}
}

func TestMarkdown(t *testing.T) {
	md, err := Markdown(sampleDevices())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(md), "\n")
	require.Len(t, lines, 4)
	require.Contains(t, lines[0], "Name")
	require.Contains(t, lines[0], "Battery")
	require.Contains(t, lines[1], "---")
	require.Contains(t, lines[2], "[Samsung Galaxy A55](https://www.gsmarena.com/samsung_galaxy_a55-12824.php)")
	require.Contains(t, lines[3], "Nokia 3310")
}

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Table(&buf, sampleDevices()))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	require.True(t, strings.HasPrefix(lines[0], "NAME"))
	require.Contains(t, lines[1], "8GB/12GB")
	require.Contains(t, lines[2], "Nokia 3310")
	require.Contains(t, lines[2], "-")
}

func TestResult(t *testing.T) {
	res := &models.SearchResult{
		ID:           "run-1",
		Devices:      sampleDevices()[:1],
		Failures:     []models.Failure{{URL: "https://x/y.php", Kind: models.FailureNetwork, Message: "timeout"}},
		PagesFetched: 1, DetailsFetched: 2,
	}

	var buf bytes.Buffer
	require.NoError(t, Result(&buf, FormatTable, res))
	require.Contains(t, buf.String(), "1 device(s), 1 listing page(s), 2 detail page(s)")
	require.Contains(t, buf.String(), "skipped https://x/y.php (NETWORK_FAILURE): timeout")

	buf.Reset()
	require.NoError(t, Result(&buf, FormatJSON, res))
	var decoded models.SearchResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Equal(t, "Samsung Galaxy A55", decoded.Devices[0].Name)

	require.Error(t, Result(&buf, "yaml", res))
}

func TestResult_Condition(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Result(&buf, FormatMarkdown, &models.SearchResult{Condition: models.ConditionNoConnectivity}))
	require.Contains(t, buf.String(), "condition: NO_CONNECTIVITY")
}

func TestDevice(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Device(&buf, FormatTable, sampleDevices()[1], []string{"ram", "storage"}))
	require.Contains(t, buf.String(), "Nokia 3310")
	require.Contains(t, buf.String(), "ram, storage")

	buf.Reset()
	require.NoError(t, Device(&buf, FormatJSON, sampleDevices()[1], []string{"ram"}))
	require.Contains(t, buf.String(), `"missing": [`)
	require.Contains(t, buf.String(), `"name": "Nokia 3310"`)
}
